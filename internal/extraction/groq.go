package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Groq implements the Extractor interface using Groq's OpenAI-compatible
// chat completions API.
type Groq struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGroq creates a new Groq Extractor instance
func NewGroq(apiKey string, modelName string) (*Groq, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}
	if modelName == "" {
		modelName = "llama3-8b-8192"
	}

	return &Groq{
		baseURL: "https://api.groq.com/openai/v1",
		apiKey:  apiKey,
		model:   modelName,
		client:  &http.Client{},
	}, nil
}

// groqChatRequest represents the request body for Groq's chat API
type groqChatRequest struct {
	Model          string             `json:"model"`
	Messages       []groqMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat groqResponseFormat `json:"response_format"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqChatResponse represents the response from Groq's chat API
type groqChatResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

// Extract sends the extraction prompt plus the document text to Groq and
// returns the raw JSON object from the response.
func (g *Groq) Extract(ctx context.Context, text string) (json.RawMessage, error) {
	reqBody := groqChatRequest{
		Model:          g.model,
		Temperature:    0,
		ResponseFormat: groqResponseFormat{Type: "json_object"},
		Messages: []groqMessage{
			{Role: "user", Content: extractionPrompt + text},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Backend: "groq", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Backend: "groq", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var chatResp groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &MalformedResponseError{Backend: "groq", Err: fmt.Errorf("decoding response envelope: %w", err)}
	}

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return nil, &UpstreamError{Backend: "groq", Err: errors.New("no response choices")}
	}

	raw, ok := extractJSON(chatResp.Choices[0].Message.Content)
	if !ok {
		return nil, &MalformedResponseError{Backend: "groq", Err: errors.New("no JSON object found in response")}
	}
	if !json.Valid([]byte(raw)) {
		return nil, &MalformedResponseError{Backend: "groq", Err: errors.New("response is not valid JSON")}
	}

	return json.RawMessage(raw), nil
}

// Close closes the Groq client (no-op for HTTP client)
func (g *Groq) Close() error {
	return nil
}
