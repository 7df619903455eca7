package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Extract sends the extraction prompt plus the document text to Gemini and
// returns the raw JSON object from the response.
func (g *Gemini) Extract(ctx context.Context, text string) (json.RawMessage, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(extractionPrompt+text))
	if err != nil {
		return nil, &UpstreamError{Backend: "gemini", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &UpstreamError{Backend: "gemini", Err: errors.New("no response candidates")}
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			responseText.WriteString(string(t))
		}
	}

	raw, ok := extractJSON(responseText.String())
	if !ok {
		return nil, &MalformedResponseError{Backend: "gemini", Err: errors.New("no JSON object found in response")}
	}
	if !json.Valid([]byte(raw)) {
		return nil, &MalformedResponseError{Backend: "gemini", Err: errors.New("response is not valid JSON")}
	}

	return json.RawMessage(raw), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
