// Package client provides a Go client for the invoice-tracker HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/zombor/invoice-tracker/internal/invoice"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client is an invoice-tracker API client. Requests that fail at the
// network level are retried with exponential backoff; 429 responses are
// retried after the server's Retry-After interval.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	sleep      func(time.Duration)
}

// New creates a Client for the given base URL
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: defaultTimeout})
}

// NewWithHTTPClient creates a Client with a custom http.Client for testing
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: 3,
		sleep:      time.Sleep,
	}
}

// ListInvoices returns all invoices, filtered by query when non-empty
func (c *Client) ListInvoices(ctx context.Context, query string) ([]invoice.Record, error) {
	path := "/api/invoices"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var records []invoice.Record
	if err := c.do(ctx, http.MethodGet, path, nil, "", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetInvoice fetches a single invoice by id
func (c *Client) GetInvoice(ctx context.Context, id string) (*invoice.Record, error) {
	var record invoice.Record
	if err := c.do(ctx, http.MethodGet, "/api/invoices/"+url.PathEscape(id), nil, "", &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateInvoice creates an invoice from a manual submission
func (c *Client) CreateInvoice(ctx context.Context, body *invoice.Body) (*invoice.Record, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding invoice: %w", err)
	}
	var record invoice.Record
	if err := c.do(ctx, http.MethodPost, "/api/invoices", data, "application/json", &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateInvoice replaces the full body of an invoice
func (c *Client) UpdateInvoice(ctx context.Context, id string, body *invoice.Body) (*invoice.Record, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding invoice: %w", err)
	}
	var record invoice.Record
	if err := c.do(ctx, http.MethodPut, "/api/invoices/"+url.PathEscape(id), data, "application/json", &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteInvoice deletes an invoice by id
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/invoices/"+url.PathEscape(id), nil, "", nil)
}

// UploadDocument uploads a PDF and returns the stored file's identifiers
func (c *Client) UploadDocument(ctx context.Context, fileName string, pdf []byte) (*invoice.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, fmt.Errorf("writing multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var result invoice.UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/upload", buf.Bytes(), mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractInvoice runs AI extraction on an uploaded document
func (c *Client) ExtractInvoice(ctx context.Context, req invoice.ExtractRequest) (*invoice.Record, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	var record invoice.Record
	if err := c.do(ctx, http.MethodPost, "/api/extract", data, "application/json", &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetDocument downloads the stored PDF for a file id
func (c *Client) GetDocument(ctx context.Context, id string) ([]byte, error) {
	var pdf []byte
	err := c.doRaw(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), func(r io.Reader) error {
		var err error
		pdf, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// do performs a request with retries, decoding a JSON response into out
// when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiErrorFromResponse(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// doRaw performs a request with retries and hands the response body to read
func (c *Client) doRaw(ctx context.Context, method, path string, read func(io.Reader) error) error {
	resp, err := c.send(ctx, method, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiErrorFromResponse(resp)
	}
	return read(resp.Body)
}

// send issues the request, retrying network failures with exponential
// backoff and 429 responses after the Retry-After interval. Retries are
// bounded by maxRetries in both cases.
func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			if attempt < c.maxRetries {
				c.sleep(time.Duration(1<<(attempt+1)) * time.Second)
				continue
			}
			return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				resp.Body.Close()
				c.sleep(time.Duration(secs) * time.Second)
				continue
			}
		}

		return resp, nil
	}
	return nil, lastErr
}

// apiErrorFromResponse builds an APIError from an error response body
func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
