package extraction

import (
	"context"
	"encoding/json"
	"strings"
)

// Vendor identifies the party that issued the invoice.
type Vendor struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

// LineItem is a single billed row on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// InvoiceBody holds the invoice fields shared by the AI and manual paths.
// Dates are canonical YYYY-MM-DD strings.
type InvoiceBody struct {
	Number     string     `json:"number"`
	Date       string     `json:"date"`
	Currency   string     `json:"currency,omitempty"`
	Subtotal   float64    `json:"subtotal"`
	TaxPercent float64    `json:"taxPercent"`
	Total      float64    `json:"total"`
	PONumber   string     `json:"poNumber,omitempty"`
	PODate     string     `json:"poDate,omitempty"`
	LineItems  []LineItem `json:"lineItems"`
}

// ExtractedInvoice is the normalized result of an AI extraction, before
// identity fields are attached. It is never persisted on its own.
type ExtractedInvoice struct {
	Vendor  Vendor      `json:"vendor"`
	Invoice InvoiceBody `json:"invoice"`
}

// Extractor defines the interface for AI invoice extraction backends.
// Extract sends the document text to the backend and returns the raw JSON
// object it produced. Implementations do not retry and do not impose their
// own deadline; callers own the context timeout.
type Extractor interface {
	Extract(ctx context.Context, text string) (json.RawMessage, error)
	// Close closes the extractor and releases resources
	Close() error
}

// extractionPrompt is the shared prompt used by all backends. The document
// text is appended after it.
const extractionPrompt = `Extract invoice data from the following PDF text. Return a valid JSON object with the following structure:
{
  "vendor": {
    "name": "Vendor Name",
    "address": "Vendor Address (if available, otherwise omit)"
  },
  "invoice": {
    "number": "Invoice Number",
    "date": "Invoice Date (in ISO format if possible)",
    "total": 123.45,
    "lineItems": [
      {
        "description": "Item Description",
        "quantity": 1,
        "unitPrice": 123.45,
        "total": 123.45
      }
    ]
  }
}
Handle missing fields by omitting them or setting to null. Ensure the JSON is valid.
Do not use markdown code blocks.
PDF Text:
`

// extractJSON trims markdown fences and any surrounding prose from a model
// response, leaving just the JSON object between the first '{' and the last
// '}'. Returns false when no object boundaries are present.
func extractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
