package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/invoice-tracker/internal/extraction"
)

// bodySchema is the strict schema applied to manual submissions. The lenient
// AI path never goes through it; partial model output is recovered by
// normalization instead. Keep the two regimes separate.
const bodySchema = `{
  "type": "object",
  "properties": {
    "fileId": {"type": "string", "minLength": 1},
    "fileName": {"type": "string", "minLength": 1},
    "vendor": {
      "type": "object",
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "address": {"type": "string"},
        "taxId": {"type": "string"}
      },
      "required": ["name"]
    },
    "invoice": {
      "type": "object",
      "properties": {
        "number": {"type": "string", "minLength": 1},
        "date": {"type": "string", "minLength": 1},
        "currency": {"type": "string"},
        "subtotal": {"type": "number", "minimum": 0},
        "taxPercent": {"type": "number", "minimum": 0, "maximum": 100},
        "total": {"type": "number", "minimum": 0},
        "poNumber": {"type": "string"},
        "poDate": {"type": "string"},
        "lineItems": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "properties": {
              "description": {"type": "string", "minLength": 1},
              "quantity": {"type": "integer", "minimum": 1},
              "unitPrice": {"type": "number", "minimum": 0},
              "total": {"type": "number", "minimum": 0}
            },
            "required": ["description", "quantity", "unitPrice", "total"]
          }
        }
      },
      "required": ["number", "date", "total", "lineItems"]
    }
  },
  "required": ["fileId", "fileName", "vendor", "invoice"]
}`

var compiledBodySchema = jsonschema.MustCompileString("invoice-body.json", bodySchema)

// ValidationError reports the first rule a manual submission violated. The
// whole submission is rejected; there is no partial acceptance.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate applies the strict manual-entry rules to body. Date fields are
// checked in Go because the schema cannot express "parseable date".
func Validate(body *Body) error {
	doc, err := schemaDocument(body)
	if err != nil {
		return fmt.Errorf("encoding body for validation: %w", err)
	}

	if err := compiledBodySchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := firstCause(ve)
			return &ValidationError{
				Field:   fieldName(leaf.InstanceLocation),
				Message: leaf.Message,
			}
		}
		return err
	}

	if _, err := extraction.ParseDate(body.Invoice.Date); err != nil {
		return &ValidationError{Field: "invoice.date", Message: "must be a valid date"}
	}
	if body.Invoice.PODate != "" {
		if _, err := extraction.ParseDate(body.Invoice.PODate); err != nil {
			return &ValidationError{Field: "invoice.poDate", Message: "must be a valid date"}
		}
	}
	return nil
}

// schemaDocument round-trips body through JSON so the validator sees exactly
// the wire representation.
func schemaDocument(body *Body) (any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func firstCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func fieldName(instanceLocation string) string {
	field := strings.ReplaceAll(strings.TrimPrefix(instanceLocation, "/"), "/", ".")
	if field == "" {
		return "body"
	}
	return field
}
