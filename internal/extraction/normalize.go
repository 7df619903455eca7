package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Defaults applied during normalization, gathered in one place so the default
// policy is auditable and testable as a unit. A zero, empty, or missing field
// always receives its default; normalization never fails on a bad sub-field.
const (
	DefaultVendorName      = "Unknown Vendor"
	DefaultItemDescription = "Unknown Item"
	DefaultItemQuantity    = 1
	DefaultInvoiceNumber   = "Unknown"
	DefaultCurrency        = "USD"
)

// dateFormats are tried in order when canonicalizing a model-provided date.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.999Z",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// Normalize parses a raw JSON object produced by an extraction backend and
// fills missing or invalid fields with deterministic defaults. It fails only
// when the top-level vendor or invoice value is absent or falsy; every other
// problem is recovered field-locally. Totals are passed through as-is, reconciliation
// is a separate step.
func Normalize(raw []byte) (*ExtractedInvoice, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &InvalidStructureError{Missing: "vendor"}
	}

	vendorObj, ok := objectField(doc, "vendor")
	if !ok {
		return nil, &InvalidStructureError{Missing: "vendor"}
	}
	invoiceObj, ok := objectField(doc, "invoice")
	if !ok {
		return nil, &InvalidStructureError{Missing: "invoice"}
	}

	vendor := Vendor{
		Name:    stringField(vendorObj, "name", DefaultVendorName),
		Address: stringField(vendorObj, "address", ""),
		TaxID:   stringField(vendorObj, "taxId", ""),
	}

	items := sliceField(invoiceObj, "lineItems")
	lineItems := make([]LineItem, 0, len(items))
	for _, v := range items {
		item, ok := v.(map[string]any)
		if !ok {
			item = map[string]any{}
		}
		lineItems = append(lineItems, LineItem{
			Description: stringField(item, "description", DefaultItemDescription),
			Quantity:    intField(item, "quantity", DefaultItemQuantity),
			UnitPrice:   numberField(item, "unitPrice", 0),
			Total:       numberField(item, "total", 0),
		})
	}

	invoice := InvoiceBody{
		Number:     stringField(invoiceObj, "number", DefaultInvoiceNumber),
		Date:       normalizeDate(stringField(invoiceObj, "date", "")),
		Currency:   stringField(invoiceObj, "currency", DefaultCurrency),
		Subtotal:   numberField(invoiceObj, "subtotal", 0),
		TaxPercent: numberField(invoiceObj, "taxPercent", 0),
		Total:      numberField(invoiceObj, "total", 0),
		PONumber:   stringField(invoiceObj, "poNumber", ""),
		PODate:     stringField(invoiceObj, "poDate", ""),
		LineItems:  lineItems,
	}

	return &ExtractedInvoice{Vendor: vendor, Invoice: invoice}, nil
}

// ParseDate parses a date string in any of the accepted formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// normalizeDate canonicalizes a model-provided date to YYYY-MM-DD. An absent
// or unparseable date falls back to today; AI extraction never fails on bad
// dates, unlike the strict manual-entry path.
func normalizeDate(s string) string {
	d, err := ParseDate(s)
	if err != nil {
		return time.Now().Format("2006-01-02")
	}
	return d.Format("2006-01-02")
}

// objectField reads a top-level extraction object. Absent, null, and other
// falsy values count as missing; a truthy non-object value is kept as an
// empty object so every sub-field takes its default.
func objectField(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case nil:
		return nil, false
	case bool:
		if !t {
			return nil, false
		}
	case float64:
		if t == 0 {
			return nil, false
		}
	case string:
		if t == "" {
			return nil, false
		}
	}
	return map[string]any{}, true
}

func sliceField(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}

func stringField(m map[string]any, key, def string) string {
	s, _ := m[key].(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// numberField reads a numeric field, tolerating models that quote numbers as
// strings. Zero and garbage both collapse to the default.
func numberField(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		if v == 0 {
			return def
		}
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
			return f
		}
	}
	return def
}

// intField reads a quantity-like field. Fractional values round to the
// nearest integer, with a floor of 1 so a small nonzero quantity never
// collapses to zero.
func intField(m map[string]any, key string, def int) int {
	n := numberField(m, key, 0)
	if n == 0 {
		return def
	}
	q := int(math.Round(n))
	if q == 0 {
		q = 1
	}
	return q
}
