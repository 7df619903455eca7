package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-tracker/internal/extraction"
)

// Recalculate derives every computed money field on body from its inputs:
// each line total from quantity and unit price, the subtotal from the line
// totals, and the grand total from the subtotal and tax percent. It runs the
// same way after AI extraction and after a manual edit.
//
// All four derived quantities use decimal arithmetic rounded half-up to two
// decimal places, so repeated recalculation is stable.
func Recalculate(body *extraction.InvoiceBody) {
	subtotal := decimal.Zero
	for i := range body.LineItems {
		item := &body.LineItems[i]
		lineTotal := decimal.NewFromInt(int64(item.Quantity)).
			Mul(decimal.NewFromFloat(item.UnitPrice)).
			Round(2)
		item.Total, _ = lineTotal.Float64()
		subtotal = subtotal.Add(lineTotal)
	}
	subtotal = subtotal.Round(2)

	taxAmount := taxAmount(subtotal, body.TaxPercent)
	total := subtotal.Add(taxAmount).Round(2)

	body.Subtotal, _ = subtotal.Float64()
	body.Total, _ = total.Float64()
}

// TaxAmount returns the rounded tax portion of a reconciled body.
func TaxAmount(body *extraction.InvoiceBody) float64 {
	amount, _ := taxAmount(decimal.NewFromFloat(body.Subtotal), body.TaxPercent).Float64()
	return amount
}

func taxAmount(subtotal decimal.Decimal, taxPercent float64) decimal.Decimal {
	return subtotal.
		Mul(decimal.NewFromFloat(taxPercent)).
		Div(decimal.NewFromInt(100)).
		Round(2)
}
