package invoice

import (
	"time"

	"github.com/zombor/invoice-tracker/internal/extraction"
)

// Record is a persisted invoice: a vendor and invoice body plus the identity
// of the source document and store-assigned fields.
type Record struct {
	ID        string                 `json:"id"`
	FileID    string                 `json:"fileId"`
	FileName  string                 `json:"fileName"`
	Vendor    extraction.Vendor      `json:"vendor"`
	Invoice   extraction.InvoiceBody `json:"invoice"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Body is the client-supplied portion of a Record, submitted on manual create
// and update. It is validated strictly and its derived totals are recomputed
// before persistence.
type Body struct {
	FileID   string                 `json:"fileId"`
	FileName string                 `json:"fileName"`
	Vendor   extraction.Vendor      `json:"vendor"`
	Invoice  extraction.InvoiceBody `json:"invoice"`
}
