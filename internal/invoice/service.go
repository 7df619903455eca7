package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-tracker/internal/extraction"
)

// IDGenerator generates unique IDs for records and documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (t *systemClock) Now() time.Time {
	return time.Now()
}

const defaultExtractTimeout = 30 * time.Second

// Service handles invoice operations. Every request is an independent,
// stateless unit of work.
type Service struct {
	db             DB
	storage        Storage
	textExtractor  extraction.TextExtractor
	extractors     map[string]extraction.Extractor
	extractTimeout time.Duration
	idGenerator    IDGenerator
	timeSource     TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// extractors maps a model name to its backend; the keys are the only model
// values the extract pipeline accepts.
func NewService(db DB, storage Storage, textExtractor extraction.TextExtractor, extractors map[string]extraction.Extractor) *Service {
	return &Service{
		db:             db,
		storage:        storage,
		textExtractor:  textExtractor,
		extractors:     extractors,
		extractTimeout: defaultExtractTimeout,
		idGenerator:    &uuidGenerator{},
		timeSource:     &systemClock{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, textExtractor extraction.TextExtractor, extractors map[string]extraction.Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := NewService(db, storage, textExtractor, extractors)
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

// UploadResult identifies a stored source document.
type UploadResult struct {
	FileID       string `json:"fileId"`
	FileName     string `json:"fileName"`
	DocumentPath string `json:"documentPath"`
}

// UploadDocument stores an uploaded PDF and returns its identity and an
// opaque reference for later extraction.
func (s *Service) UploadDocument(fileName string, data []byte) (*UploadResult, error) {
	fileID := s.idGenerator.Generate()

	path, err := s.storage.Save(fileID+".pdf", data)
	if err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	return &UploadResult{
		FileID:       fileID,
		FileName:     fileName,
		DocumentPath: path,
	}, nil
}

// GetDocument retrieves the stored PDF for a file id
func (s *Service) GetDocument(fileID string) ([]byte, error) {
	data, err := s.storage.Get(fileID + ".pdf")
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return data, nil
}

// ExtractRequest names the document to extract and the backend to use.
type ExtractRequest struct {
	FileID       string `json:"fileId"`
	Model        string `json:"model"`
	DocumentPath string `json:"documentPath"`
	FileName     string `json:"fileName"`
}

// ExtractInvoice runs the extraction pipeline: fetch the document, extract
// its text, run the selected backend, normalize, reconcile totals, persist.
// The backend call runs under the service's extraction timeout.
func (s *Service) ExtractInvoice(ctx context.Context, req ExtractRequest) (*Record, error) {
	extractor, ok := s.extractors[req.Model]
	if !ok {
		return nil, &BadRequestError{Message: fmt.Sprintf("invalid model %q, use \"gemini\" or \"groq\"", req.Model)}
	}

	// Document references are single flat filenames issued by UploadDocument.
	if strings.ContainsAny(req.DocumentPath, `/\`) || strings.Contains(req.DocumentPath, "..") {
		return nil, &BadRequestError{Message: "invalid documentPath"}
	}

	data, err := s.storage.Get(req.DocumentPath)
	if err != nil {
		return nil, &extraction.UpstreamError{Backend: "document storage", Err: err}
	}

	text, err := s.textExtractor.Text(data)
	if err != nil {
		return nil, fmt.Errorf("extracting document text: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	raw, err := extractor.Extract(ctx, text)
	if err != nil {
		slog.Error("Extraction failed",
			"model", req.Model,
			"file_id", req.FileID,
			"file_name", req.FileName,
			"error", err,
		)
		return nil, err
	}

	extracted, err := extraction.Normalize(raw)
	if err != nil {
		slog.Error("Normalization failed", "model", req.Model, "file_id", req.FileID, "error", err)
		return nil, err
	}
	Recalculate(&extracted.Invoice)

	now := s.timeSource.Now()
	record := &Record{
		ID:        s.idGenerator.Generate(),
		FileID:    req.FileID,
		FileName:  req.FileName,
		Vendor:    extracted.Vendor,
		Invoice:   extracted.Invoice,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.SaveInvoice(record); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}

	return record, nil
}

// CreateInvoice validates a manual submission, reconciles its totals, and
// persists it with fresh identity and timestamps.
func (s *Service) CreateInvoice(body *Body) (*Record, error) {
	if body.Invoice.Currency == "" {
		body.Invoice.Currency = extraction.DefaultCurrency
	}
	if err := Validate(body); err != nil {
		return nil, err
	}
	Recalculate(&body.Invoice)

	now := s.timeSource.Now()
	record := &Record{
		ID:        s.idGenerator.Generate(),
		FileID:    body.FileID,
		FileName:  body.FileName,
		Vendor:    body.Vendor,
		Invoice:   body.Invoice,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.SaveInvoice(record); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return record, nil
}

// GetInvoice retrieves a record by id
func (s *Service) GetInvoice(id string) (*Record, error) {
	return s.db.GetInvoice(id)
}

// ListInvoices returns all records, or when query is non-empty only those
// whose vendor name or invoice number contains it, case-insensitively.
func (s *Service) ListInvoices(query string) ([]*Record, error) {
	records, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	if query == "" {
		return records, nil
	}

	q := strings.ToLower(query)
	matched := make([]*Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Vendor.Name), q) ||
			strings.Contains(strings.ToLower(r.Invoice.Number), q) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// UpdateInvoice replaces the full body of an existing record. The body is
// re-validated and re-derived; there are no partial-field patch semantics.
func (s *Service) UpdateInvoice(id string, body *Body) (*Record, error) {
	existing, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, err
	}

	if body.Invoice.Currency == "" {
		body.Invoice.Currency = extraction.DefaultCurrency
	}
	if err := Validate(body); err != nil {
		return nil, err
	}
	Recalculate(&body.Invoice)

	record := &Record{
		ID:        existing.ID,
		FileID:    body.FileID,
		FileName:  body.FileName,
		Vendor:    body.Vendor,
		Invoice:   body.Invoice,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.timeSource.Now(),
	}

	if err := s.db.SaveInvoice(record); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return record, nil
}

// DeleteInvoice removes a record and its stored source document, if any. The
// record is the source of truth; a failed blob removal is logged, not fatal.
func (s *Service) DeleteInvoice(id string) error {
	record, err := s.db.GetInvoice(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteInvoice(id); err != nil {
		return err
	}
	if record.FileID != "" {
		if err := s.storage.Delete(record.FileID + ".pdf"); err != nil {
			slog.Warn("Deleting document failed", "file_id", record.FileID, "error", err)
		}
	}
	return nil
}
