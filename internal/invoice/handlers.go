package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/invoice-tracker/internal/extraction"
)

// maxUploadSize caps uploaded PDFs at 25MB
const maxUploadSize = int64(25 << 20)

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeErrorMessage writes a JSON error body with the given status
func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps a pipeline error to a client-facing status and message.
// Nothing is swallowed: unknown errors are logged and become a 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		badRequest    *BadRequestError
		validationErr *ValidationError
		upstreamErr   *extraction.UpstreamError
		malformedErr  *extraction.MalformedResponseError
		structureErr  *extraction.InvalidStructureError
	)

	switch {
	case errors.As(err, &badRequest):
		writeErrorMessage(w, http.StatusBadRequest, badRequest.Message)
	case errors.As(err, &validationErr):
		writeErrorMessage(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Invoice not found")
	case errors.As(err, &upstreamErr), errors.As(err, &malformedErr), errors.As(err, &structureErr):
		writeErrorMessage(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("Unhandled error", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// handleUploadDocument accepts a PDF upload and stores it
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 25MB.")
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 25MB.")
		return
	}
	if header.Header.Get("Content-Type") != "application/pdf" {
		writeErrorMessage(w, http.StatusUnsupportedMediaType, "Only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading upload", "filename", header.Filename, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	result, err := s.service.UploadDocument(header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleExtract runs the AI extraction pipeline for an uploaded document
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Reject incomplete requests before any pipeline work
	switch {
	case req.FileID == "":
		writeErrorMessage(w, http.StatusBadRequest, "fileId is required")
		return
	case req.Model == "":
		writeErrorMessage(w, http.StatusBadRequest, "model is required (gemini or groq)")
		return
	case req.DocumentPath == "":
		writeErrorMessage(w, http.StatusBadRequest, "documentPath is required")
		return
	case req.FileName == "":
		writeErrorMessage(w, http.StatusBadRequest, "fileName is required")
		return
	}

	record, err := s.service.ExtractInvoice(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetDocument serves the stored PDF for a file id
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Document ID required")
		return
	}
	data, err := s.service.GetDocument(id)
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "Document not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Write(data)
}

// handleListInvoices returns all invoices, filtered by the q parameter
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListInvoices(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetInvoice returns a single invoice
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetInvoice(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleCreateInvoice creates an invoice from a manual submission
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body Body
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := s.service.CreateInvoice(&body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleUpdateInvoice replaces the full body of an invoice
func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var body Body
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := s.service.UpdateInvoice(r.PathValue("id"), &body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteInvoice deletes an invoice
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInvoice(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
