package extraction

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextExtractor defines the interface for turning a PDF binary into plain text
type TextExtractor interface {
	Text(data []byte) (string, error)
}

// PDFText implements TextExtractor using go-fitz
type PDFText struct{}

// Text extracts the text of every page, concatenated in page order
func (PDFText) Text(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i, err)
		}
		b.WriteString(page)
		b.WriteString("\n")
	}
	return b.String(), nil
}
