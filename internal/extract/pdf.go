package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text from PDF documents, one page at a time.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// PageCount returns the number of pages in the PDF at path.
func (e *PDF) PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	return r.NumPage(), nil
}

// PageText returns the plain text of a 0-based page. Pages without any
// extractable text yield an empty string, not an error.
func (e *PDF) PageText(path string, page int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	if page < 0 || page >= r.NumPage() {
		return "", fmt.Errorf("page %d out of range, pdf has %d pages", page, r.NumPage())
	}

	p := r.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting page %d of %s: %w", page+1, path, err)
	}
	return text, nil
}
