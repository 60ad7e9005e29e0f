// Package extract pulls per-page text out of documents.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ForPath picks an extractor by file extension. PDFs get the PDF reader;
// everything else is treated as plain text with form feeds as page breaks.
func ForPath(path string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDF(), nil
	case ".txt", ".text", ".md", "":
		return NewText(), nil
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

// Extractor reads page-oriented text from a document on disk.
type Extractor interface {
	PageCount(path string) (int, error)
	PageText(path string, page int) (string, error)
}
