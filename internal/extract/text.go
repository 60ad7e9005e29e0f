package extract

import (
	"fmt"
	"os"
	"strings"
)

// Text extracts pages from plain text files. Form feed characters split
// the file into pages; a file without any form feeds is a single page.
type Text struct{}

// NewText creates a plain text extractor.
func NewText() *Text {
	return &Text{}
}

// PageCount returns the number of form-feed separated pages at path.
func (e *Text) PageCount(path string) (int, error) {
	pages, err := e.pages(path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// PageText returns the 0-based page.
func (e *Text) PageText(path string, page int) (string, error) {
	pages, err := e.pages(path)
	if err != nil {
		return "", err
	}
	if page < 0 || page >= len(pages) {
		return "", fmt.Errorf("page %d out of range, file has %d pages", page, len(pages))
	}
	return pages[page], nil
}

func (e *Text) pages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.Split(string(data), "\f"), nil
}
