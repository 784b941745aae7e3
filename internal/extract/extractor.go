// Package extract reads the text of ingestible source files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for file extensions the extractor does not handle.
var ErrUnsupported = errors.New("unsupported file type")

// DefaultExtensions are the formats Extract understands.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

// Extractor extracts plain text from document files.
type Extractor struct {
	allowed map[string]bool
}

// NewExtractor returns an Extractor restricted to extensions. An empty list
// allows DefaultExtensions.
func NewExtractor(extensions ...string) *Extractor {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &Extractor{allowed: allowed}
}

// Supports reports whether path has an allowed extension.
func (e *Extractor) Supports(path string) bool {
	return e.allowed[strings.ToLower(filepath.Ext(path))]
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !e.allowed[ext] {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".txt", ".md", ".text", ".markdown":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%q: %w", ext, ErrUnsupported)
	}
}
