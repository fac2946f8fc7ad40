// Package parser extracts plain text from local documents for offline ingestion.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/chartloom/internal/utils"
)

// Parser defines a document parser implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, content []byte) (string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ParseFile reads path and parses it by extension.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse selects a parser by name and returns the extracted text.
// Unknown extensions fall back to plain text.
func Parse(name string, content []byte) (string, error) {
	for _, p := range registry {
		if p.CanParse(name) {
			return p.Parse(name, content)
		}
	}
	return string(content), nil
}

// EstimateTokens delegates to utils.CountTokens.
func EstimateTokens(text string) int {
	return utils.CountTokens(text)
}

func init() {
	Register(txtParser{})
	Register(markdownParser{})
	Register(docxParser{})
	Register(csvParser{})
	Register(xlsxParser{})
}

// ErrUnsupported indicates a format is not supported yet.
var ErrUnsupported = errors.New("unsupported document format")
