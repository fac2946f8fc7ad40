package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/parser"
)

// LocalBackend parses files offline with the built-in parsers.
type LocalBackend struct{}

// Validate always succeeds; there is no credential to check.
func (LocalBackend) Validate(context.Context) error { return nil }

func (LocalBackend) Parse(ctx context.Context, name string, content []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := parser.Parse(name, content)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(name)
	return &Document{
		Name: base,
		Text: text,
		Metadata: map[string]any{
			"title": strings.TrimSuffix(base, filepath.Ext(base)),
			"type":  fileType(base),
		},
	}, nil
}
