// Package ingest turns reference documents into text for analysis prompts,
// through a hosted parsing service or the local parsers.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom/internal/ai"
)

// ErrInvalidKey is returned when the backend rejects the credentials.
var ErrInvalidKey = errors.New("Invalid API key or authentication failed")

// Ingestion retry defaults.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// Document is one parsed input.
type Document struct {
	Name     string         `json:"name"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// File is raw input handed to a backend.
type File struct {
	Name    string
	Content []byte
}

// Backend parses files into documents.
type Backend interface {
	Validate(ctx context.Context) error
	Parse(ctx context.Context, name string, content []byte) (*Document, error)
}

// ItemError reports the file that could not be processed.
type ItemError struct {
	Name string
	Err  error
}

func (e *ItemError) Error() string { return "document processing failed: " + e.Err.Error() }

func (e *ItemError) Unwrap() error { return e.Err }

// DefaultPolicy retries rate-limited calls three times, waiting base*attempt.
func DefaultPolicy(base time.Duration) ai.RetryPolicy {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return ai.RateLimitPolicy(DefaultAttempts, base)
}

// Ingester validates the backend once, then parses files in order.
type Ingester struct {
	Backend Backend
	Policy  ai.RetryPolicy
	Logger  *slog.Logger
}

// NewIngester returns an Ingester using DefaultPolicy(base).
func NewIngester(b Backend, base time.Duration) *Ingester {
	return &Ingester{Backend: b, Policy: DefaultPolicy(base)}
}

func (in *Ingester) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

// Ingest parses every file. The first failing file stops the run; documents
// parsed before it are returned with the error.
func (in *Ingester) Ingest(ctx context.Context, files []File) ([]*Document, error) {
	if in.Backend == nil {
		return nil, errors.New("no ingestion backend configured")
	}
	if err := in.Backend.Validate(ctx); err != nil {
		in.logger().Debug("ingest key validation failed", "error", err)
		return nil, ErrInvalidKey
	}
	out := make([]*Document, 0, len(files))
	for _, f := range files {
		var doc *Document
		err := in.Policy.Do(ctx, func(attempt int) error {
			d, err := in.Backend.Parse(ctx, f.Name, f.Content)
			if err != nil {
				if ai.IsRateLimited(err) {
					in.logger().Warn("rate limit hit, retrying", "file", f.Name, "attempt", attempt)
				}
				return err
			}
			doc = d
			return nil
		})
		if err != nil {
			return out, &ItemError{Name: f.Name, Err: err}
		}
		out = append(out, doc)
	}
	return out, nil
}

// Metadata is the normalized description of a parsed document.
type Metadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	PageCount int    `json:"pageCount"`
}

// ExtractMetadata fills missing fields with defaults: Untitled, Unknown and one page.
func ExtractMetadata(docs []*Document) []Metadata {
	out := make([]Metadata, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		out = append(out, Metadata{
			Title:     metaString(d.Metadata, "title", "Untitled"),
			Author:    metaString(d.Metadata, "author", "Unknown"),
			Date:      metaString(d.Metadata, "date", "Unknown"),
			Type:      metaString(d.Metadata, "type", "Unknown"),
			Content:   d.Text,
			PageCount: metaInt(d.Metadata, "pageCount", 1),
		})
	}
	return out
}

func metaString(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return def
}

func metaInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

func fileType(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
