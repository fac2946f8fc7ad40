package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom/internal/ai"
)

const parseBaseURL = "https://api.cloud.llamaindex.ai/api/parsing"

// ErrMissingKey is returned before any request when no key is configured.
var ErrMissingKey = errors.New("document parsing API key is missing (set LLAMA_CLOUD_API_KEY)")

// ParseClient uploads documents to a hosted parsing service, polls the job
// and fetches the markdown result.
type ParseClient struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	pollInterval time.Duration
}

// ParseOption customises a ParseClient.
type ParseOption func(*ParseClient)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) ParseOption {
	return func(c *ParseClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithPollInterval sets the delay between job status checks.
func WithPollInterval(d time.Duration) ParseOption {
	return func(c *ParseClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewParseClient builds a client for apiKey.
func NewParseClient(apiKey string, httpTimeout time.Duration, opts ...ParseOption) *ParseClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	c := &ParseClient{
		httpClient:   &http.Client{Timeout: httpTimeout},
		apiKey:       apiKey,
		baseURL:      parseBaseURL,
		pollInterval: 2 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type parseJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message"`
}

type parseResult struct {
	Markdown    string `json:"markdown"`
	JobMetadata struct {
		Pages int `json:"job_pages"`
	} `json:"job_metadata"`
}

func (c *ParseClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &ai.UnreachableError{Host: c.baseURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ai.ErrorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *ParseClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// Validate checks the key with a cheap authenticated request.
func (c *ParseClient) Validate(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrMissingKey
	}
	return c.get(ctx, "/supported_file_extensions", nil)
}

// Parse uploads content, waits for the job and returns its markdown.
func (c *ParseClient) Parse(ctx context.Context, name string, content []byte) (*Document, error) {
	if c.apiKey == "" {
		return nil, ErrMissingKey
	}
	job, err := c.upload(ctx, name, content)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx, job.ID); err != nil {
		return nil, err
	}
	var res parseResult
	if err := c.get(ctx, "/job/"+job.ID+"/result/markdown", &res); err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	base := filepath.Base(name)
	meta := map[string]any{"type": fileType(base), "job_id": job.ID}
	if res.JobMetadata.Pages > 0 {
		meta["pageCount"] = res.JobMetadata.Pages
	}
	return &Document{Name: base, Text: res.Markdown, Metadata: meta}, nil
}

func (c *ParseClient) upload(ctx context.Context, name string, content []byte) (*parseJob, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var job parseJob
	if err := c.do(req, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, errors.New("upload returned no job id")
	}
	return &job, nil
}

func (c *ParseClient) wait(ctx context.Context, id string) error {
	t := time.NewTicker(c.pollInterval)
	defer t.Stop()
	for {
		var job parseJob
		if err := c.get(ctx, "/job/"+id, &job); err != nil {
			return err
		}
		switch strings.ToUpper(job.Status) {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED", "CANCELLED":
			if job.Error != "" {
				return fmt.Errorf("parse job %s failed: %s", id, job.Error)
			}
			return fmt.Errorf("parse job %s ended with status %s", id, job.Status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
