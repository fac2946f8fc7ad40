package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const huggingFaceBaseURL = "https://api-inference.huggingface.co"

// Sampling defaults for hosted text generation.
const (
	DefaultHFModel           = "Qwen/Qwen2.5-Coder-32B-Instruct"
	DefaultMaxNewTokens      = 2000
	DefaultTemperature       = 0.7
	DefaultTopP              = 0.95
	DefaultRepetitionPenalty = 1.2
)

// HuggingFaceClient calls the hosted text-generation endpoint for a model.
type HuggingFaceClient struct {
	httpClient *http.Client
	token      string
	baseURL    string
	retry      RetryPolicy
}

// NewHuggingFaceClient builds a client. An empty baseURL uses the public
// inference API. Inference is not retried unless retry says otherwise.
func NewHuggingFaceClient(token, baseURL string, httpTimeout time.Duration, retry RetryPolicy) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = huggingFaceBaseURL
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &HuggingFaceClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      retry,
	}
}

type hfParameters struct {
	MaxNewTokens      int     `json:"max_new_tokens,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
	TopP              float64 `json:"top_p,omitempty"`
	RepetitionPenalty float64 `json:"repetition_penalty,omitempty"`
	DoSample          bool    `json:"do_sample"`
	ReturnFullText    bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Stream     bool         `json:"stream,omitempty"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfStreamEvent struct {
	Token struct {
		Text    string `json:"text"`
		Special bool   `json:"special"`
	} `json:"token"`
	Error string `json:"error"`
}

func (c *HuggingFaceClient) body(req GenerateRequest, stream bool) ([]byte, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	inputs := req.Prompt()
	if strings.TrimSpace(inputs) == "" {
		return nil, errors.New("messages cannot be empty")
	}
	p := hfParameters{
		MaxNewTokens:      req.MaxTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		RepetitionPenalty: req.RepetitionPenalty,
		DoSample:          true,
	}
	b, err := json.Marshal(hfRequest{Inputs: inputs, Parameters: p, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b, nil
}

func (c *HuggingFaceClient) post(ctx context.Context, model string, payload []byte) (*http.Response, error) {
	endpoint := c.baseURL + "/models/" + (&url.URL{Path: model}).EscapedPath()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UnreachableError{Host: c.baseURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, ErrorFromResponse(resp)
	}
	return resp, nil
}

// Generate runs one text generation and returns it as the first choice.
func (c *HuggingFaceClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.token == "" {
		return nil, errors.New("HF_TOKEN is missing")
	}
	payload, err := c.body(req, false)
	if err != nil {
		return nil, err
	}
	var out GenerateResponse
	err = c.retry.Do(ctx, func(int) error {
		resp, err := c.post(ctx, req.Model, payload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var gens []hfGeneration
		if err := json.NewDecoder(resp.Body).Decode(&gens); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		text := ""
		if len(gens) > 0 {
			text = gens[0].GeneratedText
		}
		out = GenerateResponse{
			Choices:   []Choice{{Message: Message{Role: "assistant", Content: text}}},
			RequestID: extractRequestID(resp),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateStream reads server-sent token events and forwards non-special tokens.
func (c *HuggingFaceClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if c.token == "" {
		return errors.New("HF_TOKEN is missing")
	}
	payload, err := c.body(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, req.Model, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var ev hfStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: ev.Error}
		}
		if !ev.Token.Special {
			onDelta(ev.Token.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}
