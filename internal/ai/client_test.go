package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// ipv4Server is an httptest-like server bound to 127.0.0.1 only.
type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: &http.Server{Handler: handler}}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// chatServer answers /chat/completions with the given statuses in order,
// repeating the last one, and records each decoded request body.
func chatServer(t *testing.T, statuses []int, answer string) (*ipv4Server, *int32, chan map[string]any) {
	t.Helper()
	var calls int32
	bodies := make(chan map[string]any, 8)
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		select {
		case bodies <- body:
		default:
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		w.Header().Set("X-Request-Id", fmt.Sprintf("req_%d", i+1))
		w.WriteHeader(statuses[i])
		if statuses[i] >= 300 {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": http.StatusText(statuses[i])}})
			return
		}
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: answer}}}})
	}))
	return srv, &calls, bodies
}

func analysisRequest() GenerateRequest {
	return GenerateRequest{
		Model:             "qwen/qwen-2.5-72b-instruct",
		Messages:          []Message{{Role: "user", Content: "Summarise sales by region"}},
		MaxTokens:         2000,
		Temperature:       0.7,
		TopP:              0.95,
		RepetitionPenalty: 1.2,
	}
}

func TestOpenRouterGenerateSendsSamplingParams(t *testing.T) {
	srv, calls, bodies := chatServer(t, []int{200}, "Summary: North leads.")
	defer srv.Close()

	c := NewClientWithBaseURL("or-key", 2*time.Second, 1, time.Millisecond, time.Millisecond, srv.URL+"/")
	resp, err := c.Generate(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "Summary: North leads." || resp.RequestID != "req_1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
	body := <-bodies
	for k, want := range map[string]float64{"max_tokens": 2000, "temperature": 0.7, "top_p": 0.95, "repetition_penalty": 1.2} {
		if got, _ := body[k].(float64); got != want {
			t.Fatalf("%s: expected %v, got %v", k, want, body[k])
		}
	}
	if _, ok := body["stream"]; ok {
		t.Fatalf("non-streaming request must not set stream")
	}
}

func TestOpenRouterTransientPolicyRetriesRateLimit(t *testing.T) {
	srv, calls, _ := chatServer(t, []int{http.StatusTooManyRequests, http.StatusOK}, "ok")
	defer srv.Close()

	c := NewClientWithBaseURL("or-key", 2*time.Second, 3, time.Millisecond, 5*time.Millisecond, srv.URL)
	if c.retry.Backoff != Exponential || c.retry.MaxAttempts != 3 {
		t.Fatalf("expected exponential transient policy with 3 attempts, got %+v", c.retry)
	}
	resp, err := c.Generate(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "ok" || resp.RequestID != "req_2" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestOpenRouterNoRetryOverrideSurfacesRateLimit(t *testing.T) {
	srv, calls, _ := chatServer(t, []int{http.StatusTooManyRequests, http.StatusOK}, "ok")
	defer srv.Close()

	policy := NoRetry()
	rt, ok := GetRuntime(ProviderOpenRouter, RuntimeConfig{APIKey: "or-key", BaseURL: srv.URL, HTTPTimeout: 2 * time.Second, Retry: &policy})
	if !ok {
		t.Fatalf("openrouter runtime not registered")
	}
	_, err := rt.Generate(context.Background(), analysisRequest())
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestOpenRouterServerErrorExhaustsAttempts(t *testing.T) {
	srv, calls, _ := chatServer(t, []int{http.StatusServiceUnavailable}, "")
	defer srv.Close()

	c := NewClientWithBaseURL("or-key", 2*time.Second, 3, time.Millisecond, 2*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), analysisRequest())
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestOpenRouterBadRequestIsNotRetried(t *testing.T) {
	srv, calls, _ := chatServer(t, []int{http.StatusBadRequest}, "")
	defer srv.Close()

	c := NewClientWithBaseURL("or-key", 2*time.Second, 3, time.Millisecond, 2*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), analysisRequest())
	if err == nil || !strings.Contains(err.Error(), "request_id=req_1") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %T", err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
}

func TestOpenRouterRequiresKeyAndModel(t *testing.T) {
	c := NewClientWithBaseURL("", time.Second, 1, 0, 0, "http://127.0.0.1:1")
	if _, err := c.Generate(context.Background(), analysisRequest()); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	c = NewClientWithBaseURL("or-key", time.Second, 1, 0, 0, "http://127.0.0.1:1")
	req := analysisRequest()
	req.Model = ""
	if err := c.GenerateStream(context.Background(), req, func(string) {}); err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected empty model error, got %v", err)
	}
}

func TestOpenRouterStreamParsesDeltas(t *testing.T) {
	var got map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, ": keep-alive\n\n")
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Summary: \"}}]}\n\n")
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"South leads\"}}]}\n\n")
		fmt.Fprintf(w, "data: [DONE]\n\n")
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\" ignored\"}}]}\n\n")
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("or-key", 5*time.Second, 1, 0, 0, srv.URL)
	var out string
	if err := c.GenerateStream(context.Background(), analysisRequest(), func(d string) { out += d }); err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if out != "Summary: South leads" {
		t.Fatalf("unexpected stream accumulation: %q", out)
	}
	if got["stream"] != true {
		t.Fatalf("expected stream=true, got %v", got["stream"])
	}
	if got["top_p"] != 0.95 || got["repetition_penalty"] != 1.2 {
		t.Fatalf("sampling params missing from stream payload: %v", got)
	}
}
