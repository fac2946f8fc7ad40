package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSendsSamplingOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "Summary: East trails."},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:             "llama3:latest",
		Messages:          []Message{{Role: "system", Content: "You are a data analyst"}, {Role: "user", Content: "Which region trails?"}},
		MaxTokens:         512,
		Temperature:       0.7,
		TopP:              0.95,
		RepetitionPenalty: 1.2,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "Summary: East trails." || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Stream || got.Model != "llama3:latest" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request: %+v", got)
	}
	want := map[string]float64{"num_predict": 512, "temperature": 0.7, "top_p": 0.95, "repeat_penalty": 1.2}
	for k, v := range want {
		if f, _ := got.Options[k].(float64); f != v {
			t.Fatalf("option %s: expected %v, got %v", k, v, got.Options[k])
		}
	}
}

func TestOllamaGenerateOmitsUnsetOptions(t *testing.T) {
	var raw map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": "ok"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: "user", Content: "hi"}}}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, ok := raw["options"]; ok {
		t.Fatalf("expected no options block, got %v", raw["options"])
	}
}

func TestOllamaMissingModelIsTyped(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": `model "mistral" not found, try pulling it first`})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: []Message{{Role: "user", Content: "hi"}}})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
	if IsNetworkError(err) {
		t.Fatalf("an error response is not a network error")
	}
}

func TestOllamaUnreachableIsNetworkError(t *testing.T) {
	srv := newIPv4Server(t, http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	c := NewOllamaClient(host, time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) || ue.Host != host {
		t.Fatalf("expected UnreachableError for %s, got %v", host, err)
	}
	if !IsNetworkError(err) {
		t.Fatalf("expected IsNetworkError")
	}
}

func TestOllamaStreamReadsNDJSON(t *testing.T) {
	var stream bool
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		stream = req.Stream
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Key "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Findings:"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"late"},"done":false}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	var out string
	err := c.GenerateStream(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: "user", Content: "hi"}}}, func(d string) { out += d })
	if err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if !stream || out != "Key Findings:" {
		t.Fatalf("stream=%v out=%q", stream, out)
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("", time.Second, 1, 0, 0)
	if c.host != "http://127.0.0.1:11434" {
		t.Fatalf("unexpected default host %q", c.host)
	}
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	err = c.GenerateStream(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{}}, func(string) {})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}
