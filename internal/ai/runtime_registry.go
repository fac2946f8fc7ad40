package ai

import (
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// BaseURL overrides the provider endpoint (Hugging Face, OpenRouter).
	BaseURL string
	// APIKey is the Hugging Face token or OpenRouter key.
	APIKey string
	// Ollama
	Host string
	// Retry, when set, replaces the provider's default policy.
	Retry *RetryPolicy
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[NormalizeProvider(name)]; ok {
		return f(cfg), true
	}
	return nil, false
}

// KnownProvider reports whether name, after alias resolution, is registered.
func KnownProvider(name string) bool {
	_, ok := registry[NormalizeProvider(name)]
	return ok
}

// Providers lists registered provider names in order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderHuggingFace, func(c RuntimeConfig) Runtime {
		policy := NoRetry()
		if c.Retry != nil {
			policy = *c.Retry
		}
		return NewHuggingFaceClient(c.APIKey, c.BaseURL, c.HTTPTimeout, policy)
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		cl := NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, c.BaseURL)
		if c.Retry != nil {
			cl.retry = *c.Retry
		}
		return cl
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		if c.RetryMax <= 0 {
			c.RetryMax = 2
		}
		if c.BaseDelay <= 0 {
			c.BaseDelay = 200 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = 1 * time.Second
		}
		cl := NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
		if c.Retry != nil {
			cl.retry = *c.Retry
		}
		return cl
	})
}
