package ai

import (
	"context"
	"strings"
)

// Runtime is implemented by every text generation backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// Provider identifiers used for runtime selection.
const (
	ProviderHuggingFace = "huggingface"
	ProviderHF          = "hf"
	ProviderOpenRouter  = "openrouter"
	ProviderOllama      = "ollama"
	ProviderLocal       = "local"
)

// NormalizeProvider lowercases a provider name and resolves aliases.
// An empty name selects Hugging Face.
func NormalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "", ProviderHF:
		return ProviderHuggingFace
	case ProviderLocal:
		return ProviderOllama
	default:
		return p
	}
}
