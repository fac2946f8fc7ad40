package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// ModelInfo describes a model known to the CLI. Prices are USD per 1K tokens
// and only drive cost warnings.
type ModelInfo struct {
	Name          string  `json:"name"`
	Provider      string  `json:"provider"`
	ContextTokens int     `json:"context_tokens"`
	InputPerK     float64 `json:"input_per_k"`
	OutputPerK    float64 `json:"output_per_k"`
}

var (
	catalogMu sync.RWMutex
	models    = map[string]ModelInfo{
		DefaultHFModel: {
			Name:          DefaultHFModel,
			Provider:      ProviderHuggingFace,
			ContextTokens: 32768,
		},
		"mistralai/Mistral-7B-Instruct-v0.3": {
			Name:          "mistralai/Mistral-7B-Instruct-v0.3",
			Provider:      ProviderHuggingFace,
			ContextTokens: 32768,
		},
		"meta-llama/Meta-Llama-3-8B-Instruct": {
			Name:          "meta-llama/Meta-Llama-3-8B-Instruct",
			Provider:      ProviderHuggingFace,
			ContextTokens: 8192,
		},
		"qwen/qwen-2.5-coder-32b-instruct": {
			Name:          "qwen/qwen-2.5-coder-32b-instruct",
			Provider:      ProviderOpenRouter,
			ContextTokens: 32768,
			InputPerK:     0.00007,
			OutputPerK:    0.00016,
		},
		"openai/gpt-4o-mini": {
			Name:          "openai/gpt-4o-mini",
			Provider:      ProviderOpenRouter,
			ContextTokens: 128000,
			InputPerK:     0.00015,
			OutputPerK:    0.0006,
		},
		"anthropic/claude-3.5-sonnet": {
			Name:          "anthropic/claude-3.5-sonnet",
			Provider:      ProviderOpenRouter,
			ContextTokens: 200000,
			InputPerK:     0.003,
			OutputPerK:    0.015,
		},
		"llama3.1:8b-instruct": {
			Name:          "llama3.1:8b-instruct",
			Provider:      ProviderOllama,
			ContextTokens: 8192,
		},
		"qwen2.5-coder:7b": {
			Name:          "qwen2.5-coder:7b",
			Provider:      ProviderOllama,
			ContextTokens: 32768,
		},
	}
)

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object keyed by model name, e.g.
// { "openai/gpt-4o-mini": {"provider":"openrouter","context_tokens":128000} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return m, nil
}

// DecodeCatalog reads a catalog object. Entries without a name take their key.
func DecodeCatalog(r io.Reader) (map[string]ModelInfo, error) {
	var m map[string]ModelInfo
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// ReplaceCatalog swaps the in-memory catalog for m.
func ReplaceCatalog(m map[string]ModelInfo) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	models = make(map[string]ModelInfo, len(m))
	for k, v := range m {
		models[k] = v
	}
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns the known models sorted by provider then name.
func Catalog() []ModelInfo {
	catalogMu.RLock()
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	catalogMu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
