package insight

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/prompt"
)

var (
	// ErrNoData is returned when there is nothing to analyse.
	ErrNoData = errors.New("No data provided for analysis")
	// ErrNetwork is returned when the inference endpoint cannot be reached.
	ErrNetwork = errors.New("Network error: Please check your internet connection")

	errNoAnalysis    = errors.New("No analysis generated")
	errInvalidResult = errors.New("Invalid analysis result format")
)

// AnalysisError wraps any failure other than input or network errors.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return "Analysis failed: " + e.Err.Error() }

func (e *AnalysisError) Unwrap() error { return e.Err }

type networkError struct{ cause error }

func (e *networkError) Error() string { return ErrNetwork.Error() }

func (e *networkError) Unwrap() []error { return []error{ErrNetwork, e.cause} }

// Params are the sampling parameters sent with every generation.
type Params struct {
	MaxNewTokens      int     `json:"max_new_tokens" yaml:"max_new_tokens"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
	TopP              float64 `json:"top_p" yaml:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty" yaml:"repetition_penalty"`
}

// DefaultParams returns the tuned defaults for the hosted coder model.
func DefaultParams() Params {
	return Params{
		MaxNewTokens:      ai.DefaultMaxNewTokens,
		Temperature:       ai.DefaultTemperature,
		TopP:              ai.DefaultTopP,
		RepetitionPenalty: ai.DefaultRepetitionPenalty,
	}
}

// Result is one completed analysis.
type Result struct {
	Text     string  `json:"text"`
	Insights Insight `json:"insights"`
	Model    string  `json:"model,omitempty"`
}

// Analyzer sends dataset questions to a runtime and parses the answer.
type Analyzer struct {
	Runtime ai.Runtime
	Model   string
	Params  Params
	// Documents are appended to the prompt as reference material.
	Documents []prompt.Document
	// MaxPromptTokens caps the prompt size; 0 disables truncation.
	MaxPromptTokens int
	// OnDelta receives partial output when the runtime can stream.
	OnDelta func(string)
	Logger  *slog.Logger
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func hasData(datasets []*dataset.Dataset) bool {
	for _, d := range datasets {
		if !d.Empty() {
			return true
		}
	}
	return false
}

// Prompt builds the prompt Analyze would send, without calling the runtime.
func (a *Analyzer) Prompt(datasets []*dataset.Dataset, question string) (prompt.Prompt, error) {
	if !hasData(datasets) {
		return prompt.Prompt{}, ErrNoData
	}
	if strings.TrimSpace(question) == "" {
		return prompt.Prompt{}, &prompt.ValidationError{Message: "Please provide a valid prompt"}
	}
	return prompt.Build(prompt.Input{
		Datasets:  datasets,
		Documents: a.Documents,
		Question:  question,
		MaxTokens: a.MaxPromptTokens,
	}), nil
}

// Analyze asks the model about the combined datasets and parses its answer.
// Inference is attempted once; transport failures surface as ErrNetwork.
func (a *Analyzer) Analyze(ctx context.Context, datasets []*dataset.Dataset, question string) (*Result, error) {
	p, err := a.Prompt(datasets, question)
	if err != nil {
		return nil, err
	}
	if a.Runtime == nil {
		return nil, &AnalysisError{Err: errors.New("no inference runtime configured")}
	}
	params := a.Params
	if params == (Params{}) {
		params = DefaultParams()
	}
	req := ai.GenerateRequest{
		Model:             a.Model,
		Messages:          []ai.Message{{Role: "user", Content: p.Text}},
		MaxTokens:         params.MaxNewTokens,
		Temperature:       params.Temperature,
		TopP:              params.TopP,
		RepetitionPenalty: params.RepetitionPenalty,
	}
	if req.Model == "" {
		req.Model = ai.DefaultHFModel
	}
	a.logger().Debug("analysis request", "model", req.Model, "prompt_tokens", p.Tokens, "truncated", p.Truncated)

	text, err := a.generate(ctx, req)
	if err != nil {
		if ai.IsNetworkError(err) {
			a.logger().Debug("inference unreachable", "error", err)
			return nil, &networkError{cause: err}
		}
		return nil, &AnalysisError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &AnalysisError{Err: errNoAnalysis}
	}
	in := Parse(text)
	if !in.Valid() {
		return nil, &AnalysisError{Err: errInvalidResult}
	}
	return &Result{Text: text, Insights: in, Model: req.Model}, nil
}

func (a *Analyzer) generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if sr, ok := a.Runtime.(ai.StreamRuntime); ok && a.OnDelta != nil {
		var sb strings.Builder
		err := sr.GenerateStream(ctx, req, func(d string) {
			sb.WriteString(d)
			a.OnDelta(d)
		})
		return sb.String(), err
	}
	resp, err := a.Runtime.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Ask validates and enhances a raw user question, fills column placeholders
// from the first dataset and runs the analysis.
func (a *Analyzer) Ask(ctx context.Context, datasets []*dataset.Dataset, raw string) (*Result, error) {
	q, err := Question(datasets, raw)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, datasets, q)
}

// Question applies validation, enhancement and placeholder substitution.
func Question(datasets []*dataset.Dataset, raw string) (string, error) {
	if err := prompt.Validate(raw); err != nil {
		return "", err
	}
	q := prompt.Enhance(raw)
	if len(datasets) > 0 && datasets[0] != nil {
		q = prompt.SubstitutePlaceholders(q, datasets[0].Columns)
	}
	return q, nil
}

// IsInvalidInput reports whether err was caused by user input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, prompt.ErrInvalidPrompt) || errors.Is(err, ErrNoData)
}
