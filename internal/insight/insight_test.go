package insight

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryAndFindings(t *testing.T) {
	in := Parse("Summary: Sales rose.\nKey Findings:\n- A\n- B")
	assert.Equal(t, "Sales rose.", in.Summary)
	assert.Equal(t, []string{"A", "B"}, in.KeyFindings)
	assert.True(t, in.Valid())
}

func TestParseStripsPrefixAndSentinel(t *testing.T) {
	in := Parse("Assistant:\n\nOverview: Revenue is flat.\nFindings:\n1. North leads\n2. South lags\n[done]")
	assert.Equal(t, "Revenue is flat.", in.Summary)
	assert.Equal(t, []string{"North leads", "South lags"}, in.KeyFindings)
}

func TestParseNestedBulletGlyph(t *testing.T) {
	in := Parse("Summary: ok\nMain Points:\n* • first\n* second")
	assert.Equal(t, []string{"first", "second"}, in.KeyFindings)
}

func TestParseWithoutHeadings(t *testing.T) {
	in := Parse("just some prose")
	assert.Equal(t, DefaultSummary, in.Summary)
	assert.NotNil(t, in.KeyFindings)
	assert.Empty(t, in.KeyFindings)
	assert.True(t, in.Valid())
}

func TestParseCaseInsensitiveSummaryHeader(t *testing.T) {
	in := Parse("Intro text\nAnalysis: Mostly stable")
	assert.Equal(t, "Mostly stable", in.Summary)
}

type fakeRuntime struct {
	text string
	err  error
	req  ai.GenerateRequest
	n    int
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.n++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: f.text}}}}, nil
}

type streamRuntime struct {
	fakeRuntime
	chunks []string
}

func (s *streamRuntime) GenerateStream(_ context.Context, _ ai.GenerateRequest, onDelta func(string)) error {
	for _, c := range s.chunks {
		onDelta(c)
	}
	return nil
}

func sales() []*dataset.Dataset {
	return []*dataset.Dataset{dataset.New("sales.csv", []string{"region", "sales"}, []dataset.Record{
		{"region": "North", "sales": "10"},
		{"region": "South", "sales": "20"},
	})}
}

func TestAnalyzeSendsParameters(t *testing.T) {
	rt := &fakeRuntime{text: "Summary: Sales rose.\nKey Findings:\n- South leads"}
	a := &Analyzer{Runtime: rt}
	res, err := a.Analyze(context.Background(), sales(), "What are the trends?")
	require.NoError(t, err)
	assert.Equal(t, "Sales rose.", res.Insights.Summary)
	assert.Equal(t, []string{"South leads"}, res.Insights.KeyFindings)
	assert.Equal(t, ai.DefaultHFModel, rt.req.Model)
	assert.Equal(t, 2000, rt.req.MaxTokens)
	assert.Equal(t, 0.7, rt.req.Temperature)
	assert.Equal(t, 0.95, rt.req.TopP)
	assert.Equal(t, 1.2, rt.req.RepetitionPenalty)
	require.Len(t, rt.req.Messages, 1)
	assert.Contains(t, rt.req.Messages[0].Content, "What are the trends?")
	assert.Contains(t, rt.req.Messages[0].Content, "[DATASET SUMMARY]")
}

func TestAnalyzeInputErrors(t *testing.T) {
	rt := &fakeRuntime{text: "x"}
	a := &Analyzer{Runtime: rt}

	_, err := a.Analyze(context.Background(), nil, "question")
	assert.ErrorIs(t, err, ErrNoData)
	assert.EqualError(t, err, "No data provided for analysis")

	_, err = a.Analyze(context.Background(), []*dataset.Dataset{dataset.New("e", nil, nil)}, "question")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = a.Analyze(context.Background(), sales(), "   ")
	assert.ErrorIs(t, err, prompt.ErrInvalidPrompt)
	assert.EqualError(t, err, "Please provide a valid prompt")
	assert.True(t, IsInvalidInput(err))
	assert.Zero(t, rt.n)
}

func TestAnalyzeEmptyGeneration(t *testing.T) {
	a := &Analyzer{Runtime: &fakeRuntime{text: "  "}}
	_, err := a.Analyze(context.Background(), sales(), "question")
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.EqualError(t, err, "Analysis failed: No analysis generated")
}

func TestAnalyzeNetworkFailure(t *testing.T) {
	cause := &ai.UnreachableError{Host: "x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}
	rt := &fakeRuntime{err: cause}
	a := &Analyzer{Runtime: rt}
	_, err := a.Analyze(context.Background(), sales(), "question")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.EqualError(t, err, "Network error: Please check your internet connection")
	assert.Equal(t, 1, rt.n)
}

func TestAnalyzeOtherFailure(t *testing.T) {
	a := &Analyzer{Runtime: &fakeRuntime{err: errors.New("boom")}}
	_, err := a.Analyze(context.Background(), sales(), "question")
	assert.EqualError(t, err, "Analysis failed: boom")
}

func TestAnalyzeStreams(t *testing.T) {
	rt := &streamRuntime{chunks: []string{"Summary: ", "ok"}}
	var seen []string
	a := &Analyzer{Runtime: rt, OnDelta: func(d string) { seen = append(seen, d) }}
	res, err := a.Analyze(context.Background(), sales(), "question")
	require.NoError(t, err)
	assert.Equal(t, "Summary: ok", res.Text)
	assert.Equal(t, []string{"Summary: ", "ok"}, seen)
	assert.Zero(t, rt.n)
}

func TestAskEnhancesAndSubstitutes(t *testing.T) {
	rt := &fakeRuntime{text: "Summary: fine"}
	a := &Analyzer{Runtime: rt}
	_, err := a.Ask(context.Background(), sales(), "What insights can you provide about [column name]?")
	require.NoError(t, err)
	assert.Contains(t, rt.req.Messages[0].Content, "In this dataset, What insights can you provide about region?")

	_, err = a.Ask(context.Background(), sales(), "hi")
	assert.EqualError(t, err, "Prompt is too short. Please be more specific.")
}
