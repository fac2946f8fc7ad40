package prompt

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		in  string
		msg string
	}{
		{"", "Please provide a valid prompt"},
		{"   ", "Please provide a valid prompt"},
		{"ab", "Prompt is too short. Please be more specific."},
		{"  ab  ", "Prompt is too short. Please be more specific."},
		{strings.Repeat("x", 501), "Prompt is too long. Please be more concise."},
	}
	for _, c := range cases {
		err := Validate(c.in)
		require.Error(t, err, "input %q", c.in)
		assert.ErrorIs(t, err, ErrInvalidPrompt)
		assert.Equal(t, c.msg, err.Error())
	}
	assert.NoError(t, Validate("show trends"))
	assert.NoError(t, Validate("abc"))
	assert.NoError(t, Validate(strings.Repeat("x", 500)))
	assert.NoError(t, Validate(strings.Repeat("é", 500)), "length counts characters, not bytes")
}

func TestEnhance(t *testing.T) {
	assert.Equal(t, "In this dataset, show trends", Enhance("  show trends "))
	assert.Equal(t, "Summarise the DATA Please provide specific details and statistics to support your analysis.",
		Enhance("Summarise the DATA"))
	long := "Which regions have the highest data quality scores overall?"
	assert.Equal(t, long, Enhance(long))
	assert.Equal(t, "In this dataset, which region sells most?", Enhance("which region sells most?"))
}

func TestSubstitutePlaceholders(t *testing.T) {
	p := "Compare [column name] with [column name] and [column name]"
	assert.Equal(t, "Compare region with sales and [column name]", SubstitutePlaceholders(p, []string{"region", "sales"}))
	assert.Equal(t, "no placeholders", SubstitutePlaceholders("no placeholders", []string{"a"}))
	assert.Equal(t, p, SubstitutePlaceholders(p, nil))
}

func TestTemplates(t *testing.T) {
	require.Len(t, Templates, 5)
	got, ok := Template(3, []string{"sales"})
	require.True(t, ok)
	assert.Equal(t, "What insights can you provide about sales?", got)
	_, ok = Template(6, nil)
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	a := dataset.New("a.csv", []string{"region", "sales"}, []dataset.Record{{"region": "North", "sales": "10"}})
	b := dataset.New("b.csv", []string{"region", "sales"}, []dataset.Record{{"region": "South", "sales": "20"}})
	p := Build(Input{
		Datasets:  []*dataset.Dataset{a, b},
		Documents: []Document{{Name: "notes.md", Content: "Q3 had a promotion."}},
		Question:  "  Which region sells most? ",
	})
	for _, want := range []string{"[SOURCES]", "a.csv (1 rows)", "[DATASET SUMMARY]", "Rows: 2", "[REFERENCE DOCUMENTS]", "Q3 had a promotion.", "[QUESTION]\nWhich region sells most?", "Key Findings:"} {
		assert.Contains(t, p.Text, want)
	}
	assert.False(t, p.Truncated)
	assert.Greater(t, p.Tokens, 0)
	assert.Positive(t, p.Sections["statistics"])
	assert.Positive(t, p.Sections["documents"])
	assert.Positive(t, p.Sections["question"])
}

func TestBuildTruncatesToBudget(t *testing.T) {
	var recs []dataset.Record
	for i := 0; i < 200; i++ {
		recs = append(recs, dataset.Record{"note": strings.Repeat("word ", 30)})
	}
	ds := dataset.New("big.csv", []string{"note"}, recs)
	p := Build(Input{
		Datasets:  []*dataset.Dataset{ds},
		Documents: []Document{{Name: "doc", Content: strings.Repeat("context ", 2000)}},
		Question:  "What stands out?",
		MaxTokens: 300,
	})
	assert.True(t, p.Truncated)
	assert.Contains(t, p.Text, "[QUESTION]\nWhat stands out?")
	assert.LessOrEqual(t, p.Tokens, 320)
}
