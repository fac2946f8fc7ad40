package analysis

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *dataset.Dataset {
	var recs []dataset.Record
	scores := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50, 10.1}
	for i, s := range scores {
		recs = append(recs, dataset.Record{
			"group":  []string{"A", "B"}[i%2],
			"score":  dataset.FormatNumber(s),
			"double": s * 2,
			"when":   fmt.Sprintf("2024-01-%02d", i+1),
			"note":   strings.Repeat("long free text ", 6) + fmt.Sprint(i),
		})
	}
	recs[3]["score"] = ""
	return dataset.New("scores.csv", []string{"group", "score", "double", "when", "note"}, recs)
}

func TestProfileKindsAndStats(t *testing.T) {
	rep := Profile(sample(), DefaultOptions())
	assert.Equal(t, 10, rep.Rows)
	assert.Equal(t, 10, rep.Processed)

	kinds := map[string]string{}
	for _, c := range rep.Cols {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, map[string]string{
		"group":  KindCategorical,
		"score":  KindNumeric,
		"double": KindNumeric,
		"when":   KindDatetime,
		"note":   KindText,
	}, kinds)

	score, ok := rep.Column("score")
	require.True(t, ok)
	assert.Equal(t, 9, score.NonNull)
	assert.Equal(t, 1, score.Missing)
	assert.Equal(t, 8.8, score.Min)
	assert.Equal(t, 50.0, score.Max)
	require.NotNil(t, score.Bounds)
	assert.Greater(t, score.OutliersCount, 0, "50 is a robust outlier")

	group, _ := rep.Column("group")
	assert.Equal(t, []CategoryCount{{"A", 5}, {"B", 5}}, group.TopValues)
}

func TestProfileCorrelations(t *testing.T) {
	rep := Profile(sample(), DefaultOptions())
	require.NotNil(t, rep.Corr)
	pairs := rep.Corr.TopPairs(5)
	require.Len(t, pairs, 1)
	assert.Equal(t, "score", pairs[0].A)
	assert.Equal(t, "double", pairs[0].B)
	assert.InDelta(t, 1.0, pairs[0].R, 1e-9)
	assert.False(t, math.IsNaN(rep.Corr.Values[0][1]))
}

func TestProfileMaxRowsAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxRows = 4
	opt.SampleRows = 2
	rep := Profile(sample(), opt)
	assert.Equal(t, 4, rep.Processed)
	assert.Len(t, rep.Samples, 2)
	require.Len(t, rep.Warnings, 1)

	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: scores.csv", "Rows: ~10 (processed 4)", "[SCHEMA]", "- score: numeric", "[HEAD AND SAMPLE ROWS]", "[NOTES]"} {
		assert.Contains(t, md, want)
	}
}

func TestProfileNil(t *testing.T) {
	rep := Profile(nil, DefaultOptions())
	assert.Equal(t, 0, rep.Rows)
	assert.Contains(t, rep.Markdown(), "Columns: 0")
}
