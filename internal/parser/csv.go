package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/analysis"
	"github.com/KaramelBytes/chartloom/internal/dataset"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(filename, ".gz"), ".lz4"))
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Parse profiles tabular content and returns the statistics summary
// rather than the raw rows.
func (csvParser) Parse(name string, content []byte) (string, error) {
	return summarize(name, content, "")
}

func summarize(name string, content []byte, sheet string) (string, error) {
	ds, err := dataset.Load(name, bytes.NewReader(content), dataset.LoadOptions{Sheet: sheet})
	if err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	rep := analysis.Profile(ds, analysis.DefaultOptions())
	md := rep.Markdown()

	const maxSummaryChars = 100000
	if len(md) > maxSummaryChars {
		return "", fmt.Errorf("%s analysis produced %d character summary (limit: %d).\n"+
			"  Rows: %d, Columns: %d\n"+
			"  Add it as a dataset with `chartloom add` instead of ingesting it as a document.",
			name, len(md), maxSummaryChars, rep.Rows, len(rep.Cols))
	}
	return md, nil
}
