package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/analysis"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/utils"
)

// Document is reference text included after the dataset statistics.
type Document struct {
	Name    string
	Content string
}

// Input collects everything that goes into an analysis prompt.
type Input struct {
	Datasets  []*dataset.Dataset
	Documents []Document
	Question  string
	// MaxTokens caps the estimated prompt size; 0 disables truncation.
	MaxTokens int
	Profile   analysis.Options
}

// Prompt is the assembled text with its estimated token count.
type Prompt struct {
	Text      string
	Tokens    int
	Truncated bool
	// Sections holds estimated tokens per prompt part after truncation.
	Sections map[string]int
}

// Build assembles the analysis prompt: statistics of the combined datasets,
// optional reference documents, the question and the response format.
func Build(in Input) Prompt {
	combined := dataset.Combine(in.Datasets...)
	opt := in.Profile
	if opt == (analysis.Options{}) {
		opt = analysis.DefaultOptions()
	}
	stats := analysis.Profile(combined, opt).Markdown()

	var head strings.Builder
	head.WriteString("You are a data analyst. Analyze the dataset described below and answer the question.\n\n")
	if len(in.Datasets) > 1 {
		names := make([]string, 0, len(in.Datasets))
		for _, d := range in.Datasets {
			if d != nil {
				names = append(names, fmt.Sprintf("%s (%d rows)", d.Name, d.Len()))
			}
		}
		fmt.Fprintf(&head, "[SOURCES]\n%s\n\n", strings.Join(names, "\n"))
	}

	var tail strings.Builder
	tail.WriteString("[QUESTION]\n")
	tail.WriteString(strings.TrimSpace(in.Question))
	tail.WriteString("\n\n[RESPONSE FORMAT]\n")
	tail.WriteString("Summary: a short paragraph answering the question.\n")
	tail.WriteString("Key Findings:\n- one finding per line, citing numbers from the statistics\n")

	docs := renderDocuments(in.Documents)
	p := Prompt{}
	if in.MaxTokens > 0 {
		budget := in.MaxTokens - utils.CountTokens(head.String()) - utils.CountTokens(tail.String())
		if budget < 0 {
			budget = 0
		}
		statTokens := utils.CountTokens(stats)
		if statTokens > budget {
			stats = utils.TruncateToTokenLimit(stats, budget) + "\n"
			docs = ""
			p.Truncated = true
		} else if docTokens := utils.CountTokens(docs); docTokens > budget-statTokens {
			if rest := budget - statTokens; rest > 0 && docs != "" {
				docs = utils.TruncateToTokenLimit(docs, rest) + "\n"
			} else {
				docs = ""
			}
			p.Truncated = true
		}
	}

	var sb strings.Builder
	sb.WriteString(head.String())
	sb.WriteString(stats)
	sb.WriteString("\n")
	if docs != "" {
		sb.WriteString(docs)
	}
	sb.WriteString(tail.String())
	p.Text = sb.String()
	p.Tokens = utils.CountTokens(p.Text)
	p.Sections = utils.TokenBreakdown(map[string]string{
		"instructions": head.String(),
		"statistics":   stats,
		"documents":    docs,
		"question":     tail.String(),
	})
	return p
}

func renderDocuments(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	sorted := append([]Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var sb strings.Builder
	sb.WriteString("[REFERENCE DOCUMENTS]\n")
	for _, d := range sorted {
		sb.WriteString("--- Document: ")
		sb.WriteString(d.Name)
		sb.WriteString(" ---\n")
		sb.WriteString(strings.TrimSpace(d.Content))
		sb.WriteString("\n\n")
	}
	return sb.String()
}
