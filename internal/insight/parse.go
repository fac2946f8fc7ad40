// Package insight turns free-form model output into a summary and key findings,
// and runs the end-to-end analysis request.
package insight

import (
	"regexp"
	"strings"
)

// DefaultSummary is used when no summary section is found.
const DefaultSummary = "No summary available"

// Insight is the structured part of an analysis.
type Insight struct {
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"keyFindings"`
}

// Valid reports whether the insight has a summary and a findings list.
func (in Insight) Valid() bool {
	return in.Summary != "" && in.KeyFindings != nil
}

var (
	rolePrefix     = regexp.MustCompile(`(?i)^(Assistant:|AI:|Analysis:|Here's your analysis:|Here is your analysis:)`)
	leadingSpace   = regexp.MustCompile(`^[\s\n]+`)
	trailingMarker = regexp.MustCompile(`(?i)\n*(\[end\]|\[done\]|\[complete\]|\[finished\])$`)
	sectionStart   = regexp.MustCompile(`\n[A-Z][a-z]+(?: [A-Z][a-z]+)* *:`)
	bulletSplit    = regexp.MustCompile(`\n[•\-\*]|\n\d+\.`)
	bulletGlyph    = regexp.MustCompile(`^[•\-\*]\s*`)

	summaryHeaders  = []string{"Summary", "Overview", "Analysis"}
	findingsHeaders = []string{"Key Findings", "Findings", "Main Points"}
)

// Parse extracts an Insight from model text. It never fails: text without
// recognisable headings yields DefaultSummary and no findings.
func Parse(text string) Insight {
	cleaned := rolePrefix.ReplaceAllString(text, "")
	cleaned = leadingSpace.ReplaceAllString(cleaned, "")
	cleaned = trailingMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	sections := splitSections(cleaned)
	summary := extractSection(sections, summaryHeaders)
	if summary == "" {
		summary = DefaultSummary
	}
	findings := extractBulletPoints(sections, findingsHeaders)
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		if f == "" {
			continue
		}
		out = append(out, bulletGlyph.ReplaceAllString(f, ""))
	}
	return Insight{Summary: summary, KeyFindings: out}
}

// splitSections cuts text before each line that starts with capitalised words
// and a colon, such as "Overview:" or "Key Findings:". The newline is dropped
// and the heading stays with its section.
func splitSections(text string) []string {
	var sections []string
	prev := 0
	for _, loc := range sectionStart.FindAllStringIndex(text, -1) {
		sections = append(sections, text[prev:loc[0]])
		prev = loc[0] + 1
	}
	return append(sections, text[prev:])
}

func extractSection(sections, headers []string) string {
	for _, h := range headers {
		for _, s := range sections {
			if !strings.HasPrefix(strings.ToLower(s), strings.ToLower(h)) {
				continue
			}
			strip := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(h) + `:?`)
			return strings.TrimSpace(strip.ReplaceAllString(s, ""))
		}
	}
	return ""
}

func extractBulletPoints(sections, headers []string) []string {
	for _, h := range headers {
		for _, s := range sections {
			if !strings.Contains(strings.ToLower(s), strings.ToLower(h)) {
				continue
			}
			parts := bulletSplit.Split(s, -1)
			var out []string
			for _, p := range parts[1:] {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return nil
}
