// Package prompt validates, enhances and assembles analysis prompts.
package prompt

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Length limits in characters, measured after trimming.
const (
	MinLength = 3
	MaxLength = 500

	shortPromptLength = 20
)

// ErrInvalidPrompt is the sentinel every validation failure wraps.
var ErrInvalidPrompt = errors.New("invalid prompt")

// ValidationError carries the user-facing reason a prompt was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidPrompt }

// Validate rejects empty, too short and too long prompts.
func Validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ValidationError{Message: "Please provide a valid prompt"}
	}
	n := utf8.RuneCountInString(trimmed)
	if n < MinLength {
		return &ValidationError{Message: "Prompt is too short. Please be more specific."}
	}
	if n > MaxLength {
		return &ValidationError{Message: "Prompt is too long. Please be more concise."}
	}
	return nil
}

const (
	datasetPrefix   = "In this dataset, "
	specificitySufx = " Please provide specific details and statistics to support your analysis."
)

// Enhance adds dataset context when the prompt does not mention data and asks
// for specifics when it is short.
func Enhance(raw string) string {
	out := strings.TrimSpace(raw)
	if !strings.Contains(strings.ToLower(out), "data") {
		out = datasetPrefix + out
	}
	if utf8.RuneCountInString(out) < shortPromptLength {
		out += specificitySufx
	}
	return out
}

// Placeholder is replaced by real column names.
const Placeholder = "[column name]"

// SubstitutePlaceholders replaces each Placeholder occurrence, in order, with
// the next column. Extra placeholders are left as is.
func SubstitutePlaceholders(p string, columns []string) string {
	for _, col := range columns {
		if !strings.Contains(p, Placeholder) {
			break
		}
		p = strings.Replace(p, Placeholder, col, 1)
	}
	return p
}

// Templates are example questions offered to users.
var Templates = []string{
	"What are the main trends in this data?",
	"Can you identify any patterns or correlations?",
	"What insights can you provide about [column name]?",
	"How has [metric] changed over time?",
	"What are the key statistics for [column name]?",
}

// Template returns template i (1-based) with placeholders filled from columns.
func Template(i int, columns []string) (string, bool) {
	if i < 1 || i > len(Templates) {
		return "", false
	}
	return SubstitutePlaceholders(Templates[i-1], columns), true
}
