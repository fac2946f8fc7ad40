package utils

// Token estimates use roughly four characters per token. Good enough for
// prompt budgets and dry-run cost estimates; not a tokenizer.
const charsPerToken = 4

// CountTokens estimates the number of tokens in text. Non-empty text counts as at least one.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly limit tokens on a rune boundary.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}

// TokenBreakdown estimates tokens per labelled section.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
