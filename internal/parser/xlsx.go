package parser

import (
	"strings"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse summarizes the first sheet.
func (xlsxParser) Parse(name string, content []byte) (string, error) {
	return summarize(name, content, "")
}
