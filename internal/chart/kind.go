package chart

import "strings"

// Kind is the chart type.
type Kind string

const (
	Bar     Kind = "bar"
	Line    Kind = "line"
	Pie     Kind = "pie"
	Scatter Kind = "scatter"
)

// Kinds lists the supported chart types in display order.
var Kinds = []Kind{Bar, Line, Pie, Scatter}

// ParseKind maps a name to a Kind. Unknown names fall back to Bar.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Bar, Line, Pie, Scatter:
		return k
	default:
		return Bar
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case Bar, Line, Pie, Scatter:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }
