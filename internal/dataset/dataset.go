package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record is one row keyed by column name. Values are string, float64, bool or nil.
type Record map[string]any

// Dataset is an ordered sequence of records plus the columns seen while loading.
type Dataset struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Records []Record `json:"data"`
}

// New builds a dataset. When columns is empty they are collected from the records.
func New(name string, columns []string, records []Record) *Dataset {
	if len(columns) == 0 {
		columns = columnsOf(records)
	}
	return &Dataset{Name: name, Columns: columns, Records: records}
}

// Len returns the number of records; nil datasets are empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Empty reports whether the dataset has no records.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// HasColumn reports whether name is one of the dataset columns.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Filter returns a dataset sharing columns with d and holding the records keep accepts.
func (d *Dataset) Filter(keep func(Record) bool) *Dataset {
	if d == nil {
		return nil
	}
	out := make([]Record, 0, len(d.Records))
	for _, r := range d.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Dataset{Name: d.Name, Columns: d.Columns, Records: out}
}

// Combine concatenates records and unions columns in first-seen order.
func Combine(sets ...*Dataset) *Dataset {
	out := &Dataset{}
	seen := map[string]bool{}
	var names []string
	for _, s := range sets {
		if s == nil {
			continue
		}
		if s.Name != "" {
			names = append(names, s.Name)
		}
		for _, c := range s.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Records = append(out.Records, s.Records...)
	}
	out.Name = strings.Join(names, " + ")
	return out
}

// Get returns the raw value for col; missing columns yield nil.
func (r Record) Get(col string) any {
	if r == nil {
		return nil
	}
	return r[col]
}

// String returns the string form of the value in col.
func (r Record) String(col string) string { return StringOf(r.Get(col)) }

// Number returns the numeric value in col, or 0 when it is missing or not numeric.
func (r Record) Number(col string) float64 { return NumberOf(r.Get(col)) }

// StringOf coerces a cell to text. nil becomes "".
func StringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Numeric parses a cell as a number. ok is false for missing, blank, non-numeric and NaN cells.
func Numeric(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// NumberOf is Numeric with 0 for anything that does not parse.
func NumberOf(v any) float64 {
	f, ok := Numeric(v)
	if !ok {
		return 0
	}
	return f
}

// FormatNumber renders a float the shortest way that round-trips (12, 12.5, -0.25).
func FormatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func columnsOf(records []Record) []string {
	if len(records) == 0 {
		return nil
	}
	// map iteration is unordered; keep it stable for callers that print columns
	seen := map[string]bool{}
	var cols []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
