package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumericCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"12", 12, true},
		{" 12.5 ", 12.5, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{float64(3), 3, true},
		{math.NaN(), 0, false},
		{true, 1, true},
		{7, 7, true},
	}
	for _, c := range cases {
		got, ok := Numeric(c.in)
		assert.Equal(t, c.ok, ok, "Numeric(%#v) ok", c.in)
		assert.Equal(t, c.want, got, "Numeric(%#v)", c.in)
		assert.Equal(t, c.want, NumberOf(c.in), "NumberOf(%#v)", c.in)
	}
}

func TestStringOf(t *testing.T) {
	assert.Equal(t, "", StringOf(nil))
	assert.Equal(t, "North", StringOf("North"))
	assert.Equal(t, "12", StringOf(float64(12)))
	assert.Equal(t, "12.25", StringOf(12.25))
	assert.Equal(t, "true", StringOf(true))
	assert.Equal(t, "5", StringOf(5))
}

func TestRecordAccessors(t *testing.T) {
	r := Record{"region": "North", "sales": "10"}
	assert.Equal(t, "North", r.String("region"))
	assert.Equal(t, float64(10), r.Number("sales"))
	assert.Equal(t, float64(0), r.Number("missing"))
	assert.Equal(t, "", r.String("missing"))
	var nilRec Record
	assert.Nil(t, nilRec.Get("x"))
}

func TestFilterAndCombine(t *testing.T) {
	a := New("a.csv", []string{"k", "v"}, []Record{{"k": "x", "v": "1"}, {"k": "y", "v": "2"}})
	b := New("b.csv", []string{"k", "w"}, []Record{{"k": "z", "w": "3"}})

	f := a.Filter(func(r Record) bool { return r.Number("v") > 1 })
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 2, a.Len(), "filter must not mutate the source")

	c := Combine(a, nil, b)
	assert.Equal(t, []string{"k", "v", "w"}, c.Columns)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "a.csv + b.csv", c.Name)
	assert.True(t, c.HasColumn("w"))
	assert.False(t, c.HasColumn("nope"))
}

func TestNewCollectsColumns(t *testing.T) {
	ds := New("x", nil, []Record{{"b": 1.0}, {"a": "q"}})
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
	var empty *Dataset
	assert.True(t, empty.Empty())
}
