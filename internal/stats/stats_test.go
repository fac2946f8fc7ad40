package stats

import (
	"sort"
	"testing"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesData() *dataset.Dataset {
	return dataset.New("sales", []string{"region", "sales"}, []dataset.Record{
		{"region": "South", "sales": "10"},
		{"region": "North", "sales": "5"},
		{"region": "South", "sales": "2.5"},
		{"region": "East", "sales": "n/a"},
		{"region": "North"},
		{"sales": "7"},
	})
}

func TestAggregateSortsAndSums(t *testing.T) {
	s := Aggregate(salesData(), "region", "sales")
	assert.Equal(t, []string{"", "East", "North", "South"}, s.Labels)
	assert.Equal(t, []float64{7, 0, 5, 12.5}, s.Values)
	assert.True(t, sort.StringsAreSorted(s.Labels))
	assert.Equal(t, s.Len(), len(s.Values))
	assert.Equal(t, 24.5, s.Total())
}

func TestAggregateLabelsUniqueAndExact(t *testing.T) {
	ds := salesData()
	s := Aggregate(ds, "region", "sales")
	seen := map[string]bool{}
	for i, l := range s.Labels {
		require.False(t, seen[l], "duplicate label %q", l)
		seen[l] = true
		var want float64
		for _, r := range ds.Records {
			if r.String("region") == l {
				want += r.Number("sales")
			}
		}
		assert.Equal(t, want, s.Values[i], "label %q", l)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, "a", "b")
	assert.Empty(t, s.Labels)
	assert.Empty(t, s.Values)
}

func TestCountFrequencies(t *testing.T) {
	s := CountFrequencies(salesData(), "region")
	assert.Equal(t, []string{"North", "South", "East"}, s.Labels)
	assert.Equal(t, []float64{2, 2, 1}, s.Values)
}

func TestQuartiles(t *testing.T) {
	b, ok := Quartiles([]float64{100, 3, 1, 4, 2})
	require.True(t, ok)
	assert.Equal(t, Bounds{Q1: 2, Q3: 4, IQR: 2, Lower: -1, Upper: 7}, b)
	assert.True(t, b.Contains(7))
	assert.True(t, b.Contains(-1))
	assert.False(t, b.Contains(7.01))

	_, ok = Quartiles(nil)
	assert.False(t, ok)
}

func TestQuartilesDoesNotMutateSample(t *testing.T) {
	in := []float64{3, 1, 2}
	_, _ = Quartiles(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestFilterOutliers(t *testing.T) {
	ds := dataset.New("x", []string{"k", "v"}, []dataset.Record{
		{"k": "a", "v": "1"},
		{"k": "b", "v": "2"},
		{"k": "c", "v": "3"},
		{"k": "d", "v": "4"},
		{"k": "e", "v": "100"},
		{"k": "f", "v": "oops"},
		{"k": "g", "v": "  "},
		{"k": "h"},
	})
	out := FilterOutliers(ds, "k", "v")
	var keys []string
	for _, r := range out.Records {
		keys = append(keys, r.String("k"))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	// Blank and absent cells are missing: they neither enter the sample nor survive the filter.
	assert.Equal(t, []float64{1, 2, 3, 4, 100}, NumericSample(ds, "v"))
}

func TestFilterOutliersIdempotentWithSameBounds(t *testing.T) {
	ds := salesData()
	b, ok := Quartiles(NumericSample(ds, "sales"))
	require.True(t, ok)
	once := FilterWithin(ds, "sales", b)
	twice := FilterWithin(once, "sales", b)
	assert.Equal(t, once.Records, twice.Records)
}

func TestFilterOutliersPassThrough(t *testing.T) {
	ds := salesData()
	assert.Same(t, ds, FilterOutliers(ds, "", "sales"))
	assert.Same(t, ds, FilterOutliers(ds, "region", ""))

	noNumbers := dataset.New("x", nil, []dataset.Record{{"k": "a", "v": "x"}})
	assert.Same(t, noNumbers, FilterOutliers(noNumbers, "k", "v"))

	empty := dataset.New("x", nil, nil)
	assert.Same(t, empty, FilterOutliers(empty, "k", "v"))
}
