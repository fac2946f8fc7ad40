package stats

import (
	"math"
	"sort"

	"github.com/KaramelBytes/chartloom/internal/dataset"
)

// Bounds are the quartile-derived limits used to drop outliers.
type Bounds struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lowerBound"`
	Upper float64 `json:"upperBound"`
}

// Contains reports whether v lies within [Lower, Upper].
func (b Bounds) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

// Quartiles computes bounds from a sample using the sorted values at
// floor(n*0.25) and floor(n*0.75), without interpolation.
// ok is false for an empty sample.
func Quartiles(sample []float64) (b Bounds, ok bool) {
	if len(sample) == 0 {
		return Bounds{}, false
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	n := float64(len(sorted))
	q1 := sorted[int(math.Floor(n*0.25))]
	q3 := sorted[int(math.Floor(n*0.75))]
	iqr := q3 - q1
	return Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}, true
}

// NumericSample collects the parseable values of col, one per record.
func NumericSample(ds *dataset.Dataset, col string) []float64 {
	if ds == nil {
		return nil
	}
	out := make([]float64, 0, len(ds.Records))
	for _, r := range ds.Records {
		if v, ok := dataset.Numeric(r.Get(col)); ok {
			out = append(out, v)
		}
	}
	return out
}

// FilterWithin keeps records whose col value is numeric and inside b.
func FilterWithin(ds *dataset.Dataset, col string, b Bounds) *dataset.Dataset {
	return ds.Filter(func(r dataset.Record) bool {
		v, ok := dataset.Numeric(r.Get(col))
		return ok && b.Contains(v)
	})
}

// FilterOutliers drops records whose numeric column falls outside the IQR bounds.
// The dataset is returned as is when it is empty, a column is unset, or the
// numeric column has no parseable values.
func FilterOutliers(ds *dataset.Dataset, category, numeric string) *dataset.Dataset {
	if ds.Empty() || category == "" || numeric == "" {
		return ds
	}
	b, ok := Quartiles(NumericSample(ds, numeric))
	if !ok {
		return ds
	}
	return FilterWithin(ds, numeric, b)
}
