package stats

import (
	"sort"

	"github.com/KaramelBytes/chartloom/internal/dataset"
)

// Series holds parallel label/value sequences for one chart series.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of label/value pairs.
func (s Series) Len() int { return len(s.Labels) }

// Total sums all values.
func (s Series) Total() float64 {
	var t float64
	for _, v := range s.Values {
		t += v
	}
	return t
}

// Aggregate groups records by the string form of category and sums numeric per group.
// Labels are unique and sorted ascending; non-numeric cells count as zero.
func Aggregate(ds *dataset.Dataset, category, numeric string) Series {
	sums := map[string]float64{}
	if ds != nil {
		for _, r := range ds.Records {
			key := r.String(category)
			sums[key] += r.Number(numeric)
		}
	}
	labels := make([]string, 0, len(sums))
	for k := range sums {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	values := make([]float64, len(labels))
	for i, l := range labels {
		values[i] = sums[l]
	}
	return Series{Labels: labels, Values: values}
}

// CountFrequencies counts records per non-empty category value.
// Results are ordered by count descending, then label.
func CountFrequencies(ds *dataset.Dataset, category string) Series {
	counts := map[string]float64{}
	if ds != nil {
		for _, r := range ds.Records {
			key := r.String(category)
			if key == "" {
				continue
			}
			counts[key]++
		}
	}
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := counts[labels[i]], counts[labels[j]]
		if ci != cj {
			return ci > cj
		}
		return labels[i] < labels[j]
	})
	values := make([]float64, len(labels))
	for i, l := range labels {
		values[i] = counts[l]
	}
	return Series{Labels: labels, Values: values}
}
