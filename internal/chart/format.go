package chart

import (
	"fmt"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/stats"
)

// Point is one scatter sample. X is the category value as text.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Series is one renderer-agnostic data series.
type Series struct {
	Label           string    `json:"label"`
	Values          []float64 `json:"data,omitempty"`
	Points          []Point   `json:"points,omitempty"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     []string  `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
	Fill            bool      `json:"fill,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
	PointRadius     int       `json:"pointRadius,omitempty"`
}

// Data is the formatted input of one chart.
type Data struct {
	Kind   Kind     `json:"kind"`
	Labels []string `json:"labels"`
	Series []Series `json:"datasets"`
}

// Empty reports whether there is nothing to draw.
func (d Data) Empty() bool {
	for _, s := range d.Series {
		if len(s.Values) > 0 || len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// FormatData converts records into chart series for kind. x is the category
// column and y the numeric one. Unknown kinds are formatted as bar.
func FormatData(kind Kind, ds *dataset.Dataset, x, y string) Data {
	switch kind {
	case Line:
		agg := stats.Aggregate(ds, x, y)
		return Data{Kind: Line, Labels: agg.Labels, Series: []Series{{
			Label:           y,
			Values:          agg.Values,
			BackgroundColor: []string{Color(0, 0.1)},
			BorderColor:     []string{Color(0, 1)},
			BorderWidth:     1,
			Fill:            true,
			Tension:         0.4,
		}}}
	case Pie:
		return formatPie(ds, x, y)
	case Scatter:
		return formatScatter(ds, x, y)
	default:
		agg := stats.Aggregate(ds, x, y)
		return Data{Kind: Bar, Labels: agg.Labels, Series: []Series{{
			Label:           y,
			Values:          agg.Values,
			BackgroundColor: []string{Color(0, 0.7)},
			BorderColor:     []string{Color(0, 1)},
			BorderWidth:     1,
		}}}
	}
}

func formatPie(ds *dataset.Dataset, x, y string) Data {
	var agg stats.Series
	label := y
	if y == "" || y == x {
		agg = stats.CountFrequencies(ds, x)
		label = x
	} else {
		agg = stats.Aggregate(ds, x, y)
	}
	bg := make([]string, agg.Len())
	border := make([]string, agg.Len())
	for i := range agg.Labels {
		bg[i] = Color(i, 0.7)
		border[i] = Color(i, 1)
	}
	return Data{Kind: Pie, Labels: agg.Labels, Series: []Series{{
		Label:           label,
		Values:          agg.Values,
		BackgroundColor: bg,
		BorderColor:     border,
		BorderWidth:     1,
	}}}
}

func formatScatter(ds *dataset.Dataset, x, y string) Data {
	var points []Point
	if ds != nil {
		points = make([]Point, 0, len(ds.Records))
		for _, r := range ds.Records {
			points = append(points, Point{X: r.String(x), Y: r.Number(y)})
		}
	}
	labels := make([]string, 0, len(points))
	seen := map[string]bool{}
	for _, p := range points {
		if !seen[p.X] {
			seen[p.X] = true
			labels = append(labels, p.X)
		}
	}
	return Data{Kind: Scatter, Labels: labels, Series: []Series{{
		Label:           fmt.Sprintf("%s vs %s", x, y),
		Points:          points,
		BackgroundColor: []string{Color(0, 0.7)},
		BorderColor:     []string{Color(0, 1)},
		BorderWidth:     1,
		PointRadius:     5,
	}}}
}
