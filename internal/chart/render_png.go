package chart

import (
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// PNG canvas size in pixels.
const (
	PNGWidth  = 1280
	PNGHeight = 720
)

// RenderPNG writes a raster image of f.
func RenderPNG(w io.Writer, f *Figure) error {
	if f == nil || f.Data.Empty() {
		return ErrEmptyChart
	}
	switch f.Kind {
	case Pie:
		return piePNG(w, f)
	case Line, Scatter:
		return xyPNG(w, f)
	default:
		return barPNG(w, f)
	}
}

func background() gochart.Style {
	return gochart.Style{
		Padding:   gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		FillColor: drawing.ColorWhite,
	}
}

// valueRange spans the values and always includes zero.
func valueRange(values []float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

func barPNG(w io.Writer, f *Figure) error {
	s := f.Data.Series[0]
	bars := make([]gochart.Value, len(s.Values))
	for i, v := range s.Values {
		label := ""
		if i < len(f.Data.Labels) {
			label = f.Data.Labels[i]
		}
		bars[i] = gochart.Value{
			Label: label,
			Value: v,
			Style: gochart.Style{
				FillColor:   RGBA(0, 0.7),
				StrokeColor: RGBA(0, 1),
				StrokeWidth: float64(s.BorderWidth),
			},
		}
	}
	graph := gochart.BarChart{
		Title:      f.Title,
		Width:      PNGWidth,
		Height:     PNGHeight,
		Background: background(),
		BarWidth:   barWidth(len(bars)),
		XAxis:      gochart.Style{TextRotationDegrees: 45},
		YAxis: gochart.YAxis{
			Name:           axisName(f, false),
			Range:          valueRange(s.Values),
			ValueFormatter: formatTick,
		},
		Bars: bars,
	}
	return graph.Render(gochart.PNG, w)
}

func barWidth(n int) int {
	if n == 0 {
		return 40
	}
	bw := (PNGWidth - 120) / n * 2 / 3
	if bw < 4 {
		return 4
	}
	if bw > 80 {
		return 80
	}
	return bw
}

func piePNG(w io.Writer, f *Figure) error {
	s := f.Data.Series[0]
	values := make([]gochart.Value, 0, len(s.Values))
	var total float64
	for i, v := range s.Values {
		total += v
		label := ""
		if i < len(f.Data.Labels) {
			label = f.Data.Labels[i]
		}
		values = append(values, gochart.Value{
			Label: label,
			Value: v,
			Style: gochart.Style{FillColor: RGBA(i, 0.7), StrokeColor: RGBA(i, 1)},
		})
	}
	if total <= 0 {
		return ErrEmptyChart
	}
	graph := gochart.PieChart{
		Title:      f.Title,
		Width:      PNGHeight,
		Height:     PNGHeight,
		Background: background(),
		Values:     values,
	}
	return graph.Render(gochart.PNG, w)
}

func xyPNG(w io.Writer, f *Figure) error {
	s := f.Data.Series[0]
	index := make(map[string]int, len(f.Data.Labels))
	ticks := make([]gochart.Tick, len(f.Data.Labels))
	for i, l := range f.Data.Labels {
		index[l] = i
		ticks[i] = gochart.Tick{Value: float64(i), Label: l}
	}
	var xs, ys []float64
	if f.Kind == Scatter {
		for _, p := range s.Points {
			xs = append(xs, float64(index[p.X]))
			ys = append(ys, p.Y)
		}
	} else {
		for i, v := range s.Values {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	style := gochart.Style{StrokeColor: RGBA(0, 1), StrokeWidth: 2}
	if f.Kind == Scatter {
		style = gochart.Style{
			StrokeColor: drawing.ColorTransparent,
			DotColor:    RGBA(0, 0.7),
			DotWidth:    float64(s.PointRadius),
		}
	} else if s.Fill {
		style.FillColor = RGBA(0, 0.1)
	}
	n := float64(len(f.Data.Labels))
	if n == 0 {
		n = 1
	}
	graph := gochart.Chart{
		Title:      f.Title,
		Width:      PNGWidth,
		Height:     PNGHeight,
		Background: background(),
		XAxis: gochart.XAxis{
			Name:  axisName(f, true),
			Style: gochart.Style{TextRotationDegrees: 45},
			Ticks: ticks,
			Range: &gochart.ContinuousRange{Min: -0.5, Max: n - 0.5},
		},
		YAxis: gochart.YAxis{
			Name:           axisName(f, false),
			Range:          valueRange(ys),
			ValueFormatter: formatTick,
		},
		Series: []gochart.Series{gochart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style:   style,
		}},
	}
	return graph.Render(gochart.PNG, w)
}

func axisName(f *Figure, x bool) string {
	if f.Options.Scales == nil {
		return ""
	}
	if x {
		return f.Options.Scales.X.Title.Text
	}
	return f.Options.Scales.Y.Title.Text
}

func formatTick(v interface{}) string {
	if vf, ok := v.(float64); ok {
		return FormatValue(vf)
	}
	return ""
}
