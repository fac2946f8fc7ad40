package chart

import (
	"errors"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrEmptyChart is returned by renderers when the figure has no data points.
var ErrEmptyChart = errors.New("chart has no data to render")

const pieTooltipFormat = "{b}: {c} ({d}%)"

type renderer interface {
	Render(w io.Writer) error
}

// RenderHTML writes an interactive ECharts page for f.
func RenderHTML(w io.Writer, f *Figure) error {
	if f == nil || f.Data.Empty() {
		return ErrEmptyChart
	}
	global := globalOpts(f)
	var r renderer
	switch f.Kind {
	case Pie:
		r = pieHTML(f, global)
	case Line:
		r = lineHTML(f, global)
	case Scatter:
		r = scatterHTML(f, global)
	default:
		r = barHTML(f, global)
	}
	return r.Render(w)
}

func globalOpts(f *Figure) []charts.GlobalOpts {
	o := f.Options
	page := f.Title
	if page == "" {
		page = "chartloom"
	}
	g := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: page,
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(o.Legend.Display),
			Top:  o.Legend.Position,
		}),
	}
	if o.Title != nil {
		g = append(g, charts.WithTitleOpts(opts.Title{Title: o.Title.Text}))
	}
	tooltip := opts.Tooltip{Show: opts.Bool(o.Tooltip.Enabled), Trigger: "axis"}
	if f.Kind == Pie {
		tooltip.Trigger = "item"
		tooltip.Formatter = pieTooltipFormat
	}
	if f.Kind == Scatter {
		tooltip.Trigger = "item"
	}
	g = append(g, charts.WithTooltipOpts(tooltip))
	if o.Scales != nil {
		g = append(g,
			charts.WithXAxisOpts(opts.XAxis{
				Name:      o.Scales.X.Title.Text,
				Type:      "category",
				AxisLabel: &opts.AxisLabel{Rotate: 45},
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: o.Scales.Y.Title.Text,
				Type: "value",
				Min:  0,
			}),
		)
	}
	return g
}

func firstColor(s Series) string {
	if len(s.BackgroundColor) == 0 {
		return ""
	}
	return s.BackgroundColor[0]
}

func barHTML(f *Figure, g []charts.GlobalOpts) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(g...)
	bar.SetXAxis(f.Data.Labels)
	for _, s := range f.Data.Series {
		items := make([]opts.BarData, len(s.Values))
		for i, v := range s.Values {
			items[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(s.Label, items, charts.WithItemStyleOpts(opts.ItemStyle{Color: firstColor(s)}))
	}
	return bar
}

func lineHTML(f *Figure, g []charts.GlobalOpts) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(g...)
	line.SetXAxis(f.Data.Labels)
	for _, s := range f.Data.Series {
		items := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			items[i] = opts.LineData{Value: v}
		}
		so := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(s.Tension > 0), ShowSymbol: opts.Bool(true)}),
		}
		if len(s.BorderColor) > 0 {
			so = append(so, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.BorderColor[0]}))
		}
		if s.Fill {
			so = append(so, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.1}))
		}
		line.AddSeries(s.Label, items, so...)
	}
	return line
}

func pieHTML(f *Figure, g []charts.GlobalOpts) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(g...)
	for _, s := range f.Data.Series {
		items := make([]opts.PieData, len(s.Values))
		for i, v := range s.Values {
			name := ""
			if i < len(f.Data.Labels) {
				name = f.Data.Labels[i]
			}
			items[i] = opts.PieData{Name: name, Value: v}
			if i < len(s.BackgroundColor) {
				items[i].ItemStyle = &opts.ItemStyle{Color: s.BackgroundColor[i]}
			}
		}
		pie.AddSeries(s.Label, items)
	}
	return pie
}

func scatterHTML(f *Figure, g []charts.GlobalOpts) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(g...)
	sc.SetXAxis(f.Data.Labels)
	for _, s := range f.Data.Series {
		items := make([]opts.ScatterData, len(s.Points))
		for i, p := range s.Points {
			items[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}, SymbolSize: s.PointRadius * 2}
		}
		sc.AddSeries(s.Label, items, charts.WithItemStyleOpts(opts.ItemStyle{Color: firstColor(s)}))
	}
	return sc
}
