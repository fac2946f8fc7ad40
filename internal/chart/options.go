package chart

import (
	"fmt"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Config holds the user-facing presentation choices.
type Config struct {
	Title        string `json:"title,omitempty"`
	XAxisLabel   string `json:"xAxisLabel,omitempty"`
	YAxisLabel   string `json:"yAxisLabel,omitempty"`
	ShowLegend   bool   `json:"showLegend"`
	ShowTooltips bool   `json:"showTooltips"`
}

// DefaultConfig shows the legend and tooltips.
func DefaultConfig() Config {
	return Config{ShowLegend: true, ShowTooltips: true}
}

type TitleOptions struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type LegendOptions struct {
	Display  bool   `json:"display"`
	Position string `json:"position"`
}

type TooltipOptions struct {
	Enabled   bool   `json:"enabled"`
	Mode      string `json:"mode"`
	Intersect bool   `json:"intersect"`
}

type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type Ticks struct {
	MaxRotation int `json:"maxRotation"`
	MinRotation int `json:"minRotation"`
}

type Axis struct {
	Type        string    `json:"type"`
	BeginAtZero bool      `json:"beginAtZero,omitempty"`
	Title       AxisTitle `json:"title"`
	Ticks       *Ticks    `json:"ticks,omitempty"`
}

type Scales struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

// Options describes axes, legend and tooltips for one chart.
// Scales is nil for pie charts.
type Options struct {
	Kind                Kind           `json:"-"`
	Responsive          bool           `json:"responsive"`
	MaintainAspectRatio bool           `json:"maintainAspectRatio"`
	Title               *TitleOptions  `json:"title,omitempty"`
	Legend              LegendOptions  `json:"legend"`
	Tooltip             TooltipOptions `json:"tooltip"`
	Scales              *Scales        `json:"scales,omitempty"`
}

// BuildOptions derives chart options from kind and cfg.
func BuildOptions(kind Kind, cfg Config) Options {
	o := Options{
		Kind:       kind,
		Responsive: true,
		Legend:     LegendOptions{Display: cfg.ShowLegend, Position: "top"},
		Tooltip:    TooltipOptions{Enabled: cfg.ShowTooltips, Mode: "index"},
	}
	if cfg.Title != "" {
		o.Title = &TitleOptions{Display: true, Text: cfg.Title}
	}
	if kind == Pie {
		return o
	}
	o.Scales = &Scales{
		X: Axis{
			Type:  "category",
			Title: AxisTitle{Display: cfg.XAxisLabel != "", Text: cfg.XAxisLabel},
			Ticks: &Ticks{MaxRotation: 45, MinRotation: 45},
		},
		Y: Axis{
			Type:        "linear",
			BeginAtZero: true,
			Title:       AxisTitle{Display: cfg.YAxisLabel != "", Text: cfg.YAxisLabel},
		},
	}
	return o
}

var printer = message.NewPrinter(language.English)

// FormatValue renders v with digit grouping and at most three fraction digits.
func FormatValue(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// TooltipLabel returns the tooltip text for item i of series s in d.
// Pie slices read "<label>: <value> (<share>%)"; other kinds "<series>: <value>".
func (o Options) TooltipLabel(d Data, s, i int) string {
	if s < 0 || s >= len(d.Series) {
		return ""
	}
	ser := d.Series[s]
	if o.Kind == Pie {
		if i < 0 || i >= len(ser.Values) {
			return ""
		}
		var total float64
		for _, v := range ser.Values {
			total += v
		}
		pct := 0.0
		if total != 0 {
			pct = ser.Values[i] / total * 100
		}
		label := ""
		if i < len(d.Labels) {
			label = d.Labels[i]
		}
		return fmt.Sprintf("%s: %s (%.1f%%)", label, dataset.FormatNumber(ser.Values[i]), pct)
	}
	var v float64
	switch {
	case i >= 0 && i < len(ser.Values):
		v = ser.Values[i]
	case i >= 0 && i < len(ser.Points):
		v = ser.Points[i].Y
	default:
		return ""
	}
	return fmt.Sprintf("%s: %s", ser.Label, FormatValue(v))
}
