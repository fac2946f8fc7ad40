package chart

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/stats"
)

var (
	// ErrIncompleteSelection is returned when the columns a kind needs are not selected.
	ErrIncompleteSelection = errors.New("please select the columns required for this chart")
	// ErrUnknownColumn is returned when a selected column is not in the dataset.
	ErrUnknownColumn = errors.New("unknown column")
)

// AxisName identifies which column of a view is being set.
type AxisName string

const (
	AxisX AxisName = "x"
	AxisY AxisName = "y"
)

// ViewState is the current chart selection. Methods return modified copies.
type ViewState struct {
	Kind Kind   `json:"kind"`
	X    string `json:"x,omitempty"`
	Y    string `json:"y,omitempty"`
}

// WithKind switches the chart kind. Switching to pie clears the selected columns.
func (v ViewState) WithKind(k Kind) ViewState {
	k = ParseKind(string(k))
	if k == Pie && v.Kind != Pie {
		v.X, v.Y = "", ""
	}
	v.Kind = k
	return v
}

// WithColumn selects col for the given axis.
func (v ViewState) WithColumn(axis AxisName, col string) ViewState {
	switch axis {
	case AxisY:
		v.Y = col
	default:
		v.X = col
	}
	return v
}

// CanShow reports whether enough columns are selected to draw the chart.
func (v ViewState) CanShow() bool {
	if ParseKind(string(v.Kind)) == Pie {
		return v.X != ""
	}
	return v.X != "" && v.Y != ""
}

// Figure is a chart ready for rendering.
type Figure struct {
	Kind    Kind    `json:"kind"`
	Title   string  `json:"title,omitempty"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Figure filters outliers when both columns are selected, then formats the data
// and builds options. Axis labels default to the column names.
func (v ViewState) Figure(ds *dataset.Dataset, cfg Config) (*Figure, error) {
	kind := ParseKind(string(v.Kind))
	if !v.CanShow() {
		return nil, ErrIncompleteSelection
	}
	for _, col := range []string{v.X, v.Y} {
		if col != "" && ds != nil && len(ds.Columns) > 0 && !ds.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}
	src := ds
	if v.X != "" && v.Y != "" {
		src = stats.FilterOutliers(ds, v.X, v.Y)
	}
	if cfg.XAxisLabel == "" {
		cfg.XAxisLabel = v.X
	}
	if cfg.YAxisLabel == "" {
		cfg.YAxisLabel = v.Y
	}
	return &Figure{
		Kind:    kind,
		Title:   cfg.Title,
		Data:    FormatData(kind, src, v.X, v.Y),
		Options: BuildOptions(kind, cfg),
	}, nil
}
