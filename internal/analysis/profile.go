package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/stats"
)

// Options controls profiling of a dataset.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// TopValues caps the categorical values listed per column.
	TopValues int
}

// DefaultOptions returns reasonable defaults for prompt-sized profiles.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
		TopValues:        8,
	}
}

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Report summarises a dataset for prompts and terminal output.
type Report struct {
	Name      string          `json:"name"`
	Rows      int             `json:"rows"`
	Processed int             `json:"processed"`
	Cols      []ColumnSummary `json:"columns"`
	Samples   [][]string      `json:"samples,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Corr      *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	NonNull int    `json:"nonNull"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`

	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
	Sum  float64 `json:"sum,omitempty"`
	// IQR bounds from the same quartile rule the chart filter uses.
	Bounds *stats.Bounds `json:"bounds,omitempty"`

	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliersMaxAbsZ,omitempty"`
	OutlierThreshold float64 `json:"outlierThreshold,omitempty"`

	TopValues    []CategoryCount `json:"topValues,omitempty"`
	ExampleTexts []string        `json:"examples,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

type colAcc struct {
	nonNil, miss int
	// Welford
	n             int
	mean, m2, sum float64
	min, max      float64
	numCnt, dtCnt int
	txtCnt        int
	cats          map[string]int
	exText        []string
	values        []float64
}

// Profile infers column kinds and statistics for ds.
func Profile(ds *dataset.Dataset, opt Options) *Report {
	rep := &Report{}
	if ds == nil {
		return rep
	}
	rep.Name = ds.Name
	rep.Rows = ds.Len()
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	ncol := len(ds.Columns)
	cols := make([]*colAcc, ncol)
	for i := range cols {
		cols[i] = &colAcc{min: math.Inf(1), max: math.Inf(-1), cats: map[string]int{}}
	}

	for _, rec := range ds.Records {
		if rep.Processed >= maxRows {
			break
		}
		rep.Processed++
		if len(rep.Samples) < sampleRows {
			row := make([]string, ncol)
			for j, name := range ds.Columns {
				row[j] = rec.String(name)
			}
			rep.Samples = append(rep.Samples, row)
		}
		for j, name := range ds.Columns {
			c := cols[j]
			raw := rec.Get(name)
			v := strings.TrimSpace(dataset.StringOf(raw))
			if v == "" {
				c.miss++
				continue
			}
			c.nonNil++
			if x, ok := dataset.Numeric(raw); ok {
				c.numCnt++
				c.n++
				c.sum += x
				c.min = math.Min(c.min, x)
				c.max = math.Max(c.max, x)
				delta := x - c.mean
				c.mean += delta / float64(c.n)
				c.m2 += delta * (x - c.mean)
				c.values = append(c.values, x)
				continue
			}
			if _, ok := parseTimeMaybe(v); ok {
				c.dtCnt++
				continue
			}
			c.txtCnt++
			if len(c.cats) <= 10000 && len(v) <= 64 {
				c.cats[v]++
			}
			if len(c.exText) < 3 {
				c.exText = append(c.exText, v)
			}
		}
	}

	topN := opt.TopValues
	if topN <= 0 {
		topN = 8
	}
	var numCols []int
	rep.Cols = make([]ColumnSummary, 0, ncol)
	for idx, c := range cols {
		s := ColumnSummary{Name: ds.Columns[idx], NonNull: c.nonNil, Missing: c.miss, Kind: KindUnknown}
		switch {
		case c.numCnt > 0 && c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt:
			s.Kind = KindNumeric
			s.Min, s.Max, s.Mean, s.Sum = c.min, c.max, c.mean, c.sum
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
			if b, ok := stats.Quartiles(c.values); ok {
				s.Bounds = &b
			}
			if opt.Outliers && len(c.values) >= 8 {
				s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = robustOutliers(c.values, opt.OutlierThreshold)
			}
			numCols = append(numCols, idx)
		case c.dtCnt > 0 && c.dtCnt >= c.txtCnt:
			s.Kind = KindDatetime
		case len(c.cats) > 0:
			s.Kind = KindCategorical
			s.TopValues = topValues(c.cats, topN)
			s.Unique = len(c.cats)
		case c.txtCnt > 0:
			s.Kind = KindText
			s.ExampleTexts = c.exText
		}
		rep.Cols = append(rep.Cols, s)
	}

	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = correlations(ds, numCols, rep.Processed)
	}
	return rep
}

// Column returns the summary for name.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

func robustOutliers(values []float64, thr float64) (count int, maxAbsZ, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(values)
	if mad > 0 {
		for _, v := range values {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > thr {
				count++
			}
			maxAbsZ = math.Max(maxAbsZ, az)
		}
	}
	return count, maxAbsZ, thr
}

// correlations computes pairwise Pearson r over rows where both columns are numeric.
func correlations(ds *dataset.Dataset, numCols []int, limit int) *CorrMatrix {
	n := len(numCols)
	names := make([]string, n)
	for i, idx := range numCols {
		names[i] = ds.Columns[idx]
	}
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var cnt, sx, sy, sxx, syy, sxy float64
			for i, rec := range ds.Records {
				if i >= limit {
					break
				}
				x, okx := dataset.Numeric(rec.Get(names[a]))
				y, oky := dataset.Numeric(rec.Get(names[b]))
				if !okx || !oky {
					continue
				}
				cnt++
				sx += x
				sy += y
				sxx += x * x
				syy += y * y
				sxy += x * y
			}
			var r float64
			if cnt >= 2 {
				if denom := math.Sqrt((cnt*sxx - sx*sx) * (cnt*syy - sy*sy)); denom != 0 {
					r = (cnt*sxy - sx*sy) / denom
				}
			}
			r = math.Max(-1, math.Min(1, r))
			if math.IsNaN(r) {
				r = 0
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

// TopPairs lists the strongest correlations by |r|.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
