// Package export writes analysis reports as PDF, DOCX, PNG or JSON and
// stores them locally or in object storage.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/mozillazg/go-unidecode"
)

// Format is an export file type.
type Format string

const (
	PDF  Format = "pdf"
	DOCX Format = "docx"
	PNG  Format = "png"
	JSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{PDF, DOCX, PNG, JSON}

var (
	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrNoAnalysis is returned when a report format needs an analysis result.
	ErrNoAnalysis = errors.New("no analysis to export")
	// ErrNoChart is returned when the PNG export has no figure.
	ErrNoChart = errors.New("no chart to export")
)

// ParseFormat maps a name such as "PDF" to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want pdf, docx, png or json)", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case PNG:
		return "image/png"
	default:
		return "application/json"
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug transliterates s to lowercase ASCII words joined by dashes.
func Slug(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	return strings.Trim(slugInvalid.ReplaceAllString(s, "-"), "-")
}

// Filename returns the default file name for f, prefixed by the slug of
// prefix when it has one.
func (f Format) Filename(prefix string) string {
	name := "data-analysis-report." + string(f)
	if f == PNG {
		name = "data-analysis-charts.png"
	}
	if s := Slug(prefix); s != "" {
		return s + "-" + name
	}
	return name
}

// Report is everything an export may include.
type Report struct {
	Result  *insight.Result
	Records []dataset.Record
	Figure  *chart.Figure
	Now     time.Time
}

// Write renders r in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case PNG:
		if r.Figure == nil {
			return ErrNoChart
		}
		return WritePNG(w, r.Figure)
	case JSON:
		if r.Result == nil {
			return ErrNoAnalysis
		}
		now := r.Now
		if now.IsZero() {
			now = time.Now()
		}
		return WriteJSON(w, r.Result, r.Records, now)
	case PDF, DOCX:
		if r.Result == nil {
			return ErrNoAnalysis
		}
		if f == DOCX {
			return WriteDOCX(w, r.Result)
		}
		var img bytes.Buffer
		if r.Figure != nil {
			if err := chart.RenderPNG(&img, r.Figure); err != nil && !errors.Is(err, chart.ErrEmptyChart) {
				return fmt.Errorf("render chart: %w", err)
			}
		}
		return WritePDF(w, r.Result, img.Bytes())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

var (
	leadingMarker = regexp.MustCompile(`(?m)^[ \t]*[\*\-][ \t]+`)
	boldText      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicText    = regexp.MustCompile(`\*(.*?)\*`)
	codeText      = regexp.MustCompile("`(.*?)`")
)

// CleanText strips list markers and inline markdown emphasis.
func CleanText(s string) string {
	s = leadingMarker.ReplaceAllString(s, "")
	s = boldText.ReplaceAllString(s, "$1")
	s = italicText.ReplaceAllString(s, "$1")
	s = codeText.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

type section struct {
	title string
	lines []string
}

// sections lists the non-empty insight fields in export order.
func sections(in insight.Insight) []section {
	var out []section
	if in.Summary != "" {
		out = append(out, section{title: "Summary", lines: []string{in.Summary}})
	}
	if len(in.KeyFindings) > 0 {
		out = append(out, section{title: "KeyFindings", lines: in.KeyFindings})
	}
	return out
}
