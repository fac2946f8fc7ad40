package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 10.0
	pdfLineHeight = 7.0
)

// WritePDF lays out the report on A4 pages. When chartPNG is set the chart
// is placed on its own page, scaled to the printable width.
func WritePDF(w io.Writer, res *insight.Result, chartPNG []byte) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := pdf.GetPageSize()
	maxWidth := pageWidth - 2*pdfMargin

	pdf.AddPage()
	y := pdfMargin
	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(pdfMargin, y, "Data Analysis Report")
	y += 10

	for _, s := range sections(res.Insights) {
		if y > pageHeight-30 {
			pdf.AddPage()
			y = pdfMargin
		}
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(pdfMargin, y, s.title)
		y += 10

		pdf.SetFont("Helvetica", "", 12)
		cleaned := make([]string, len(s.lines))
		for i, l := range s.lines {
			cleaned[i] = CleanText(l)
		}
		for _, line := range pdf.SplitText(tr(strings.Join(cleaned, "\n")), maxWidth) {
			if y > pageHeight-10 {
				pdf.AddPage()
				y = pdfMargin
			}
			pdf.Text(pdfMargin, y, line)
			y += pdfLineHeight
		}
		y += 5
	}

	if len(chartPNG) > 0 {
		pdf.AddPage()
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader("chart", opts, bytes.NewReader(chartPNG))
		if info != nil && info.Width() > 0 {
			imgWidth := maxWidth
			imgHeight := info.Height() / info.Width() * imgWidth
			pdf.ImageOptions("chart", pdfMargin, pdfMargin, imgWidth, imgHeight, false, opts, 0, "")
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
