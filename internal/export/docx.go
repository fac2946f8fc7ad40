package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/fumiama/go-docx"
)

// Page margins in twips and run sizes in half-points.
const (
	docxMargin    = 720
	docxTitleSize = 32
	docxHeadSize  = 28
	docxBodySize  = 24
)

// WriteDOCX writes a title, then each non-empty insight field on a new page.
func WriteDOCX(w io.Writer, res *insight.Result) error {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Data Analysis Report").Bold().Size(strconv.Itoa(docxTitleSize))
	for _, s := range sections(res.Insights) {
		doc.AddParagraph().AddPageBreaks()
		doc.AddParagraph().AddText(s.title).Bold().Size(strconv.Itoa(docxHeadSize))
		for _, l := range s.lines {
			doc.AddParagraph().AddText(CleanText(l)).Size(strconv.Itoa(docxBodySize))
		}
	}
	// A4 portrait; the section properties close the body.
	doc.Document.Body.Items = append(doc.Document.Body.Items, &docx.SectPr{
		PgSz:  &docx.PgSz{W: 11906, H: 16838},
		PgMar: &docx.PgMar{Top: docxMargin, Right: docxMargin, Bottom: docxMargin, Left: docxMargin},
	})
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("docx: %w", err)
	}
	return nil
}
