package export

import (
	"io"

	"github.com/KaramelBytes/chartloom/internal/chart"
)

// WritePNG renders the figure as a PNG image.
func WritePNG(w io.Writer, f *chart.Figure) error {
	return chart.RenderPNG(w, f)
}
