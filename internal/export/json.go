package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/insight"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

type jsonExport struct {
	Analysis   *insight.Result  `json:"analysis"`
	Data       []dataset.Record `json:"data"`
	ExportDate string           `json:"exportDate"`
}

// WriteJSON writes the analysis, the raw records and the export time.
func WriteJSON(w io.Writer, res *insight.Result, records []dataset.Record, now time.Time) error {
	if records == nil {
		records = []dataset.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonExport{Analysis: res, Data: records, ExportDate: now.UTC().Format(isoMillis)})
}
