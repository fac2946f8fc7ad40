package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupported indicates a file extension no loader handles.
var ErrUnsupported = errors.New("unsupported dataset format")

// LoadOptions tunes file loading.
type LoadOptions struct {
	// MaxRows limits records read; 0 means unlimited.
	MaxRows int
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t'.
	Delimiter rune
}

// LoadFile reads a dataset from disk. Supported: .csv, .tsv, .json, .xlsx,
// each optionally compressed as .gz or .lz4.
func LoadFile(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opt)
}

// Load reads a dataset named name from r, choosing the decoder from the name's extensions.
func Load(name string, r io.Reader, opt LoadOptions) (*Dataset, error) {
	inner, rc, err := decompress(name, r)
	if err != nil {
		return nil, err
	}
	var ds *Dataset
	switch strings.ToLower(filepath.Ext(inner)) {
	case ".csv", ".txt":
		ds, err = readCSV(rc, opt)
	case ".tsv":
		if opt.Delimiter == 0 {
			opt.Delimiter = '\t'
		}
		ds, err = readCSV(rc, opt)
	case ".json":
		ds, err = readJSON(rc, opt)
	case ".xlsx":
		ds, err = readXLSX(rc, opt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, err
	}
	ds.Name = inner
	return ds, nil
}

// Supported reports whether name has an extension Load understands.
func Supported(name string) bool {
	inner := strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(name), ".gz"), ".lz4")
	switch filepath.Ext(inner) {
	case ".csv", ".tsv", ".txt", ".json", ".xlsx":
		return true
	}
	return false
}

func decompress(name string, r io.Reader) (string, io.Reader, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return "", nil, fmt.Errorf("open gzip: %w", err)
		}
		return name[:len(name)-len(".gz")], zr, nil
	case strings.HasSuffix(lower, ".lz4"):
		return name[:len(name)-len(".lz4")], lz4.NewReader(r), nil
	}
	return name, r, nil
}

func readCSV(r io.Reader, opt LoadOptions) (*Dataset, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffDelimiter(head)
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	ds := &Dataset{Columns: cols}
	for {
		if opt.MaxRows > 0 && len(ds.Records) >= opt.MaxRows {
			break
		}
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(ds.Records)+2, err)
		}
		ds.Records = append(ds.Records, rowRecord(cols, row))
	}
	return ds, nil
}

func rowRecord(cols, row []string) Record {
	rec := make(Record, len(cols))
	for i, c := range cols {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		rec[c] = v
	}
	return rec
}

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// readJSON accepts an array of objects or an object {"columns": [...], "data": [...]}.
// Key order of the first object defines the column order.
func readJSON(r io.Reader, opt LoadOptions) (*Dataset, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		return readJSONArray(dec, opt, nil)
	case json.Delim('{'):
		var cols []string
		var ds *Dataset
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read json: %w", err)
			}
			key, _ := kt.(string)
			switch key {
			case "columns":
				if err := dec.Decode(&cols); err != nil {
					return nil, fmt.Errorf("decode columns: %w", err)
				}
			case "data", "records":
				if t, err := dec.Token(); err != nil || t != json.Delim('[') {
					return nil, fmt.Errorf("json %q must be an array", key)
				}
				ds, err = readJSONArray(dec, opt, cols)
				if err != nil {
					return nil, err
				}
			default:
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return nil, fmt.Errorf("read json: %w", err)
				}
			}
		}
		if ds == nil {
			return nil, errors.New(`json object must contain a "data" array`)
		}
		if len(cols) > 0 {
			ds.Columns = cols
		}
		return ds, nil
	}
	return nil, errors.New("json dataset must be an array of objects")
}

func readJSONArray(dec *json.Decoder, opt LoadOptions, cols []string) (*Dataset, error) {
	ds := &Dataset{Columns: cols}
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	for dec.More() {
		if t, err := dec.Token(); err != nil || t != json.Delim('{') {
			return nil, fmt.Errorf("record %d is not an object", len(ds.Records))
		}
		rec := Record{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read record: %w", err)
			}
			key, _ := kt.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("decode %q: %w", key, err)
			}
			switch v.(type) {
			case map[string]any, []any:
				b, _ := json.Marshal(v)
				v = string(b)
			}
			if v != nil {
				rec[key] = v
			}
			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if opt.MaxRows <= 0 || len(ds.Records) < opt.MaxRows {
			ds.Records = append(ds.Records, rec)
		}
	}
	return ds, nil
}

func readXLSX(r io.Reader, opt LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &Dataset{}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Dataset{}, nil
	}
	cols := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		cols[i] = strings.TrimSpace(h)
	}
	ds := &Dataset{Columns: cols}
	for _, row := range rows[1:] {
		if opt.MaxRows > 0 && len(ds.Records) >= opt.MaxRows {
			break
		}
		rec := rowRecord(cols, row)
		if len(rec) == 0 {
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}
