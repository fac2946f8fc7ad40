package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/export"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/KaramelBytes/chartloom/internal/prompt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type datasetSummary struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

type datasetDetail struct {
	datasetSummary
	Records []dataset.Record `json:"records"`
}

func summarize(e *entry) datasetSummary {
	return datasetSummary{ID: e.ID, Name: e.Dataset.Name, Columns: e.Dataset.Columns, Rows: e.Dataset.Len()}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type templateItem struct {
	Index    int    `json:"index"`
	Template string `json:"template"`
	Prompt   string `json:"prompt"`
}

// templates lists the example questions, filled from ?dataset= when given.
func (s *Server) templates(w http.ResponseWriter, r *http.Request) {
	var cols []string
	if id := r.URL.Query().Get("dataset"); id != "" {
		sets, err := s.lookup([]string{id})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		cols = sets[0].Columns
	}
	items := make([]templateItem, 0, len(prompt.Templates))
	for i, t := range prompt.Templates {
		p, _ := prompt.Template(i+1, cols)
		items = append(items, templateItem{Index: i + 1, Template: t, Prompt: p})
	}
	jsonSuccess(w, http.StatusOK, items)
}

func (s *Server) uploadDatasets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, badRequest("invalid upload: %v", err))
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		s.fail(w, r, badRequest("no file uploaded (use form field \"file\")"))
		return
	}
	out := make([]datasetSummary, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, fmt.Errorf("open upload %s: %w", fh.Filename, err))
			return
		}
		ds, err := dataset.Load(fh.Filename, f, dataset.LoadOptions{MaxRows: s.opts.MaxRows})
		f.Close()
		if err != nil {
			s.fail(w, r, badRequest("%s: %v", fh.Filename, err))
			return
		}
		id := uuid.NewString()
		s.AddDataset(id, ds)
		s.log.Info("dataset uploaded", "id", id, "name", ds.Name, "rows", ds.Len())
		out = append(out, datasetSummary{ID: id, Name: ds.Name, Columns: ds.Columns, Rows: ds.Len()})
	}
	jsonSuccess(w, http.StatusCreated, out)
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	entries := s.sortedLocked()
	s.mu.RUnlock()
	out := make([]datasetSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	jsonSuccess(w, http.StatusOK, out)
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	e, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		s.fail(w, r, &notFoundError{id: id})
		return
	}
	records := e.Dataset.Records
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest("invalid limit %q", v))
			return
		}
		if n < len(records) {
			records = records[:n]
		}
	}
	if records == nil {
		records = []dataset.Record{}
	}
	jsonSuccess(w, http.StatusOK, datasetDetail{datasetSummary: summarize(e), Records: records})
}

type chartRequest struct {
	DatasetIDs []string `json:"datasetIds"`
	Kind       string   `json:"kind"`
	X          string   `json:"x"`
	Y          string   `json:"y"`
	Title      string   `json:"title"`
	XAxisLabel string   `json:"xAxisLabel"`
	YAxisLabel string   `json:"yAxisLabel"`
}

func (c chartRequest) selected() bool { return c.X != "" || c.Y != "" }

func chartQuery(r *http.Request) chartRequest {
	q := r.URL.Query()
	return chartRequest{
		DatasetIDs: []string{chi.URLParam(r, "id")},
		Kind:       q.Get("kind"),
		X:          q.Get("x"),
		Y:          q.Get("y"),
		Title:      q.Get("title"),
		XAxisLabel: q.Get("xAxisLabel"),
		YAxisLabel: q.Get("yAxisLabel"),
	}
}

func (s *Server) figure(c chartRequest) (*chart.Figure, *dataset.Dataset, error) {
	sets, err := s.lookup(c.DatasetIDs)
	if err != nil {
		return nil, nil, err
	}
	ds := dataset.Combine(sets...)
	view := chart.ViewState{}.
		WithKind(chart.Kind(c.Kind)).
		WithColumn(chart.AxisX, c.X).
		WithColumn(chart.AxisY, c.Y)
	cfg := chart.DefaultConfig()
	cfg.Title, cfg.XAxisLabel, cfg.YAxisLabel = c.Title, c.XAxisLabel, c.YAxisLabel
	fig, err := view.Figure(ds, cfg)
	return fig, ds, err
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) chartData(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	fig, _, err := s.figure(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, fig)
}

func (s *Server) chartHTML(w http.ResponseWriter, r *http.Request) {
	fig, _, err := s.figure(chartQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderHTML(&buf, fig); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) chartPNG(w http.ResponseWriter, r *http.Request) {
	fig, _, err := s.figure(chartQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, fig); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

type analyzeRequest struct {
	DatasetIDs []string `json:"datasetIds"`
	Prompt     string   `json:"prompt"`
	// Template selects an example question (1-based) when Prompt is empty.
	Template int `json:"template"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.busy.TryLock() {
		s.fail(w, r, errBusy)
		return
	}
	defer s.busy.Unlock()

	sets, err := s.lookup(req.DatasetIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := req.Prompt
	if strings.TrimSpace(q) == "" && req.Template > 0 {
		if req.Template > len(prompt.Templates) {
			s.fail(w, r, badRequest("template must be between 1 and %d", len(prompt.Templates)))
			return
		}
		q = prompt.Templates[req.Template-1]
	}
	res, err := s.analyzer.Ask(r.Context(), sets, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setLast(res)
	jsonSuccess(w, http.StatusOK, map[string]any{"analysis": res})
}

type exportRequest struct {
	chartRequest
	// Analysis overrides the most recent server-side result.
	Analysis *insight.Result `json:"analysis"`
	Name     string          `json:"name"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rep := export.Report{Result: req.Analysis, Now: s.opts.Now()}
	if rep.Result == nil {
		rep.Result = s.lastResult()
	}
	if req.selected() || format == export.PNG {
		fig, ds, err := s.figure(req.chartRequest)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rep.Figure, rep.Records = fig, ds.Records
	} else {
		sets, err := s.lookup(req.DatasetIDs)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rep.Records = dataset.Combine(sets...).Records
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, rep); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(req.Name)))
	_, _ = w.Write(buf.Bytes())
}
