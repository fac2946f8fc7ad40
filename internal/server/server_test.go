package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answer = "Summary: Sales rose.\nKey Findings:\n- South leads\n- North lags"

type stubRuntime struct {
	text    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubRuntime) Generate(ctx context.Context, _ ai.GenerateRequest) (*ai.GenerateResponse, error) {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: s.text}}}}, nil
}

func newTestServer(t *testing.T, rt ai.Runtime) (*Server, *httptest.Server) {
	t.Helper()
	s := New(&insight.Analyzer{Runtime: rt}, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func seed(s *Server) string {
	s.AddDataset("ds1", dataset.New("sales.csv", []string{"region", "sales"}, []dataset.Record{
		{"region": "North", "sales": "10"},
		{"region": "South", "sales": "20"},
		{"region": "South", "sales": "5"},
	}))
	return "ds1"
}

type envelope struct {
	Status    string          `json:"status"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

func do(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, &stubRuntime{})
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAndGetDataset(t *testing.T) {
	_, ts := newTestServer(t, &stubRuntime{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("region,sales\nNorth,10\nSouth,20\n"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/datasets", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var env struct {
		Data []datasetSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, []string{"region", "sales"}, env.Data[0].Columns)
	assert.Equal(t, 2, env.Data[0].Rows)

	r, got := do(t, http.MethodGet, ts.URL+"/api/datasets/"+env.Data[0].ID+"?limit=1", nil)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	var detail datasetDetail
	require.NoError(t, json.Unmarshal(got.Data, &detail))
	assert.Len(t, detail.Records, 1)

	r, got = do(t, http.MethodGet, ts.URL+"/api/datasets/missing", nil)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, TypeNotFound, got.ErrorType)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	_, ts := newTestServer(t, &stubRuntime{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.parquet")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("PAR1"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/datasets", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplatesFillColumns(t *testing.T) {
	s, ts := newTestServer(t, &stubRuntime{})
	id := seed(s)
	_, env := do(t, http.MethodGet, ts.URL+"/api/templates?dataset="+id, nil)
	var items []templateItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 5)
	assert.Equal(t, "What insights can you provide about region?", items[2].Prompt)
}

func TestChartEndpoint(t *testing.T) {
	s, ts := newTestServer(t, &stubRuntime{})
	id := seed(s)

	resp, env := do(t, http.MethodPost, ts.URL+"/api/chart", chartRequest{DatasetIDs: []string{id}, Kind: "bar", X: "region", Y: "sales"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fig struct {
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Data []float64 `json:"data"`
			} `json:"datasets"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fig))
	assert.Equal(t, []string{"North", "South"}, fig.Data.Labels)
	assert.Equal(t, []float64{10, 25}, fig.Data.Datasets[0].Data)

	resp, env = do(t, http.MethodPost, ts.URL+"/api/chart", chartRequest{DatasetIDs: []string{id}, Kind: "line", X: "region"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, TypeInvalidInput, env.ErrorType)
}

func TestChartRenderers(t *testing.T) {
	s, ts := newTestServer(t, &stubRuntime{})
	id := seed(s)

	resp, err := http.Get(ts.URL + "/api/datasets/" + id + "/chart.png?kind=pie&x=region")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	resp, err = http.Get(ts.URL + "/api/datasets/" + id + "/chart.html?kind=bar&x=region&y=sales")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(b), "echarts")
}

func TestAnalyzeAndExport(t *testing.T) {
	s, ts := newTestServer(t, &stubRuntime{text: answer})
	id := seed(s)

	resp, env := do(t, http.MethodPost, ts.URL+"/api/analyze", analyzeRequest{DatasetIDs: []string{id}, Prompt: "What are the main trends?"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	var out struct {
		Analysis insight.Result `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "Sales rose.", out.Analysis.Insights.Summary)
	assert.Equal(t, []string{"South leads", "North lags"}, out.Analysis.Insights.KeyFindings)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/export/json", strings.NewReader(`{"datasetIds":["ds1"],"name":"Q3 Sales"}`))
	require.NoError(t, err)
	eresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer eresp.Body.Close()
	require.Equal(t, http.StatusOK, eresp.StatusCode)
	assert.Equal(t, `attachment; filename="q3-sales-data-analysis-report.json"`, eresp.Header.Get("Content-Disposition"))
	var doc map[string]any
	require.NoError(t, json.NewDecoder(eresp.Body).Decode(&doc))
	assert.Equal(t, "2024-05-06T07:08:09.000Z", doc["exportDate"])
	assert.Len(t, doc["data"], 3)
}

func TestExportErrors(t *testing.T) {
	s, ts := newTestServer(t, &stubRuntime{text: answer})
	seed(s)

	resp, env := do(t, http.MethodPost, ts.URL+"/api/export/xls", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, TypeInvalidInput, env.ErrorType)

	resp, env = do(t, http.MethodPost, ts.URL+"/api/export/pdf", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, "no analysis")
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		rt     *stubRuntime
		body   analyzeRequest
		status int
		typ    string
	}{
		{"invalid prompt", &stubRuntime{text: answer}, analyzeRequest{Prompt: "hi"}, http.StatusBadRequest, TypeInvalidInput},
		{"network", &stubRuntime{err: &ai.UnreachableError{Err: errors.New("dial tcp: refused")}}, analyzeRequest{Prompt: "What are the trends?"}, http.StatusBadGateway, TypeNetworkFailure},
		{"provider", &stubRuntime{err: &ai.ServerError{APIError: &ai.APIError{StatusCode: 500, Message: "boom"}}}, analyzeRequest{Prompt: "What are the trends?"}, http.StatusInternalServerError, TypeInternal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, ts := newTestServer(t, c.rt)
			seed(s)
			resp, env := do(t, http.MethodPost, ts.URL+"/api/analyze", c.body)
			assert.Equal(t, c.status, resp.StatusCode)
			assert.Equal(t, c.typ, env.ErrorType)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestAnalyzeNoDataIsInvalidInput(t *testing.T) {
	_, ts := newTestServer(t, &stubRuntime{text: answer})
	resp, env := do(t, http.MethodPost, ts.URL+"/api/analyze", analyzeRequest{Prompt: "What are the trends?"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No data provided for analysis", env.Error)
}

func TestAnalyzeRejectsConcurrentSubmission(t *testing.T) {
	rt := &stubRuntime{text: answer, started: make(chan struct{}), release: make(chan struct{})}
	s, ts := newTestServer(t, rt)
	seed(s)

	done := make(chan int, 1)
	go func() {
		resp, _ := do(t, http.MethodPost, ts.URL+"/api/analyze", analyzeRequest{Prompt: "What are the trends?"})
		done <- resp.StatusCode
	}()
	<-rt.started

	resp, env := do(t, http.MethodPost, ts.URL+"/api/analyze", analyzeRequest{Prompt: "What are the trends?"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, TypeBusy, env.ErrorType)

	close(rt.release)
	assert.Equal(t, http.StatusOK, <-done)
}
