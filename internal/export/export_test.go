package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result() *insight.Result {
	return &insight.Result{
		Text: "Summary: **Sales** rose.\nKey Findings:\n- South leads",
		Insights: insight.Insight{
			Summary:     "**Sales** rose.",
			KeyFindings: []string{"South `leads`", "North *lags*"},
		},
	}
}

func figure(t *testing.T) *chart.Figure {
	t.Helper()
	ds := dataset.New("sales", []string{"region", "sales"}, []dataset.Record{
		{"region": "North", "sales": "10"},
		{"region": "South", "sales": "20"},
	})
	f, err := chart.ViewState{Kind: chart.Bar, X: "region", Y: "sales"}.Figure(ds, chart.DefaultConfig())
	require.NoError(t, err)
	return f
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "bold and italic and code", CleanText("  - **bold** and *italic* and `code`  "))
	assert.Equal(t, "one\ntwo", CleanText("* one\n- two"))
	assert.Equal(t, "plain", CleanText("plain"))
	assert.Equal(t, "bold lead", CleanText("**bold** lead"))
	assert.Equal(t, "Sales rose.\nNorth leads", CleanText("**Sales** rose.\n- *North* leads"))
	assert.Equal(t, "-5% margin", CleanText("-5% margin"))
}

func TestParseFormatAndFilename(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, PDF, f)
	_, err = ParseFormat("xls")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "data-analysis-report.pdf", PDF.Filename(""))
	assert.Equal(t, "data-analysis-charts.png", PNG.Filename(""))
	assert.Equal(t, "cafe-sales-q3-data-analysis-report.json", JSON.Filename("Café Sales (Q3)"))
	assert.Equal(t, "image/png", PNG.ContentType())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("x", 3600))
	recs := []dataset.Record{{"region": "North", "sales": 10.0}}
	require.NoError(t, WriteJSON(&buf, result(), recs, now))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2024-05-06T06:08:09.123Z", got["exportDate"])
	assert.Len(t, got["data"], 1)
	analysis := got["analysis"].(map[string]any)
	assert.Equal(t, "**Sales** rose.", analysis["insights"].(map[string]any)["summary"])
	assert.Contains(t, buf.String(), "\n  \"analysis\"")
}

func TestWritePDF(t *testing.T) {
	var plain bytes.Buffer
	require.NoError(t, WritePDF(&plain, result(), nil))
	assert.True(t, bytes.HasPrefix(plain.Bytes(), []byte("%PDF-")))

	var img bytes.Buffer
	require.NoError(t, chart.RenderPNG(&img, figure(t)))
	var withChart bytes.Buffer
	require.NoError(t, WritePDF(&withChart, result(), img.Bytes()))
	assert.Contains(t, withChart.String(), "/Subtype /Image")
	assert.Greater(t, withChart.Len(), plain.Len())
}

var pageObject = regexp.MustCompile(`/Type /Page[^s]`)

func TestWritePDFLongFindingsPaginate(t *testing.T) {
	res := result()
	for i := 0; i < 120; i++ {
		res.Insights.KeyFindings = append(res.Insights.KeyFindings, "finding with enough words to take a line")
	}
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, res, nil))
	assert.GreaterOrEqual(t, len(pageObject.FindAll(buf.Bytes(), -1)), 2)
}

func TestWriteDOCX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDOCX(&buf, result()))
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var doc string
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			doc = string(b)
		}
	}
	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])
	assert.Contains(t, doc, `w:top="720"`)
	assert.Contains(t, doc, `w:val="32"`)
	assert.Contains(t, doc, ">Data Analysis Report<")
	assert.Contains(t, doc, ">KeyFindings<")
	assert.Contains(t, doc, ">Sales rose.<")
	assert.Contains(t, doc, ">South leads<")
	assert.Equal(t, 2, bytes.Count([]byte(doc), []byte(`w:type="page"`)))
}

func TestWriteDOCXSkipsEmptyFindings(t *testing.T) {
	res := &insight.Result{Insights: insight.Insight{Summary: "a < b", KeyFindings: []string{}}}
	var buf bytes.Buffer
	require.NoError(t, WriteDOCX(&buf, res))
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, _ := f.Open()
		b, _ := io.ReadAll(rc)
		rc.Close()
		assert.NotContains(t, string(b), "KeyFindings")
		assert.Contains(t, string(b), "a &lt; b")
	}
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, PNG, Report{Figure: figure(t)}))
	_, err := png.Decode(&buf)
	require.NoError(t, err)

	assert.ErrorIs(t, Write(io.Discard, PNG, Report{}), ErrNoChart)
	assert.ErrorIs(t, Write(io.Discard, PDF, Report{}), ErrNoAnalysis)
	assert.ErrorIs(t, Write(io.Discard, Format("xls"), Report{}), ErrUnknownFormat)

	buf.Reset()
	require.NoError(t, Write(&buf, PDF, Report{Result: result(), Figure: &chart.Figure{}}))
	assert.NotContains(t, buf.String(), "/Subtype /Image")
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	loc, err := DirSink{Dir: dir}.Put(context.Background(), "../escape/report.json", "application/json", []byte("{}"))
	require.NoError(t, err)
	b, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
	assert.Contains(t, loc, dir)
}

type fakeS3 struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	s := &S3Sink{client: fake, cfg: S3Config{Bucket: "reports", Prefix: "/team/"}}
	loc, err := s.Put(context.Background(), "data-analysis-report.pdf", PDF.ContentType(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/team/data-analysis-report.pdf", loc)
	assert.Equal(t, "team/data-analysis-report.pdf", *fake.in.Key)
	assert.Equal(t, "application/pdf", *fake.in.ContentType)

	fake.err = errors.New("denied")
	_, err = s.Put(context.Background(), "x.pdf", "application/pdf", nil)
	assert.ErrorContains(t, err, "denied")

	_, err = NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestNewS3SinkWithEndpoint(t *testing.T) {
	s, err := NewS3Sink(context.Background(), S3Config{
		Bucket: "b", Endpoint: "http://127.0.0.1:9000", UsePathStyle: true,
		AccessKeyID: "k", SecretAccessKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.cfg.Region)
	assert.Equal(t, "x.png", s.Key("dir/x.png"))
}
