package parser_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom/internal/parser"
)

func TestParseFileCSV_Summary(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hop_harvest.csv")
	content := "date,plot,alpha_acids,moisture\n" +
		"2024-08-10,A1,12.5,74\n" +
		"2024-08-12,A1,11.8,71\n" +
		"2024-08-15,B3,10.2,68\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("expected dataset summary header, got: %q", out)
	}
	if !strings.Contains(out, "- alpha_acids: numeric") {
		t.Fatalf("expected numeric inference for alpha_acids, got: %q", out)
	}
	if !strings.Contains(out, "- date: datetime") {
		t.Fatalf("expected datetime inference for date, got: %q", out)
	}
	if !strings.Contains(out, "- plot: categorical") {
		t.Fatalf("expected categorical inference for plot, got: %q", out)
	}
}

func TestParseDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _ = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Q3 sales &amp; costs</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	out, err := parser.Parse("notes.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "Q3 sales & costs\nSecond" {
		t.Fatalf("unexpected text: %q", out)
	}
}

func TestParseUnknownFallsBackToText(t *testing.T) {
	out, err := parser.Parse("notes.log", []byte("raw"))
	if err != nil || out != "raw" {
		t.Fatalf("unexpected fallback: %q %v", out, err)
	}
}
