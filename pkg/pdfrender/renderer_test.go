package pdfrender

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderProducesPDFBytes(t *testing.T) {
	r := New("HealthMate Summary")
	out, err := r.Render("English Summary: all values are within normal range.\n\nKey Findings:\n1. Hemoglobin normal")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not start with PDF header: %q", out[:8])
	}
}

func TestRenderWrapsLongTextAcrossPages(t *testing.T) {
	r := New("")
	long := strings.Repeat("This sentence is repeated to force the renderer onto additional pages. ", 400)
	out, err := r.Render(long)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// Each page object is "/Type /Page"; the page tree root is "/Type /Pages".
	pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
	if pages < 2 {
		t.Fatalf("page count = %d, expected multi-page output for long summary", pages)
	}
}

func TestRenderRejectsEmptySummary(t *testing.T) {
	r := New("x")
	if _, err := r.Render("   "); err == nil {
		t.Fatal("expected error for blank summary")
	}
}
