package pdfrender

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Renderer turns summary text into a paginated A4 document.
type Renderer struct {
	title string
}

// New builds a renderer; title is printed as the document heading.
func New(title string) *Renderer {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Report Summary"
	}
	return &Renderer{title: title}
}

// Render writes the summary into a PDF and returns the raw bytes.
// Long lines wrap inside the cell and overflow continues on new pages.
func (r *Renderer) Render(summary string) ([]byte, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("summary text required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, r.title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			pdf.Ln(5)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
