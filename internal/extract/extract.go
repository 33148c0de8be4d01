package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedType is returned for documents that are neither PDFs nor images.
var ErrUnsupportedType = errors.New("unsupported document type")

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// OCREngine recognizes text in a single page image.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Options configures a DocumentExtractor.
type Options struct {
	// PdftotextPath overrides the pdftotext binary location (poppler-utils).
	PdftotextPath string
	// PdftoppmPath overrides the pdftoppm binary used to rasterize scanned PDFs.
	PdftoppmPath string
	// OCR handles scanned pages and image uploads. Required for image support.
	OCR OCREngine
	// PDFTextMinRunes is the threshold below which a PDF text layer is
	// considered empty and the document treated as scanned.
	PDFTextMinRunes int
	// OCRConcurrency bounds how many pages are recognized at once.
	OCRConcurrency int
}

// DocumentExtractor extracts text from PDFs and report images. PDFs are read
// via pdftotext with a Go-library fallback; documents without a usable text
// layer are rasterized and run through OCR page by page.
type DocumentExtractor struct {
	pdftotextPath   string
	pdftoppmPath    string
	ocr             OCREngine
	pdfTextMinRunes int
	ocrConcurrency  int
}

// NewDocumentExtractor builds an extractor with sensible defaults.
func NewDocumentExtractor(opts Options) *DocumentExtractor {
	e := &DocumentExtractor{
		pdftotextPath:   opts.PdftotextPath,
		pdftoppmPath:    opts.PdftoppmPath,
		ocr:             opts.OCR,
		pdfTextMinRunes: opts.PDFTextMinRunes,
		ocrConcurrency:  opts.OCRConcurrency,
	}
	if e.pdftotextPath == "" {
		e.pdftotextPath = "pdftotext"
	}
	if e.pdftoppmPath == "" {
		e.pdftoppmPath = "pdftoppm"
	}
	if e.pdfTextMinRunes <= 0 {
		e.pdfTextMinRunes = 50
	}
	if e.ocrConcurrency <= 0 {
		e.ocrConcurrency = 2
	}
	return e
}

// ExtractText dispatches on MIME type. The returned text is whitespace
// normalized; callers decide whether it is long enough to be usable.
func (e *DocumentExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mimeType == "application/pdf":
		return e.extractPDF(ctx, data)
	case strings.HasPrefix(mimeType, "image/"):
		return e.extractImage(ctx, data, mimeType)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func (e *DocumentExtractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	path, cleanup, err := writeTemp(data, ".pdf")
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, err := e.pdfTextLayer(ctx, path)
	if err == nil && utf8.RuneCountInString(text) >= e.pdfTextMinRunes {
		return text, nil
	}
	// No usable text layer, treat the document as scanned.
	if e.ocr == nil {
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return e.ocrPDF(ctx, path)
}

func (e *DocumentExtractor) pdfTextLayer(ctx context.Context, path string) (string, error) {
	// Try pdftotext first (better support for complex layouts)
	if text, err := e.pdfTextWithPdftotext(ctx, path); err == nil && text != "" {
		return text, nil
	}
	// Fallback to Go library
	return e.pdfTextWithGoLib(path)
}

func (e *DocumentExtractor) pdfTextWithPdftotext(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath(e.pdftotextPath); err != nil {
		return "", fmt.Errorf("pdftotext not found: %w", err)
	}
	cmd := exec.CommandContext(ctx, e.pdftotextPath, "-layout", "-enc", "UTF-8", path, "-")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return NormalizeText(string(output)), nil
}

func (e *DocumentExtractor) pdfTextWithGoLib(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()
	totalPages := reader.NumPage()
	var parts []string
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely
			continue
		}
		if text = NormalizeText(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// ocrPDF rasterizes each page and recognizes them concurrently, keeping
// page order in the concatenated result.
func (e *DocumentExtractor) ocrPDF(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath(e.pdftoppmPath); err != nil {
		return "", fmt.Errorf("pdftoppm not found: %w", err)
	}
	dir, err := os.MkdirTemp("", "report-pages-")
	if err != nil {
		return "", fmt.Errorf("create page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, e.pdftoppmPath, "-png", "-r", "200", path, prefix)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w", err)
	}
	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("no pages rasterized")
	}
	// pdftoppm zero-pads page numbers so lexical order is page order
	sort.Strings(pages)

	results := make([]string, len(pages))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.ocrConcurrency)
	for i, page := range pages {
		i, page := i, page
		group.Go(func() error {
			text, err := e.ocr.Recognize(gctx, page)
			if err != nil {
				return fmt.Errorf("ocr page %d: %w", i+1, err)
			}
			results[i] = NormalizeText(text)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}
	return NormalizeText(strings.Join(results, " ")), nil
}

func (e *DocumentExtractor) extractImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if e.ocr == nil {
		return "", fmt.Errorf("%w: no OCR engine configured for %s", ErrUnsupportedType, mimeType)
	}
	ext := ".png"
	if strings.Contains(mimeType, "jpeg") || strings.Contains(mimeType, "jpg") {
		ext = ".jpg"
	}
	path, cleanup, err := writeTemp(data, ext)
	if err != nil {
		return "", err
	}
	defer cleanup()
	text, err := e.ocr.Recognize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	return NormalizeText(text), nil
}

func writeTemp(data []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}

// NormalizeText collapses whitespace and strips control bytes.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
