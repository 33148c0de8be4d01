package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"healthmate/internal/extract"
	"healthmate/internal/util"
	"healthmate/pkg/domain"
	"healthmate/pkg/pdfrender"
)

const (
	summarySystemPrompt = "You are a helpful medical assistant."

	promptHeader = "You are a medical assistant. Analyze this health report and provide:\n" +
		"1. English Summary\n" +
		"2. Roman Urdu Summary\n" +
		"3. 3 Key Findings\n" +
		"4. 3 Questions for Doctor\n" +
		"5. Health Metrics (BP, Sugar, Weight, Pulse)\n\n" +
		"Report Data:\n"

	emptySummaryPlaceholder = "AI did not return any text."
)

// UploadReport runs the full ingestion pipeline: store the original file,
// extract its text, summarize it, optionally render a summary PDF, and
// persist the report.
func (a *App) UploadReport(ctx context.Context, owner domain.User, filename string, data []byte, contentType string) (domain.Report, error) {
	if len(data) == 0 {
		return domain.Report{}, ErrNoFile
	}
	contentType = resolveContentType(filename, contentType)
	if !supportedContentType(contentType) {
		return domain.Report{}, ErrUnsupportedFileType
	}
	if a.generator == nil {
		return domain.Report{}, ErrMissingAIKey
	}

	id := util.NewID()
	storageKey := buildStorageKey(id, filename)
	if err := a.objects.Put(ctx, storageKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		slog.Error("store report file failed", "report_id", id, "error", err)
		return domain.Report{}, ErrFileUploadFailed
	}

	text, err := a.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		_ = a.objects.Delete(ctx, storageKey)
		if errors.Is(err, extract.ErrUnsupportedType) {
			return domain.Report{}, ErrUnsupportedFileType
		}
		return domain.Report{}, fmt.Errorf("extract text: %w", err)
	}
	if utf8.RuneCountInString(text) < a.minTextChars {
		_ = a.objects.Delete(ctx, storageKey)
		return domain.Report{}, ErrUnreadableDocument
	}

	raw, err := a.generator.GenerateText(ctx, summarySystemPrompt, a.buildPrompt(text))
	if err != nil {
		_ = a.objects.Delete(ctx, storageKey)
		slog.Error("summarize report failed", "report_id", id, "error", err)
		return domain.Report{}, ErrAIAnalysisFailed
	}
	summary := parseSummarySections(raw)
	if strings.TrimSpace(raw) == "" {
		summary = domain.Summary{English: emptySummaryPlaceholder}
	}

	now := time.Now().UTC()
	report := domain.Report{
		ID:            id,
		UserID:        owner.ID,
		FileURL:       a.objects.PublicURL(storageKey),
		FileType:      contentType,
		StorageKey:    storageKey,
		ExtractedText: text,
		AISummary:     summary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var summaryKey string
	if a.renderSummaryPDF {
		summaryKey, err = a.renderSummary(ctx, id, summary)
		if err != nil {
			// The textual summary still exists, keep going without the PDF.
			slog.Warn("render summary pdf failed", "report_id", id, "error", err)
		} else {
			report.SummaryPDFURL = a.objects.PublicURL(summaryKey)
		}
	}

	if err := a.store.SaveReport(report); err != nil {
		_ = a.objects.Delete(ctx, storageKey)
		if summaryKey != "" {
			_ = a.objects.Delete(ctx, summaryKey)
		}
		return domain.Report{}, fmt.Errorf("save report: %w", err)
	}

	if err := a.events.PublishReportCreated(ctx, report); err != nil {
		slog.Warn("publish report.created failed", "report_id", id, "error", err)
	}
	return report, nil
}

// buildPrompt prepends the instruction header and truncates very long
// report text so the request stays within model context limits.
func (a *App) buildPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > a.promptMaxChars {
		text = string(runes[:a.promptMaxChars])
	}
	return promptHeader + text
}

func (a *App) renderSummary(ctx context.Context, reportID string, summary domain.Summary) (string, error) {
	out, err := pdfrender.New("Health Report Summary").Render(formatSummaryText(summary))
	if err != nil {
		return "", err
	}
	key := path.Join("summaries", reportID+".pdf")
	if err := a.objects.Put(ctx, key, bytes.NewReader(out), int64(len(out)), "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

func formatSummaryText(summary domain.Summary) string {
	var b strings.Builder
	writeSection := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	writeSection("English Summary", summary.English)
	writeSection("Roman Urdu Summary", summary.Urdu)
	if len(summary.KeyFindings) > 0 {
		b.WriteString("Key Findings\n")
		for _, finding := range summary.KeyFindings {
			b.WriteString("- " + finding + "\n")
		}
		b.WriteString("\n")
	}
	if len(summary.DoctorQuestions) > 0 {
		b.WriteString("Questions for Doctor\n")
		for _, q := range summary.DoctorQuestions {
			b.WriteString("- " + q + "\n")
		}
		b.WriteString("\n")
	}
	var metrics []string
	if summary.HealthMetrics.BP != "" {
		metrics = append(metrics, "BP: "+summary.HealthMetrics.BP)
	}
	if summary.HealthMetrics.Sugar != "" {
		metrics = append(metrics, "Sugar: "+summary.HealthMetrics.Sugar)
	}
	if summary.HealthMetrics.Weight != "" {
		metrics = append(metrics, "Weight: "+summary.HealthMetrics.Weight)
	}
	if summary.HealthMetrics.Pulse != "" {
		metrics = append(metrics, "Pulse: "+summary.HealthMetrics.Pulse)
	}
	if len(metrics) > 0 {
		b.WriteString("Health Metrics\n")
		for _, m := range metrics {
			b.WriteString("- " + m + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func resolveContentType(filename, contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return resolveContentType("", byExt)
	}
	return contentType
}

func supportedContentType(contentType string) bool {
	return contentType == "application/pdf" || strings.HasPrefix(contentType, "image/")
}

func buildStorageKey(reportID, filename string) string {
	name := sanitizeFilename(filepath.Base(filename))
	if name == "" {
		name = "report"
	}
	return path.Join("reports", reportID, name)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
