package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"healthmate/pkg/domain"
)

func uploadOwner(t *testing.T, a *App) domain.User {
	t.Helper()
	owner, _, err := a.Register("Ali", "ali@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return owner
}

func TestUploadReportPipeline(t *testing.T) {
	a, deps := newTestApp(t, nil)
	modelResponse := strings.Join([]string{
		"1. English Summary",
		"CBC values are within normal range.",
		"2. Roman Urdu Summary",
		"Aapki report normal hai.",
		"3. Key Findings",
		"- Hemoglobin normal",
		"- WBC normal",
		"- Platelets normal",
		"4. Questions for Doctor",
		"- Should I repeat the test?",
		"5. Health Metrics",
		"BP: 120/80",
		"Sugar: 95 mg/dL",
	}, "\n")
	deps.generator.response = modelResponse
	owner := uploadOwner(t, a)

	report, err := a.UploadReport(context.Background(), owner, "cbc report.pdf", []byte("%PDF-1.4 fake"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if report.UserID != owner.ID {
		t.Fatalf("owner mismatch: %q", report.UserID)
	}
	if report.FileType != "application/pdf" {
		t.Fatalf("file type mismatch: %q", report.FileType)
	}
	if !strings.Contains(report.FileURL, report.StorageKey) {
		t.Fatalf("file URL should reference the storage key: %q", report.FileURL)
	}
	if report.ExtractedText == "" {
		t.Fatal("extracted text should persist")
	}
	if report.AISummary.English != modelResponse {
		t.Fatalf("english must carry the full model response, got %q", report.AISummary.English)
	}
	if report.AISummary.Urdu != "Aapki report normal hai." {
		t.Fatalf("urdu summary mismatch: %q", report.AISummary.Urdu)
	}
	if len(report.AISummary.KeyFindings) != 3 {
		t.Fatalf("expected 3 findings, got %v", report.AISummary.KeyFindings)
	}
	if report.AISummary.HealthMetrics.BP != "120/80" {
		t.Fatalf("BP mismatch: %q", report.AISummary.HealthMetrics.BP)
	}
	if deps.generator.lastSystem != summarySystemPrompt {
		t.Fatalf("system prompt mismatch: %q", deps.generator.lastSystem)
	}
	if !strings.HasPrefix(deps.generator.lastPrompt, promptHeader) {
		t.Fatal("prompt should start with the instruction header")
	}
	if !strings.Contains(deps.generator.lastPrompt, deps.extractor.text) {
		t.Fatal("prompt should carry the extracted text")
	}
	if len(deps.objects.keys()) != 1 {
		t.Fatalf("expected one stored object, got %v", deps.objects.keys())
	}

	stored, err := a.GetReport(owner, report.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if stored.AISummary.English != report.AISummary.English {
		t.Fatal("summary should persist")
	}
}

func TestUploadReportRejectsEmptyFile(t *testing.T) {
	a, _ := newTestApp(t, nil)
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "x.pdf", nil, "application/pdf"); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestUploadReportRejectsUnsupportedType(t *testing.T) {
	a, _ := newTestApp(t, nil)
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "report.docx", []byte("data"), "application/msword"); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestUploadReportContentTypeFromExtension(t *testing.T) {
	a, _ := newTestApp(t, nil)
	owner := uploadOwner(t, a)
	report, err := a.UploadReport(context.Background(), owner, "scan.png", []byte{0x89, 'P', 'N', 'G'}, "application/octet-stream")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if report.FileType != "image/png" {
		t.Fatalf("expected image/png from extension, got %q", report.FileType)
	}
}

func TestUploadReportMissingAIKey(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *Config) {
		cfg.Generator = nil
		cfg.AIAPIKey = ""
	})
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf"); !errors.Is(err, ErrMissingAIKey) {
		t.Fatalf("expected ErrMissingAIKey, got %v", err)
	}
}

func TestUploadReportTooLittleText(t *testing.T) {
	a, deps := newTestApp(t, nil)
	deps.extractor.text = "short text"
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf"); !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("expected ErrUnreadableDocument, got %v", err)
	}
	if len(deps.objects.keys()) != 0 {
		t.Fatal("unreadable upload must not reach object storage")
	}
}

func TestUploadReportGeneratorFailureCleansUp(t *testing.T) {
	a, deps := newTestApp(t, nil)
	deps.generator.err = errors.New("provider down")
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf"); !errors.Is(err, ErrAIAnalysisFailed) {
		t.Fatalf("expected ErrAIAnalysisFailed, got %v", err)
	}
	if len(deps.objects.keys()) != 0 {
		t.Fatalf("stored file should be deleted on failure, got %v", deps.objects.keys())
	}
}

func TestUploadReportStorageFailure(t *testing.T) {
	a, deps := newTestApp(t, nil)
	deps.objects.putErr = errors.New("minio unreachable")
	owner := uploadOwner(t, a)
	if _, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf"); !errors.Is(err, ErrFileUploadFailed) {
		t.Fatalf("expected ErrFileUploadFailed, got %v", err)
	}
}

func TestUploadReportEmptyModelResponse(t *testing.T) {
	a, deps := newTestApp(t, nil)
	deps.generator.response = "   \n  "
	owner := uploadOwner(t, a)
	report, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if report.AISummary.English != emptySummaryPlaceholder {
		t.Fatalf("expected placeholder summary, got %q", report.AISummary.English)
	}
}

func TestUploadReportRendersSummaryPDF(t *testing.T) {
	a, deps := newTestApp(t, func(cfg *Config) {
		cfg.RenderSummaryPDF = true
	})
	owner := uploadOwner(t, a)
	report, err := a.UploadReport(context.Background(), owner, "x.pdf", []byte("data"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if report.SummaryPDFURL == "" {
		t.Fatal("expected summary PDF URL")
	}
	var pdfKey string
	for _, key := range deps.objects.keys() {
		if strings.HasPrefix(key, "summaries/") && strings.HasSuffix(key, ".pdf") {
			pdfKey = key
		}
	}
	if pdfKey == "" {
		t.Fatalf("summary PDF not stored, keys: %v", deps.objects.keys())
	}
	if pdfKey != "summaries/"+report.ID+".pdf" {
		t.Fatalf("summary key mismatch: %q", pdfKey)
	}
	deps.objects.mu.Lock()
	data := deps.objects.objects[pdfKey]
	deps.objects.mu.Unlock()
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("stored summary should be a PDF document")
	}
}

func TestBuildPromptTruncatesLongText(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *Config) {
		cfg.PromptMaxChars = 100
	})
	long := strings.Repeat("x", 500)
	prompt := a.buildPrompt(long)
	if len(prompt) != len(promptHeader)+100 {
		t.Fatalf("prompt length mismatch: %d", len(prompt))
	}
	short := "short report"
	if got := a.buildPrompt(short); got != promptHeader+short {
		t.Fatalf("short text should pass through, got %q", got)
	}
}

func TestParseSummarySections(t *testing.T) {
	raw := strings.Join([]string{
		"**1. English Summary**",
		"Everything looks fine.",
		"Continue your routine.",
		"**2. Roman Urdu Summary**",
		"Sab theek hai.",
		"**3. 3 Key Findings**",
		"1) Hemoglobin normal",
		"2) Sugar slightly high",
		"**4. 3 Questions for Doctor**",
		"* Do I need medication?",
		"**5. Health Metrics (BP, Sugar, Weight, Pulse)**",
		"- Blood Pressure: 130/85",
		"- Glucose: 110 mg/dL",
		"- Weight: 80 kg",
		"- Pulse: 76 bpm",
	}, "\n")

	summary := parseSummarySections(raw)
	if summary.English != raw {
		t.Fatalf("english must stay verbatim, got %q", summary.English)
	}
	if summary.Urdu != "Sab theek hai." {
		t.Fatalf("urdu mismatch: %q", summary.Urdu)
	}
	if len(summary.KeyFindings) != 2 || summary.KeyFindings[1] != "Sugar slightly high" {
		t.Fatalf("findings mismatch: %v", summary.KeyFindings)
	}
	if len(summary.DoctorQuestions) != 1 || summary.DoctorQuestions[0] != "Do I need medication?" {
		t.Fatalf("questions mismatch: %v", summary.DoctorQuestions)
	}
	m := summary.HealthMetrics
	if m.BP != "130/85" || m.Sugar != "110 mg/dL" || m.Weight != "80 kg" || m.Pulse != "76 bpm" {
		t.Fatalf("metrics mismatch: %+v", m)
	}
}

func TestParseSummarySectionsUnstructured(t *testing.T) {
	raw := "The report indicates mild anemia.\nFollow up in two weeks."
	summary := parseSummarySections(raw)
	if summary.English != raw {
		t.Fatalf("unstructured output should land verbatim in the english field: %q", summary.English)
	}
	if summary.Urdu != "" || len(summary.KeyFindings) != 0 {
		t.Fatal("no other sections expected")
	}
}

func TestParseSummarySectionsPreservesFormatting(t *testing.T) {
	raw := "1. English Summary\nCBC values are within normal range.\n2. Roman Urdu Summary\nAapki report normal hai.\n"
	summary := parseSummarySections(raw)
	if summary.English != strings.TrimSpace(raw) {
		t.Fatalf("headers and line breaks must survive in english, got %q", summary.English)
	}
	if !strings.Contains(summary.English, "\n") {
		t.Fatal("line breaks must not be collapsed")
	}
	if summary.Urdu != "Aapki report normal hai." {
		t.Fatalf("urdu mismatch: %q", summary.Urdu)
	}
}
