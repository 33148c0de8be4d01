package store

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"healthmate/pkg/domain"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewGormStoreWithDB(db)
	if err != nil {
		t.Fatalf("NewGormStoreWithDB() error = %v", err)
	}
	return s
}

func TestGormStoreUserRoundTrip(t *testing.T) {
	s := newTestGormStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	user := domain.User{
		ID:           "user-1",
		Name:         "Test User",
		Email:        "u@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.SaveUser(user); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}
	has, err := s.HasUserEmail("u@example.com")
	if err != nil || !has {
		t.Fatalf("HasUserEmail() = %v, %v; want true, nil", has, err)
	}
	got, ok, err := s.GetUserByEmail("u@example.com")
	if err != nil || !ok {
		t.Fatalf("GetUserByEmail() ok=%v err=%v", ok, err)
	}
	if got.ID != user.ID || got.PasswordHash != "hash" {
		t.Fatalf("GetUserByEmail() = %+v", got)
	}
	if _, ok, _ := s.GetUserByID("missing"); ok {
		t.Fatal("GetUserByID(missing) ok = true")
	}
}

func TestGormStoreReportSummaryRoundTrip(t *testing.T) {
	s := newTestGormStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	report := domain.Report{
		ID:            "report-1",
		UserID:        "user-1",
		FileURL:       "https://objects.local/reports/report-1/scan.pdf",
		FileType:      "application/pdf",
		StorageKey:    "reports/report-1/scan.pdf",
		ExtractedText: "Hemoglobin 13.2 g/dL",
		AISummary: domain.Summary{
			English:         "All values in range.",
			Urdu:            "Sab values theek hain.",
			KeyFindings:     []string{"Hemoglobin normal"},
			DoctorQuestions: []string{"Any follow-up needed?"},
			HealthMetrics:   domain.HealthMetrics{BP: "120/80", Pulse: "72"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SaveReport(report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	got, ok, err := s.GetReport("report-1")
	if err != nil || !ok {
		t.Fatalf("GetReport() ok=%v err=%v", ok, err)
	}
	if got.AISummary.English != "All values in range." {
		t.Fatalf("summary english = %q", got.AISummary.English)
	}
	if got.AISummary.HealthMetrics.BP != "120/80" {
		t.Fatalf("summary bp = %q", got.AISummary.HealthMetrics.BP)
	}
	if len(got.AISummary.KeyFindings) != 1 {
		t.Fatalf("key findings = %v", got.AISummary.KeyFindings)
	}
}

func TestGormStoreListReportsNewestFirstAndScoped(t *testing.T) {
	s := newTestGormStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, owner := range []string{"a", "a", "b"} {
		report := domain.Report{
			ID:        "r" + string(rune('0'+i)),
			UserID:    owner,
			FileURL:   "https://objects.local/x",
			FileType:  "application/pdf",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveReport(report); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}
	reports, err := s.ListReportsByOwner("a")
	if err != nil {
		t.Fatalf("ListReportsByOwner() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("len(reports) = %d, want 2", len(reports))
	}
	if !reports[0].CreatedAt.After(reports[1].CreatedAt) {
		t.Fatal("reports not ordered newest first")
	}
	for _, report := range reports {
		if report.UserID != "a" {
			t.Fatalf("report %s owned by %s leaked into a's listing", report.ID, report.UserID)
		}
	}
}

func TestGormStoreVitalsNewestFirst(t *testing.T) {
	s := newTestGormStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		v := domain.Vitals{
			ID:        "v" + string(rune('0'+i)),
			UserID:    "user-1",
			BP:        "120/80",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveVitals(v); err != nil {
			t.Fatalf("SaveVitals() error = %v", err)
		}
	}
	vitals, err := s.ListVitalsByOwner("user-1")
	if err != nil {
		t.Fatalf("ListVitalsByOwner() error = %v", err)
	}
	if len(vitals) != 3 {
		t.Fatalf("len(vitals) = %d", len(vitals))
	}
	if vitals[0].ID != "v2" || vitals[2].ID != "v0" {
		t.Fatalf("vitals order = %s,%s,%s", vitals[0].ID, vitals[1].ID, vitals[2].ID)
	}
}
