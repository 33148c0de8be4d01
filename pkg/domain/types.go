package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HealthMetrics carries free-form vital readings pulled out of a summary.
type HealthMetrics struct {
	BP     string `json:"bp,omitempty"`
	Sugar  string `json:"sugar,omitempty"`
	Weight string `json:"weight,omitempty"`
	Pulse  string `json:"pulse,omitempty"`
}

// Summary is the AI analysis of a report. English always holds the model's
// verbatim response; the remaining fields are best-effort parsed sections.
type Summary struct {
	English         string        `json:"english"`
	Urdu            string        `json:"urdu,omitempty"`
	KeyFindings     []string      `json:"keyFindings,omitempty"`
	DoctorQuestions []string      `json:"doctorQuestions,omitempty"`
	HealthMetrics   HealthMetrics `json:"healthMetrics"`
}

// Report links an uploaded medical document to its extracted text and
// AI summary. Reports are immutable once created.
type Report struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	FileURL       string    `json:"fileUrl"`
	FileType      string    `json:"fileType"`
	StorageKey    string    `json:"-"`
	ExtractedText string    `json:"extractedText,omitempty"`
	AISummary     Summary   `json:"aiSummary"`
	SummaryPDFURL string    `json:"summaryPdfUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Vitals is a self-reported measurement snapshot. Values are free-form
// strings; no unit normalization happens server-side.
type Vitals struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BP        string    `json:"bp,omitempty"`
	Sugar     string    `json:"sugar,omitempty"`
	Weight    string    `json:"weight,omitempty"`
	Pulse     string    `json:"pulse,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
