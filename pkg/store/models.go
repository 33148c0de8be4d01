package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ReportModel struct {
	ID            string         `gorm:"primaryKey"`
	UserID        string         `gorm:"not null;index"`
	FileURL       string         `gorm:"not null"`
	FileType      string         `gorm:"not null"`
	StorageKey    string
	ExtractedText string         `gorm:"type:text"`
	AISummary     datatypes.JSON `gorm:"type:jsonb"`
	SummaryPDFURL string
	CreatedAt     time.Time      `gorm:"not null;index"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

type VitalsModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	BP        string
	Sugar     string
	Weight    string
	Pulse     string
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}
