package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"healthmate/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an already-open gorm.DB and migrates the schema.
// Tests use this with a sqlite dialector.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("gorm db required")
	}
	if err := db.AutoMigrate(&UserModel{}, &ReportModel{}, &VitalsModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("email = ?", email).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) SaveReport(r domain.Report) error {
	model, err := reportToModel(r)
	if err != nil {
		return err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *GormStore) GetReport(id string) (domain.Report, bool, error) {
	var model ReportModel
	err := s.db.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Report{}, false, nil
	}
	if err != nil {
		return domain.Report{}, false, fmt.Errorf("get report: %w", err)
	}
	report, err := reportFromModel(model)
	if err != nil {
		return domain.Report{}, false, err
	}
	return report, true, nil
}

func (s *GormStore) ListReportsByOwner(ownerID string) ([]domain.Report, error) {
	var models []ReportModel
	if err := s.db.Where("user_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	reports := make([]domain.Report, 0, len(models))
	for _, model := range models {
		report, err := reportFromModel(model)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *GormStore) SaveVitals(v domain.Vitals) error {
	model := vitalsToModel(v)
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save vitals: %w", err)
	}
	return nil
}

func (s *GormStore) ListVitalsByOwner(ownerID string) ([]domain.Vitals, error) {
	var models []VitalsModel
	if err := s.db.Where("user_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	vitals := make([]domain.Vitals, 0, len(models))
	for _, model := range models {
		vitals = append(vitals, vitalsFromModel(model))
	}
	return vitals, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func reportToModel(r domain.Report) (ReportModel, error) {
	summary, err := json.Marshal(r.AISummary)
	if err != nil {
		return ReportModel{}, fmt.Errorf("marshal summary: %w", err)
	}
	return ReportModel{
		ID:            r.ID,
		UserID:        r.UserID,
		FileURL:       r.FileURL,
		FileType:      r.FileType,
		StorageKey:    r.StorageKey,
		ExtractedText: r.ExtractedText,
		AISummary:     summary,
		SummaryPDFURL: r.SummaryPDFURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func reportFromModel(m ReportModel) (domain.Report, error) {
	var summary domain.Summary
	if len(m.AISummary) > 0 {
		if err := json.Unmarshal(m.AISummary, &summary); err != nil {
			return domain.Report{}, fmt.Errorf("unmarshal summary: %w", err)
		}
	}
	return domain.Report{
		ID:            m.ID,
		UserID:        m.UserID,
		FileURL:       m.FileURL,
		FileType:      m.FileType,
		StorageKey:    m.StorageKey,
		ExtractedText: m.ExtractedText,
		AISummary:     summary,
		SummaryPDFURL: m.SummaryPDFURL,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func vitalsToModel(v domain.Vitals) VitalsModel {
	return VitalsModel{
		ID:        v.ID,
		UserID:    v.UserID,
		BP:        v.BP,
		Sugar:     v.Sugar,
		Weight:    v.Weight,
		Pulse:     v.Pulse,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func vitalsFromModel(m VitalsModel) domain.Vitals {
	return domain.Vitals{
		ID:        m.ID,
		UserID:    m.UserID,
		BP:        m.BP,
		Sugar:     m.Sugar,
		Weight:    m.Weight,
		Pulse:     m.Pulse,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
