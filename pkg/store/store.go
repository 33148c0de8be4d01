package store

import "healthmate/pkg/domain"

// Store defines persistence operations for users, reports, and vitals.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// reports
	SaveReport(domain.Report) error
	GetReport(id string) (domain.Report, bool, error)
	ListReportsByOwner(ownerID string) ([]domain.Report, error)

	// vitals
	SaveVitals(domain.Vitals) error
	ListVitalsByOwner(ownerID string) ([]domain.Vitals, error)
}

// SessionStore issues and verifies bearer session tokens.
type SessionStore interface {
	Issue(subject, email string, role domain.UserRole) (string, error)
	Verify(token string) (SessionClaims, error)
}
