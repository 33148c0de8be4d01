package app

import (
	"fmt"
	"strings"
	"time"

	"healthmate/internal/events"
	"healthmate/internal/extract"
	"healthmate/internal/util"
	"healthmate/pkg/ai"
	"healthmate/pkg/auth"
	"healthmate/pkg/domain"
	"healthmate/pkg/storage"
	"healthmate/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store

	JWTSecret   string
	SessionTTL  time.Duration
	JWTIssuer   string
	JWTAudience string
	Sessions    store.SessionStore

	AdminEmail        string
	AdminPasswordHash string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	Objects        storage.ObjectStore

	AIProvider string
	AIBaseURL  string
	AIAPIKey   string
	AIModel    string
	AIReferer  string
	AITitle    string
	AITimeout  time.Duration
	Generator  ai.TextGenerator

	TesseractPath   string
	PdftoppmPath    string
	PdftotextPath   string
	OCRLanguage     string
	PDFTextMinRunes int
	Extractor       extract.Extractor

	Events *events.Publisher

	RenderSummaryPDF bool
	PromptMaxChars   int
	MinTextChars     int
}

// App is the core application service wiring storage, extraction and AI.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	objects   storage.ObjectStore
	extractor extract.Extractor
	generator ai.TextGenerator
	events    *events.Publisher

	adminEmail        string
	adminPasswordHash string

	renderSummaryPDF bool
	promptMaxChars   int
	minTextChars     int
}

// New constructs the application. Dependencies left nil in cfg are built
// from the remaining configuration.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
	}

	objStore := cfg.Objects
	if objStore == nil {
		var err error
		objStore, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.NewDocumentExtractor(extract.Options{
			PdftotextPath:   cfg.PdftotextPath,
			PdftoppmPath:    cfg.PdftoppmPath,
			OCR:             extract.NewTesseractEngine(cfg.TesseractPath, cfg.OCRLanguage),
			PDFTextMinRunes: cfg.PDFTextMinRunes,
		})
	}

	// A missing AI credential is not fatal at startup: uploads report it
	// per request so the rest of the API stays available.
	generator := cfg.Generator
	if generator == nil && strings.TrimSpace(cfg.AIAPIKey) != "" {
		var err error
		generator, err = buildGenerator(cfg)
		if err != nil {
			return nil, err
		}
	}

	promptMax := cfg.PromptMaxChars
	if promptMax <= 0 {
		promptMax = 12000
	}
	minText := cfg.MinTextChars
	if minText <= 0 {
		minText = 20
	}

	return &App{
		store:             dataStore,
		sessions:          sessionStore,
		objects:           objStore,
		extractor:         extractor,
		generator:         generator,
		events:            cfg.Events,
		adminEmail:        auth.NormalizeEmail(cfg.AdminEmail),
		adminPasswordHash: cfg.AdminPasswordHash,
		renderSummaryPDF:  cfg.RenderSummaryPDF,
		promptMaxChars:    promptMax,
		minTextChars:      minText,
	}, nil
}

func buildGenerator(cfg Config) (ai.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "", "openrouter":
		return ai.NewOpenRouterGenerator(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AIReferer, cfg.AITitle, cfg.AITimeout), nil
	case "gemini":
		return ai.NewGeminiGenerator(cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// Register creates a user account and issues a session token.
func (a *App) Register(name, email, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = auth.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", ErrMissingFields
	}
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrUserExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = auth.NormalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// AdminLogin checks the configured admin credential pair and issues an
// admin session token. No admin row exists in the users table.
func (a *App) AdminLogin(email, password string) (string, error) {
	email = auth.NormalizeEmail(email)
	if a.adminEmail == "" || a.adminPasswordHash == "" {
		return "", ErrInvalidAdminCredentials
	}
	if email != a.adminEmail || !auth.CheckPassword(password, a.adminPasswordHash) {
		return "", ErrInvalidAdminCredentials
	}
	token, err := a.sessions.Issue("admin:"+a.adminEmail, a.adminEmail, domain.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("issue admin token: %w", err)
	}
	return token, nil
}

// UserFromToken resolves a user from a session token. Admin tokens resolve
// to a synthetic user since the admin is configured, not stored.
func (a *App) UserFromToken(token string) (domain.User, error) {
	claims, err := a.sessions.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	if claims.Role == domain.RoleAdmin {
		return domain.User{
			ID:    claims.Subject,
			Name:  "Admin",
			Email: claims.Email,
			Role:  domain.RoleAdmin,
		}, nil
	}
	user, found, err := a.store.GetUserByID(claims.Subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrAuthUserNotFound
	}
	return user, nil
}

// CreateVitals records a manual vitals entry for the user.
func (a *App) CreateVitals(user domain.User, bp, sugar, weight, pulse string) (domain.Vitals, error) {
	now := time.Now().UTC()
	vitals := domain.Vitals{
		ID:        util.NewID(),
		UserID:    user.ID,
		BP:        strings.TrimSpace(bp),
		Sugar:     strings.TrimSpace(sugar),
		Weight:    strings.TrimSpace(weight),
		Pulse:     strings.TrimSpace(pulse),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveVitals(vitals); err != nil {
		return domain.Vitals{}, fmt.Errorf("save vitals: %w", err)
	}
	return vitals, nil
}

// ListVitals returns the user's vitals entries, newest first.
func (a *App) ListVitals(user domain.User) ([]domain.Vitals, error) {
	return a.store.ListVitalsByOwner(user.ID)
}

// ListReports returns the user's reports, newest first.
func (a *App) ListReports(user domain.User) ([]domain.Report, error) {
	return a.store.ListReportsByOwner(user.ID)
}

// GetReport fetches one report. Foreign reports are indistinguishable from
// missing ones; admins may read any report.
func (a *App) GetReport(user domain.User, id string) (domain.Report, error) {
	report, ok, err := a.store.GetReport(id)
	if err != nil {
		return domain.Report{}, fmt.Errorf("fetch report: %w", err)
	}
	if !ok {
		return domain.Report{}, ErrReportNotFound
	}
	if report.UserID != user.ID && user.Role != domain.RoleAdmin {
		return domain.Report{}, ErrReportNotFound
	}
	return report, nil
}
