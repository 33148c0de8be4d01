package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"healthmate/internal/app"
	"healthmate/internal/ratelimit"
	"healthmate/internal/util"
	"healthmate/pkg/auth"
	"healthmate/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RedisAddr     string
	RedisPassword string

	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
	AdminRateLimitPerMinute    int

	MaxUploadBytes int64
}

// Server exposes the HealthMate HTTP API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64

	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	adminLimiter    *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 * 1024 * 1024
	}
	registerLimit := cfg.RegisterRateLimitPerMinute
	if registerLimit <= 0 {
		registerLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	adminLimit := cfg.AdminRateLimitPerMinute
	if adminLimit <= 0 {
		adminLimit = 5
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "healthmate:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	adminLimiter, err := newLimiter("admin", adminLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUploadBytes,
		registerLimiter: registerLimiter,
		loginLimiter:    loginLimiter,
		adminLimiter:    adminLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("api", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/user/register", s.handleRegister)
	s.mux.HandleFunc("/api/user/login", s.handleLogin)
	s.mux.HandleFunc("/api/user/admin", s.handleAdminLogin)
	s.mux.Handle("/api/user/profile", s.authenticated(s.handleProfile))

	s.mux.Handle("/api/report/upload", s.authenticated(s.handleUploadReport))
	s.mux.Handle("/api/report", s.authenticated(s.handleListReports))
	s.mux.Handle("/api/report/", s.authenticated(s.handleReportByID))

	s.mux.Handle("/api/vitals", s.authenticated(s.handleVitals))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "HealthMate API is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		user, err := s.app.UserFromToken(token)
		if err != nil {
			if errors.Is(err, app.ErrAuthUserNotFound) {
				writeError(w, http.StatusUnauthorized, app.ErrAuthUserNotFound.Error())
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r, user)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "Too many registration attempts") {
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.Register(req.Name, req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "Too many login attempts") {
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.adminLimiter, "Too many login attempts") {
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	token, err := s.app.AdminLogin(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, app.ErrNoFile.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, app.ErrNoFile.Error())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	report, err := s.app.UploadReport(r.Context(), user, header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"report":  report,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	reports, err := s.app.ListReports(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reports": reports,
		"count":   len(reports),
	})
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/report/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, app.ErrReportNotFound.Error())
		return
	}
	report, err := s.app.GetReport(user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

type vitalsRequest struct {
	BP     string `json:"bp"`
	Sugar  string `json:"sugar"`
	Weight string `json:"weight"`
	Pulse  string `json:"pulse"`
}

func (s *Server) handleVitals(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		var req vitalsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		vitals, err := s.app.CreateVitals(user, req.BP, req.Sugar, req.Weight, req.Pulse)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save vitals")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"vitals":  vitals,
		})
	case http.MethodGet:
		vitals, err := s.app.ListVitals(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch vitals")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"vitals":  vitals,
			"count":   len(vitals),
		})
	default:
		methodNotAllowed(w)
	}
}

// writeAppError maps core errors onto HTTP statuses. Anything unrecognized
// is an internal error with a generic message.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, app.ErrUserExists),
		errors.Is(err, app.ErrNoFile),
		errors.Is(err, app.ErrUnsupportedFileType),
		errors.Is(err, app.ErrUnreadableDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrInvalidAdminCredentials),
		errors.Is(err, app.ErrAuthUserNotFound):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrMissingAIKey),
		errors.Is(err, app.ErrFileUploadFailed),
		errors.Is(err, app.ErrAIAnalysisFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Msg       string `json:"msg"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Success:   false,
		Msg:       msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
