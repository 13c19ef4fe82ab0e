package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bytehub/internal/app"
	"bytehub/internal/domain"
	"bytehub/internal/ratelimit"
	"bytehub/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	TrustedProxies           *util.TrustedProxies
	SignupRateLimitPerMinute int
	SigninRateLimitPerMinute int
	UploadRateLimitPerMinute int
	VerifyRateLimitPerMinute int
	MaxUploadBytes           int64
	AllowedExtensions        []string
}

// Server exposes the HTTP API.
type Server struct {
	app               *app.App
	mux               *http.ServeMux
	trustedProxies    *util.TrustedProxies
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	signupLimiter     *ratelimit.FixedWindowLimiter
	signinLimiter     *ratelimit.FixedWindowLimiter
	uploadLimiter     *ratelimit.FixedWindowLimiter
	verifyLimiter     *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	signinLimit := cfg.SigninRateLimitPerMinute
	if signinLimit <= 0 {
		signinLimit = 10
	}
	uploadLimit := cfg.UploadRateLimitPerMinute
	if uploadLimit <= 0 {
		uploadLimit = 30
	}
	verifyLimit := cfg.VerifyRateLimitPerMinute
	if verifyLimit <= 0 {
		verifyLimit = 5
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "bytehub:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	signinLimiter, err := newLimiter("signin", signinLimit)
	if err != nil {
		return nil, err
	}
	uploadLimiter, err := newLimiter("upload", uploadLimit)
	if err != nil {
		return nil, err
	}
	verifyLimiter, err := newLimiter("verify", verifyLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:               cfg.App,
		mux:               http.NewServeMux(),
		trustedProxies:    cfg.TrustedProxies,
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		signupLimiter:     signupLimiter,
		signinLimiter:     signinLimiter,
		uploadLimiter:     uploadLimiter,
		verifyLimiter:     verifyLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth", s.handleAuth)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/auth/verify-email", s.authenticated(s.handleVerifyEmail))

	// hubs
	s.mux.HandleFunc("/api/hubs", s.handleHubs)
	s.mux.HandleFunc("/api/hubs/", s.handleHubByID)

	// engagement
	s.mux.HandleFunc("/api/stars", s.handleStars)
	s.mux.HandleFunc("/api/follows", s.handleFollows)
	s.mux.HandleFunc("/api/comments", s.handleComments)
	s.mux.Handle("/api/notifications", s.authenticated(s.handleNotifications))

	// files
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/files", s.handleFiles)
	s.mux.HandleFunc("/api/files/", s.handleFileByID)

	// users & search
	s.mux.HandleFunc("/api/users/", s.handleUserByID)
	s.mux.HandleFunc("/api/search", s.handleSearch)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

// requireUser resolves the bearer token to a user, writing the failure
// envelope when the credential is missing or invalid.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "auth.token", "fail", "reason", "missing_token")
		writeFail(w, http.StatusUnauthorized, "Authentication required")
		return domain.User{}, false
	}
	user, ok := s.app.UserFromToken(token)
	if !ok {
		s.audit(r, "auth.token", "fail", "reason", "invalid_or_revoked_token")
		writeFail(w, http.StatusUnauthorized, "Authentication required")
		return domain.User{}, false
	}
	return user, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
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

// envelope is the uniform response shape of every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeAppError maps application error kinds to HTTP statuses while keeping
// the uniform envelope. Unknown errors become an opaque 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeFail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, app.ErrForbidden):
		s.audit(r, "authz.owner", "fail")
		writeFail(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeFail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, app.ErrCannotFollowSelf):
		writeFail(w, http.StatusBadRequest, "Cannot follow yourself")
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeFail(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, app.ErrEmailAlreadyVerified):
		writeFail(w, http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, app.ErrInvalidArgument):
		writeFail(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), app.ErrInvalidArgument.Error()+": "))
	default:
		slog.Error("internal_error",
			"path", r.URL.Path,
			"method", r.Method,
			"request_id", util.RequestIDFromRequest(r),
			"error", err.Error(),
		)
		writeFail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeFail(w, http.StatusTooManyRequests, msg)
	return false
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 50 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".pdf", ".doc", ".docx", ".ppt", ".pptx", ".txt", ".md", ".png", ".jpg", ".jpeg", ".zip"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func queryLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
