package handlers

import (
	"context"
	"net/http"
	"time"

	"managerclass/internal/logger"
	"managerclass/internal/security"
	"managerclass/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const AdminContextKey ContextKey = "admin"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	adminAuth   *service.AdminAuthService
	limiter     *security.RateLimiter
	log         *logger.Logger
	forceSecure bool
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(adminAuth *service.AdminAuthService, limiter *security.RateLimiter, log *logger.Logger, forceSecure bool) *Middleware {
	return &Middleware{
		adminAuth:   adminAuth,
		limiter:     limiter,
		log:         log,
		forceSecure: forceSecure,
	}
}

// RequireAdmin is middleware that requires a valid admin session cookie.
// State-changing requests must also carry the session's CSRF token.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.AdminCookieName)
		if err != nil {
			respondWithError(w, m.log, http.StatusUnauthorized, MsgUnauthorized, "", nil)
			return
		}

		session, err := m.adminAuth.Verify(cookie.Value)
		if err != nil {
			// Clear invalid cookie
			http.SetCookie(w, security.CreateDeleteCookie(r, security.AdminCookieName, m.forceSecure))
			respondWithError(w, m.log, http.StatusUnauthorized, MsgUnauthorized, "admin session rejected", err)
			return
		}

		if isStateChanging(r.Method) && !m.adminAuth.ValidateCSRF(cookie.Value, r.Header.Get(security.CSRFHeader)) {
			m.log.Warn("csrf token mismatch", "path", r.URL.Path, "username", session.Username)
			respondWithError(w, m.log, http.StatusForbidden, MsgInvalidCSRF, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// RateLimit rejects clients that exceed the configured request budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondWithError(w, m.log, http.StatusTooManyRequests, MsgTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Recover turns a handler panic into a 500 response
func Recover(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: MsgInternalServerError})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetAdminFromContext retrieves the admin session from the request context
func GetAdminFromContext(ctx context.Context) *service.AdminSession {
	session, ok := ctx.Value(AdminContextKey).(*service.AdminSession)
	if !ok {
		return nil
	}
	return session
}
