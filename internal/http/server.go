// Package http exposes the JSON API: auth, goal lifecycle, exceptions,
// the grouped schedule view and statistics.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"goalpad/internal/auth"
	"goalpad/internal/cache"
	applog "goalpad/internal/log"
	"goalpad/internal/services"
	"goalpad/internal/storage"
)

type Server struct {
	http.Server
	authSvc     *auth.Service
	goalSvc     *services.GoalService
	store       storage.Store
	logger      *applog.Logger
	rateLimiter *rateLimiter

	// Derived views are cheap but recomputed per request; a short TTL
	// cache absorbs dashboard polling. Keyed by "userID:view".
	scheduleCache *cache.LRUCache[[]services.DayGroup]
	statsCache    *cache.LRUCache[services.DetailedStats]
	cacheManager  *cache.Manager

	stopSessionPurge chan struct{}
	shutdownOnce     sync.Once
}

// Options carries the tunables NewServer needs beyond its collaborators.
type Options struct {
	Addr      string
	CacheSize int
	CacheTTL  time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, store storage.Store, authSvc *auth.Service, goalSvc *services.GoalService, logger *applog.Logger) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		authSvc:          authSvc,
		goalSvc:          goalSvc,
		store:            store,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:      newRateLimiter(),
		scheduleCache:    cache.NewLRUCache[[]services.DayGroup](opts.CacheSize, opts.CacheTTL),
		statsCache:       cache.NewLRUCache[services.DetailedStats](opts.CacheSize, opts.CacheTTL),
		cacheManager:     cache.NewManager(),
		stopSessionPurge: make(chan struct{}),
	}

	s.cacheManager.Register(s.scheduleCache)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	go s.sessionPurgeLoop()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.guard(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.guard(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.guard(s.requireAuth(s.handleLogout)))

	mux.HandleFunc("POST /api/goals/create", s.guard(s.requireAuth(s.handleCreateGoal)))
	mux.HandleFunc("GET /api/goals", s.guard(s.requireAuth(s.handleListGoals)))
	mux.HandleFunc("GET /api/goals/{id}", s.guard(s.requireAuth(s.handleGetGoal)))
	mux.HandleFunc("PUT /api/goals/{id}", s.guard(s.requireAuth(s.handleUpdateGoal)))
	mux.HandleFunc("DELETE /api/goals/{id}", s.guard(s.requireAuth(s.handleDeleteGoal)))
	mux.HandleFunc("PATCH /api/goals/{id}/complete", s.guard(s.requireAuth(s.handleToggleComplete)))
	mux.HandleFunc("PATCH /api/goals/{id}/incomplete", s.guard(s.requireAuth(s.handleMarkIncomplete)))
	mux.HandleFunc("POST /api/goals/{id}/exception", s.guard(s.requireAuth(s.handleAddException)))
	mux.HandleFunc("DELETE /api/goals/{id}/exception", s.guard(s.requireAuth(s.handleRemoveException)))
	mux.HandleFunc("POST /api/goals/{id}/complete-occurrence", s.guard(s.requireAuth(s.handleCompleteOccurrence)))

	mux.HandleFunc("GET /api/schedule", s.guard(s.requireAuth(s.handleSchedule)))
	mux.HandleFunc("GET /api/stats/progress", s.guard(s.requireAuth(s.handleProgress)))
	mux.HandleFunc("GET /api/stats/detailed", s.guard(s.requireAuth(s.handleDetailedStats)))

	return s
}

// sessionPurgeLoop sweeps expired sessions on a slow timer.
func (s *Server) sessionPurgeLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.authSvc.PurgeExpired(context.Background())
		case <-s.stopSessionPurge:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopSessionPurge)

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// guard adds security headers, rate limiting and request logging.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit mutating requests only; reads are cache-backed
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// requireAuth resolves the bearer token and stores the session in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		session, err := s.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// invalidateUser drops the user's cached derived views after a mutation.
func (s *Server) invalidateUser(userID string) {
	s.scheduleCache.DeletePrefix(userID + ":")
	s.statsCache.DeletePrefix(userID + ":")
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
