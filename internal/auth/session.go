package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"goalpad/internal/core"
	"goalpad/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrEmptyUsername      = errors.New("username is required")
)

// Service issues and validates sessions against the store. Tokens are
// opaque random hex strings with a fixed TTL.
type Service struct {
	store storage.Store
	ttl   time.Duration
}

func NewService(store storage.Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

func (s *Service) Register(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, ErrEmptyUsername
	}

	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (core.Session, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrUserNotFound) {
		return core.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.Session{}, err
	}

	if !CheckPassword(u.PasswordHash, password) {
		return core.Session{}, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return core.Session{}, err
	}

	now := time.Now().UTC()
	session := core.Session{
		Token:     token,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return core.Session{}, err
	}

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a token to its session, rejecting expired ones.
func (s *Service) Authenticate(ctx context.Context, token string) (core.Session, error) {
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return core.Session{}, err
	}
	if session.Expired(time.Now().UTC()) {
		// Best effort; the expired-session sweep also catches it
		_ = s.store.DeleteSession(ctx, token)
		return core.Session{}, ErrSessionExpired
	}
	return session, nil
}

// PurgeExpired removes expired sessions. Called periodically by the server.
func (s *Service) PurgeExpired(ctx context.Context) {
	removed, err := s.store.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		slog.WarnContext(ctx, "Failed to purge expired sessions", "error", err)
		return
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", removed)
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
