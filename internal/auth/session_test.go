package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"goalpad/internal/storage"
)

func TestRegisterAndLogin(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewService(store, time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  alice  ", "s3cretpass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.Username != "alice" {
		t.Fatalf("user: %+v", u)
	}
	if u.PasswordHash == "s3cretpass" {
		t.Fatalf("password stored in the clear")
	}

	session, err := svc.Login(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" || session.UserID != u.ID {
		t.Fatalf("session: %+v", session)
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		t.Fatalf("expiry not in the future: %+v", session)
	}

	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil || got.UserID != u.ID {
		t.Fatalf("authenticate: %v, %+v", err, got)
	}
}

func TestRegisterValidation(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewService(store, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "   ", "s3cretpass"); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected ErrEmptyUsername, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if _, err := svc.Register(ctx, "alice", "s3cretpass"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "otherpassword"); !errors.Is(err, storage.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewService(store, time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "s3cretpass"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestLogout(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewService(store, time.Hour)
	ctx := context.Background()

	_, _ = svc.Register(ctx, "alice", "s3cretpass")
	session, err := svc.Login(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestAuthenticateExpired(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewService(store, -time.Minute)
	ctx := context.Background()

	_, _ = svc.Register(ctx, "alice", "s3cretpass")
	session, err := svc.Login(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// Expired session is evicted on sight
	if _, err := store.GetSession(ctx, session.Token); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected eviction, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := storage.NewMemoryRepository()
	live := NewService(store, time.Hour)
	stale := NewService(store, -time.Minute)
	ctx := context.Background()

	_, _ = live.Register(ctx, "alice", "s3cretpass")
	kept, _ := live.Login(ctx, "alice", "s3cretpass")
	gone, _ := stale.Login(ctx, "alice", "s3cretpass")

	live.PurgeExpired(ctx)

	if _, err := store.GetSession(ctx, kept.Token); err != nil {
		t.Fatalf("live session must survive: %v", err)
	}
	if _, err := store.GetSession(ctx, gone.Token); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expired session must be purged: %v", err)
	}
}
