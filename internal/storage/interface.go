// Package storage provides the persistence layer: a SQLite repository for
// production and an in-memory repository for tests and local development.
package storage

import (
	"context"
	"errors"
	"time"

	"goalpad/internal/core"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrSessionNotFound = errors.New("session not found")
	ErrGoalNotFound    = errors.New("goal not found")
)

// Store is the full persistence contract shared by the SQLite and memory
// backends. Every method receives a fresh snapshot semantics: callers never
// hold references into the store across calls.
type Store interface {
	UserStore
	SessionStore
	GoalStore
	SnapshotStore

	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error

	// MutateGoal loads the goal, applies fn and persists the result as one
	// read-modify-write unit, so racing exception writers serialize.
	MutateGoal(ctx context.Context, userID, goalID string, fn func(*core.Goal) error) (core.Goal, error)

	// ListUserIDs returns the IDs of all users owning at least one goal.
	ListUserIDs(ctx context.Context) ([]string, error)
}

type SnapshotStore interface {
	SaveStatsSnapshot(ctx context.Context, userID string, payload []byte, refreshedAt time.Time) error
	GetStatsSnapshot(ctx context.Context, userID string) ([]byte, time.Time, error)
}

// ErrSnapshotNotFound is returned when a user has no stats snapshot yet.
var ErrSnapshotNotFound = errors.New("stats snapshot not found")
