package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"goalpad/internal/core"
)

// MemoryRepository is the in-process Store used by tests and the default
// development backend. All data is copied on the way in and out so callers
// never share state with the repository.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]core.User    // keyed by username
	sessions  map[string]core.Session // keyed by token
	goals     map[string]core.Goal    // keyed by goal ID
	snapshots map[string]snapshot     // keyed by user ID
}

type snapshot struct {
	payload     []byte
	refreshedAt time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]core.User),
		sessions:  make(map[string]core.Session),
		goals:     make(map[string]core.Goal),
		snapshots: make(map[string]snapshot),
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) CreateUser(_ context.Context, u core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Username]; exists {
		return ErrUsernameTaken
	}
	r.users[u.Username] = u
	return nil
}

func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return core.User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryRepository) CreateSession(_ context.Context, s core.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, token string) (core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	if !ok {
		return core.Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemoryRepository) DeleteSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *MemoryRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for token, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepository) CreateGoal(_ context.Context, g core.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals[g.ID] = copyGoal(g)
	return nil
}

func (r *MemoryRepository) GetGoal(_ context.Context, userID, goalID string) (core.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return core.Goal{}, ErrGoalNotFound
	}
	return copyGoal(g), nil
}

func (r *MemoryRepository) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var goals []core.Goal
	for _, g := range r.goals {
		if g.UserID == userID {
			goals = append(goals, copyGoal(g))
		}
	}
	sort.Slice(goals, func(a, b int) bool {
		return goals[a].Deadline.Before(goals[b].Deadline)
	})
	return goals, nil
}

func (r *MemoryRepository) DeleteGoal(_ context.Context, userID, goalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return ErrGoalNotFound
	}
	delete(r.goals, goalID)
	return nil
}

func (r *MemoryRepository) MutateGoal(_ context.Context, userID, goalID string, fn func(*core.Goal) error) (core.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return core.Goal{}, ErrGoalNotFound
	}
	mutated := copyGoal(g)
	if err := fn(&mutated); err != nil {
		return core.Goal{}, err
	}
	r.goals[goalID] = copyGoal(mutated)
	return mutated, nil
}

func (r *MemoryRepository) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, g := range r.goals {
		if !seen[g.UserID] {
			seen[g.UserID] = true
			ids = append(ids, g.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryRepository) SaveStatsSnapshot(_ context.Context, userID string, payload []byte, refreshedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.snapshots[userID] = snapshot{payload: buf, refreshedAt: refreshedAt}
	return nil
}

func (r *MemoryRepository) GetStatsSnapshot(_ context.Context, userID string) ([]byte, time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[userID]
	if !ok {
		return nil, time.Time{}, ErrSnapshotNotFound
	}
	buf := make([]byte, len(s.payload))
	copy(buf, s.payload)
	return buf, s.refreshedAt, nil
}

// copyGoal deep-copies a goal so exception slices are never shared across
// the store boundary.
func copyGoal(g core.Goal) core.Goal {
	out := g
	if g.Exceptions != nil {
		out.Exceptions = make([]core.Exception, len(g.Exceptions))
		for i, ex := range g.Exceptions {
			out.Exceptions[i] = ex
			if ex.Override != nil {
				o := *ex.Override
				out.Exceptions[i].Override = &o
			}
		}
	}
	return out
}
