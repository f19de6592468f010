package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"goalpad/internal/amqp"
	"goalpad/internal/core"
	"goalpad/internal/storage"
)

var (
	ErrScheduleConflict = errors.New("time slot conflicts with an existing goal")
	ErrNotRecurring     = errors.New("goal is not recurring")
	ErrInvalidException = errors.New("invalid exception type")
)

// EventPublisher decouples the service from the AMQP client so tests can
// run without a broker.
type EventPublisher interface {
	PublishGoalEvent(ctx context.Context, event *amqp.GoalEvent) error
}

// GoalService owns goal lifecycle and exception recording. A nil publisher
// disables events; publish failures are logged and never fail the request.
type GoalService struct {
	store  storage.Store
	events EventPublisher
}

func NewGoalService(store storage.Store, events EventPublisher) *GoalService {
	return &GoalService{store: store, events: events}
}

// GoalInput carries the client-supplied goal fields for create and update.
type GoalInput struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Deadline   string `json:"deadline"` // YYYY-MM-DD
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Recurrence string `json:"recurrence"`
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (core.Goal, error) {
	deadline, err := core.ParseDay(in.Deadline)
	if err != nil {
		return core.Goal{}, err
	}

	priority, err := core.ParsePriority(in.Priority)
	if err != nil {
		return core.Goal{}, err
	}

	g := core.Goal{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      strings.TrimSpace(in.Title),
		Category:   strings.TrimSpace(in.Category),
		Priority:   priority,
		Deadline:   deadline.Time,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Recurrence: core.ParseRecurrence(in.Recurrence),
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	existing, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return core.Goal{}, err
	}
	if conflicts(g, existing) {
		return core.Goal{}, ErrScheduleConflict
	}

	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, err
	}

	s.publish(ctx, amqp.NewGoalEvent(g.ID, userID, amqp.ActionCreated, ""))
	return g, nil
}

func (s *GoalService) Get(ctx context.Context, userID, goalID string) (core.Goal, error) {
	return s.store.GetGoal(ctx, userID, goalID)
}

// List returns the user's goals ordered by deadline.
func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(goals, func(a, b int) bool {
		return goals[a].Deadline.Before(goals[b].Deadline)
	})
	return goals, nil
}

// Update rewrites the provided fields of a goal. Empty input fields keep
// their current values. Updated fields are written through into existing
// modify overrides too, so exception dates reflect the edit instead of
// pinning the stale value. A recurrence change discards all exceptions
// since their dates no longer belong to the pattern.
func (s *GoalService) Update(ctx context.Context, userID, goalID string, in GoalInput) (core.Goal, error) {
	g, err := s.store.MutateGoal(ctx, userID, goalID, func(g *core.Goal) error {
		if in.Title != "" {
			title := strings.TrimSpace(in.Title)
			g.Title = title
			setOverrideField(g, func(o *core.Override) { o.Title = title })
		}
		if in.Category != "" {
			category := strings.TrimSpace(in.Category)
			g.Category = category
			setOverrideField(g, func(o *core.Override) { o.Category = category })
		}
		if in.Priority != "" {
			p, err := core.ParsePriority(in.Priority)
			if err != nil {
				return err
			}
			g.Priority = p
			setOverrideField(g, func(o *core.Override) { o.Priority = string(p) })
		}
		if in.Deadline != "" {
			d, err := core.ParseDay(in.Deadline)
			if err != nil {
				return err
			}
			g.Deadline = d.Time
		}
		if in.StartTime != "" {
			g.StartTime = in.StartTime
			setOverrideField(g, func(o *core.Override) { o.StartTime = in.StartTime })
		}
		if in.EndTime != "" {
			g.EndTime = in.EndTime
			setOverrideField(g, func(o *core.Override) { o.EndTime = in.EndTime })
		}
		if in.Recurrence != "" {
			r := core.ParseRecurrence(in.Recurrence)
			if r != g.Recurrence {
				g.Recurrence = r
				g.Exceptions = nil
			}
		}
		return g.Validate()
	})
	if err != nil {
		return core.Goal{}, err
	}

	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionUpdated, ""))
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	if err := s.store.DeleteGoal(ctx, userID, goalID); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionDeleted, ""))
	return nil
}

// ToggleComplete flips the completed flag of a one-time goal.
func (s *GoalService) ToggleComplete(ctx context.Context, userID, goalID string) (core.Goal, error) {
	g, err := s.store.MutateGoal(ctx, userID, goalID, func(g *core.Goal) error {
		if g.Recurrence.IsRecurring() {
			return errors.New("use occurrence completion for recurring goals")
		}
		g.Completed = !g.Completed
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionCompleted, ""))
	return g, nil
}

// MarkIncomplete clears the completed flag of a one-time goal.
func (s *GoalService) MarkIncomplete(ctx context.Context, userID, goalID string) (core.Goal, error) {
	g, err := s.store.MutateGoal(ctx, userID, goalID, func(g *core.Goal) error {
		if g.Recurrence.IsRecurring() {
			return errors.New("use occurrence completion for recurring goals")
		}
		g.Completed = false
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionCompleted, ""))
	return g, nil
}

// CompleteOccurrence marks one date of a recurring goal done (or undone).
func (s *GoalService) CompleteOccurrence(ctx context.Context, userID, goalID, date string, done bool) (core.Goal, error) {
	typ := core.ExceptionComplete
	if !done {
		typ = core.ExceptionUncomplete
	}
	return s.AddException(ctx, userID, goalID, core.Exception{Date: date, Type: typ})
}

// AddException records a per-date exception on a recurring goal. Recording
// replaces any existing exception of the same date and type, and removes
// the completion counterpart (complete clears uncomplete and vice versa).
// Uncomplete itself is pure erasure: it removes the complete record and is
// never stored.
func (s *GoalService) AddException(ctx context.Context, userID, goalID string, ex core.Exception) (core.Goal, error) {
	if _, err := core.ParseDay(ex.Date); err != nil {
		return core.Goal{}, err
	}
	switch ex.Type {
	case core.ExceptionDelete, core.ExceptionModify, core.ExceptionComplete, core.ExceptionUncomplete:
	default:
		return core.Goal{}, ErrInvalidException
	}

	g, err := s.store.MutateGoal(ctx, userID, goalID, func(g *core.Goal) error {
		if !g.Recurrence.IsRecurring() {
			return ErrNotRecurring
		}

		removeException(g, ex.Date, ex.Type)
		switch ex.Type {
		case core.ExceptionComplete:
			removeException(g, ex.Date, core.ExceptionUncomplete)
		case core.ExceptionUncomplete:
			removeException(g, ex.Date, core.ExceptionComplete)
			return nil // erasure only, nothing stored
		}

		g.Exceptions = append(g.Exceptions, ex)
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}

	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionException, ex.Date))
	return g, nil
}

// RemoveException deletes a recorded exception, restoring the base
// occurrence behavior for that date.
func (s *GoalService) RemoveException(ctx context.Context, userID, goalID, date string, typ core.ExceptionType) (core.Goal, error) {
	g, err := s.store.MutateGoal(ctx, userID, goalID, func(g *core.Goal) error {
		removeException(g, date, typ)
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}

	s.publish(ctx, amqp.NewGoalEvent(goalID, userID, amqp.ActionException, date))
	return g, nil
}

// Schedule is the grouped occurrence view over the forward window.
func (s *GoalService) Schedule(ctx context.Context, userID string, now time.Time) ([]DayGroup, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupByDate(goals, now, ScheduleWindowDays), nil
}

// Progress computes completion counts for one period.
func (s *GoalService) Progress(ctx context.Context, userID string, period Period, now time.Time) (Progress, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return PeriodProgress(goals, now, period), nil
}

// DetailedStats computes the full statistics bundle.
func (s *GoalService) DetailedStats(ctx context.Context, userID string, now time.Time) (DetailedStats, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return DetailedStats{}, err
	}
	return Detailed(goals, now), nil
}

func (s *GoalService) publish(ctx context.Context, event *amqp.GoalEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishGoalEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish goal event",
			"goal_id", event.GoalID,
			"action", event.Action,
			"error", err)
	}
}

// conflicts reports whether the candidate's time slot overlaps an existing
// goal on the same deadline date. Touching intervals do not overlap.
func conflicts(candidate core.Goal, existing []core.Goal) bool {
	cStart, err := core.ParseClock(candidate.StartTime)
	if err != nil {
		return false
	}
	cEnd, err := core.ParseClock(candidate.EndTime)
	if err != nil {
		return false
	}
	day := core.DayOf(candidate.Deadline)

	for _, g := range existing {
		if g.ID == candidate.ID || !core.DayOf(g.Deadline).Equal(day.Time) {
			continue
		}
		start, err := core.ParseClock(g.StartTime)
		if err != nil {
			continue
		}
		end, err := core.ParseClock(g.EndTime)
		if err != nil {
			continue
		}
		if cStart < end && cEnd > start {
			return true
		}
	}
	return false
}

func removeException(g *core.Goal, date string, typ core.ExceptionType) {
	kept := g.Exceptions[:0]
	for _, ex := range g.Exceptions {
		if ex.Date == date && ex.Type == typ {
			continue
		}
		kept = append(kept, ex)
	}
	g.Exceptions = kept
}

func setOverrideField(g *core.Goal, set func(*core.Override)) {
	for i := range g.Exceptions {
		if g.Exceptions[i].Type == core.ExceptionModify && g.Exceptions[i].Override != nil {
			set(g.Exceptions[i].Override)
		}
	}
}
