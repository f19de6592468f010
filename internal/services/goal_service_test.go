package services

import (
	"context"
	"errors"
	"testing"

	"goalpad/internal/core"
	"goalpad/internal/storage"
)

func newTestService() (*GoalService, *storage.MemoryRepository) {
	store := storage.NewMemoryRepository()
	return NewGoalService(store, nil), store
}

func validInput() GoalInput {
	return GoalInput{
		Title:      "Morning run",
		Category:   "Health",
		Priority:   "high",
		Deadline:   "2024-06-24",
		StartTime:  "07:00",
		EndTime:    "08:00",
		Recurrence: "daily",
	}
}

func TestCreateGoal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, "u1", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ID == "" || g.UserID != "u1" || g.Recurrence != core.Daily {
		t.Fatalf("goal: %+v", g)
	}

	goals, err := svc.List(ctx, "u1")
	if err != nil || len(goals) != 1 {
		t.Fatalf("list: %v, %d goals", err, len(goals))
	}
}

func TestCreateGoalValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	bads := []func(*GoalInput){
		func(in *GoalInput) { in.Title = "" },
		func(in *GoalInput) { in.Priority = "critical" },
		func(in *GoalInput) { in.Deadline = "24/06/2024" },
		func(in *GoalInput) { in.StartTime, in.EndTime = "09:00", "08:00" },
	}
	for i, mutate := range bads {
		in := validInput()
		mutate(&in)
		if _, err := svc.Create(ctx, "u1", in); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCreateGoalScheduleConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Overlapping slot on the same date
	overlap := validInput()
	overlap.Title = "Stretching"
	overlap.StartTime, overlap.EndTime = "07:30", "08:30"
	if _, err := svc.Create(ctx, "u1", overlap); !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected schedule conflict, got %v", err)
	}

	// Touching intervals do not conflict
	adjacent := validInput()
	adjacent.Title = "Breakfast"
	adjacent.StartTime, adjacent.EndTime = "08:00", "08:30"
	if _, err := svc.Create(ctx, "u1", adjacent); err != nil {
		t.Fatalf("adjacent slot must not conflict: %v", err)
	}

	// Same slot, different user
	if _, err := svc.Create(ctx, "u2", validInput()); err != nil {
		t.Fatalf("other user must not conflict: %v", err)
	}

	// Same slot, different date
	otherDay := validInput()
	otherDay.Deadline = "2024-06-25"
	if _, err := svc.Create(ctx, "u1", otherDay); err != nil {
		t.Fatalf("other date must not conflict: %v", err)
	}
}

func TestUpdateGoalPartial(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	updated, err := svc.Update(ctx, "u1", g.ID, GoalInput{Title: "Evening run"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Evening run" {
		t.Fatalf("title: %q", updated.Title)
	}
	// Untouched fields survive
	if updated.Category != g.Category || updated.StartTime != g.StartTime {
		t.Fatalf("fields lost: %+v", updated)
	}
}

func TestUpdateGoalWritesThroughOverrides(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	_, err := svc.AddException(ctx, "u1", g.ID, core.Exception{
		Date: "2024-06-25", Type: core.ExceptionModify,
		Override: &core.Override{Title: "Old title", StartTime: "10:00"},
	})
	if err != nil {
		t.Fatalf("add exception: %v", err)
	}

	updated, err := svc.Update(ctx, "u1", g.ID, GoalInput{Title: "New title"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	ex := updated.ExceptionFor("2024-06-25", core.ExceptionModify)
	if ex == nil || ex.Override.Title != "New title" {
		t.Fatalf("override must follow the edit: %+v", ex)
	}
	if ex.Override.StartTime != "10:00" {
		t.Fatalf("unrelated override fields must survive: %+v", ex.Override)
	}
}

func TestUpdateRecurrenceClearsExceptions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	if _, err := svc.AddException(ctx, "u1", g.ID, core.Exception{Date: "2024-06-25", Type: core.ExceptionComplete}); err != nil {
		t.Fatalf("add exception: %v", err)
	}

	updated, err := svc.Update(ctx, "u1", g.ID, GoalInput{Recurrence: "weekly"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Recurrence != core.Weekly || len(updated.Exceptions) != 0 {
		t.Fatalf("exceptions must be discarded on pattern change: %+v", updated)
	}

	// Same recurrence keeps them
	g2, _ := svc.Create(ctx, "u2", validInput())
	_, _ = svc.AddException(ctx, "u2", g2.ID, core.Exception{Date: "2024-06-25", Type: core.ExceptionComplete})
	kept, err := svc.Update(ctx, "u2", g2.ID, GoalInput{Recurrence: "daily"})
	if err != nil || len(kept.Exceptions) != 1 {
		t.Fatalf("unchanged pattern must keep exceptions: %v, %+v", err, kept.Exceptions)
	}
}

func TestToggleComplete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := validInput()
	in.Recurrence = "one-time"
	g, _ := svc.Create(ctx, "u1", in)

	g, err := svc.ToggleComplete(ctx, "u1", g.ID)
	if err != nil || !g.Completed {
		t.Fatalf("toggle on: %v, %+v", err, g)
	}
	g, err = svc.ToggleComplete(ctx, "u1", g.ID)
	if err != nil || g.Completed {
		t.Fatalf("toggle off: %v, %+v", err, g)
	}

	g, err = svc.MarkIncomplete(ctx, "u1", g.ID)
	if err != nil || g.Completed {
		t.Fatalf("mark incomplete: %v, %+v", err, g)
	}

	// Recurring goals refuse the whole-goal flag
	rec, _ := svc.Create(ctx, "u2", validInput())
	if _, err := svc.ToggleComplete(ctx, "u2", rec.ID); err == nil {
		t.Fatalf("expected error for recurring goal")
	}
}

func TestAddExceptionReplacesSameDateAndType(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	_, _ = svc.AddException(ctx, "u1", g.ID, core.Exception{
		Date: "2024-06-25", Type: core.ExceptionModify,
		Override: &core.Override{Title: "First"},
	})
	updated, err := svc.AddException(ctx, "u1", g.ID, core.Exception{
		Date: "2024-06-25", Type: core.ExceptionModify,
		Override: &core.Override{Title: "Second"},
	})
	if err != nil {
		t.Fatalf("add exception: %v", err)
	}
	if len(updated.Exceptions) != 1 || updated.Exceptions[0].Override.Title != "Second" {
		t.Fatalf("must replace same date+type: %+v", updated.Exceptions)
	}
}

func TestCompleteOccurrenceCounterparts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())

	g, err := svc.CompleteOccurrence(ctx, "u1", g.ID, "2024-06-25", true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !g.HasException("2024-06-25", core.ExceptionComplete) {
		t.Fatalf("complete record missing: %+v", g.Exceptions)
	}

	// Uncomplete erases the complete record and stores nothing
	g, err = svc.CompleteOccurrence(ctx, "u1", g.ID, "2024-06-25", false)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if len(g.Exceptions) != 0 {
		t.Fatalf("uncomplete must leave no record: %+v", g.Exceptions)
	}
}

func TestAddExceptionRejectsBadInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())

	if _, err := svc.AddException(ctx, "u1", g.ID, core.Exception{Date: "not-a-date", Type: core.ExceptionDelete}); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if _, err := svc.AddException(ctx, "u1", g.ID, core.Exception{Date: "2024-06-25", Type: "snooze"}); !errors.Is(err, ErrInvalidException) {
		t.Fatalf("expected ErrInvalidException, got %v", err)
	}

	oneTime := validInput()
	oneTime.Recurrence = "one-time"
	oneTime.StartTime, oneTime.EndTime = "20:00", "21:00"
	ot, _ := svc.Create(ctx, "u1", oneTime)
	if _, err := svc.AddException(ctx, "u1", ot.ID, core.Exception{Date: "2024-06-25", Type: core.ExceptionDelete}); !errors.Is(err, ErrNotRecurring) {
		t.Fatalf("expected ErrNotRecurring, got %v", err)
	}
}

func TestRemoveException(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	_, _ = svc.AddException(ctx, "u1", g.ID, core.Exception{Date: "2024-06-25", Type: core.ExceptionDelete})

	g, err := svc.RemoveException(ctx, "u1", g.ID, "2024-06-25", core.ExceptionDelete)
	if err != nil || len(g.Exceptions) != 0 {
		t.Fatalf("remove: %v, %+v", err, g.Exceptions)
	}
}

func TestDeleteGoal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, "u1", validInput())
	if err := svc.Delete(ctx, "u1", g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", g.ID); !errors.Is(err, storage.ErrGoalNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Cross-user access is a not-found, not a leak
	g2, _ := svc.Create(ctx, "u1", validInput())
	if err := svc.Delete(ctx, "u2", g2.ID); !errors.Is(err, storage.ErrGoalNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}
