package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"goalpad/internal/amqp"
	"goalpad/internal/core"
	"goalpad/internal/services"
	"goalpad/internal/storage"
)

func seedGoal(t *testing.T, store storage.Store, id, userID string) {
	t.Helper()

	deadline, err := core.ParseDay("2024-01-01")
	if err != nil {
		t.Fatalf("parse deadline: %v", err)
	}
	g := core.Goal{
		ID:         id,
		UserID:     userID,
		Title:      "Morning run",
		Category:   "Health",
		Priority:   core.PriorityHigh,
		Deadline:   deadline.Time,
		StartTime:  "07:00",
		EndTime:    "08:00",
		Recurrence: core.Daily,
		CreatedAt:  deadline.Time,
	}
	if err := store.CreateGoal(context.Background(), g); err != nil {
		t.Fatalf("seed goal: %v", err)
	}
}

func TestRefreshUser(t *testing.T) {
	store := storage.NewMemoryRepository()
	w := NewStatsWorker(store)
	ctx := context.Background()

	seedGoal(t, store, "g1", "u1")

	if err := w.RefreshUser(ctx, "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	payload, refreshedAt, err := store.GetStatsSnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if refreshedAt.IsZero() {
		t.Fatalf("refreshedAt not set")
	}

	var stats services.DetailedStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		t.Fatalf("snapshot payload: %v\n%s", err, payload)
	}
	if stats.WeekProgress.Total == 0 {
		t.Fatalf("daily goal must produce week occurrences: %+v", stats.WeekProgress)
	}
	if stats.Categories.MostUsed != "Health" {
		t.Fatalf("categories: %+v", stats.Categories)
	}
}

func TestHandleGoalEvent(t *testing.T) {
	store := storage.NewMemoryRepository()
	w := NewStatsWorker(store)
	ctx := context.Background()

	seedGoal(t, store, "g1", "u1")

	event := amqp.NewGoalEvent("g1", "u1", amqp.ActionCompleted, "2024-01-02")
	if err := w.HandleGoalEvent(ctx, event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if _, _, err := store.GetStatsSnapshot(ctx, "u1"); err != nil {
		t.Fatalf("snapshot missing after event: %v", err)
	}
}

func TestRefreshAll(t *testing.T) {
	store := storage.NewMemoryRepository()
	w := NewStatsWorker(store)
	ctx := context.Background()

	// Empty store is a no-op
	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("refresh empty: %v", err)
	}

	seedGoal(t, store, "g1", "u1")
	seedGoal(t, store, "g2", "u2")

	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("refresh all: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		payload, _, err := store.GetStatsSnapshot(ctx, userID)
		if err != nil || len(payload) == 0 {
			t.Fatalf("snapshot for %s: %v", userID, err)
		}
	}

	// Snapshots advance on subsequent runs
	_, first, _ := store.GetStatsSnapshot(ctx, "u1")
	time.Sleep(5 * time.Millisecond)
	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	_, second, _ := store.GetStatsSnapshot(ctx, "u1")
	if !second.After(first) {
		t.Fatalf("refreshedAt must advance: %v then %v", first, second)
	}
}
