// Package worker recomputes and persists per-user stats snapshots in
// response to goal change events.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"goalpad/internal/amqp"
	"goalpad/internal/services"
	"goalpad/internal/storage"
)

// StatsWorker materializes the detailed statistics bundle per user so the
// API can serve a precomputed snapshot when the live computation is not
// needed.
type StatsWorker struct {
	store storage.Store
}

func NewStatsWorker(store storage.Store) *StatsWorker {
	return &StatsWorker{store: store}
}

// HandleGoalEvent processes one goal change event by recomputing the
// owning user's snapshot. The event carries only IDs; current goal state
// always comes from the database.
func (w *StatsWorker) HandleGoalEvent(ctx context.Context, event *amqp.GoalEvent) error {
	slog.InfoContext(ctx, "Processing goal event",
		"goal_id", event.GoalID,
		"user_id", event.UserID,
		"action", event.Action)

	if err := w.RefreshUser(ctx, event.UserID); err != nil {
		return fmt.Errorf("refresh stats for user %s: %w", event.UserID, err)
	}
	return nil
}

// RefreshUser recomputes and stores one user's snapshot.
func (w *StatsWorker) RefreshUser(ctx context.Context, userID string) error {
	goals, err := w.store.ListGoals(ctx, userID)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}

	now := time.Now()
	stats := services.Detailed(goals, now)

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	if err := w.store.SaveStatsSnapshot(ctx, userID, payload, now.UTC()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Stats snapshot refreshed", "user_id", userID)
	return nil
}

// RefreshAll recomputes snapshots for every user owning goals. Runs at
// worker startup and on the periodic timer; day boundaries move streaks
// and schedule windows even when no goal changed.
func (w *StatsWorker) RefreshAll(ctx context.Context) error {
	userIDs, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list user ids: %w", err)
	}

	if len(userIDs) == 0 {
		slog.InfoContext(ctx, "No users with goals, nothing to refresh")
		return nil
	}

	successCount := 0
	errorCount := 0
	for _, userID := range userIDs {
		if err := w.RefreshUser(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh user stats",
				"user_id", userID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Stats refresh completed",
		"total", len(userIDs),
		"refreshed", successCount,
		"errors", errorCount)
	return nil
}
