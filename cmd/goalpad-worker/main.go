package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"goalpad/internal/amqp"
	"goalpad/internal/cli"
	applog "goalpad/internal/log"
	"goalpad/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting goalpad-worker")

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	statsWorker := worker.NewStatsWorker(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Recompute everything on startup so snapshots never start stale
	if err := statsWorker.RefreshAll(ctx); err != nil {
		logger.Error("Startup stats refresh failed", "error", err)
		// Don't exit - the event stream will fill the gaps
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeGoalEvents(gctx, func(event *amqp.GoalEvent) error {
			return statsWorker.HandleGoalEvent(gctx, event)
		})
	})

	// Periodic full refresh: day rollovers move streaks and windows even
	// when no goal changes, and it also covers lost events.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.StatsRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := statsWorker.RefreshAll(gctx); err != nil {
					logger.Error("Periodic stats refresh failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
