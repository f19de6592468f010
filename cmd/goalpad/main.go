package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goalpad/internal/amqp"
	"goalpad/internal/auth"
	"goalpad/internal/cli"
	apphttp "goalpad/internal/http"
	applog "goalpad/internal/log"
	"goalpad/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	// AMQP is optional for the API process; without it goal events are
	// simply not published and the worker falls back to its timer.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, goal events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	}

	authSvc := auth.NewService(store, cfg.SessionTTL)
	goalSvc := services.NewGoalService(store, events)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	}, store, authSvc, goalSvc, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting goalpad server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
