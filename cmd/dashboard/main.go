// dashboard runs the headless dashboard client: it keeps a resilient event
// channel to the dashboard server, mirrors the activity feed and stats
// locally, and optionally records activity history to Postgres.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainboard/chainboard/internal/config"
	"github.com/chainboard/chainboard/internal/connection"
	"github.com/chainboard/chainboard/internal/dashboard"
	"github.com/chainboard/chainboard/internal/database"
	"github.com/chainboard/chainboard/internal/gateway"
	"github.com/chainboard/chainboard/internal/model"
	"github.com/chainboard/chainboard/internal/recorder"
	"github.com/chainboard/chainboard/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.example.yaml", "path to config file")
	refreshEvery := flag.Duration("refresh", 30*time.Second, "stats refresh interval")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dashboard client",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"ws_url", cfg.WS.URL,
		"api_url", cfg.API.BaseURL,
		"persistence", cfg.Database.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional activity persistence
	var rec *recorder.Recorder
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(cfg.Recorder, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			rec.Stop(stopCtx)
		}()
	}

	// Dashboard state fed by the event channel
	state := dashboard.NewState(cfg.Dashboard.ActivityLimit, logger)
	handlers := state.Handlers()
	if rec != nil {
		feed := handlers.OnActivity
		handlers.OnActivity = func(item model.ActivityItem) {
			feed(item)
			rec.Record(item)
		}
	}

	// Request gateway for stats refreshes
	gwOpts := []gateway.Option{
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithLogger(logger),
	}
	if cfg.API.CSRFHeader != "" {
		gwOpts = append(gwOpts, gateway.WithCSRF(cfg.API.CSRFHeader, cfg.API.CSRFToken))
	}
	statsGateway := gateway.New[model.DashboardStats](cfg.API.BaseURL, gwOpts...)

	// Connection manager for the event channel
	mgr := connection.NewManager(connection.Config{
		URL: cfg.WS.URL,
		Retry: connection.RetryPolicy{
			BaseInterval: cfg.WS.ReconnectInterval,
			Cap:          cfg.WS.ReconnectCap,
			MaxAttempts:  cfg.WS.MaxReconnectAttempts,
		},
		HeartbeatInterval: cfg.WS.HeartbeatInterval,
		ConnectTimeout:    cfg.WS.ConnectTimeout,
		WriteTimeout:      cfg.WS.WriteTimeout,
	}, logger)
	mgr.SetHandlers(handlers)

	if err := mgr.Connect(ctx); err != nil {
		// Retries are already scheduled; the client keeps running.
		logger.Warn("initial connect failed, retrying in background", "error", err)
	}
	defer mgr.Disconnect()
	defer statsGateway.CancelAll()

	// Seed the stats snapshot, then refresh periodically.
	state.RefreshStats(ctx, statsGateway)

	refreshTicker := time.NewTicker(*refreshEvery)
	defer refreshTicker.Stop()

	statusTicker := time.NewTicker(time.Minute)
	defer statusTicker.Stop()

	logger.Info("dashboard client running")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")
			logger.Info("dashboard client stopped")
			return

		case <-refreshTicker.C:
			state.RefreshStats(ctx, statsGateway)

		case <-statusTicker.C:
			snap := state.Snapshot()
			health := mgr.Health()
			logger.Info("dashboard snapshot",
				"status", snap.Status,
				"block_height", snap.Stats.BlockHeight,
				"peers", snap.Stats.PeerCount,
				"feed_entries", len(snap.Activity),
				"reconnect_attempts", health.ReconnectAttempts,
				"since_pong", health.TimeSinceLastPong,
			)
		}
	}
}
