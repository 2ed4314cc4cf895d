package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/caliper/internal/anthropic"
	"github.com/MikeSquared-Agency/caliper/internal/api"
	"github.com/MikeSquared-Agency/caliper/internal/batch"
	"github.com/MikeSquared-Agency/caliper/internal/config"
	"github.com/MikeSquared-Agency/caliper/internal/events"
	"github.com/MikeSquared-Agency/caliper/internal/notify"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/store"
)

func main() {
	batchDir := flag.String("batch", "", "analyze every transcript in this directory, then exit")
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, slog.Default())
	llm.SetTimeout(cfg.LLMTimeout)
	if cfg.LLMMaxAttempts > 0 {
		llm.SetRetry(cfg.LLMMaxAttempts, 0, 0)
	}
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	pipe := pipeline.New(llm, cfg.Catalog, slog.Default())

	// Database (optional for single-analysis serving, required for batch)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, analyses will not be persisted")
	}

	if *batchDir != "" {
		runBatch(ctx, cfg, pipe, db, *batchDir)
		return
	}

	slog.Info("caliper starting", "port", cfg.Port)

	srv := api.NewServer(cfg.Port, pipe, db, slog.Default())

	// NATS (optional)
	if cfg.NatsURL != "" {
		bus, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		srv.SetPublisher(bus)
		slog.Info("NATS connected", "url", cfg.NatsURL)
		if err := bus.Register(cfg.Port); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	// Slack poster (optional, alerts on urgent calls only)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		srv.SetNotifier(notify.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default()))
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, urgent alerts disabled")
	}

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("caliper ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("caliper stopped")
}

func runBatch(ctx context.Context, cfg config.Config, pipe *pipeline.Pipeline, db *store.Store, dir string) {
	if db == nil {
		slog.Error("DATABASE_URL is required for batch mode")
		os.Exit(1)
	}

	runner := batch.NewRunner(batch.Config{
		Dir:       dir,
		BatchSize: cfg.BatchSize,
		Pause:     cfg.BatchPause,
		ExportDir: cfg.ExportDir,
	}, pipe, db, slog.Default())

	summary, err := runner.Run(ctx)
	if err != nil {
		slog.Error("batch run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("batch complete",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"artifacts", len(summary.Exported),
	)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
