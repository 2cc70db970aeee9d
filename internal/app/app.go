// Package app wires configuration, storage, the inference client and the
// event bus into runnable service modes:
//
//   - Daemon mode: subscribes to fetcher events and analyzes each chat day
//     as its dump becomes available
//   - Analyze mode: one-shot analysis of a single (chat, date) from the CLI
//   - Backfill mode: sweeps the data directory and analyzes days that
//     have no stored report, catching up after missed events
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/llm"
	"github.com/discusslab/chat-analyzer/internal/platform/config"
	"github.com/discusslab/chat-analyzer/internal/platform/events"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
	"github.com/discusslab/chat-analyzer/internal/process/analyzer"
	"github.com/discusslab/chat-analyzer/internal/process/backfill"
	"github.com/discusslab/chat-analyzer/internal/process/daemon"
	"github.com/discusslab/chat-analyzer/internal/storage"
)

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// RunDaemon runs the event-driven daemon mode. The health and metrics
// server runs alongside it, reporting readiness from the event
// connection.
func (a *App) RunDaemon(ctx context.Context) error {
	a.logger.Info().Msg("Starting daemon mode")

	bus, err := events.NewClient(a.cfg.EventsURL, a.cfg.EventsToken, a.logger)
	if err != nil {
		return fmt.Errorf("events client init: %w", err)
	}
	defer bus.Close()

	go a.startHealthServer(ctx, bus)

	store := storage.NewResultStore(a.cfg.OutputDir, a.logger)

	orch, err := a.newOrchestrator(a.cfg, store)
	if err != nil {
		return err
	}

	d := daemon.New(a.cfg, bus, orch, a.logger)

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon run: %w", err)
	}

	return nil
}

// RunAnalyze runs one analysis and prints a report summary to stdout.
// A batchSize of zero keeps the configured batch size.
func (a *App) RunAnalyze(ctx context.Context, chat, date string, force bool, batchSize int) error {
	a.logger.Info().Str("chat", chat).Str("date", date).Msg("Starting analyze mode")

	cfg := *a.cfg
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}

	store := storage.NewResultStore(cfg.OutputDir, a.logger)

	orch, err := a.newOrchestrator(&cfg, store)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, chat, date, force)
	if err != nil {
		return fmt.Errorf("analyze %s/%s: %w", chat, date, err)
	}

	printReport(os.Stdout, result, store.Path(chat, date))

	return nil
}

// RunBackfill analyzes every chat day that has a dump but no stored
// report. An empty chat sweeps all chats in the data directory.
func (a *App) RunBackfill(ctx context.Context, chat string) error {
	a.logger.Info().Str("chat", chat).Msg("Starting backfill mode")

	store := storage.NewResultStore(a.cfg.OutputDir, a.logger)

	orch, err := a.newOrchestrator(a.cfg, store)
	if err != nil {
		return err
	}

	source := storage.NewMessageSource(a.cfg.DataDir, a.logger)

	summary, err := backfill.New(source, store, orch, a.logger).Sweep(ctx, chat)
	if err != nil {
		return fmt.Errorf("backfill sweep: %w", err)
	}

	printBackfillSummary(os.Stdout, summary)

	if summary.Failed > 0 {
		return fmt.Errorf("backfill finished with %d failed day(s)", summary.Failed)
	}

	return nil
}

func (a *App) newOrchestrator(cfg *config.Config, store *storage.ResultStore) (*analyzer.Orchestrator, error) {
	prompts, err := llm.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("prompt builder init: %w", err)
	}

	source := storage.NewMessageSource(cfg.DataDir, a.logger)
	client := llm.WithRetry(llm.NewClient(cfg, a.logger), llm.DefaultRetryConfig(), a.logger)

	return analyzer.New(cfg, source, store, prompts, client, a.logger), nil
}

func (a *App) startHealthServer(ctx context.Context, ready observability.ReadyChecker) {
	srv := observability.NewServer(ready, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("health check server error")
	}
}
