package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/app"
	"github.com/discusslab/chat-analyzer/internal/platform/config"
)

const dateLayout = "2006-01-02"

func main() {
	mode := flag.String("mode", "daemon", "Service mode (daemon, analyze, backfill)")
	chat := flag.String("chat", "", "Chat identifier (required for analyze, optional filter for backfill)")
	date := flag.String("date", "", "Day to analyze, YYYY-MM-DD; empty means yesterday UTC (analyze mode)")
	force := flag.Bool("force", false, "Re-analyze even when a stored report exists (analyze mode)")
	batchSize := flag.Int("batch-size", 0, "Messages per inference call; 0 keeps the configured size (analyze mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)

	if err := runMode(ctx, application, *mode, *chat, *date, *force, *batchSize); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode, chat, date string, force bool, batchSize int) error {
	switch mode {
	case "daemon":
		return application.RunDaemon(ctx)
	case "analyze":
		if chat == "" {
			log.Fatalf("Usage: %s --mode=analyze --chat=<chat> [--date=YYYY-MM-DD] [--force] [--batch-size=N]", os.Args[0])
		}

		day, err := resolveDate(date)
		if err != nil {
			return err
		}

		return application.RunAnalyze(ctx, chat, day, force, batchSize)
	case "backfill":
		return application.RunBackfill(ctx, chat)
	default:
		log.Fatalf("Usage: %s --mode=[daemon|analyze|backfill]", os.Args[0])

		return nil
	}
}

// resolveDate normalizes the --date flag to YYYY-MM-DD, accepting any
// layout dateparse understands. Empty means yesterday UTC, the day the
// fetcher most recently completed.
func resolveDate(date string) (string, error) {
	if date == "" {
		return time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout), nil
	}

	t, err := dateparse.ParseAny(date)
	if err != nil {
		return "", fmt.Errorf("unparseable date %q: %w", date, err)
	}

	return t.Format(dateLayout), nil
}
