// Package backfill scans the data directory for chat days that have a
// message dump but no stored report and analyzes each of them. It is
// the operator-driven counterpart of the event daemon: after missed
// events (fetcher downtime, bus outage) one sweep catches the store up.
package backfill

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
	"github.com/discusslab/chat-analyzer/internal/process/analyzer"
	"github.com/discusslab/chat-analyzer/internal/storage"
)

// Day statuses reported to the backfill counter.
const (
	statusAnalyzed = "analyzed"
	statusUpToDate = "up_to_date"
	statusFailed   = "failed"
)

// Source lists the dumps available for analysis.
type Source interface {
	ListChats() ([]string, error)
	ListDates(chat string) ([]string, error)
}

// Store answers whether a day already has a stored report.
type Store interface {
	Exists(chat, date string) bool
}

// Runner executes one analysis run.
type Runner interface {
	Run(ctx context.Context, chat, date string, force bool) (*domain.AnalysisResult, error)
}

var (
	_ Source = (*storage.MessageSource)(nil)
	_ Store  = (*storage.ResultStore)(nil)
	_ Runner = (*analyzer.Orchestrator)(nil)
)

// Summary is the outcome of one sweep.
type Summary struct {
	Scanned  int
	Analyzed int
	Failed   int
}

// Pending reports how many scanned days lacked a report when the sweep
// started.
func (s Summary) Pending() int {
	return s.Analyzed + s.Failed
}

type Sweeper struct {
	source Source
	store  Store
	runner Runner
	logger *zerolog.Logger
}

func New(source Source, store Store, runner Runner, logger *zerolog.Logger) *Sweeper {
	return &Sweeper{
		source: source,
		store:  store,
		runner: runner,
		logger: logger,
	}
}

// Sweep analyzes every (chat, date) that has a dump but no report yet,
// one run at a time, newest days first. A non-empty chat narrows the
// scan to that chat. A failed day is logged and counted, and the sweep
// moves on; only cancellation stops it early.
func (s *Sweeper) Sweep(ctx context.Context, chat string) (Summary, error) {
	chats, err := s.chats(chat)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary

	for _, c := range chats {
		dates, err := s.source.ListDates(c)
		if err != nil {
			return summary, fmt.Errorf("list dates for %s: %w", c, err)
		}

		for _, date := range dates {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("sweep interrupted: %w", err)
			}

			summary.Scanned++

			if s.store.Exists(c, date) {
				observability.BackfillDays.WithLabelValues(statusUpToDate).Inc()

				continue
			}

			if err := s.analyzeDay(ctx, c, date); err != nil {
				if ctx.Err() != nil {
					return summary, fmt.Errorf("sweep interrupted: %w", ctx.Err())
				}

				summary.Failed++

				continue
			}

			summary.Analyzed++
		}
	}

	s.logger.Info().
		Int("scanned", summary.Scanned).
		Int("analyzed", summary.Analyzed).
		Int("failed", summary.Failed).
		Msg("Backfill sweep finished")

	return summary, nil
}

func (s *Sweeper) chats(chat string) ([]string, error) {
	if chat != "" {
		return []string{storage.NormalizeChat(chat)}, nil
	}

	chats, err := s.source.ListChats()
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	return chats, nil
}

func (s *Sweeper) analyzeDay(ctx context.Context, chat, date string) error {
	s.logger.Info().Str("chat", chat).Str("date", date).Msg("Backfilling day")

	// force stays false: if a report appeared since the Exists check,
	// the run returns it without touching the inference service.
	_, err := s.runner.Run(ctx, chat, date, false)
	if err != nil {
		if ctx.Err() == nil {
			observability.BackfillDays.WithLabelValues(statusFailed).Inc()
			s.logger.Error().Err(err).Str("chat", chat).Str("date", date).Msg("Backfill run failed")
		}

		return err
	}

	observability.BackfillDays.WithLabelValues(statusAnalyzed).Inc()

	return nil
}
