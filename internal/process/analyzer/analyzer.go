// Package analyzer runs the full analysis of one chat day: load the
// dump, analyze it batch by batch, merge, validate links and persist
// the report. A run either covers every message of the day or fails
// as a whole; partial reports are never written.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
	"github.com/discusslab/chat-analyzer/internal/core/llm"
	"github.com/discusslab/chat-analyzer/internal/platform/config"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
	"github.com/discusslab/chat-analyzer/internal/process/links"
	"github.com/discusslab/chat-analyzer/internal/process/merge"
	"github.com/discusslab/chat-analyzer/internal/storage"
)

// Run statuses reported to the runs counter.
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

type MessageSource interface {
	Load(chat, date string) (*domain.MessageDump, error)
}

type ResultStore interface {
	Load(chat, date string) (*domain.AnalysisResult, error)
	Save(chat, date string, result *domain.AnalysisResult) (string, error)
}

// Compile-time assertions that the file-backed stores satisfy the
// orchestrator's view of them.
var (
	_ MessageSource = (*storage.MessageSource)(nil)
	_ ResultStore   = (*storage.ResultStore)(nil)
)

type Orchestrator struct {
	cfg     *config.Config
	source  MessageSource
	store   ResultStore
	prompts *llm.PromptBuilder
	client  llm.Client
	logger  *zerolog.Logger
}

func New(cfg *config.Config, source MessageSource, store ResultStore, prompts *llm.PromptBuilder, client llm.Client, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		source:  source,
		store:   store,
		prompts: prompts,
		client:  client,
		logger:  logger,
	}
}

// Run analyzes one (chat, date). With force unset, an already stored
// report is returned as is without touching the inference service.
func (o *Orchestrator) Run(ctx context.Context, chat, date string, force bool) (*domain.AnalysisResult, error) {
	logger := o.logger.With().Str("chat", chat).Str("date", date).Logger()

	if !force {
		stored, err := o.store.Load(chat, date)
		if err == nil {
			logger.Info().Msg("Analysis already exists, returning stored result")
			observability.RunsTotal.WithLabelValues(statusSkipped).Inc()

			return stored, nil
		}

		if !coreerrors.Is(err, coreerrors.ErrNotFound) {
			observability.RunsTotal.WithLabelValues(statusFailed).Inc()

			return nil, err
		}
	}

	start := time.Now()

	result, err := o.analyze(ctx, &logger, chat, date)
	if err != nil {
		observability.RunsTotal.WithLabelValues(statusFailed).Inc()

		return nil, err
	}

	observability.RunsTotal.WithLabelValues(statusOK).Inc()
	observability.RunDuration.Observe(time.Since(start).Seconds())
	observability.ReportDiscussions.Observe(float64(len(result.Discussions)))

	logger.Info().
		Int("discussions", len(result.Discussions)).
		Int("tokens", result.Metadata.TokensUsed).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis run completed")

	return result, nil
}

func (o *Orchestrator) analyze(ctx context.Context, logger *zerolog.Logger, chat, date string) (*domain.AnalysisResult, error) {
	dump, err := o.source.Load(chat, date)
	if err != nil {
		return nil, err
	}

	batches := PartitionBatches(dump.Messages, o.batchSize())

	logger.Info().
		Int("messages", len(dump.Messages)).
		Int("batches", len(batches)).
		Msg("Starting analysis run")

	var (
		tagged  []merge.TaggedDiscussion
		tokens  int
		latency time.Duration
		model   string
	)

	for i, batch := range batches {
		// A canceled run stops before the next call; whatever was
		// already analyzed is discarded.
		if err := ctx.Err(); err != nil {
			observability.BatchesProcessed.WithLabelValues(statusFailed).Inc()

			return nil, coreerrors.NewBatchError(i+1, len(batches), err)
		}

		analysis, err := o.analyzeBatch(ctx, logger, dump, date, batch, i, len(batches))
		if err != nil {
			observability.BatchesProcessed.WithLabelValues(statusFailed).Inc()

			return nil, coreerrors.NewBatchError(i+1, len(batches), err)
		}

		observability.BatchesProcessed.WithLabelValues(statusOK).Inc()

		for _, d := range analysis.Discussions {
			tagged = append(tagged, merge.TaggedDiscussion{Discussion: d, Batch: i})
		}

		tokens += analysis.TokensUsed
		latency += analysis.Latency

		if analysis.Model != "" {
			model = analysis.Model
		}
	}

	merged := merge.Merge(tagged)

	kept, violations := links.Filter(merged, dump.IDSet(), dump.SourceInfo.URL)
	for _, v := range violations {
		observability.LinkViolations.Inc()
		logger.Warn().
			Str("topic", v.Topic).
			Str("link", v.Link).
			Str("reason", v.Reason).
			Msg("Dropping discussion with invalid message link")
	}

	result := &domain.AnalysisResult{
		Metadata: domain.AnalysisMetadata{
			Chat:             chat,
			ChatUsername:     dump.Username(),
			Date:             date,
			AnalyzedAt:       time.Now().UTC(),
			TotalMessages:    len(dump.Messages),
			AnalyzedMessages: len(dump.Messages),
			TokensUsed:       tokens,
			Model:            model,
			LatencySeconds:   latency.Seconds(),
			DiscussionStats:  merge.Stats(kept),
		},
		Discussions: kept,
	}

	path, err := o.store.Save(chat, date, result)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Analysis result saved")

	return result, nil
}

func (o *Orchestrator) analyzeBatch(ctx context.Context, logger *zerolog.Logger, dump *domain.MessageDump, date string, batch []domain.Message, index, total int) (*llm.BatchAnalysis, error) {
	prompt, err := o.prompts.Build(dump, date, batch)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	logger.Info().
		Int("batch", index+1).
		Int("batches", total).
		Int("messages", len(batch)).
		Msg("Analyzing batch")

	analysis, err := o.client.AnalyzeBatch(ctx, prompt)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("batch", index+1).
		Int("discussions", len(analysis.Discussions)).
		Int("tokens", analysis.TokensUsed).
		Msg("Batch analyzed")

	return analysis, nil
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.BatchSize > 0 {
		return o.cfg.BatchSize
	}

	return config.DefaultBatchSize
}

// PartitionBatches splits messages into contiguous batches of at most
// size messages, preserving order. The last batch may be smaller.
func PartitionBatches(messages []domain.Message, size int) [][]domain.Message {
	if size <= 0 {
		size = config.DefaultBatchSize
	}

	if len(messages) == 0 {
		return nil
	}

	batches := make([][]domain.Message, 0, (len(messages)+size-1)/size)

	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}

		batches = append(batches, messages[start:end])
	}

	return batches
}
