// Package llm talks to the OpenAI-compatible inference endpoint that
// extracts discussion topics from chat message batches.
package llm

import (
	"context"
	"time"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

// BatchAnalysis is the outcome of one inference call over one message batch.
type BatchAnalysis struct {
	Discussions []domain.Discussion
	TokensUsed  int
	Model       string
	Latency     time.Duration
}

// Client sends a ready-built prompt to the inference service and returns
// the discussions extracted from it. Implementations classify failures
// with the core errors sentinels so callers can tell fatal from retryable.
type Client interface {
	AnalyzeBatch(ctx context.Context, prompt string) (*BatchAnalysis, error)
}
