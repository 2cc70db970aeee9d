package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
	"github.com/discusslab/chat-analyzer/internal/platform/worker"
)

const (
	defaultMaxAttempts  = 4
	defaultInitialDelay = 1 * time.Second
	delayMultiplier     = 2
)

// RetryConfig configures the backoff policy for inference calls.
// The policy is fixed at construction and never changes mid-run.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
	}
}

type retryingClient struct {
	inner  Client
	cfg    RetryConfig
	logger *zerolog.Logger
}

// WithRetry wraps a client so AnalyzeBatch retries rate-limited and
// transient failures with exponential backoff, and retries a malformed
// response exactly once with the same prompt. Auth failures are never
// retried.
func WithRetry(inner Client, cfg RetryConfig, logger *zerolog.Logger) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}

	return &retryingClient{inner: inner, cfg: cfg, logger: logger}
}

func (r *retryingClient) AnalyzeBatch(ctx context.Context, prompt string) (*BatchAnalysis, error) {
	var lastErr error

	delay := r.cfg.InitialDelay
	malformedRetried := false

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		res, err := r.inner.AnalyzeBatch(ctx, prompt)
		if err == nil {
			return res, nil
		}

		lastErr = err

		switch {
		case coreerrors.Is(err, coreerrors.ErrMalformedResponse):
			if malformedRetried || attempt == r.cfg.MaxAttempts {
				return nil, err
			}

			malformedRetried = true
			observability.LLMRetries.WithLabelValues("malformed").Inc()
			r.logger.Warn().Err(err).Msg("Malformed inference response, retrying batch once")
		case coreerrors.IsRetryable(err):
			if attempt == r.cfg.MaxAttempts {
				return nil, err
			}

			observability.LLMRetries.WithLabelValues(retryReason(err)).Inc()
			r.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("Inference call failed, backing off")

			if werr := worker.Wait(ctx, delay); werr != nil {
				return nil, fmt.Errorf("retry interrupted: %w", werr)
			}

			delay *= delayMultiplier
		default:
			return nil, err
		}
	}

	return nil, lastErr
}

func retryReason(err error) string {
	if coreerrors.Is(err, coreerrors.ErrRateLimited) {
		return "rate_limited"
	}

	return "transient"
}
