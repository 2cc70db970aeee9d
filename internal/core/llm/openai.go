package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
	"github.com/discusslab/chat-analyzer/internal/platform/config"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimiterBurst        = 1

	errRateLimiter = "rate limiter wait: %w"
)

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewClient builds the production inference client. The endpoint is any
// OpenAI-compatible chat completion API; the base URL and model come from
// config (GigaChat by default).
func NewClient(cfg *config.Config, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	clientCfg.BaseURL = cfg.LLMBaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.LLMTimeout}

	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), rateLimiterBurst),
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", coreerrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		observability.LLMCircuitBreakerOpens.Inc()
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) AnalyzeBatch(ctx context.Context, prompt string) (*BatchAnalysis, error) {
	if err := c.checkCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.LLMModel,
		Temperature: c.cfg.LLMTemperature,
		MaxTokens:   c.cfg.LLMMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	latency := time.Since(start)
	observability.LLMRequestDuration.WithLabelValues(c.cfg.LLMModel).Observe(latency.Seconds())

	if err != nil {
		c.recordFailure()

		return nil, classifyRequestError(err)
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", coreerrors.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug().Int("chars", len(content)).Msg("Inference response received")

	discussions, err := ParseBatchResponse(content)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.cfg.LLMModel
	}

	observability.LLMTokensUsed.Add(float64(resp.Usage.TotalTokens))

	return &BatchAnalysis{
		Discussions: discussions,
		TokensUsed:  resp.Usage.TotalTokens,
		Model:       model,
		Latency:     latency,
	}, nil
}

// classifyRequestError maps transport and API failures onto the sentinel
// taxonomy: 401/403 auth (fatal), 429 rate limited, 5xx and timeouts
// transient. Anything else from the API surfaces unclassified and fatal.
func classifyRequestError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatusCode(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatusCode(reqErr.HTTPStatusCode, err)
	}

	// No HTTP status at all: timeout or transport failure.
	return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
}

func classifyStatusCode(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", coreerrors.ErrAuth, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", coreerrors.ErrRateLimited, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", coreerrors.ErrTransient, err)
	default:
		return fmt.Errorf("inference request failed: %w", err)
	}
}
