package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Defaults applied when env values are absent or unusable.
const (
	DefaultBatchSize         = 100
	DefaultMaxConcurrentRuns = 1
)

// Config is the immutable runtime configuration, loaded once at startup and
// passed explicitly into every constructor.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Inference service (OpenAI-compatible chat completions endpoint).
	LLMAPIKey      string        `env:"LLM_API_KEY,required"`
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://gigachat.devices.sberbank.ru/api/v1"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"GigaChat"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"8192"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.5"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Analysis.
	BatchSize          int    `env:"BATCH_SIZE" envDefault:"100"`
	PromptTemplatePath string `env:"PROMPT_TEMPLATE_PATH"`

	// Message dumps in, analysis reports out.
	DataDir   string `env:"DATA_DIR" envDefault:"./data"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./output"`

	// Event channel.
	EventsURL         string `env:"EVENTS_URL" envDefault:"nats://127.0.0.1:4222"`
	EventsToken       string `env:"EVENTS_TOKEN"`
	EventsSubject     string `env:"EVENTS_SUBJECT" envDefault:"tg.events"`
	CompletionSubject string `env:"COMPLETION_SUBJECT" envDefault:"tg.analysis"`

	// Trigger daemon.
	MaxConcurrentRuns int           `env:"MAX_CONCURRENT_RUNS" envDefault:"1"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"30m"`
	ShutdownGrace     time.Duration `env:"SHUTDOWN_GRACE" envDefault:"30s"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	normalize(cfg)

	return cfg, nil
}

// normalize clamps values that would break the run loop if set to nonsense.
func normalize(cfg *Config) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}
}
