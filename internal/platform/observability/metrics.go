package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_events_received_total",
		Help: "The total number of events received from the event channel",
	}, []string{"event"})

	EventsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_events_discarded_total",
		Help: "The total number of malformed events discarded by the daemon",
	})

	DaemonState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_daemon_state",
		Help: "Current daemon state (0=disconnected, 1=connecting, 2=listening, 3=dispatching, 4=shutting_down, 5=stopped)",
	})

	DispatchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_dispatches_in_flight",
		Help: "Number of orchestration runs currently executing",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_runs_total",
		Help: "The total number of analysis runs by outcome",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_run_duration_seconds",
		Help:    "Duration of a full analysis run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	BatchesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_batches_processed_total",
		Help: "The total number of batches sent to the inference service",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analyzer_llm_request_duration_seconds",
		Help:    "Duration of inference requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_llm_retries_total",
		Help: "The total number of inference retries by failure class",
	}, []string{"reason"})

	LLMTokensUsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_llm_tokens_total",
		Help: "Total tokens consumed by inference calls",
	})

	LLMCircuitBreakerOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_llm_circuit_breaker_opens_total",
		Help: "Total number of times the inference circuit breaker opened",
	})

	ReportDiscussions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_report_discussions",
		Help:    "Number of discussions retained per saved report",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	LinkViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_link_violations_total",
		Help: "Total number of discussions dropped for unresolvable message links",
	})

	BackfillDays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_backfill_days_total",
		Help: "The total number of chat days examined by backfill sweeps",
	}, []string{"status"})
)
