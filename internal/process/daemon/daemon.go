// Package daemon turns fetcher events into analysis runs. A single
// listener consumes the event subject; each data_available event is
// dispatched to the orchestrator on its own goroutine so a slow run
// never stalls event consumption.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
	"github.com/discusslab/chat-analyzer/internal/platform/config"
	"github.com/discusslab/chat-analyzer/internal/platform/events"
	"github.com/discusslab/chat-analyzer/internal/platform/observability"
	"github.com/discusslab/chat-analyzer/internal/platform/worker"
	"github.com/discusslab/chat-analyzer/internal/process/analyzer"
	"github.com/discusslab/chat-analyzer/internal/storage"
)

const (
	serviceName = "chat-analyzer"

	payloadBuffer = 64

	reconnectInitialDelay = time.Second
	reconnectMaxDelay     = 30 * time.Second
)

// State models the daemon lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateListening
	StateDispatching
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateDispatching:
		return "dispatching"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Bus is the daemon's view of the event connection.
type Bus interface {
	Subscribe(subject string, handler func(subject string, data []byte)) error
	Publish(subject string, data any) error
}

var _ Bus = (*events.Client)(nil)

// Runner executes one analysis run.
type Runner interface {
	Run(ctx context.Context, chat, date string, force bool) (*domain.AnalysisResult, error)
}

var _ Runner = (*analyzer.Orchestrator)(nil)

type Daemon struct {
	cfg    *config.Config
	bus    Bus
	runner Runner
	logger *zerolog.Logger

	state    atomic.Int32
	payloads chan []byte
	slots    chan struct{}
	inFlight sync.WaitGroup

	reconnectDelay time.Duration
}

func New(cfg *config.Config, bus Bus, runner Runner, logger *zerolog.Logger) *Daemon {
	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = config.DefaultMaxConcurrentRuns
	}

	d := &Daemon{
		cfg:            cfg,
		bus:            bus,
		runner:         runner,
		logger:         logger,
		payloads:       make(chan []byte, payloadBuffer),
		slots:          make(chan struct{}, maxRuns),
		reconnectDelay: reconnectInitialDelay,
	}

	d.setState(StateDisconnected)

	return d
}

// State reports the current lifecycle state.
func (d *Daemon) State() State {
	return State(d.state.Load())
}

func (d *Daemon) setState(s State) {
	old := State(d.state.Swap(int32(s)))
	observability.DaemonState.Set(float64(s))

	if old != s {
		d.logger.Debug().Stringer("from", old).Stringer("to", s).Msg("Daemon state changed")
	}
}

// Run subscribes to the fetch event subject and dispatches analysis runs
// until ctx is canceled. It returns after in-flight dispatches finished
// or the shutdown grace period elapsed.
func (d *Daemon) Run(ctx context.Context) error {
	d.setState(StateConnecting)

	if err := d.subscribe(ctx); err != nil {
		d.setState(StateStopped)

		return err
	}

	d.setState(StateListening)
	d.logger.Info().
		Str("subject", d.cfg.EventsSubject).
		Int("max_concurrent_runs", cap(d.slots)).
		Msg("Daemon listening for fetch events")

	for {
		select {
		case <-ctx.Done():
			return d.shutdown()
		case payload := <-d.payloads:
			d.handlePayload(ctx, payload)
		}
	}
}

// subscribe keeps retrying with doubling backoff until the subscription
// is established or ctx is canceled.
func (d *Daemon) subscribe(ctx context.Context) error {
	delay := d.reconnectDelay

	for {
		err := d.bus.Subscribe(d.cfg.EventsSubject, d.enqueue)
		if err == nil {
			return nil
		}

		d.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Event subscription failed, retrying")

		if waitErr := worker.Wait(ctx, delay); waitErr != nil {
			return fmt.Errorf("subscribe: %w", waitErr)
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// enqueue runs on the subscription goroutine; it must never block the
// connection, so a full buffer drops the payload.
func (d *Daemon) enqueue(_ string, data []byte) {
	select {
	case d.payloads <- data:
	default:
		observability.EventsDiscarded.Inc()
		d.logger.Warn().Msg("Event buffer full, discarding payload")
	}
}

func (d *Daemon) handlePayload(ctx context.Context, payload []byte) {
	event, err := parseEvent(payload)
	if err != nil {
		observability.EventsDiscarded.Inc()
		d.logger.Warn().Err(err).Msg("Discarding malformed event")

		return
	}

	switch event.Event {
	case domain.EventDataAvailable:
		observability.EventsReceived.WithLabelValues(event.Event).Inc()
		d.setState(StateDispatching)
		d.dispatch(ctx, event)
		d.setState(StateListening)
	case domain.EventFetchFailed:
		observability.EventsReceived.WithLabelValues(event.Event).Inc()
		d.logger.Warn().
			Str("chat", event.Chat).
			Str("date", event.Date).
			Str("error", event.Error).
			Msg("Fetch failed upstream, nothing to analyze")
	default:
		observability.EventsDiscarded.Inc()
		d.logger.Warn().Str("event", event.Event).Msg("Discarding event of unknown type")
	}
}

// parseEvent rejects envelopes missing any of event, chat or date, and
// dates that are not a strict day.
func parseEvent(payload []byte) (*domain.FetchEvent, error) {
	var event domain.FetchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInvalidEvent, err)
	}

	if event.Event == "" || event.Chat == "" || event.Date == "" {
		return nil, fmt.Errorf("%w: missing event, chat or date", coreerrors.ErrInvalidEvent)
	}

	if err := storage.ValidateDate(event.Date); err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInvalidEvent, err)
	}

	return &event, nil
}

// dispatch hands the event to a goroutine. Slot waiting happens there,
// so a saturated semaphore delays the run, not the listener.
func (d *Daemon) dispatch(ctx context.Context, event *domain.FetchEvent) {
	d.inFlight.Add(1)

	go func() {
		defer d.inFlight.Done()
		defer worker.RecoverPanic(d.logger, "dispatch")

		select {
		case d.slots <- struct{}{}:
		case <-ctx.Done():
			d.logger.Info().
				Str("chat", event.Chat).
				Str("date", event.Date).
				Msg("Dispatch abandoned during shutdown")

			return
		}
		defer func() { <-d.slots }()

		d.runDispatch(ctx, event)
	}()
}

func (d *Daemon) runDispatch(ctx context.Context, event *domain.FetchEvent) {
	logger := d.logger.With().
		Str("correlation_id", uuid.New().String()).
		Str("chat", event.Chat).
		Str("date", event.Date).
		Logger()

	observability.DispatchesInFlight.Inc()
	defer observability.DispatchesInFlight.Dec()

	logger.Info().Int("messages", event.MessageCount).Msg("Dispatching analysis run")

	start := time.Now()

	var result *domain.AnalysisResult

	err := worker.RunWithTimeout(ctx, d.cfg.RunTimeout, func(runCtx context.Context) error {
		var runErr error
		result, runErr = d.runner.Run(runCtx, event.Chat, event.Date, false)

		return runErr
	})

	d.publishCompletion(&logger, event, result, err, time.Since(start))

	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Dispatch failed")

		return
	}

	logger.Info().
		Int("discussions", len(result.Discussions)).
		Dur("elapsed", time.Since(start)).
		Msg("Dispatch completed")
}

func (d *Daemon) publishCompletion(logger *zerolog.Logger, event *domain.FetchEvent, result *domain.AnalysisResult, runErr error, elapsed time.Duration) {
	completion := domain.AnalysisEvent{
		Event:           domain.EventAnalysisCompleted,
		Chat:            event.Chat,
		Date:            event.Date,
		DurationSeconds: elapsed.Seconds(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Service:         serviceName,
	}

	if runErr != nil {
		completion.Event = domain.EventAnalysisFailed
		completion.Error = runErr.Error()

		var batchErr *coreerrors.BatchError
		if coreerrors.As(runErr, &batchErr) {
			completion.Batch = batchErr.Batch
		}
	} else {
		completion.Discussions = len(result.Discussions)
		completion.TokensUsed = result.Metadata.TokensUsed
	}

	if err := d.bus.Publish(d.cfg.CompletionSubject, completion); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish completion event")
	}
}

// shutdown waits for in-flight dispatches up to the grace period. New
// payloads are no longer consumed.
func (d *Daemon) shutdown() error {
	d.setState(StateShuttingDown)
	d.logger.Info().
		Dur("grace", d.cfg.ShutdownGrace).
		Msg("Daemon shutting down, waiting for in-flight dispatches")

	done := make(chan struct{})

	go func() {
		d.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("All dispatches finished")
	case <-time.After(d.cfg.ShutdownGrace):
		d.logger.Warn().Msg("Shutdown grace period elapsed with dispatches still running")
	}

	d.setState(StateStopped)

	return nil
}
