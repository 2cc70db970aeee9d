package backfill

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

type fakeSource struct {
	chats    []string
	dates    map[string][]string
	datesErr error
}

func (f *fakeSource) ListChats() ([]string, error) {
	return f.chats, nil
}

func (f *fakeSource) ListDates(chat string) ([]string, error) {
	if f.datesErr != nil {
		return nil, f.datesErr
	}

	return f.dates[chat], nil
}

type fakeStore struct {
	exists map[string]bool
}

func (f *fakeStore) Exists(chat, date string) bool {
	return f.exists[chat+"/"+date]
}

type fakeRunner struct {
	runs     []string
	failures map[string]error

	onRun func()
}

func (f *fakeRunner) Run(_ context.Context, chat, date string, force bool) (*domain.AnalysisResult, error) {
	if force {
		return nil, errors.New("backfill must never force a re-run")
	}

	key := chat + "/" + date
	f.runs = append(f.runs, key)

	if f.onRun != nil {
		f.onRun()
	}

	if err, ok := f.failures[key]; ok {
		return nil, err
	}

	return &domain.AnalysisResult{}, nil
}

func newSweeper(source *fakeSource, store *fakeStore, runner *fakeRunner) *Sweeper {
	logger := zerolog.Nop()

	return New(source, store, runner, &logger)
}

func TestSweep_AnalyzesOnlyMissingDays(t *testing.T) {
	source := &fakeSource{
		chats: []string{"ru_python", "rust_chat"},
		dates: map[string][]string{
			"ru_python": {"2025-11-05", "2025-11-04", "2025-11-03"},
			"rust_chat": {"2025-11-05"},
		},
	}
	store := &fakeStore{exists: map[string]bool{
		"ru_python/2025-11-04": true,
		"rust_chat/2025-11-05": true,
	}}
	runner := &fakeRunner{}

	summary, err := newSweeper(source, store, runner).Sweep(context.Background(), "")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if summary.Scanned != 4 || summary.Analyzed != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want scanned 4, analyzed 2, failed 0", summary)
	}

	want := []string{"ru_python/2025-11-05", "ru_python/2025-11-03"}
	if len(runner.runs) != len(want) {
		t.Fatalf("runs = %v, want %v", runner.runs, want)
	}

	for i, key := range want {
		if runner.runs[i] != key {
			t.Errorf("runs[%d] = %q, want %q", i, runner.runs[i], key)
		}
	}
}

func TestSweep_ChatFilterNarrowsScan(t *testing.T) {
	source := &fakeSource{
		chats: []string{"ru_python", "rust_chat"},
		dates: map[string][]string{
			"ru_python": {"2025-11-05"},
			"rust_chat": {"2025-11-05"},
		},
	}
	runner := &fakeRunner{}

	summary, err := newSweeper(source, &fakeStore{}, runner).Sweep(context.Background(), "@rust_chat")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if summary.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1", summary.Scanned)
	}

	if len(runner.runs) != 1 || runner.runs[0] != "rust_chat/2025-11-05" {
		t.Errorf("runs = %v, want the filtered chat only", runner.runs)
	}
}

func TestSweep_FailedDayDoesNotStopTheSweep(t *testing.T) {
	source := &fakeSource{
		chats: []string{"ru_python"},
		dates: map[string][]string{
			"ru_python": {"2025-11-05", "2025-11-04"},
		},
	}
	runner := &fakeRunner{failures: map[string]error{
		"ru_python/2025-11-05": errors.New("inference unavailable"),
	}}

	summary, err := newSweeper(source, &fakeStore{}, runner).Sweep(context.Background(), "")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if summary.Analyzed != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want analyzed 1, failed 1", summary)
	}

	if summary.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", summary.Pending())
	}

	if len(runner.runs) != 2 {
		t.Errorf("runs = %v, want both days attempted", runner.runs)
	}
}

func TestSweep_CancellationStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := &fakeSource{
		chats: []string{"ru_python"},
		dates: map[string][]string{
			"ru_python": {"2025-11-05", "2025-11-04", "2025-11-03"},
		},
	}
	runner := &fakeRunner{onRun: cancel}
	runner.failures = map[string]error{
		"ru_python/2025-11-05": context.Canceled,
	}

	summary, err := newSweeper(source, &fakeStore{}, runner).Sweep(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sweep() error = %v, want context.Canceled", err)
	}

	if len(runner.runs) != 1 {
		t.Errorf("runs = %v, want 1 (no runs after cancel)", runner.runs)
	}

	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0 (interruption is not a day failure)", summary.Failed)
	}
}

func TestSweep_ListDatesErrorAborts(t *testing.T) {
	source := &fakeSource{
		chats:    []string{"ru_python"},
		datesErr: fmt.Errorf("read data dir: permission denied"),
	}

	_, err := newSweeper(source, &fakeStore{}, &fakeRunner{}).Sweep(context.Background(), "")
	if err == nil {
		t.Fatal("Sweep() error = nil, want listing failure")
	}
}

func TestSweep_EmptyDataDir(t *testing.T) {
	source := &fakeSource{}
	runner := &fakeRunner{}

	summary, err := newSweeper(source, &fakeStore{}, runner).Sweep(context.Background(), "")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if summary.Scanned != 0 || len(runner.runs) != 0 {
		t.Errorf("summary = %+v with runs %v, want nothing scanned", summary, runner.runs)
	}
}
