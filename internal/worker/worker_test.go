package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
)

type fakeEpochSource struct {
	epoch uint64
	err   error
}

func (f *fakeEpochSource) CurrentEpoch(ctx context.Context) (uint64, error) {
	return f.epoch, f.err
}

type fakePipeline struct {
	existing map[uint64]bool
	runCount int
	runErr   error
}

func (f *fakePipeline) RecordsExist(ctx context.Context, epoch uint64) (bool, error) {
	return f.existing[epoch], nil
}

func (f *fakePipeline) Run(ctx context.Context, epoch uint64) error {
	f.runCount++
	if f.runErr != nil {
		return f.runErr
	}
	if f.existing == nil {
		f.existing = map[uint64]bool{}
	}
	f.existing[epoch] = true
	return nil
}

func newTestWorker(t *testing.T, epochs EpochSource, pipeline Pipeline) *Worker {
	t.Helper()
	stateFile := filepath.Join(t.TempDir(), "state.json")
	w, err := New(Config{StateFile: stateFile, MaxConsecutiveFailures: 3, Clock: clockwork.NewFakeClock()}, epochs, pipeline, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing worker: %v", err)
	}
	return w
}

// TestWorker_IdempotentAcrossTicks reproduces the worker-idempotency scenario:
// starting at last_processed_epoch=41 with the ledger reporting epoch 43, the
// first tick processes epoch 42; the second tick sees from its state that
// epoch 42 is already processed and returns before the ledger check, with no
// duplicate write.
func TestWorker_IdempotentAcrossTicks(t *testing.T) {
	epochs := &fakeEpochSource{epoch: 43}
	pipeline := &fakePipeline{existing: map[uint64]bool{}}

	w := newTestWorker(t, epochs, pipeline)
	w.state.MarkSuccess(41)

	processed, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on first tick: %v", err)
	}
	if !processed {
		t.Fatal("expected first tick to process epoch 42")
	}
	if pipeline.runCount != 1 {
		t.Fatalf("expected pipeline to run exactly once, got %d", pipeline.runCount)
	}
	if got := *w.state.LastProcessedEpoch; got != 42 {
		t.Fatalf("expected last processed epoch 42, got %d", got)
	}

	processed, err = w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on second tick: %v", err)
	}
	if processed {
		t.Fatal("expected second tick to be a no-op")
	}
	if pipeline.runCount != 1 {
		t.Fatalf("expected no additional pipeline run, got %d total", pipeline.runCount)
	}
}

// TestWorker_SkipsWhenLedgerAlreadyHasRecords covers the case where the
// worker's own state file was lost but the ledger already holds the
// records: the pre-write existence check still prevents a duplicate write.
func TestWorker_SkipsWhenLedgerAlreadyHasRecords(t *testing.T) {
	epochs := &fakeEpochSource{epoch: 43}
	pipeline := &fakePipeline{existing: map[uint64]bool{42: true}}

	w := newTestWorker(t, epochs, pipeline)

	processed, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatal("expected tick to skip, records already present on ledger")
	}
	if pipeline.runCount != 0 {
		t.Fatalf("expected no pipeline run, got %d", pipeline.runCount)
	}
	if got := *w.state.LastProcessedEpoch; got != 42 {
		t.Fatalf("expected state to be backfilled to 42, got %d", got)
	}
}

func TestWorker_CircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	epochs := &fakeEpochSource{epoch: 43}
	pipeline := &fakePipeline{runErr: errors.New("boom")}

	w := newTestWorker(t, epochs, pipeline)

	for i := 0; i < 3; i++ {
		if _, err := w.Tick(context.Background()); err == nil {
			t.Fatalf("expected failure on tick %d", i)
		}
	}

	_, err := w.Tick(context.Background())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit breaker to trip, got %v", err)
	}
	if pipeline.runCount != 3 {
		t.Fatalf("expected circuit to stop further runs, pipeline ran %d times", pipeline.runCount)
	}
}

func TestWorker_DryRunDoesNotAdvanceState(t *testing.T) {
	epochs := &fakeEpochSource{epoch: 43}
	pipeline := &fakePipeline{existing: map[uint64]bool{}}

	stateFile := filepath.Join(t.TempDir(), "state.json")
	w, err := New(Config{StateFile: stateFile, DryRun: true, Clock: clockwork.NewFakeClock()}, epochs, pipeline, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	processed, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatal("expected dry run tick to report no work done")
	}
	if pipeline.runCount != 0 {
		t.Fatalf("expected dry run to never invoke pipeline.Run, got %d", pipeline.runCount)
	}
	if w.state.LastProcessedEpoch != nil {
		t.Fatal("expected dry run to leave state untouched")
	}
}
