package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrCircuitOpen is returned by Tick when the consecutive-failure circuit
// breaker has tripped; the caller must stop ticking until an operator
// intervenes.
var ErrCircuitOpen = errors.New("worker: circuit breaker open")

// EpochSource resolves the ledger's current epoch.
type EpochSource interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
}

// Pipeline runs one epoch's worth of the reward computation: ingest,
// compute, normalize, and record. RecordsExist reports whether an epoch's
// output records are already present on the ledger, giving the worker an
// idempotency check independent of its own state file.
type Pipeline interface {
	RecordsExist(ctx context.Context, epoch uint64) (bool, error)
	Run(ctx context.Context, epoch uint64) error
}

// Config carries the worker loop's tunables, mirroring
// settings.SchedulerSettings but decoupled from the settings package so the
// worker can be driven directly in tests.
type Config struct {
	StateFile              string
	MaxConsecutiveFailures uint32
	DryRun                 bool
	Clock                  clockwork.Clock
}

// Worker is the epoch-ticking orchestrator: on every tick it resolves the
// current epoch, decides whether the prior epoch needs processing, checks
// ledger idempotency, and runs the pipeline — tripping a circuit breaker
// after too many consecutive failures.
type Worker struct {
	cfg      Config
	epochs   EpochSource
	pipeline Pipeline
	log      *slog.Logger

	state *State
}

// New constructs a Worker, loading (or initializing) its state file.
func New(cfg Config, epochs EpochSource, pipeline Pipeline, log *slog.Logger) (*Worker, error) {
	if cfg.StateFile == "" {
		return nil, errors.New("worker: state file is required")
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	state, err := LoadOrDefault(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	return &Worker{cfg: cfg, epochs: epochs, pipeline: pipeline, log: log, state: state}, nil
}

// Tick runs a single iteration of the worker loop. It returns (true, nil)
// when an epoch was newly processed, (false, nil) when there was nothing to
// do (already processed, or already present on the ledger), and a non-nil
// error — possibly ErrCircuitOpen — otherwise.
func (w *Worker) Tick(ctx context.Context) (bool, error) {
	if w.state.IsInFailureState(w.cfg.MaxConsecutiveFailures) {
		return false, ErrCircuitOpen
	}

	log := w.log.With("run_id", uuid.New().String())

	w.state.MarkCheck(w.cfg.Clock.Now())

	current, err := w.epochs.CurrentEpoch(ctx)
	if err != nil {
		w.state.MarkFailure()
		w.saveState()
		return false, fmt.Errorf("worker: resolve current epoch: %w", err)
	}
	if current == 0 {
		return false, nil
	}
	target := current - 1

	if !w.state.ShouldProcessEpoch(target) {
		log.Debug("worker: epoch already processed", "epoch", target)
		return false, nil
	}

	exists, err := w.pipeline.RecordsExist(ctx, target)
	if err != nil {
		w.state.MarkFailure()
		w.saveState()
		return false, fmt.Errorf("worker: check existing records for epoch %d: %w", target, err)
	}
	if exists {
		log.Info("worker: records already present, skipping", "epoch", target)
		w.state.MarkSuccess(target)
		w.saveState()
		return false, nil
	}

	if w.cfg.DryRun {
		log.Info("worker: dry run, not writing", "epoch", target)
		return false, nil
	}

	if err := w.pipeline.Run(ctx, target); err != nil {
		w.state.MarkFailure()
		w.saveState()
		if w.state.IsInFailureState(w.cfg.MaxConsecutiveFailures) {
			log.Error("worker: circuit breaker tripped", "consecutive_failures", w.state.ConsecutiveFailures)
		}
		return false, fmt.Errorf("worker: run pipeline for epoch %d: %w", target, err)
	}

	w.state.MarkSuccess(target)
	w.saveState()
	log.Info("worker: processed epoch", "epoch", target)
	return true, nil
}

// Run ticks every interval until ctx is canceled or the circuit breaker
// trips. It returns ctx.Err() on cancellation, or ErrCircuitOpen.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := w.cfg.Clock.NewTicker(interval)
	defer ticker.Stop()

	if _, err := w.Tick(ctx); err != nil && !errors.Is(err, ErrCircuitOpen) {
		w.log.Error("worker: tick failed", "err", err)
	} else if errors.Is(err, ErrCircuitOpen) {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			_, err := w.Tick(ctx)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrCircuitOpen) {
				return err
			}
			w.log.Error("worker: tick failed", "err", err)
		}
	}
}

// State returns the worker's current persisted state, for inspection in
// tests and CLI status reporting.
func (w *Worker) State() State {
	return *w.state
}

func (w *Worker) saveState() {
	if err := w.state.Save(w.cfg.StateFile); err != nil {
		w.log.Error("worker: failed to persist state", "err", err)
	}
}
