// Package worker implements the orchestrator/worker loop: epoch selection,
// per-epoch state persistence, idempotency checks, and the
// consecutive-failure circuit breaker, grounded on the original
// implementation's worker/runner.rs and the teacher's ticker-loop idiom
// (indexer/pkg/sol/view.go, indexer/pkg/indexer/indexer.go). The loop has
// no panic recovery.
package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the worker's persisted per-tick bookkeeping, atomically
// rewritten on every tick (write-to-temp then rename).
type State struct {
	LastProcessedEpoch *uint64   `json:"last_processed_epoch"`
	LastCheckTimestamp time.Time `json:"last_check_ts"`
	ConsecutiveFailures uint32   `json:"consecutive_failures"`
}

// LoadOrDefault reads the state file at path, returning a zero-value State
// if the file does not exist.
func LoadOrDefault(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("worker: read state file: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("worker: parse state file: %w", err)
	}
	return &s, nil
}

// Save atomically persists the state: write to a temp file in the same
// directory, then rename over the target path.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("worker: marshal state: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("worker: create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("worker: write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("worker: close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("worker: rename temp state file: %w", err)
	}
	return nil
}

// MarkCheck records that the worker observed the ledger-host epoch at now.
func (s *State) MarkCheck(now time.Time) {
	s.LastCheckTimestamp = now
}

// MarkSuccess records a successfully processed epoch and resets the
// consecutive-failure counter.
func (s *State) MarkSuccess(epoch uint64) {
	s.LastProcessedEpoch = &epoch
	s.ConsecutiveFailures = 0
}

// MarkFailure increments the consecutive-failure counter.
func (s *State) MarkFailure() {
	s.ConsecutiveFailures++
}

// IsInFailureState reports whether the consecutive-failure count has
// reached the configured circuit-break threshold.
func (s *State) IsInFailureState(maxConsecutiveFailures uint32) bool {
	return s.ConsecutiveFailures >= maxConsecutiveFailures
}

// ShouldProcessEpoch reports whether target is strictly newer than the last
// successfully processed epoch.
func (s *State) ShouldProcessEpoch(target uint64) bool {
	if s.LastProcessedEpoch == nil {
		return true
	}
	return target > *s.LastProcessedEpoch
}
