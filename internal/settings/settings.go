// Package settings aggregates the full configuration surface enumerated in
// the reward pipeline's spec, with a Validate method that follows the
// teacher's ViewConfig.Validate() idiom: required fields missing is an
// error, optional fields are defaulted in place.
package settings

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// ShapleySettings carries the Shapley driver's tunables.
type ShapleySettings struct {
	OperatorUptime   float64 // [0,1]
	ContiguityBonus  float64 // >=0
	DemandMultiplier float64 // >0
}

func (s *ShapleySettings) validate() error {
	if s.OperatorUptime < 0 || s.OperatorUptime > 1 {
		return fmt.Errorf("settings: shapley.operator_uptime must be in [0,1], got %v", s.OperatorUptime)
	}
	if s.ContiguityBonus < 0 {
		return fmt.Errorf("settings: shapley.contiguity_bonus must be >= 0, got %v", s.ContiguityBonus)
	}
	if s.DemandMultiplier <= 0 {
		if s.DemandMultiplier == 0 {
			s.DemandMultiplier = 1.0
		} else {
			return fmt.Errorf("settings: shapley.demand_multiplier must be > 0, got %v", s.DemandMultiplier)
		}
	}
	return nil
}

// InetLookbackSettings carries the coverage accumulator's tunables.
type InetLookbackSettings struct {
	MinCoverageThreshold float64 // [0,1]
	MaxEpochsLookback    int     // [1,10]
	MinSamplesPerLink    int     // >=1
	DedupWindowUS        uint64  // >=1
	EnableAccumulator    bool
}

func (s *InetLookbackSettings) validate() error {
	if s.MinCoverageThreshold < 0 || s.MinCoverageThreshold > 1 {
		return fmt.Errorf("settings: inet_lookback.min_coverage_threshold must be in [0,1], got %v", s.MinCoverageThreshold)
	}
	if s.MaxEpochsLookback == 0 {
		s.MaxEpochsLookback = 5
	}
	if s.MaxEpochsLookback < 1 || s.MaxEpochsLookback > 10 {
		return fmt.Errorf("settings: inet_lookback.max_epochs_lookback must be in [1,10], got %d", s.MaxEpochsLookback)
	}
	if s.MinSamplesPerLink == 0 {
		s.MinSamplesPerLink = 1
	}
	if s.DedupWindowUS == 0 {
		s.DedupWindowUS = 1_000_000
	}
	return nil
}

// TelemetryDefaultsSettings carries the statistics kernel's dead-link and
// substitution tunables.
type TelemetryDefaultsSettings struct {
	MissingDataThreshold        float64 // [0,1]
	PrivateDefaultLatencyMS     float64 // >0
	EnablePreviousEpochLookup   bool
}

func (s *TelemetryDefaultsSettings) validate() error {
	if s.MissingDataThreshold < 0 || s.MissingDataThreshold > 1 {
		return fmt.Errorf("settings: telemetry_defaults.missing_data_threshold must be in [0,1], got %v", s.MissingDataThreshold)
	}
	if s.PrivateDefaultLatencyMS <= 0 {
		s.PrivateDefaultLatencyMS = 100
	}
	return nil
}

// SchedulerSettings carries the worker loop's tunables.
type SchedulerSettings struct {
	IntervalSeconds      int // >=1
	MaxConsecutiveFailures int // >=1
	StateFile            string
	EnableDryRun         bool
	Clock                clockwork.Clock
}

func (s *SchedulerSettings) validate() error {
	if s.IntervalSeconds == 0 {
		s.IntervalSeconds = 60
	}
	if s.IntervalSeconds < 1 {
		return fmt.Errorf("settings: scheduler.interval_seconds must be >= 1, got %d", s.IntervalSeconds)
	}
	if s.MaxConsecutiveFailures == 0 {
		s.MaxConsecutiveFailures = 5
	}
	if s.StateFile == "" {
		return fmt.Errorf("settings: scheduler.state_file is required")
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Interval returns the configured tick interval as a time.Duration.
func (s SchedulerSettings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// PrefixSettings carries the non-empty byte-string seed prefixes used for
// every ledger record address derivation.
type PrefixSettings struct {
	DeviceTelemetry     string
	InternetTelemetry   string
	ContributorRewards  string
	RewardInput         string
}

func (s *PrefixSettings) validate() error {
	for name, v := range map[string]string{
		"device_telemetry":    s.DeviceTelemetry,
		"internet_telemetry":  s.InternetTelemetry,
		"contributor_rewards": s.ContributorRewards,
		"reward_input":        s.RewardInput,
	} {
		if v == "" {
			return fmt.Errorf("settings: prefixes.%s is required and must be non-empty", name)
		}
	}
	return nil
}

// RPCSettings carries RPC endpoint configuration. The transport itself (and
// its retry knobs) is an external collaborator's concern; the core only
// needs the URLs and the shared RPS budget.
type RPCSettings struct {
	DZURL           string
	SolanaReadURL   string
	SolanaWriteURL  string
	RPSLimit        int // >=1
}

func (s *RPCSettings) validate() error {
	if s.DZURL == "" {
		return fmt.Errorf("settings: rpc.dz_url is required")
	}
	if s.SolanaReadURL == "" {
		return fmt.Errorf("settings: rpc.solana_read_url is required")
	}
	if s.SolanaWriteURL == "" {
		return fmt.Errorf("settings: rpc.solana_write_url is required")
	}
	if s.RPSLimit == 0 {
		s.RPSLimit = 10
	}
	return nil
}

// Settings aggregates the complete configuration surface.
type Settings struct {
	Shapley           ShapleySettings
	InetLookback      InetLookbackSettings
	TelemetryDefaults TelemetryDefaultsSettings
	Scheduler         SchedulerSettings
	Prefixes          PrefixSettings
	RPC               RPCSettings
}

// Validate checks every required field is present and defaults every
// optional field, following the teacher's ViewConfig.Validate() pattern.
func (s *Settings) Validate() error {
	if err := s.Shapley.validate(); err != nil {
		return err
	}
	if err := s.InetLookback.validate(); err != nil {
		return err
	}
	if err := s.TelemetryDefaults.validate(); err != nil {
		return err
	}
	if err := s.Scheduler.validate(); err != nil {
		return err
	}
	if err := s.Prefixes.validate(); err != nil {
		return err
	}
	if err := s.RPC.validate(); err != nil {
		return err
	}
	return nil
}
