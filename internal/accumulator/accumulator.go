// Package accumulator implements the multi-epoch internet-telemetry
// coverage accumulator: the hardest subsystem in the pipeline, grounded on
// the original implementation's ingestor/inet_accumulator.rs.
package accumulator

import (
	"sort"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// Config carries the accumulator's tunables from the inet_lookback
// configuration surface.
type Config struct {
	MinCoverageRatio  float64
	MaxEpochsLookback int
	DedupWindowUS     uint64
	MinSamplesPerRoute int
}

// State is the accumulator's coverage state machine.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateThresholdMet
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateThresholdMet:
		return "threshold_met"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// EpochData is one epoch's worth of internet telemetry samples to be
// appended to the accumulator.
type EpochData struct {
	Epoch   domain.Epoch
	Samples []domain.InternetTelemetrySample
}

// Accumulator walks epochs backward from a target epoch, merging per-route
// samples until a coverage threshold is met or a lookback bound is reached.
type Accumulator struct {
	config         Config
	expectedRoutes int

	epochs         []EpochData
	routeIndex     map[domain.InternetRouteKey]int
	coverageBitmap []bool
}

// New constructs an Accumulator configured to expect the given number of
// distinct routes.
func New(config Config, expectedRoutes int) *Accumulator {
	return &Accumulator{
		config:         config,
		expectedRoutes: expectedRoutes,
		routeIndex:     make(map[domain.InternetRouteKey]int),
		coverageBitmap: make([]bool, expectedRoutes),
	}
}

// updateRouteIndex assigns a bitmap index to route on first observation.
// Callers visit each epoch's samples in the route's total order, so two
// accumulators fed the same routes in different per-epoch sample orders
// still produce identical indices and, downstream, identical coverage
// ratios. Indices are never
// reassigned once allocated and allocation stops once expectedRoutes slots
// are filled.
func (a *Accumulator) updateRouteIndex(route domain.InternetRouteKey) (int, bool) {
	if idx, ok := a.routeIndex[route]; ok {
		return idx, true
	}
	if len(a.routeIndex) >= a.expectedRoutes {
		return -1, false
	}
	idx := len(a.routeIndex)
	a.routeIndex[route] = idx
	return idx, true
}

// CalculateCoverageGain counts routes in epochData that meet the
// min-samples-per-route gate, are admitted into the route index (which
// grows as a side effect of this call), and are not yet represented in the
// global coverage bitmap. The returned ratio is new_routes/expected_routes,
// 0 when expected_routes is 0.
func (a *Accumulator) CalculateCoverageGain(epochData EpochData) float64 {
	if a.expectedRoutes == 0 {
		return 0
	}

	seen := map[domain.InternetRouteKey]bool{}
	newRoutes := 0
	samples := append([]domain.InternetTelemetrySample(nil), epochData.Samples...)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Route.Less(samples[j].Route) })
	for _, sample := range samples {
		if seen[sample.Route] {
			continue
		}
		if sample.NonSentinelCount() < a.config.MinSamplesPerRoute {
			continue
		}
		idx, ok := a.updateRouteIndex(sample.Route)
		if !ok {
			continue
		}
		seen[sample.Route] = true
		if !a.coverageBitmap[idx] {
			newRoutes++
		}
	}
	return float64(newRoutes) / float64(a.expectedRoutes)
}

// AddEpoch always appends epochData's samples and updates the global bitmap,
// even when the epoch contributes zero new coverage: overlapping data from
// adjacent epochs improves downstream per-route fidelity even when it does
// not increase breadth.
func (a *Accumulator) AddEpoch(epochData EpochData) {
	samples := append([]domain.InternetTelemetrySample(nil), epochData.Samples...)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Route.Less(samples[j].Route) })
	for _, sample := range samples {
		if sample.NonSentinelCount() < a.config.MinSamplesPerRoute {
			continue
		}
		idx, ok := a.updateRouteIndex(sample.Route)
		if !ok {
			continue
		}
		a.coverageBitmap[idx] = true
	}
	a.epochs = append(a.epochs, epochData)
}

// CoverageRatio returns count(set bits)/expectedRoutes, 0 when
// expectedRoutes is 0.
func (a *Accumulator) CoverageRatio() float64 {
	if a.expectedRoutes == 0 {
		return 0
	}
	count := 0
	for _, set := range a.coverageBitmap {
		if set {
			count++
		}
	}
	return float64(count) / float64(a.expectedRoutes)
}

// IsThresholdMet reports whether CoverageRatio has reached the configured
// minimum.
func (a *Accumulator) IsThresholdMet() bool {
	return a.CoverageRatio() >= a.config.MinCoverageRatio
}

// State reports the accumulator's current position in its state machine.
func (a *Accumulator) State() State {
	switch {
	case len(a.epochs) == 0:
		return StateEmpty
	case a.IsThresholdMet():
		return StateThresholdMet
	case len(a.epochs) >= a.config.MaxEpochsLookback:
		return StateExhausted
	default:
		return StateAccumulating
	}
}

// EpochsUsed returns the epoch numbers appended so far, in append order.
func (a *Accumulator) EpochsUsed() []domain.Epoch {
	out := make([]domain.Epoch, len(a.epochs))
	for i, e := range a.epochs {
		out[i] = e.Epoch
	}
	return out
}

// MergeAll concatenates every appended sample, groups by route, sorts each
// group by start timestamp ascending, and keeps the most recent sample per
// route as the canonical representative.
func (a *Accumulator) MergeAll() []domain.InternetTelemetrySample {
	groups := map[domain.InternetRouteKey][]domain.InternetTelemetrySample{}
	var order []domain.InternetRouteKey
	for _, epoch := range a.epochs {
		for _, sample := range epoch.Samples {
			if _, seen := groups[sample.Route]; !seen {
				order = append(order, sample.Route)
			}
			groups[sample.Route] = append(groups[sample.Route], sample)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	merged := make([]domain.InternetTelemetrySample, 0, len(order))
	for _, route := range order {
		samples := groups[route]
		sort.SliceStable(samples, func(i, j int) bool {
			return samples[i].StartTimestampUS < samples[j].StartTimestampUS
		})
		merged = append(merged, samples[len(samples)-1])
	}
	return merged
}
