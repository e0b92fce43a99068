package accumulator

import (
	"testing"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

func route(origin, target string) domain.InternetRouteKey {
	return domain.InternetRouteKey{OriginExchange: origin, TargetExchange: target, Provider: "isp"}
}

func sample(r domain.InternetRouteKey, epoch domain.Epoch, ts uint64, n int) domain.InternetTelemetrySample {
	rtt := make([]uint32, n)
	for i := range rtt {
		rtt[i] = uint32(10 + i)
	}
	return domain.InternetTelemetrySample{
		Epoch: epoch, Route: r, SamplingIntervalUS: 1000, StartTimestampUS: ts, RTTMicros: rtt,
	}
}

// TestEpochSkippingBug reproduces the regression scenario from spec §8
// scenario 4: an epoch that contributes zero new coverage must still be
// appended, because later epochs may depend on it for merge fidelity.
func TestEpochSkippingBug(t *testing.T) {
	routeA := route("FRA", "NYC")
	routeB := route("LON", "SIN")
	routeC := route("TOK", "SYD")
	routeD := route("AMS", "MIA")

	cfg := Config{MinCoverageRatio: 0.8, MaxEpochsLookback: 10, MinSamplesPerRoute: 1}
	acc := New(cfg, 4)

	epoch80 := EpochData{Epoch: 80, Samples: []domain.InternetTelemetrySample{
		sample(routeA, 80, 1000, 5), sample(routeB, 80, 1000, 5),
	}}
	gain80 := acc.CalculateCoverageGain(epoch80)
	if gain80 != 0.5 {
		t.Fatalf("epoch 80 gain = %v, want 0.5", gain80)
	}
	acc.AddEpoch(epoch80)
	if acc.CoverageRatio() != 0.5 {
		t.Fatalf("coverage after epoch 80 = %v, want 0.5", acc.CoverageRatio())
	}

	// epoch 79 repeats the same two routes: zero new gain, but must still
	// be appended.
	epoch79 := EpochData{Epoch: 79, Samples: []domain.InternetTelemetrySample{
		sample(routeA, 79, 2000, 5), sample(routeB, 79, 2000, 5),
	}}
	gain79 := acc.CalculateCoverageGain(epoch79)
	if gain79 != 0 {
		t.Fatalf("epoch 79 gain = %v, want 0", gain79)
	}
	acc.AddEpoch(epoch79)

	epoch78 := EpochData{Epoch: 78, Samples: []domain.InternetTelemetrySample{
		sample(routeC, 78, 500, 5), sample(routeD, 78, 500, 5),
	}}
	gain78 := acc.CalculateCoverageGain(epoch78)
	if gain78 != 0.5 {
		t.Fatalf("epoch 78 gain = %v, want 0.5", gain78)
	}
	acc.AddEpoch(epoch78)

	used := acc.EpochsUsed()
	if len(used) != 3 || used[0] != 80 || used[1] != 79 || used[2] != 78 {
		t.Fatalf("expected all three epochs retained in append order, got %v", used)
	}
	if acc.CoverageRatio() != 1.0 {
		t.Fatalf("final coverage ratio = %v, want 1.0", acc.CoverageRatio())
	}
	if !acc.IsThresholdMet() {
		t.Fatal("expected threshold met")
	}
	if acc.State() != StateThresholdMet {
		t.Fatalf("expected StateThresholdMet, got %v", acc.State())
	}
}

// TestRouteIndexDeterminism verifies that two accumulators fed the same
// routes in different per-epoch sample orders produce identical coverage
// ratios.
func TestRouteIndexDeterminism(t *testing.T) {
	routeA := route("A", "B")
	routeB := route("C", "D")
	routeC := route("E", "F")

	cfg := Config{MinCoverageRatio: 1.0, MaxEpochsLookback: 5, MinSamplesPerRoute: 1}

	acc1 := New(cfg, 3)
	epoch1 := EpochData{Epoch: 1, Samples: []domain.InternetTelemetrySample{
		sample(routeA, 1, 0, 5), sample(routeB, 1, 0, 5), sample(routeC, 1, 0, 5),
	}}
	acc1.AddEpoch(epoch1)

	acc2 := New(cfg, 3)
	epoch2 := EpochData{Epoch: 1, Samples: []domain.InternetTelemetrySample{
		sample(routeC, 1, 0, 5), sample(routeA, 1, 0, 5), sample(routeB, 1, 0, 5),
	}}
	acc2.AddEpoch(epoch2)

	if acc1.CoverageRatio() != acc2.CoverageRatio() {
		t.Fatalf("coverage ratios diverged: %v vs %v", acc1.CoverageRatio(), acc2.CoverageRatio())
	}
	if acc1.CoverageRatio() != 1.0 {
		t.Fatalf("expected full coverage, got %v", acc1.CoverageRatio())
	}
}

func TestMergeAll_PicksMostRecentSample(t *testing.T) {
	r := route("FRA", "NYC")
	cfg := Config{MinCoverageRatio: 1.0, MaxEpochsLookback: 5, MinSamplesPerRoute: 1}
	acc := New(cfg, 1)

	older := sample(r, 79, 1000, 3)
	newer := sample(r, 80, 5000, 3)
	newer.RTTMicros = []uint32{99, 98, 97}

	acc.AddEpoch(EpochData{Epoch: 80, Samples: []domain.InternetTelemetrySample{newer}})
	acc.AddEpoch(EpochData{Epoch: 79, Samples: []domain.InternetTelemetrySample{older}})

	merged := acc.MergeAll()
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged route, got %d", len(merged))
	}
	if merged[0].StartTimestampUS != 5000 {
		t.Fatalf("expected most recent sample kept, got start=%d", merged[0].StartTimestampUS)
	}
}

func TestCoverageGain_ZeroExpectedRoutes(t *testing.T) {
	acc := New(Config{MinSamplesPerRoute: 1}, 0)
	gain := acc.CalculateCoverageGain(EpochData{Epoch: 1})
	if gain != 0 {
		t.Fatalf("expected 0 gain with 0 expected routes, got %v", gain)
	}
}
