package stats

import (
	"math"
	"testing"
)

func almostEqual(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v (tol %v)", name, got, want, tol)
	}
}

func TestCalculateRTTStatistics(t *testing.T) {
	values := []uint32{100, 200, 300, 400, 500}
	got, err := CalculateRTTStatistics(values, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	almostEqual(t, "mean", got.MeanUS, 300, 1e-9)
	almostEqual(t, "median", got.MedianUS, 300, 1e-9)
	almostEqual(t, "stddev", got.StdDevUS, 141.421356, 1e-5)
	almostEqual(t, "variance", got.VarianceUS, 20000, 1e-6)
	almostEqual(t, "mad", got.MADUS, 100, 1e-9)
	almostEqual(t, "min", got.MinUS, 100, 1e-9)
	almostEqual(t, "max", got.MaxUS, 500, 1e-9)
}

func TestCalculateRTTStatistics_Empty(t *testing.T) {
	got, err := CalculateRTTStatistics(nil, 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := NewDeadRTTStats(9999)
	if got != want {
		t.Errorf("dead sentinel mismatch: got %+v, want %+v", got, want)
	}
}

func TestCalculateJitterStatistics(t *testing.T) {
	values := []uint32{100, 150, 140, 180, 170}
	got, err := CalculateJitterStatistics(values, 0, len(values), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	almostEqual(t, "avg", got.AvgJitterUS, 27.5, 1e-9)
	almostEqual(t, "max", got.MaxJitterUS, 50, 1e-9)
	almostEqual(t, "peak_to_peak", got.PeakToPeakUS, 40, 1e-9)
	almostEqual(t, "ewma", got.EWMAJitterUS, 44.716797, 1e-4)
}

func TestCalculateJitterStatistics_DropsZeros(t *testing.T) {
	values := []uint32{100, 0, 150, 0, 140}
	got, err := CalculateJitterStatistics(values, 0, len(values), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Non-zero survivors in order: 100, 150, 140 -> deltas 50, -10.
	almostEqual(t, "avg", got.AvgJitterUS, 30, 1e-9)
	almostEqual(t, "max", got.MaxJitterUS, 50, 1e-9)
}

func TestCalculateJitterStatistics_TooFewSamples(t *testing.T) {
	got, err := CalculateJitterStatistics([]uint32{100}, 0, 1, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != NewDeadJitterStats(500) {
		t.Errorf("expected dead sentinel, got %+v", got)
	}
}

func TestCalculatePacketLoss(t *testing.T) {
	ratio, err := CalculatePacketLoss(100, 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	almostEqual(t, "ratio", ratio, 0.2, 1e-9)

	ratio, err = CalculatePacketLoss(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	almostEqual(t, "zero-expected ratio", ratio, 0, 1e-9)
}

func TestCalculatePacketLoss_ActualExceedsExpected(t *testing.T) {
	if _, err := CalculatePacketLoss(10, 11); err == nil {
		t.Fatal("expected fatal error when actual exceeds expected")
	}
}

func TestCalculatePacketLossStats(t *testing.T) {
	got := CalculatePacketLossStats([]uint32{1, 0, 2, 0, 3})
	if got.TotalSamples != 5 || got.LostSamples != 2 {
		t.Fatalf("unexpected stats: %+v", got)
	}
	almostEqual(t, "loss ratio", got.LossRatio, 0.4, 1e-9)
}

func TestComputeWindow(t *testing.T) {
	w := ComputeWindow(1000, 100, 10, 1200, 1700)
	if w.StartIdx != 2 || w.EndIdx != 7 {
		t.Fatalf("unexpected window: %+v", w)
	}
}
