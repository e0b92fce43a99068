package stats

import (
	"math"
	"sort"
)

// RTTStats summarizes a window of round-trip-time samples, in microseconds.
type RTTStats struct {
	MeanUS     float64
	MedianUS   float64
	MinUS      float64
	MaxUS      float64
	P90US      float64
	P95US      float64
	P99US      float64
	StdDevUS   float64
	VarianceUS float64
	MADUS      float64
}

// NewDeadRTTStats returns the sentinel used when a circuit has no usable
// samples: every location/percentile field is set to the configured penalty
// RTT, and every dispersion field is zero.
func NewDeadRTTStats(penaltyUS float64) RTTStats {
	return RTTStats{
		MeanUS:   penaltyUS,
		MedianUS: penaltyUS,
		MinUS:    penaltyUS,
		MaxUS:    penaltyUS,
		P90US:    penaltyUS,
		P95US:    penaltyUS,
		P99US:    penaltyUS,
	}
}

// CalculateRTTStatistics computes RTTStats over the given RTT samples
// (already windowed to [start_idx, end_idx)). An empty input yields the dead
// sentinel; this is not an error.
func CalculateRTTStatistics(values []uint32, deadPenaltyUS float64) (RTTStats, error) {
	if len(values) == 0 {
		return NewDeadRTTStats(deadPenaltyUS), nil
	}

	fvals := make([]float64, len(values))
	for i, v := range values {
		fvals[i] = float64(v)
	}
	sorted := append([]float64(nil), fvals...)
	sort.Float64s(sorted)

	n := len(sorted)

	// Welford's online algorithm, population variance.
	var mean, m2 float64
	for i, v := range fvals {
		delta := v - mean
		mean += delta / float64(i+1)
		delta2 := v - mean
		m2 += delta * delta2
	}
	variance := m2 / float64(n)
	stddev := math.Sqrt(variance)

	median := medianOf(sorted)
	mad := medianAbsoluteDeviation(sorted, median)

	return RTTStats{
		MeanUS:     mean,
		MedianUS:   median,
		MinUS:      sorted[0],
		MaxUS:      sorted[n-1],
		P90US:      percentile(sorted, mean, 0.90),
		P95US:      percentile(sorted, mean, 0.95),
		P99US:      percentile(sorted, mean, 0.99),
		StdDevUS:   stddev,
		VarianceUS: variance,
		MADUS:      mad,
	}, nil
}

// medianOf returns the midpoint average for even n, or the single middle
// value for odd n, over an already-sorted slice.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile uses the "ceil(n*p) - 1, clamped at 0" index rule, falling back
// to mean if the index would be out of range.
func percentile(sorted []float64, mean, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return mean
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		return mean
	}
	return sorted[idx]
}

// medianAbsoluteDeviation computes the median of |v - median| deviations,
// itself via the same even/odd midpoint rule.
func medianAbsoluteDeviation(sorted []float64, median float64) float64 {
	deviations := make([]float64, len(sorted))
	for i, v := range sorted {
		deviations[i] = math.Abs(v - median)
	}
	sort.Float64s(deviations)
	return medianOf(deviations)
}
