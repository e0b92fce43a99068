package stats

import (
	"fmt"
	"math"
)

// JitterStats summarizes inter-packet delay variation (IPDV) over a window,
// in microseconds.
type JitterStats struct {
	AvgJitterUS     float64
	MaxJitterUS     float64
	EWMAJitterUS    float64
	DeltaStdDevUS   float64
	PeakToPeakUS    float64
}

// NewDeadJitterStats returns the sentinel used when a circuit has fewer than
// two usable (non-zero) samples in its window: every field is the configured
// penalty.
func NewDeadJitterStats(penaltyUS float64) JitterStats {
	return JitterStats{
		AvgJitterUS:   penaltyUS,
		MaxJitterUS:   penaltyUS,
		EWMAJitterUS:  penaltyUS,
		DeltaStdDevUS: penaltyUS,
		PeakToPeakUS:  penaltyUS,
	}
}

// ewmaAlpha is the EWMA smoothing factor used for the jitter estimate: 1/16.
const ewmaAlpha = 1.0 / 16.0

// CalculateJitterStatistics computes JitterStats over values[startIdx:endIdx].
// Zero-valued samples (lost probes) are dropped before deltas are computed,
// preserving temporal order of the remaining samples. Fewer than two
// surviving samples yields the dead sentinel.
func CalculateJitterStatistics(values []uint32, startIdx, endIdx int, deadPenaltyUS float64) (JitterStats, error) {
	if startIdx > endIdx {
		return JitterStats{}, fmt.Errorf("stats: jitter window start %d > end %d", startIdx, endIdx)
	}
	if startIdx >= len(values) || startIdx >= endIdx {
		return NewDeadJitterStats(deadPenaltyUS), nil
	}
	if endIdx > len(values) {
		endIdx = len(values)
	}

	var ordered []float64
	for _, v := range values[startIdx:endIdx] {
		if v != 0 {
			ordered = append(ordered, float64(v))
		}
	}
	if len(ordered) < 2 {
		return NewDeadJitterStats(deadPenaltyUS), nil
	}

	absDeltas := make([]float64, 0, len(ordered)-1)
	signedDeltas := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		d := ordered[i] - ordered[i-1]
		signedDeltas = append(signedDeltas, d)
		absDeltas = append(absDeltas, math.Abs(d))
	}

	ewma := absDeltas[0]
	for i := 1; i < len(absDeltas); i++ {
		ewma += (absDeltas[i] - ewma) * ewmaAlpha
	}

	var sumAbs, minAbs, maxAbs float64
	minAbs, maxAbs = absDeltas[0], absDeltas[0]
	for _, d := range absDeltas {
		sumAbs += d
		if d < minAbs {
			minAbs = d
		}
		if d > maxAbs {
			maxAbs = d
		}
	}
	avg := sumAbs / float64(len(absDeltas))

	var meanSigned float64
	for _, d := range signedDeltas {
		meanSigned += d
	}
	meanSigned /= float64(len(signedDeltas))
	var varSigned float64
	for _, d := range signedDeltas {
		diff := d - meanSigned
		varSigned += diff * diff
	}
	varSigned /= float64(len(signedDeltas))
	deltaStdDev := math.Sqrt(varSigned)

	return JitterStats{
		AvgJitterUS:   avg,
		MaxJitterUS:   maxAbs,
		EWMAJitterUS:  ewma,
		DeltaStdDevUS: deltaStdDev,
		PeakToPeakUS:  maxAbs - minAbs,
	}, nil
}
