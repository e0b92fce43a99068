package stats

import "fmt"

// CalculatePacketLoss computes clamp((expected-actual)/expected, 0, 1). It is
// a fatal error for actual to exceed expected: that represents an impossible
// measurement (more samples observed than the window could have produced).
func CalculatePacketLoss(expected, actual uint64) (float64, error) {
	if actual > expected {
		return 0, fmt.Errorf("stats: actual packet count %d exceeds expected %d", actual, expected)
	}
	if expected == 0 {
		return 0, nil
	}
	ratio := float64(expected-actual) / float64(expected)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio, nil
}

// PacketLossStats is a simpler success/loss tally over raw samples, distinct
// from CalculatePacketLoss's expected-vs-actual ratio.
type PacketLossStats struct {
	TotalSamples int
	LostSamples  int
	LossRatio    float64
}

// CalculatePacketLossStats counts zero-valued (lost) samples against the
// total sample count.
func CalculatePacketLossStats(samples []uint32) PacketLossStats {
	stats := PacketLossStats{TotalSamples: len(samples)}
	for _, v := range samples {
		if v == 0 {
			stats.LostSamples++
		}
	}
	if stats.TotalSamples > 0 {
		stats.LossRatio = float64(stats.LostSamples) / float64(stats.TotalSamples)
	}
	return stats
}
