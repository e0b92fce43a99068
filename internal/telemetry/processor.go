// Package telemetry groups raw device and internet telemetry samples by
// circuit and runs the statistics kernel over each bin, grounded on the
// original implementation's dzd_telemetry_processor.rs.
package telemetry

import (
	"github.com/malbeclabs/contributor-rewards/internal/domain"
	"github.com/malbeclabs/contributor-rewards/internal/stats"
)

// Config carries the tunables the processors need from the telemetry
// defaults configuration surface.
type Config struct {
	DeadLinkPenaltyRTTUS float64
	WindowAfterUS        uint64
	WindowBeforeUS       uint64
}

// CircuitStats bundles the three statistics kernel outputs for one circuit.
type CircuitStats struct {
	RTT              stats.RTTStats
	Jitter           stats.JitterStats
	PacketLossRatio  float64
	SampleCount      int
	MissingDataRatio float64
}

// DeviceStatsMap maps a device circuit to its computed statistics.
type DeviceStatsMap map[domain.DeviceCircuitKey]CircuitStats

// InternetStatsMap maps an internet route to its computed statistics.
type InternetStatsMap map[domain.InternetRouteKey]CircuitStats

// ProcessDeviceTelemetry bins device telemetry samples by circuit key and
// computes per-circuit statistics. Samples are not reordered; each bin's
// window is applied independently of the others.
func ProcessDeviceTelemetry(samples []domain.TelemetrySample, cfg Config) (DeviceStatsMap, error) {
	bins := map[domain.DeviceCircuitKey][]domain.TelemetrySample{}
	for _, s := range samples {
		key := domain.DeviceCircuitKey{OriginDevice: s.Origin, TargetDevice: s.Target, Link: s.Link}
		bins[key] = append(bins[key], s)
	}

	out := make(DeviceStatsMap, len(bins))
	for key, binSamples := range bins {
		circuitStats, err := computeCircuitStats(binSamples, cfg)
		if err != nil {
			return nil, err
		}
		out[key] = circuitStats
	}
	return out, nil
}

// ProcessInternetTelemetry bins internet telemetry samples by route and
// computes per-route statistics. Otherwise identical to
// ProcessDeviceTelemetry.
func ProcessInternetTelemetry(samples []domain.InternetTelemetrySample, cfg Config) (InternetStatsMap, error) {
	bins := map[domain.InternetRouteKey][]domain.InternetTelemetrySample{}
	for _, s := range samples {
		bins[s.Route] = append(bins[s.Route], s)
	}

	out := make(InternetStatsMap, len(bins))
	for key, binSamples := range bins {
		var flattened []uint32
		nonSentinel := 0
		for _, s := range binSamples {
			w := stats.ComputeWindow(s.StartTimestampUS, s.SamplingIntervalUS, len(s.RTTMicros), cfg.WindowAfterUS, cfg.WindowBeforeUS)
			windowed := s.RTTMicros[w.StartIdx:w.EndIdx]
			flattened = append(flattened, windowed...)
			for _, v := range windowed {
				if v != 0 {
					nonSentinel++
				}
			}
		}

		rtt, err := stats.CalculateRTTStatistics(flattened, cfg.DeadLinkPenaltyRTTUS)
		if err != nil {
			return nil, err
		}
		jitter, err := stats.CalculateJitterStatistics(flattened, 0, len(flattened), cfg.DeadLinkPenaltyRTTUS)
		if err != nil {
			return nil, err
		}

		lossRatio, err := lossRatioFromCounts(len(flattened), nonSentinel)
		if err != nil {
			return nil, err
		}

		out[key] = CircuitStats{
			RTT:              rtt,
			Jitter:           jitter,
			PacketLossRatio:  lossRatio,
			SampleCount:      len(flattened),
			MissingDataRatio: lossRatio,
		}
	}
	return out, nil
}

func computeCircuitStats(samples []domain.TelemetrySample, cfg Config) (CircuitStats, error) {
	var flattened []uint32
	nonSentinel := 0
	for _, s := range samples {
		w := stats.ComputeWindow(s.StartTimestampUS, s.SamplingIntervalUS, len(s.RTTMicros), cfg.WindowAfterUS, cfg.WindowBeforeUS)
		windowed := s.RTTMicros[w.StartIdx:w.EndIdx]
		flattened = append(flattened, windowed...)
		for _, v := range windowed {
			if v != 0 {
				nonSentinel++
			}
		}
	}

	rtt, err := stats.CalculateRTTStatistics(flattened, cfg.DeadLinkPenaltyRTTUS)
	if err != nil {
		return CircuitStats{}, err
	}
	jitter, err := stats.CalculateJitterStatistics(flattened, 0, len(flattened), cfg.DeadLinkPenaltyRTTUS)
	if err != nil {
		return CircuitStats{}, err
	}
	lossRatio, err := lossRatioFromCounts(len(flattened), nonSentinel)
	if err != nil {
		return CircuitStats{}, err
	}

	return CircuitStats{
		RTT:              rtt,
		Jitter:           jitter,
		PacketLossRatio:  lossRatio,
		SampleCount:      len(flattened),
		MissingDataRatio: lossRatio,
	}, nil
}

// lossRatioFromCounts treats every windowed sample as "expected" and every
// non-zero sample as "actual received", reusing the packet-loss formula from
// the statistics kernel.
func lossRatioFromCounts(expected, actual int) (float64, error) {
	return stats.CalculatePacketLoss(uint64(expected), uint64(actual))
}
