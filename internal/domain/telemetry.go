package domain

import "fmt"

// TelemetrySample is a single epoch's worth of RTT probes for one circuit.
// A zero RTT value denotes a lost probe. End = Start + count*Interval.
type TelemetrySample struct {
	Epoch                Epoch
	Origin               PublicKey
	Target               PublicKey
	Link                 string // device link code, or data-provider name for internet telemetry
	SamplingIntervalUS   uint64
	StartTimestampUS      uint64
	RTTMicros            []uint32
}

// EndTimestampUS returns Start + count*Interval.
func (s TelemetrySample) EndTimestampUS() uint64 {
	return s.StartTimestampUS + uint64(len(s.RTTMicros))*s.SamplingIntervalUS
}

// DeviceCircuitKey identifies a device-telemetry circuit: origin device,
// target device, and the link connecting them.
type DeviceCircuitKey struct {
	OriginDevice PublicKey
	TargetDevice PublicKey
	Link         string
}

// Less gives DeviceCircuitKey a total order for deterministic iteration.
func (k DeviceCircuitKey) Less(o DeviceCircuitKey) bool {
	if c := k.OriginDevice.Compare(o.OriginDevice); c != 0 {
		return c < 0
	}
	if c := k.TargetDevice.Compare(o.TargetDevice); c != 0 {
		return c < 0
	}
	return k.Link < o.Link
}

func (k DeviceCircuitKey) String() string {
	return fmt.Sprintf("%s->%s/%s", k.OriginDevice, k.TargetDevice, k.Link)
}

// InternetRouteKey identifies an internet-telemetry circuit: origin exchange,
// target exchange, and data provider. Mirrors the Rust source's RouteKey,
// which is the coverage accumulator's unit of coverage.
type InternetRouteKey struct {
	OriginExchange string
	TargetExchange string
	Provider       string
}

// Less gives InternetRouteKey a total order. The accumulator depends on this
// order being insertion-order-independent so that two runs fed the same
// routes in different per-epoch orders assign identical bitmap indices.
func (k InternetRouteKey) Less(o InternetRouteKey) bool {
	if k.OriginExchange != o.OriginExchange {
		return k.OriginExchange < o.OriginExchange
	}
	if k.TargetExchange != o.TargetExchange {
		return k.TargetExchange < o.TargetExchange
	}
	return k.Provider < o.Provider
}

func (k InternetRouteKey) String() string {
	return fmt.Sprintf("%s->%s/%s", k.OriginExchange, k.TargetExchange, k.Provider)
}

// InternetTelemetrySample is a single epoch's probes for one internet route.
type InternetTelemetrySample struct {
	Epoch              Epoch
	Route              InternetRouteKey
	SamplingIntervalUS uint64
	StartTimestampUS   uint64
	RTTMicros          []uint32
}

func (s InternetTelemetrySample) EndTimestampUS() uint64 {
	return s.StartTimestampUS + uint64(len(s.RTTMicros))*s.SamplingIntervalUS
}

func (s InternetTelemetrySample) nonSentinelCount() int {
	n := 0
	for _, v := range s.RTTMicros {
		if v != 0 {
			n++
		}
	}
	return n
}

// NonSentinelCount reports how many non-zero RTT samples this telemetry
// sample carries, used by the coverage accumulator's min-samples-per-route
// gate.
func (s InternetTelemetrySample) NonSentinelCount() int {
	return s.nonSentinelCount()
}
