// Package metrics rebuilds the teacher's metrics package (filtered out of
// the retrieval pack but referenced throughout its view.go files as
// metrics.ViewRefreshTotal / metrics.ViewRefreshDuration) for this module's
// own components, using the same prometheus/client_golang promauto pattern
// and call shape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ViewRefreshTotal counts refresh attempts for a named view/component, by
// outcome ("success", "error", "panic").
var ViewRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contributor_rewards_view_refresh_total",
	Help: "Total number of view refresh attempts, by view and status.",
}, []string{"view", "status"})

// ViewRefreshDuration observes refresh wall-clock duration in seconds for a
// named view/component.
var ViewRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "contributor_rewards_view_refresh_duration_seconds",
	Help:    "Duration of view refresh operations, by view.",
	Buckets: prometheus.DefBuckets,
}, []string{"view"})

// WorkerTickTotal counts worker loop ticks by outcome ("processed", "noop",
// "error", "circuit_open").
var WorkerTickTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contributor_rewards_worker_tick_total",
	Help: "Total number of worker ticks, by outcome.",
}, []string{"outcome"})

// WorkerCircuitBreakTotal counts circuit-breaker trips.
var WorkerCircuitBreakTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "contributor_rewards_worker_circuit_break_total",
	Help: "Total number of times the worker circuit breaker has tripped.",
})

// LedgerWriteTotal counts ledger record writes by record kind ("reward_input",
// "contributor_rewards") and outcome ("success", "error", "skipped").
var LedgerWriteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contributor_rewards_ledger_write_total",
	Help: "Total number of ledger record writes, by record kind and outcome.",
}, []string{"kind", "outcome"})

// LedgerWriteDuration observes ledger write wall-clock duration in seconds,
// by record kind.
var LedgerWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "contributor_rewards_ledger_write_duration_seconds",
	Help:    "Duration of ledger record writes, by record kind.",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})
