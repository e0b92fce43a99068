// Package rewards implements the Shapley driver and stake-weighted
// aggregator: per-source-city cooperative-game computation delegated to an
// external binary, and the cross-city weighted average that follows.
// Grounded on the teacher's api/rewards/shapley.go (external-binary
// invocation pattern) and the original implementation's
// calculator/shapley_aggregator.rs (aggregation formula).
package rewards

import "github.com/malbeclabs/contributor-rewards/internal/domain"

// ShapleyInput is the per-source-city cost-graph bundle handed to the
// external shapley-cli binary.
type ShapleyInput struct {
	Devices          []domain.Device     `json:"devices"`
	PrivateLinks     []domain.PrivateLink `json:"private_links"`
	PublicLinks      []domain.PublicLink  `json:"public_links"`
	Demands          []domain.Demand      `json:"demands"`
	OperatorUptime   float64              `json:"operator_uptime"`
	ContiguityBonus  float64              `json:"contiguity_bonus"`
	DemandMultiplier float64              `json:"demand_multiplier"`
}

// OperatorValue is one operator's Shapley value and proportion within a
// single city's simulation.
type OperatorValue struct {
	Operator   string  `json:"operator"`
	Value      float64 `json:"value"`
	Proportion float64 `json:"proportion"`
}

// OperatorDelta is the per-operator change between a baseline and a
// modified simulation, used by the Compare tool.
type OperatorDelta struct {
	Operator      string  `json:"operator"`
	BaselineValue float64 `json:"baseline_value"`
	ModifiedValue float64 `json:"modified_value"`
	Delta         float64 `json:"delta"`
}

// CompareResult bundles the per-operator deltas and aggregate totals
// between two simulations over the same city.
type CompareResult struct {
	Deltas        []OperatorDelta `json:"deltas"`
	BaselineTotal float64         `json:"baseline_total"`
	ModifiedTotal float64         `json:"modified_total"`
}

// LinkResult is one private link's estimated marginal Shapley contribution.
type LinkResult struct {
	LinkCode string  `json:"link_code"`
	Estimate float64 `json:"estimate"`
	Method   string  `json:"method"` // "exact" or "leave_one_out_approx"
}

// LinkEstimateResult bundles per-link estimates for one operator's focus.
type LinkEstimateResult struct {
	Operator string       `json:"operator"`
	Links    []LinkResult `json:"links"`
}
