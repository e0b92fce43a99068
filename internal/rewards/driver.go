package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// shapleyBinaryPath is the external cooperative-game solver invoked for each
// city's computation. Overridable for tests via SetBinaryPath.
var shapleyBinaryPath = "shapley-cli"

// SetBinaryPath overrides the external shapley-cli binary path, used by
// tests to point at a fake solver.
func SetBinaryPath(path string) {
	shapleyBinaryPath = path
}

// operatorOthers is the pseudo-operator name small operators are collapsed
// into to keep the coalition count (2^n) tractable.
const operatorOthers = "Others"

// CollapseSmallOperators merges operators with fewer devices than threshold
// into a single "Others" pseudo-operator, keeping the Shapley coalition
// count tractable for cities with many small contributors.
func CollapseSmallOperators(input ShapleyInput, threshold int) ShapleyInput {
	deviceCount := map[string]int{}
	for _, d := range input.Devices {
		deviceCount[d.ContributorPK.String()]++
	}

	collapse := map[string]bool{}
	for operator, count := range deviceCount {
		if count < threshold {
			collapse[operator] = true
		}
	}
	if len(collapse) == 0 {
		return input
	}

	othersKey := othersPublicKey()

	out := input
	out.Devices = make([]domain.Device, len(input.Devices))
	for i, d := range input.Devices {
		out.Devices[i] = d
		if collapse[d.ContributorPK.String()] {
			out.Devices[i].ContributorPK = othersKey
		}
	}
	out.PrivateLinks = make([]domain.PrivateLink, len(input.PrivateLinks))
	for i, l := range input.PrivateLinks {
		out.PrivateLinks[i] = l
		if collapse[l.ContributorPK.String()] {
			out.PrivateLinks[i].ContributorPK = othersKey
		}
	}
	return out
}

// othersPublicKey derives a stable pseudo-key for the "Others" collapsed
// operator, used so collapsed devices/links still carry a valid PublicKey
// value rather than the zero key.
func othersPublicKey() domain.PublicKey {
	var pk domain.PublicKey
	copy(pk[:], operatorOthers)
	return pk
}

// Simulate JSON-marshals input to the external solver's stdin and
// JSON-unmarshals the resulting per-operator value array from its stdout.
func Simulate(ctx context.Context, input ShapleyInput) ([]OperatorValue, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("rewards: marshal shapley input: %w", err)
	}

	cmd := exec.CommandContext(ctx, shapleyBinaryPath)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rewards: shapley-cli failed: %w: %s", err, stderr.String())
	}

	var results []OperatorValue
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, fmt.Errorf("rewards: unmarshal shapley-cli output: %w", err)
	}
	return results, nil
}

// Compare runs two simulations over the same city and returns per-operator
// deltas plus aggregate totals. No CLI subcommand calls it.
func Compare(ctx context.Context, baseline, modified ShapleyInput) (CompareResult, error) {
	baseResults, err := Simulate(ctx, baseline)
	if err != nil {
		return CompareResult{}, fmt.Errorf("rewards: baseline simulation: %w", err)
	}
	modResults, err := Simulate(ctx, modified)
	if err != nil {
		return CompareResult{}, fmt.Errorf("rewards: modified simulation: %w", err)
	}

	baseByOp := map[string]float64{}
	for _, r := range baseResults {
		baseByOp[r.Operator] = r.Value
	}
	modByOp := map[string]float64{}
	for _, r := range modResults {
		modByOp[r.Operator] = r.Value
	}

	operators := map[string]bool{}
	for op := range baseByOp {
		operators[op] = true
	}
	for op := range modByOp {
		operators[op] = true
	}

	var deltas []OperatorDelta
	var baseTotal, modTotal float64
	for op := range operators {
		b := baseByOp[op]
		m := modByOp[op]
		baseTotal += b
		modTotal += m
		deltas = append(deltas, OperatorDelta{
			Operator:      op,
			BaselineValue: b,
			ModifiedValue: m,
			Delta:         m - b,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Operator < deltas[j].Operator })

	return CompareResult{Deltas: deltas, BaselineTotal: baseTotal, ModifiedTotal: modTotal}, nil
}

// maxLinksForExactEstimate is the per-operator link count above which
// LinkEstimate falls back to a leave-one-out approximation instead of
// exact pseudo-operator tagging, matching the teacher's threshold.
const maxLinksForExactEstimate = 15

// LinkEstimate attributes per-link marginal Shapley value within one
// operator's focus. Operators with few links get an exact estimate via
// pseudo-operator tagging (each link isolated as its own operator in a
// probe simulation); operators with many links get a cheaper leave-one-out
// marginal-value approximation.
func LinkEstimate(ctx context.Context, operatorFocus string, input ShapleyInput) (LinkEstimateResult, error) {
	var operatorLinks []domain.PrivateLink
	for _, l := range input.PrivateLinks {
		if l.ContributorPK.String() == operatorFocus {
			operatorLinks = append(operatorLinks, l)
		}
	}
	if len(operatorLinks) == 0 {
		return LinkEstimateResult{Operator: operatorFocus}, nil
	}

	if len(operatorLinks) <= maxLinksForExactEstimate {
		return linkEstimateExact(ctx, operatorFocus, input, operatorLinks)
	}
	return linkEstimateApprox(ctx, operatorFocus, input, operatorLinks)
}

// linkEstimateExact tags each of the operator's links as its own
// pseudo-operator (suffixed "00" per link index) so the external solver's
// per-operator output directly yields each link's exact marginal value.
func linkEstimateExact(ctx context.Context, operatorFocus string, input ShapleyInput, links []domain.PrivateLink) (LinkEstimateResult, error) {
	probe := input
	probe.PrivateLinks = append([]domain.PrivateLink(nil), input.PrivateLinks...)
	tagged := map[string]string{}
	for i, l := range links {
		tag := fmt.Sprintf("%s-link-%02d", operatorFocus, i)
		tagged[l.Code] = tag
	}
	for i := range probe.PrivateLinks {
		if newTag, ok := tagged[probe.PrivateLinks[i].Code]; ok {
			var pk [32]byte
			copy(pk[:], newTag)
			probe.PrivateLinks[i].ContributorPK = pk
		}
	}

	results, err := Simulate(ctx, probe)
	if err != nil {
		return LinkEstimateResult{}, fmt.Errorf("rewards: link estimate probe simulation: %w", err)
	}
	byTag := map[string]float64{}
	for _, r := range results {
		byTag[r.Operator] = r.Value
	}

	out := LinkEstimateResult{Operator: operatorFocus}
	for i, l := range links {
		tag := fmt.Sprintf("%s-link-%02d", operatorFocus, i)
		out.Links = append(out.Links, LinkResult{LinkCode: l.Code, Estimate: byTag[tag], Method: "exact"})
	}
	return out, nil
}

// linkEstimateApprox estimates each link's marginal value as the drop in
// the operator's total Shapley value when that single link is removed
// (leave-one-out), used when exact tagging would blow up the coalition
// count.
func linkEstimateApprox(ctx context.Context, operatorFocus string, input ShapleyInput, links []domain.PrivateLink) (LinkEstimateResult, error) {
	baseline, err := Simulate(ctx, input)
	if err != nil {
		return LinkEstimateResult{}, fmt.Errorf("rewards: link estimate baseline simulation: %w", err)
	}
	baseValue := valueOf(baseline, operatorFocus)

	out := LinkEstimateResult{Operator: operatorFocus}
	for _, l := range links {
		without := input
		without.PrivateLinks = removeLink(input.PrivateLinks, l.Code)
		results, err := Simulate(ctx, without)
		if err != nil {
			return LinkEstimateResult{}, fmt.Errorf("rewards: link estimate leave-one-out simulation for %s: %w", l.Code, err)
		}
		withoutValue := valueOf(results, operatorFocus)
		out.Links = append(out.Links, LinkResult{
			LinkCode: l.Code,
			Estimate: baseValue - withoutValue,
			Method:   "leave_one_out_approx",
		})
	}
	return out, nil
}

func valueOf(results []OperatorValue, operator string) float64 {
	for _, r := range results {
		if r.Operator == operator {
			return r.Value
		}
	}
	return 0
}

func removeLink(links []domain.PrivateLink, code string) []domain.PrivateLink {
	out := make([]domain.PrivateLink, 0, len(links))
	for _, l := range links {
		if l.Code != code {
			out = append(out, l)
		}
	}
	return out
}
