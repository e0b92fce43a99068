// Package pipeline composes the per-epoch reward computation — per-city
// Shapley simulation, stake-weighted aggregation, fixed-point
// normalization, Merkle commitment, and ledger recording — into the single
// worker.Pipeline the orchestrator loop drives, running all of it in one
// tick. The CLI subcommands do not call into this package.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/contributor-rewards/internal/borsh"
	"github.com/malbeclabs/contributor-rewards/internal/domain"
	"github.com/malbeclabs/contributor-rewards/internal/merkle"
	"github.com/malbeclabs/contributor-rewards/internal/normalize"
	"github.com/malbeclabs/contributor-rewards/internal/recorder"
	"github.com/malbeclabs/contributor-rewards/internal/rewards"
)

// CityInputs is one epoch's assembled Shapley driver input, keyed by city
// code.
type CityInputs map[string]rewards.ShapleyInput

// DataSource assembles the per-city Shapley inputs and their stake-proxy
// weights for an epoch. Its concrete implementation — joining telemetry
// statistics, the demand builder's output, and on-chain device/link
// listings — is a deployment-specific composition of the telemetry,
// accumulator, and demand packages and a serviceability-state source; it is
// intentionally left as a seam here.
type DataSource interface {
	FetchCityInputs(ctx context.Context, epoch domain.Epoch) (CityInputs, map[string]rewards.CityWeightInput, error)
}

// Addresser derives the ledger addresses a given epoch's records live at.
type Addresser struct {
	Payer               domain.PublicKey
	RewardInputPrefix   []byte
	ContributorRewardsPrefix []byte
}

func (a Addresser) rewardInputAddress(epoch domain.Epoch) domain.PublicKey {
	return recorder.ComputeRecordAddress(a.Payer, recorder.RewardInputSeeds(a.RewardInputPrefix, epoch))
}

func (a Addresser) contributorRewardsAddress(epoch domain.Epoch) domain.PublicKey {
	return recorder.ComputeRecordAddress(a.Payer, recorder.ContributorRewardsSeeds(a.ContributorRewardsPrefix, epoch))
}

// Pipeline implements worker.Pipeline.
type Pipeline struct {
	Source    DataSource
	Recorder  *recorder.Recorder
	Addresser Addresser
	Now       func() time.Time
}

// RecordsExist reports whether this epoch's ContributorRewards record is
// already committed — the idempotency check the worker relies on before
// recomputing anything.
func (p Pipeline) RecordsExist(ctx context.Context, epoch uint64) (bool, error) {
	exists, err := p.Recorder.Exists(ctx, p.Addresser.contributorRewardsAddress(domain.Epoch(epoch)))
	if err != nil {
		return false, fmt.Errorf("pipeline: check contributor rewards existence: %w", err)
	}
	return exists, nil
}

// Run executes the full per-epoch computation and commits both the
// RewardInput and ContributorRewards records.
func (p Pipeline) Run(ctx context.Context, epoch uint64) error {
	e := domain.Epoch(epoch)

	cityInputs, cityWeights, err := p.Source.FetchCityInputs(ctx, e)
	if err != nil {
		return fmt.Errorf("pipeline: fetch city inputs: %w", err)
	}
	if len(cityInputs) == 0 {
		return fmt.Errorf("pipeline: no city inputs for epoch %d", epoch)
	}

	if err := p.commitRewardInput(ctx, e, cityInputs, cityWeights); err != nil {
		return err
	}

	perCityValues := make(map[string][]rewards.OperatorValue, len(cityInputs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for city, input := range cityInputs {
		city, input := city, input
		g.Go(func() error {
			values, err := rewards.Simulate(gctx, input)
			if err != nil {
				return fmt.Errorf("simulate city %s: %w", city, err)
			}
			mu.Lock()
			perCityValues[city] = values
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	aggregated, err := rewards.AggregateShapleyOutputs(perCityValues, cityWeights)
	if err != nil {
		return fmt.Errorf("pipeline: aggregate: %w", err)
	}

	proportions := make([]normalize.OperatorProportion, 0, len(aggregated))
	for _, a := range aggregated {
		key, err := domain.ParsePublicKey(a.Operator)
		if err != nil {
			return fmt.Errorf("pipeline: parse operator pubkey %s: %w", a.Operator, err)
		}
		proportions = append(proportions, normalize.OperatorProportion{Operator: key, ProportionPercent: a.Proportion})
	}

	shares, total, err := normalize.Normalize(proportions)
	if err != nil {
		return fmt.Errorf("pipeline: normalize: %w", err)
	}

	if _, err := merkle.RootFromShares(shares); err != nil {
		return fmt.Errorf("pipeline: build merkle tree: %w", err)
	}

	storage := domain.ShapleyOutputStorage{Epoch: e, Rewards: shares, TotalUnitShares: total}
	if err := storage.Validate(); err != nil {
		return fmt.Errorf("pipeline: invalid shapley output storage: %w", err)
	}

	payload, err := borsh.EncodeShapleyOutputStorage(storage)
	if err != nil {
		return fmt.Errorf("pipeline: encode shapley output storage: %w", err)
	}

	var summary recorder.WriteSummary
	address := p.Addresser.contributorRewardsAddress(e)
	p.Recorder.WriteAndTrack(ctx, address, payload, fmt.Sprintf("contributor rewards epoch %d", epoch), &summary)
	if !summary.AllSuccessful() {
		return fmt.Errorf("pipeline: %s", summary.String())
	}
	return nil
}

// commitRewardInput merges the per-city Shapley inputs into a single
// RewardInput record and commits it to the ledger before the computation
// runs, so the computation is reproducible and auditable from chain state
// alone.
func (p Pipeline) commitRewardInput(ctx context.Context, epoch domain.Epoch, cityInputs CityInputs, cityWeights map[string]rewards.CityWeightInput) error {
	in := domain.RewardInput{
		Epoch:         epoch,
		Timestamp:     uint64(p.now().Unix()),
		CitySummaries: make(map[string]domain.CitySummary, len(cityWeights)),
	}
	for city, w := range cityWeights {
		in.CitySummaries[city] = domain.CitySummary{StakeProxy: w.StakeProxy}
	}
	for _, input := range cityInputs {
		in.Devices = append(in.Devices, input.Devices...)
		in.PrivateLinks = append(in.PrivateLinks, input.PrivateLinks...)
		in.PublicLinks = append(in.PublicLinks, input.PublicLinks...)
		in.Demands = append(in.Demands, input.Demands...)
		in.Settings = domain.RewardInputSettings{
			OperatorUptime:   input.OperatorUptime,
			ContiguityBonus:  input.ContiguityBonus,
			DemandMultiplier: input.DemandMultiplier,
		}
	}

	payload, err := borsh.EncodeRewardInput(in)
	if err != nil {
		return fmt.Errorf("pipeline: encode reward input: %w", err)
	}

	var summary recorder.WriteSummary
	address := p.Addresser.rewardInputAddress(epoch)
	p.Recorder.WriteAndTrack(ctx, address, payload, fmt.Sprintf("reward input epoch %d", epoch), &summary)
	if !summary.AllSuccessful() {
		return fmt.Errorf("pipeline: %s", summary.String())
	}
	return nil
}

func (p Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
