// Package normalize implements the fixed-point normalizer: the sole place
// floating-point proportions cross into the integer unit-share commitment,
// grounded on the original implementation's
// calculator/proof.rs::ContributorRewardsMerkleTree::new.
package normalize

import (
	"fmt"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// OperatorProportion is one operator's aggregated percentage-of-pool share
// (0-100) prior to fixed-point conversion.
type OperatorProportion struct {
	Operator          domain.PublicKey
	ProportionPercent float64
}

// Normalize clamps each proportion to [0,1], converts to a u32 unit share
// via round(proportion*MaxUnitShare), checked-adds into a running total,
// sorts the result into commitment order, and reconciles rounding drift by
// adding any deficit to the first (sorted) element. A total exceeding
// MaxUnitShare is an error; an empty input list is not.
func Normalize(items []OperatorProportion) ([]domain.RewardShare, uint32, error) {
	shares := make([]domain.RewardShare, 0, len(items))
	var total domain.UnitShare32

	for _, item := range items {
		fraction := item.ProportionPercent / 100.0
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		unitShareValue := uint32(roundFloat(fraction * float64(domain.MaxUnitShare)))

		unitShare, err := domain.NewUnitShare32(unitShareValue)
		if err != nil {
			return nil, 0, fmt.Errorf("normalize: operator %s: %w", item.Operator, err)
		}

		newTotal, err := total.CheckedAdd(uint32(unitShare))
		if err != nil {
			return nil, 0, fmt.Errorf("normalize: total unit shares overflow at operator %s: %w", item.Operator, err)
		}
		total = newTotal

		shares = append(shares, domain.RewardShare{
			ContributorKey: item.Operator,
			UnitShare:      unitShare,
		})
	}

	domain.SortRewardShares(shares)

	if len(shares) == 0 {
		return shares, 0, nil
	}

	if uint32(total) > domain.MaxUnitShare {
		return nil, 0, fmt.Errorf("normalize: total unit shares %d exceeds max %d", total, domain.MaxUnitShare)
	}
	if uint32(total) < domain.MaxUnitShare {
		deficit := domain.MaxUnitShare - uint32(total)
		adjusted, err := shares[0].UnitShare.CheckedAdd(deficit)
		if err != nil {
			return nil, 0, fmt.Errorf("normalize: deficit reconciliation overflow: %w", err)
		}
		shares[0].UnitShare = adjusted
		total = domain.UnitShare32(domain.MaxUnitShare)
	}

	return shares, uint32(total), nil
}

func roundFloat(v float64) float64 {
	if v < 0 {
		return -roundFloat(-v)
	}
	return float64(int64(v + 0.5))
}
