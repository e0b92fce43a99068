package normalize

import (
	"testing"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

func pk(b byte) domain.PublicKey {
	var p domain.PublicKey
	p[0] = b
	return p
}

// TestNormalize_DeficitGoesToFirstSortedElement reproduces spec §8 scenario
// 1's normalization step: proportions 61.3333/20.0000/18.6667 must sum to
// exactly 10^9, with opA sorted first. Those proportions already sum to 100
// and leave no deficit, so a second set of three equal thirds checks that
// the rounding deficit lands on whichever operator sorts first by public key.
func TestNormalize_DeficitGoesToFirstSortedElement(t *testing.T) {
	opA := pk(1) // sorts first
	opB := pk(2)
	opC := pk(3)

	items := []OperatorProportion{
		{Operator: opA, ProportionPercent: 61.3333},
		{Operator: opB, ProportionPercent: 20.0000},
		{Operator: opC, ProportionPercent: 18.6667},
	}

	shares, total, err := Normalize(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != domain.MaxUnitShare {
		t.Fatalf("total = %d, want %d", total, domain.MaxUnitShare)
	}
	if shares[0].ContributorKey != opA {
		t.Fatalf("expected opA sorted first, got %+v", shares[0])
	}

	var sum uint32
	for _, s := range shares {
		sum += uint32(s.UnitShare)
	}
	if sum != domain.MaxUnitShare {
		t.Fatalf("sum of unit shares = %d, want %d", sum, domain.MaxUnitShare)
	}

	// 3 x 333_333_000 = 999_999_000: a deficit of 1_000 units.
	thirds, total, err := Normalize([]OperatorProportion{
		{Operator: opC, ProportionPercent: 33.3333},
		{Operator: opA, ProportionPercent: 33.3333},
		{Operator: opB, ProportionPercent: 33.3333},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != domain.MaxUnitShare {
		t.Fatalf("thirds total = %d, want %d", total, domain.MaxUnitShare)
	}
	if thirds[0].ContributorKey != opA || thirds[0].UnitShare != 333_334_000 {
		t.Fatalf("expected the 1_000-unit deficit on opA, got %+v", thirds[0])
	}
	if thirds[1].UnitShare != 333_333_000 || thirds[2].UnitShare != 333_333_000 {
		t.Fatalf("expected the other thirds unchanged, got %+v", thirds)
	}
}

func TestNormalize_ExactSplit(t *testing.T) {
	opX := pk(1)
	opY := pk(2)
	shares, total, err := Normalize([]OperatorProportion{
		{Operator: opX, ProportionPercent: 75},
		{Operator: opY, ProportionPercent: 25},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != domain.MaxUnitShare {
		t.Fatalf("total = %d, want %d", total, domain.MaxUnitShare)
	}
	if shares[0].UnitShare != 750_000_000 || shares[1].UnitShare != 250_000_000 {
		t.Fatalf("unexpected shares: %+v", shares)
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	shares, total, err := Normalize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 0 || total != 0 {
		t.Fatalf("expected empty result, got shares=%+v total=%d", shares, total)
	}
}

func TestNormalize_ClampsOutOfRangeProportions(t *testing.T) {
	op := pk(1)
	shares, total, err := Normalize([]OperatorProportion{
		{Operator: op, ProportionPercent: 150},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != domain.MaxUnitShare || shares[0].UnitShare != domain.UnitShare32(domain.MaxUnitShare) {
		t.Fatalf("expected clamp to max, got shares=%+v total=%d", shares, total)
	}
}
