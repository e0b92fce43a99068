package borsh

import (
	"testing"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

func pk(b byte) domain.PublicKey {
	var k domain.PublicKey
	k[0] = b
	return k
}

func TestEncodeDecodeShapleyOutputStorage_Roundtrip(t *testing.T) {
	in := domain.ShapleyOutputStorage{
		Epoch: 42,
		Rewards: []domain.RewardShare{
			{ContributorKey: pk(1), UnitShare: 500_000_000},
			{ContributorKey: pk(2), UnitShare: 500_000_000},
		},
		TotalUnitShares: domain.MaxUnitShare,
	}

	encoded, err := EncodeShapleyOutputStorage(in)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	decoded, err := DecodeShapleyOutputStorage(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if decoded.Epoch != in.Epoch {
		t.Fatalf("epoch mismatch: got %d want %d", decoded.Epoch, in.Epoch)
	}
	if len(decoded.Rewards) != len(in.Rewards) {
		t.Fatalf("rewards length mismatch: got %d want %d", len(decoded.Rewards), len(in.Rewards))
	}
	if decoded.TotalUnitShares != in.TotalUnitShares {
		t.Fatalf("total unit shares mismatch: got %d want %d", decoded.TotalUnitShares, in.TotalUnitShares)
	}
}

func TestEncodeDecodeRewardInput_Roundtrip(t *testing.T) {
	in := domain.RewardInput{
		Epoch:     7,
		Timestamp: 1_700_000_000,
		Settings:  domain.RewardInputSettings{OperatorUptime: 0.98, ContiguityBonus: 5, DemandMultiplier: 1},
		Devices: []domain.Device{
			{Code: "dev-a", ContributorPK: pk(1), City: "FRA"},
		},
		CitySummaries: map[string]domain.CitySummary{
			"FRA": {Weight: 1.0, ValidatorCount: 3, StakeProxy: 1000},
		},
	}

	encoded, err := EncodeRewardInput(in)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	decoded, err := DecodeRewardInput(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decoded.Epoch != in.Epoch {
		t.Fatalf("epoch mismatch: got %d want %d", decoded.Epoch, in.Epoch)
	}
	if len(decoded.Devices) != 1 || decoded.Devices[0].Code != "dev-a" {
		t.Fatalf("devices mismatch: %+v", decoded.Devices)
	}
}
