package domain

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// MaxUnitShare is the fixed-point total every non-empty ShapleyOutputStorage
// must sum to: 10^9.
const MaxUnitShare uint32 = 1_000_000_000

// UnitShare32 is an unsigned 32-bit value constrained to [0, MaxUnitShare].
type UnitShare32 uint32

// NewUnitShare32 validates value against the [0, MaxUnitShare] invariant.
func NewUnitShare32(value uint32) (UnitShare32, error) {
	if value > MaxUnitShare {
		return 0, fmt.Errorf("domain: unit share %d exceeds max %d", value, MaxUnitShare)
	}
	return UnitShare32(value), nil
}

// CheckedAdd adds delta to u, returning an error on overflow past MaxUnitShare.
func (u UnitShare32) CheckedAdd(delta uint32) (UnitShare32, error) {
	sum := uint64(u) + uint64(delta)
	if sum > uint64(MaxUnitShare) {
		return 0, fmt.Errorf("domain: unit share overflow: %d + %d > %d", u, delta, MaxUnitShare)
	}
	return UnitShare32(sum), nil
}

// RewardShareLeafPrefix domain-separates RewardShare Merkle leaves from any
// other POD record the same tree implementation might hash.
const RewardShareLeafPrefix byte = 0x01

// rewardSharePODSize is the fixed POD byte layout size: 32 (key) + 4 (unit
// share LE) + 1 (should_block) + 4 (reserved LE).
const rewardSharePODSize = 32 + 4 + 1 + 4

// RewardShare is the fixed-layout POD record committed as a Merkle leaf.
type RewardShare struct {
	ContributorKey PublicKey
	UnitShare      UnitShare32
	ShouldBlock    bool
	Reserved       uint32
}

// LeafPrefix returns the domain-separation byte used when hashing this
// record as a Merkle leaf.
func (RewardShare) LeafPrefix() byte { return RewardShareLeafPrefix }

// PODBytes serializes the record to its fixed 41-byte on-wire layout. This is
// distinct from the Borsh encoding used for the outer ShapleyOutputStorage
// record: the leaf hash binds to these exact bytes, not to the Borsh wire
// format.
func (r RewardShare) PODBytes() []byte {
	buf := make([]byte, rewardSharePODSize)
	copy(buf[0:32], r.ContributorKey[:])
	binary.LittleEndian.PutUint32(buf[32:36], uint32(r.UnitShare))
	if r.ShouldBlock {
		buf[36] = 1
	}
	binary.LittleEndian.PutUint32(buf[37:41], r.Reserved)
	return buf
}

// ParseRewardSharePOD parses the fixed POD byte layout back into a RewardShare.
func ParseRewardSharePOD(b []byte) (RewardShare, error) {
	var r RewardShare
	if len(b) != rewardSharePODSize {
		return r, fmt.Errorf("domain: reward share POD length %d, want %d", len(b), rewardSharePODSize)
	}
	copy(r.ContributorKey[:], b[0:32])
	r.UnitShare = UnitShare32(binary.LittleEndian.Uint32(b[32:36]))
	r.ShouldBlock = b[36] != 0
	r.Reserved = binary.LittleEndian.Uint32(b[37:41])
	return r, nil
}

// SortRewardShares sorts in place by ContributorKey, byte-lexicographic: the
// commitment order required by ShapleyOutputStorage.
func SortRewardShares(shares []RewardShare) {
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].ContributorKey.Less(shares[j].ContributorKey)
	})
}

// ShapleyOutputStorage is the committed per-epoch reward record. Invariant:
// whenever Rewards is non-empty, TotalUnitShares must equal MaxUnitShare, and
// Rewards must already be in commitment order.
type ShapleyOutputStorage struct {
	Epoch            Epoch
	Rewards          []RewardShare
	TotalUnitShares  uint32
}

// Validate checks the non-empty-implies-total-equals-max invariant and that
// Rewards is sorted in commitment order.
func (s ShapleyOutputStorage) Validate() error {
	if len(s.Rewards) == 0 {
		return nil
	}
	if s.TotalUnitShares != MaxUnitShare {
		return fmt.Errorf("domain: total unit shares %d != %d for non-empty rewards", s.TotalUnitShares, MaxUnitShare)
	}
	for i := 1; i < len(s.Rewards); i++ {
		if !s.Rewards[i-1].ContributorKey.Less(s.Rewards[i].ContributorKey) {
			return fmt.Errorf("domain: rewards not in commitment order at index %d", i)
		}
	}
	return nil
}

// RewardInputSettings carries the Shapley driver's tunables, mirrored into
// the committed RewardInput record for auditability.
type RewardInputSettings struct {
	OperatorUptime   float64
	ContiguityBonus  float64
	DemandMultiplier float64
}

// CitySummary is the per-city weight and stake-proxy bookkeeping that
// RewardInput carries alongside the raw inputs so the aggregation step is
// reproducible from the committed record alone.
type CitySummary struct {
	Weight          float64
	ValidatorCount  int
	StakeProxy      float64
}

// RewardInput is the full Shapley-driver input bundle committed to the
// ledger before the per-city computation runs, so the computation itself is
// reproducible and auditable from chain state.
type RewardInput struct {
	Epoch         Epoch
	Timestamp     uint64
	Settings      RewardInputSettings
	Devices       []Device
	PrivateLinks  []PrivateLink
	PublicLinks   []PublicLink
	Demands       []Demand
	CitySummaries map[string]CitySummary
}

// Device is a contributor-operated device participating in the cost graph.
type Device struct {
	Code          string
	ContributorPK PublicKey
	City          string
}

// PrivateLink is a contributor-operated link between two devices, carrying
// its measured cost inputs.
type PrivateLink struct {
	Code          string
	ContributorPK PublicKey
	SideADevice   string
	SideZDevice   string
	LatencyMS     float64
	JitterMS      float64
	PacketLoss    float64
	BandwidthBPS  uint64
	Uptime        float64
}

// PublicLink is a synthetic city-to-city link representing public internet
// cost, used when no private path exists between two cities.
type PublicLink struct {
	SideACity string
	SideZCity string
	LatencyMS float64
}

// Demand is a city-pair traffic demand entry produced by the demand builder.
type Demand struct {
	SourceCity string
	TargetCity string
	Receivers  int
	Traffic    float64
	Priority   float64
	Kind       string
	Multicast  bool
}
