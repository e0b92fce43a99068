// Package demand builds the city-pair demand matrix from AccessPass,
// User, and Device serviceability records plus a leader schedule, grounded
// on the original implementation's ingestor/demand.rs and the teacher's
// api/rewards/queries.go::fetchValidatorDemand.
package demand

import (
	"fmt"
	"sort"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// Network selects which serviceability field resolves a device's city code,
// and whether Requested (not yet Connected) access passes are honored.
type Network int

const (
	NetworkMainnet Network = iota
	NetworkTestnet
	NetworkDevnet
)

// AccessPassType distinguishes a prepaid bandwidth reservation from one tied
// to a specific Solana validator identity.
type AccessPassType int

const (
	AccessPassPrepaid AccessPassType = iota
	AccessPassSolanaValidator
)

// AccessPassStatus is the lifecycle state of an access pass.
type AccessPassStatus int

const (
	AccessPassRequested AccessPassStatus = iota
	AccessPassConnected
)

// AccessPass is a serviceability record granting a payer access, optionally
// tied to a validator identity.
type AccessPass struct {
	Payer        domain.PublicKey
	Type         AccessPassType
	ValidatorKey domain.PublicKey // valid only when Type == AccessPassSolanaValidator
	Status       AccessPassStatus
}

// User maps an owner to the device they connect through.
type User struct {
	Owner    domain.PublicKey
	DevicePK domain.PublicKey
}

// Device carries the location fields needed to resolve a city code.
type Device struct {
	PK           domain.PublicKey
	ExchangeCode string
	LocationCode string
}

// Slots-in-epoch, demand traffic, kind, and multicast defaults, mirroring
// the teacher's api/rewards/queries.go constants.
const (
	SlotsInEpoch         = 432000.0
	DefaultDemandTraffic = 0.05
	DefaultDemandKind    = "unicast"
	DefaultMulticast     = false
)

// CityStat is the per-city validator count and aggregate stake proxy used
// both as the demand-priority input and as the Shapley aggregator's
// stake-weight input.
type CityStat struct {
	ValidatorCount int
	StakeProxy     float64
}

// CityStats maps a resolved city code to its aggregate stat.
type CityStats map[string]CityStat

// BuildOutput bundles the generated demand matrix with the per-city stats
// used to weight the Shapley aggregation step.
type BuildOutput struct {
	Demands   []domain.Demand
	CityStats CityStats
}

// Build resolves validator->city via AccessPass/User/Device joins, sums
// leader-schedule slot counts per city as its stake proxy, and generates an
// all-pairs demand matrix across cities with a non-empty validator set.
func Build(accessPasses []AccessPass, users []User, devices map[domain.PublicKey]Device, leaderSchedule map[domain.PublicKey]int, network Network) (BuildOutput, error) {
	accessorToValidator := map[domain.PublicKey]domain.PublicKey{}
	for _, ap := range accessPasses {
		switch {
		case ap.Type == AccessPassPrepaid && ap.Status == AccessPassConnected:
			// Prepaid passes do not map to a validator identity and are skipped.
		case ap.Type == AccessPassSolanaValidator && ap.Status == AccessPassConnected:
			accessorToValidator[ap.Payer] = ap.ValidatorKey
		case ap.Type == AccessPassSolanaValidator && ap.Status == AccessPassRequested && network != NetworkMainnet:
			accessorToValidator[ap.Payer] = ap.ValidatorKey
		}
	}
	if len(accessorToValidator) == 0 {
		return BuildOutput{}, fmt.Errorf("demand: did not find any validators to build demands")
	}

	validatorToUser := map[domain.PublicKey]User{}
	for _, u := range users {
		if u.Owner.IsZero() {
			continue
		}
		if validatorKey, ok := accessorToValidator[u.Owner]; ok {
			validatorToUser[validatorKey] = u
		}
	}

	cityStats, validatorCity, err := buildCityStats(validatorToUser, devices, leaderSchedule, network)
	if err != nil {
		return BuildOutput{}, err
	}
	if len(cityStats) == 0 {
		return BuildOutput{}, fmt.Errorf("demand: could not build any city_stats")
	}
	_ = validatorCity

	demands := generate(cityStats)
	if len(demands) == 0 {
		return BuildOutput{}, fmt.Errorf("demand: could not build any demands")
	}

	return BuildOutput{Demands: demands, CityStats: cityStats}, nil
}

func buildCityStats(validatorToUser map[domain.PublicKey]User, devices map[domain.PublicKey]Device, leaderSchedule map[domain.PublicKey]int, network Network) (CityStats, map[domain.PublicKey]string, error) {
	stats := CityStats{}
	validatorCity := map[domain.PublicKey]string{}

	for validatorKey, user := range validatorToUser {
		device, ok := devices[user.DevicePK]
		if !ok {
			continue
		}
		city := resolveCityCode(device, network)
		if city == "" {
			continue
		}
		slots := leaderSchedule[validatorKey]

		stat := stats[city]
		stat.ValidatorCount++
		stat.StakeProxy += float64(slots)
		stats[city] = stat
		validatorCity[validatorKey] = city
	}
	return stats, validatorCity, nil
}

// resolveCityCode uses the exchange code on mainnet and the location code
// elsewhere, both uppercased, matching the original implementation's
// Mainnet/MainnetBeta-vs-Testnet/Devnet branch.
func resolveCityCode(d Device, network Network) string {
	if network == NetworkMainnet {
		return upper(d.ExchangeCode)
	}
	return upper(d.LocationCode)
}

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// generate emits a demand entry for every ordered pair of distinct cities,
// with priority = (1/slots_in_epoch) * (dst.stake_proxy/dst.validator_count).
// Self-loops are forbidden.
func generate(cityStats CityStats) []domain.Demand {
	cities := make([]string, 0, len(cityStats))
	for c := range cityStats {
		cities = append(cities, c)
	}
	sort.Strings(cities)

	var demands []domain.Demand
	for _, src := range cities {
		for _, dst := range cities {
			if src == dst {
				continue
			}
			dstStat := cityStats[dst]
			if dstStat.ValidatorCount == 0 {
				continue
			}
			priority := (1.0 / SlotsInEpoch) * (dstStat.StakeProxy / float64(dstStat.ValidatorCount))
			demands = append(demands, domain.Demand{
				SourceCity: src,
				TargetCity: dst,
				Receivers:  dstStat.ValidatorCount,
				Traffic:    DefaultDemandTraffic,
				Priority:   priority,
				Kind:       DefaultDemandKind,
				Multicast:  DefaultMulticast,
			})
		}
	}
	return demands
}
