// Package borsh encodes the two outer ledger records — RewardInput and
// ShapleyOutputStorage — using near/borsh-go, matching the original
// program's Borsh account layout. This is distinct from RewardShare's own
// fixed POD byte layout (internal/domain.RewardShare.PODBytes): the Merkle
// leaf hash binds to the POD bytes, never to the Borsh wire format.
package borsh

import (
	"fmt"

	nearborsh "github.com/near/borsh-go"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// EncodeRewardInput serializes a RewardInput record to its Borsh wire
// format.
func EncodeRewardInput(in domain.RewardInput) ([]byte, error) {
	b, err := nearborsh.Serialize(in)
	if err != nil {
		return nil, fmt.Errorf("borsh: encode reward input: %w", err)
	}
	return b, nil
}

// DecodeRewardInput parses a RewardInput record from its Borsh wire format.
func DecodeRewardInput(data []byte) (domain.RewardInput, error) {
	var out domain.RewardInput
	if err := nearborsh.Deserialize(&out, data); err != nil {
		return out, fmt.Errorf("borsh: decode reward input: %w", err)
	}
	return out, nil
}

// EncodeShapleyOutputStorage serializes a ShapleyOutputStorage record to its
// Borsh wire format.
func EncodeShapleyOutputStorage(out domain.ShapleyOutputStorage) ([]byte, error) {
	b, err := nearborsh.Serialize(out)
	if err != nil {
		return nil, fmt.Errorf("borsh: encode shapley output storage: %w", err)
	}
	return b, nil
}

// DecodeShapleyOutputStorage parses a ShapleyOutputStorage record from its
// Borsh wire format.
func DecodeShapleyOutputStorage(data []byte) (domain.ShapleyOutputStorage, error) {
	var out domain.ShapleyOutputStorage
	if err := nearborsh.Deserialize(&out, data); err != nil {
		return out, fmt.Errorf("borsh: decode shapley output storage: %w", err)
	}
	return out, nil
}
