// Package domain holds the data types shared across the reward pipeline:
// public keys, epochs, telemetry samples, circuit keys, and the on-chain
// record shapes (RewardInput, RewardShare, ShapleyOutputStorage).
package domain

import (
	"bytes"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte contributor/validator identifier. Ordering is
// byte-lexicographic, matching the commitment order required for
// ShapleyOutputStorage.
type PublicKey [32]byte

// ParsePublicKey decodes a base58-encoded Solana-style public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, err
	}
	if len(b) != len(pk) {
		return pk, errInvalidKeyLength(len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

type errInvalidKeyLength int

func (e errInvalidKeyLength) Error() string {
	return "domain: invalid public key length " + hex.EncodeToString([]byte{byte(e)})
}

// String renders the key base58-encoded, matching Solana pubkey display
// conventions used throughout the reward pipeline's logs.
func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Less implements the byte-lexicographic total order required when sorting
// RewardShare entries into commitment order.
func (p PublicKey) Less(other PublicKey) bool {
	return bytes.Compare(p[:], other[:]) < 0
}

// Compare returns -1, 0, or 1 per bytes.Compare semantics.
func (p PublicKey) Compare(other PublicKey) int {
	return bytes.Compare(p[:], other[:])
}

// IsZero reports whether this is the zero-value key (used as a sentinel for
// "no owner"/system-program placeholders in serviceability joins).
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// Epoch is the monotone epoch counter shared by the telemetry source and the
// commitment ledger.
type Epoch uint64
