// Package recorder implements the ledger recorder: deterministic
// record-address derivation, chunked upload, idempotent re-run detection,
// and rate-limited retry-with-backoff writes, grounded on the original
// implementation's calculator/ledger_operations.rs and recorder usage in
// worker/runner.rs.
package recorder

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// programDomainTag domain-separates record-address derivation from any
// other PDA-style derivation scheme the ledger program might use.
var programDomainTag = []byte("contributor-rewards-record")

// ComputeRecordAddress is a pure, deterministic function of (payer, seeds):
// identical inputs always yield the identical address, which is this
// system's idempotency handle. It folds the payer key and every seed
// component into a SHA-256 digest truncated to a PublicKey-shaped 32 bytes,
// domain-separated by programDomainTag and a length-prefixed seed encoding
// so that no seed-splitting ambiguity can collide two distinct seed tuples.
func ComputeRecordAddress(payer domain.PublicKey, seeds [][]byte) domain.PublicKey {
	h := sha256.New()
	h.Write(programDomainTag)
	h.Write(payer[:])
	for _, seed := range seeds {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(seed)))
		h.Write(lenBuf[:])
		h.Write(seed)
	}
	var out domain.PublicKey
	copy(out[:], h.Sum(nil))
	return out
}

// EpochSeed renders an epoch as the fixed little-endian 8-byte seed
// component used throughout the record seed tuples.
func EpochSeed(epoch domain.Epoch) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(epoch))
	return buf[:]
}

// RewardInputSeeds builds the seed tuple for a RewardInput record:
// (prefix_reward_input, epoch_le).
func RewardInputSeeds(prefix []byte, epoch domain.Epoch) [][]byte {
	return [][]byte{prefix, EpochSeed(epoch)}
}

// ContributorRewardsSeeds builds the seed tuple for a ShapleyOutputStorage
// record: (prefix_contributor_rewards, epoch_le, "shapley_output").
func ContributorRewardsSeeds(prefix []byte, epoch domain.Epoch) [][]byte {
	return [][]byte{prefix, EpochSeed(epoch), []byte("shapley_output")}
}
