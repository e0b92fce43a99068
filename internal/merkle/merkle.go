// Package merkle implements the POD-leaf indexed Merkle tree used to commit
// reward shares, grounded on the original implementation's
// calculator/proof.rs.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// Hash is a SHA-256 digest.
type Hash = [32]byte

// HashLeaf computes SHA256(leafPrefix || index_le_u32 || podBytes), binding
// a reward share to its position in the commitment list.
func HashLeaf(leafPrefix byte, index uint32, podBytes []byte) Hash {
	buf := make([]byte, 0, 1+4+len(podBytes))
	buf = append(buf, leafPrefix)
	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], index)
	buf = append(buf, idxBuf[:]...)
	buf = append(buf, podBytes...)
	return sha256.Sum256(buf)
}

// hashInternal computes SHA256(left || right), the standard binary Merkle
// internal-node rule.
func hashInternal(left, right Hash) Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}

// Tree is a binary Merkle tree built over indexed POD leaves, with every
// level retained so proofs can be generated for any leaf index.
type Tree struct {
	levels [][]Hash
}

// BuildTree hashes each share as an indexed POD leaf (index = its position
// in shares) and folds the resulting leaves pairwise up to a single root.
// The last node at any odd-length level is duplicated (hashed with itself)
// rather than promoted unpaired. An empty input is an error: there is no
// root for an empty commitment.
func BuildTree(shares []domain.RewardShare) (Tree, error) {
	if len(shares) == 0 {
		return Tree{}, fmt.Errorf("merkle: cannot build a tree over an empty share list")
	}

	leaves := make([]Hash, len(shares))
	for i, s := range shares {
		leaves[i] = HashLeaf(s.LeafPrefix(), uint32(i), s.PODBytes())
	}

	levels := [][]Hash{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([]Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashInternal(current[i], current[i+1]))
			} else {
				next = append(next, hashInternal(current[i], current[i]))
			}
		}
		levels = append(levels, next)
		current = next
	}

	return Tree{levels: levels}, nil
}

// Root returns the tree's root hash.
func (t Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof is an ordered list of sibling hashes from leaf to root, together
// with the leaf's index (needed to know which side each sibling occupies).
type Proof struct {
	Index    int
	Siblings []Hash
}

// GenerateProof returns the sibling path for the leaf at index.
func (t Tree) GenerateProof(index int) (Proof, error) {
	leafLevel := t.levels[0]
	if index < 0 || index >= len(leafLevel) {
		return Proof{}, fmt.Errorf("merkle: index %d out of range [0,%d)", index, len(leafLevel))
	}

	proof := Proof{Index: index}
	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]
		var siblingIdx int
		if idx%2 == 0 {
			siblingIdx = idx + 1
			if siblingIdx >= len(nodes) {
				siblingIdx = idx // duplicated odd node
			}
		} else {
			siblingIdx = idx - 1
		}
		proof.Siblings = append(proof.Siblings, nodes[siblingIdx])
		idx /= 2
	}
	return proof, nil
}

// VerifyProof reconstructs the root from (leafPrefix, leafPODBytes, proof)
// and compares it to root. Any single-byte tamper of the leaf, the index,
// or any sibling causes this to return false.
func VerifyProof(leafPrefix byte, podBytes []byte, proof Proof, root Hash) bool {
	current := HashLeaf(leafPrefix, uint32(proof.Index), podBytes)
	idx := proof.Index
	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			current = hashInternal(current, sibling)
		} else {
			current = hashInternal(sibling, current)
		}
		idx /= 2
	}
	return current == root
}

// RootFromShares is a convenience wrapper: build the tree and return its
// root in one call.
func RootFromShares(shares []domain.RewardShare) (Hash, error) {
	tree, err := BuildTree(shares)
	if err != nil {
		return Hash{}, err
	}
	return tree.Root(), nil
}
