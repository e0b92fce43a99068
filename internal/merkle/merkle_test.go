package merkle

import (
	"testing"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

func pk(b byte) domain.PublicKey {
	var p domain.PublicKey
	p[0] = b
	return p
}

func threeShares() []domain.RewardShare {
	return []domain.RewardShare{
		{ContributorKey: pk(1), UnitShare: 500_000_000},
		{ContributorKey: pk(2), UnitShare: 250_000_000},
		{ContributorKey: pk(3), UnitShare: 250_000_000},
	}
}

// TestProofVerification reproduces spec §8 scenario 5.
func TestProofVerification(t *testing.T) {
	shares := threeShares()
	tree, err := BuildTree(shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := tree.Root()

	proofB, err := tree.GenerateProof(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	podB := shares[1].PODBytes()
	if !VerifyProof(shares[1].LeafPrefix(), podB, proofB, root) {
		t.Fatal("expected valid proof for B to verify")
	}

	// Flip every bit of the first byte of B's leaf bytes.
	tampered := append([]byte(nil), podB...)
	tampered[0] ^= 0xFF
	if VerifyProof(shares[1].LeafPrefix(), tampered, proofB, root) {
		t.Fatal("expected tampered leaf to fail verification")
	}

	// Swap in A's proof for B's leaf.
	proofA, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyProof(shares[1].LeafPrefix(), podB, proofA, root) {
		t.Fatal("expected mismatched proof to fail verification")
	}
}

func TestBuildTree_Empty(t *testing.T) {
	if _, err := BuildTree(nil); err == nil {
		t.Fatal("expected error building a tree over an empty share list")
	}
}

func TestBuildTree_DeterministicAcrossRuns(t *testing.T) {
	shares := threeShares()
	root1, err := RootFromShares(shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root2, err := RootFromShares(shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root1 != root2 {
		t.Fatal("expected identical roots across repeated calls over identical inputs")
	}
}

func TestBuildTree_UnitShareChangeAltersRoot(t *testing.T) {
	shares := threeShares()
	root1, _ := RootFromShares(shares)

	modified := append([]domain.RewardShare(nil), shares...)
	modified[0].UnitShare = modified[0].UnitShare - 1
	modified[2].UnitShare = modified[2].UnitShare + 1
	root2, _ := RootFromShares(modified)

	if root1 == root2 {
		t.Fatal("expected unit share modification to change the root")
	}
}

func TestBuildTree_OddNodeDuplication(t *testing.T) {
	shares := []domain.RewardShare{
		{ContributorKey: pk(1), UnitShare: 1_000_000_000},
	}
	tree, err := BuildTree(shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proof, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proof.Siblings) != 0 {
		t.Fatalf("single-leaf tree should need no siblings, got %d", len(proof.Siblings))
	}
	if !VerifyProof(shares[0].LeafPrefix(), shares[0].PODBytes(), proof, tree.Root()) {
		t.Fatal("expected single-leaf proof to verify")
	}

	// Three leaves: the third is last at an odd-length level and is hashed
	// with itself.
	three := threeShares()
	tree3, err := BuildTree(three)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaves := make([]Hash, len(three))
	for i, s := range three {
		leaves[i] = HashLeaf(s.LeafPrefix(), uint32(i), s.PODBytes())
	}
	want := hashInternal(hashInternal(leaves[0], leaves[1]), hashInternal(leaves[2], leaves[2]))
	if tree3.Root() != want {
		t.Fatal("expected the odd last leaf to be hashed with itself")
	}
}

func TestBuildTree_HundredContributors(t *testing.T) {
	shares := make([]domain.RewardShare, 100)
	for i := range shares {
		shares[i] = domain.RewardShare{ContributorKey: pk(byte(i + 1)), UnitShare: domain.UnitShare32(i)}
	}
	tree, err := BuildTree(shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := tree.Root()
	for _, idx := range []int{0, 1, 37, 63, 99} {
		proof, err := tree.GenerateProof(idx)
		if err != nil {
			t.Fatalf("unexpected error at index %d: %v", idx, err)
		}
		if !VerifyProof(shares[idx].LeafPrefix(), shares[idx].PODBytes(), proof, root) {
			t.Fatalf("expected proof at index %d to verify", idx)
		}
	}
}
