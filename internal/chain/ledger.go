package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// SolanaSender is the narrow transaction-submission surface a ledger write
// needs, split from SolanaRPC so read-only callers (e.g. the worker's
// EpochSource) never require a fee payer or signer.
type SolanaSender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error)
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
}

// InstructionBuilder encodes one chunked write into a program instruction.
// The concrete on-chain record program (account layout, program ID) is a
// deployment-time concern outside this module; callers supply the encoding
// that matches whatever program they have deployed.
type InstructionBuilder func(address domain.PublicKey, offset int, chunk []byte, payer domain.PublicKey) (solana.Instruction, error)

// LedgerClient implements recorder.LedgerClient against a live Solana
// cluster: reads go through AccountReader, writes are submitted as
// single-instruction transactions built by the supplied InstructionBuilder
// and signed by Signer.
type LedgerClient struct {
	AccountReader
	Sender   SolanaSender
	Signer   solana.PrivateKey
	Payer    domain.PublicKey
	BuildIx  InstructionBuilder
}

// WriteChunk builds, signs, and submits a transaction carrying one chunk of
// a record write.
func (l LedgerClient) WriteChunk(ctx context.Context, address domain.PublicKey, offset int, chunk []byte) error {
	ix, err := l.BuildIx(address, offset, chunk, l.Payer)
	if err != nil {
		return fmt.Errorf("chain: build write instruction: %w", err)
	}

	latest, err := l.Sender.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("chain: get latest blockhash: %w", err)
	}

	payerPK := solana.PublicKeyFromBytes(l.Payer[:])
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, latest.Value.Blockhash, solana.TransactionPayer(payerPK))
	if err != nil {
		return fmt.Errorf("chain: build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payerPK) {
			return &l.Signer
		}
		return nil
	}); err != nil {
		return fmt.Errorf("chain: sign transaction: %w", err)
	}

	if _, err := l.Sender.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{SkipPreflight: false}); err != nil {
		return fmt.Errorf("chain: send transaction: %w", err)
	}
	return nil
}
