// Package chain narrows github.com/gagliardetto/solana-go down to the RPC
// calls the reward pipeline needs — epoch resolution, leader schedule and
// vote account stake, and raw account reads/writes for the ledger recorder
// — following the teacher's sol.SolanaRPC interface-seam pattern
// (indexer/pkg/sol/view.go).
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// SolanaRPC is the narrow read surface the pipeline depends on.
type SolanaRPC interface {
	GetEpochInfo(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetEpochInfoResult, error)
	GetLeaderSchedule(ctx context.Context) (solanarpc.GetLeaderScheduleResult, error)
	GetVoteAccounts(ctx context.Context, opts *solanarpc.GetVoteAccountsOpts) (*solanarpc.GetVoteAccountsResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
}

// Client wraps solanarpc.Client to satisfy SolanaRPC. It exists so call
// sites depend on the narrow interface above rather than the full RPC
// client, matching the teacher's view-package seam.
type Client struct {
	rpc *solanarpc.Client
}

// NewClient constructs a Client against the given JSON-RPC endpoint.
func NewClient(rpcURL string) *Client {
	return &Client{rpc: solanarpc.New(rpcURL)}
}

func (c *Client) GetEpochInfo(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetEpochInfoResult, error) {
	return c.rpc.GetEpochInfo(ctx, commitment)
}

func (c *Client) GetLeaderSchedule(ctx context.Context) (solanarpc.GetLeaderScheduleResult, error) {
	return c.rpc.GetLeaderSchedule(ctx)
}

func (c *Client) GetVoteAccounts(ctx context.Context, opts *solanarpc.GetVoteAccountsOpts) (*solanarpc.GetVoteAccountsResult, error) {
	return c.rpc.GetVoteAccounts(ctx, opts)
}

func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	return c.rpc.GetAccountInfo(ctx, account)
}

// EpochSource adapts SolanaRPC into worker.EpochSource.
type EpochSource struct {
	RPC SolanaRPC
}

// CurrentEpoch resolves the cluster's current epoch at finalized
// commitment.
func (e EpochSource) CurrentEpoch(ctx context.Context) (uint64, error) {
	info, err := e.RPC.GetEpochInfo(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("chain: get epoch info: %w", err)
	}
	return info.Epoch, nil
}

// LeaderScheduleStakeProxy builds a per-validator slot-count map from the
// current epoch's leader schedule, used by the demand builder as a stake
// proxy when live vote-account stake is unavailable.
func LeaderScheduleStakeProxy(ctx context.Context, rpc SolanaRPC) (map[domain.PublicKey]int, error) {
	schedule, err := rpc.GetLeaderSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: get leader schedule: %w", err)
	}
	out := make(map[domain.PublicKey]int, len(schedule))
	for pk, slots := range schedule {
		key, err := domain.ParsePublicKey(pk.String())
		if err != nil {
			return nil, fmt.Errorf("chain: parse leader schedule pubkey %s: %w", pk.String(), err)
		}
		out[key] = len(slots)
	}
	return out, nil
}

// VoteAccountStake builds a per-validator active-stake map from the current
// vote accounts (current and delinquent).
func VoteAccountStake(ctx context.Context, rpc SolanaRPC) (map[domain.PublicKey]uint64, error) {
	accounts, err := rpc.GetVoteAccounts(ctx, &solanarpc.GetVoteAccountsOpts{Commitment: solanarpc.CommitmentFinalized})
	if err != nil {
		return nil, fmt.Errorf("chain: get vote accounts: %w", err)
	}
	out := make(map[domain.PublicKey]uint64, len(accounts.Current)+len(accounts.Delinquent))
	for _, group := range [][]solanarpc.VoteAccountsResult{accounts.Current, accounts.Delinquent} {
		for _, acc := range group {
			key, err := domain.ParsePublicKey(acc.NodePubkey.String())
			if err != nil {
				return nil, fmt.Errorf("chain: parse vote account node pubkey %s: %w", acc.NodePubkey.String(), err)
			}
			out[key] += uint64(acc.ActivatedStake)
		}
	}
	return out, nil
}

// AccountReader reads raw account data, used by the ledger recorder's read
// path.
type AccountReader struct {
	RPC SolanaRPC
}

// ReadAccount fetches an account's raw data, returning nil (not an error)
// when the account does not exist.
func (a AccountReader) ReadAccount(ctx context.Context, address domain.PublicKey) ([]byte, error) {
	pk := solana.PublicKeyFromBytes(address[:])
	result, err := a.RPC.GetAccountInfo(ctx, pk)
	if err != nil {
		if err == solanarpc.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("chain: get account info for %s: %w", address.String(), err)
	}
	if result == nil || result.Value == nil {
		return nil, nil
	}
	return result.Value.Data.GetBinary(), nil
}

// AccountExists reports whether an account is present on chain.
func (a AccountReader) AccountExists(ctx context.Context, address domain.PublicKey) (bool, error) {
	data, err := a.ReadAccount(ctx, address)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}
