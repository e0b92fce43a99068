package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/malbeclabs/contributor-rewards/internal/domain"
	"go.uber.org/ratelimit"
)

// ErrNotFound distinguishes "account does not exist" from a deserialization
// failure on read.
var ErrNotFound = errors.New("recorder: account not found")

// maxChunkBytes bounds a single write to the transport's maximum-message
// budget; larger payloads are written across multiple chunked calls.
const maxChunkBytes = 900

// LedgerClient is the narrow transport seam the recorder depends on. Its
// concrete implementation (RPC retries, wallet signing) is an external
// collaborator's concern; the recorder only needs existence checks and
// chunked writes.
type LedgerClient interface {
	AccountExists(ctx context.Context, address domain.PublicKey) (bool, error)
	WriteChunk(ctx context.Context, address domain.PublicKey, offset int, chunk []byte) error
	ReadAccount(ctx context.Context, address domain.PublicKey) ([]byte, error)
}

// Recorder is the ledger recorder: for a caller-supplied address (see
// ComputeRecordAddress) it checks idempotency, chunks payloads, and retries
// transport errors with exponential backoff under a shared rate limit.
type Recorder struct {
	client  LedgerClient
	limiter ratelimit.Limiter
	backoff func() backoff.BackOff
}

// New constructs a Recorder. rpsLimit bounds the process-wide ledger write
// rate; it is shared across all writes issued through this Recorder.
func New(client LedgerClient, rpsLimit int) *Recorder {
	if rpsLimit <= 0 {
		rpsLimit = 1
	}
	return &Recorder{
		client:  client,
		limiter: ratelimit.New(rpsLimit),
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Exists performs the pre-write existence check used as the idempotency
// handle: a true result means the caller should treat this as success
// without writing.
func (r *Recorder) Exists(ctx context.Context, address domain.PublicKey) (bool, error) {
	r.limiter.Take()
	return backoffBool(ctx, r.backoff(), func() (bool, error) {
		return r.client.AccountExists(ctx, address)
	})
}

// Write serializes payload into maxChunkBytes-sized chunks and writes each
// with its own rate-limited, retried call. It does not perform the
// pre-write existence check itself — callers (the orchestrator) are
// expected to call Exists first so the decision to skip is visible in the
// pipeline's own logs.
func (r *Recorder) Write(ctx context.Context, address domain.PublicKey, payload []byte) error {
	for offset := 0; offset < len(payload); offset += maxChunkBytes {
		end := offset + maxChunkBytes
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]
		r.limiter.Take()
		if err := backoffErr(ctx, r.backoff(), func() error {
			return r.client.WriteChunk(ctx, address, offset, chunk)
		}); err != nil {
			return fmt.Errorf("recorder: write chunk at offset %d: %w", offset, err)
		}
	}
	return nil
}

// WriteAndTrack wraps Write with the idempotency check and records the
// outcome into summary, mirroring the original implementation's
// write_and_track helper.
func (r *Recorder) WriteAndTrack(ctx context.Context, address domain.PublicKey, payload []byte, description string, summary *WriteSummary) {
	exists, err := r.Exists(ctx, address)
	if err != nil {
		summary.AddFailure(description, fmt.Errorf("existence check: %w", err))
		return
	}
	if exists {
		summary.AddSuccess(description + " (already present, idempotent skip)")
		return
	}

	if err := r.Write(ctx, address, payload); err != nil {
		summary.AddFailure(description, err)
		return
	}
	summary.AddSuccess(description)
}

// Read fetches and reassembles a full account payload.
func (r *Recorder) Read(ctx context.Context, address domain.PublicKey) ([]byte, error) {
	r.limiter.Take()
	data, err := backoffBytes(ctx, r.backoff(), func() ([]byte, error) {
		return r.client.ReadAccount(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func backoffErr(ctx context.Context, b backoff.BackOff, op func() error) error {
	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return op()
	}, b)
}

func backoffBool(ctx context.Context, b backoff.BackOff, op func() (bool, error)) (bool, error) {
	var result bool
	err := backoffErr(ctx, b, func() error {
		v, err := op()
		result = v
		return err
	})
	return result, err
}

func backoffBytes(ctx context.Context, b backoff.BackOff, op func() ([]byte, error)) ([]byte, error) {
	var result []byte
	err := backoffErr(ctx, b, func() error {
		v, err := op()
		result = v
		return err
	})
	return result, err
}
