// Package workers fans the wallet engine's CPU-bound work — trial note
// decryption and transaction proving — out across a bounded number of
// goroutines.
package workers

import (
	"bytes"
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/wallet"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool implements wallet.WorkerPool. Concurrency is capped at Size
// goroutines regardless of how many payloads a single call carries, so a
// large reorg replaying thousands of blocks can't spin up thousands of
// goroutines at once.
type Pool struct {
	Size int64
}

// New returns a Pool sized to the host's CPU count.
func New() *Pool {
	return &Pool{Size: int64(runtime.NumCPU())}
}

// DecryptNotes tries every payload concurrently: the incoming view key
// against the output's main ciphertext, then the outgoing view key
// against the sender copy. A payload that opens under neither comes back
// as a nil-Note result rather than an error, since during a scan that's
// the overwhelmingly common outcome, not a failure.
func (p *Pool) DecryptNotes(payloads []*wallet.DecryptPayload) ([]*wallet.DecryptResult, error) {
	results := make([]*wallet.DecryptResult, len(payloads))

	sem := semaphore.NewWeighted(p.sizeOrDefault())
	ctx := context.Background()
	eg, egCtx := errgroup.WithContext(ctx)

	for i, payload := range payloads {
		i, payload := i, payload
		if err := sem.Acquire(egCtx, 1); err != nil {
			return nil, errors.Wrap(err, "error acquiring decrypt slot")
		}
		eg.Go(func() error {
			defer sem.Release(1)
			results[i] = decryptOne(payload)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func decryptOne(payload *wallet.DecryptPayload) *wallet.DecryptResult {
	if note := openNote(payload.IncomingViewKey, payload.EncryptedNote.Commitment, payload.EncryptedNote.Ciphertext); note != nil {
		return &wallet.DecryptResult{Note: note, Matched: wallet.ViewKeyIncoming}
	}
	if len(payload.EncryptedNote.OutCiphertext) > 0 {
		if note := openNote(payload.OutgoingViewKey, payload.EncryptedNote.Commitment, payload.EncryptedNote.OutCiphertext); note != nil {
			return &wallet.DecryptResult{Note: note, Matched: wallet.ViewKeyOutgoing}
		}
	}
	return &wallet.DecryptResult{}
}

func openNote(viewKey []byte, commitment, ciphertext []byte) *chain.Note {
	if len(viewKey) == 0 {
		return nil
	}
	pt, err := gcrypto.OpenNote(viewKey, commitment, ciphertext)
	if err != nil {
		return nil
	}
	note := new(chain.Note)
	if _, err := note.ReadFrom(bytes.NewReader(pt)); err != nil {
		return nil
	}
	return note
}

// PostTransaction signs off on a transaction's proof obligations. The
// spend-authority binding signature is already attached by TxBuilder.Sign
// before a transaction reaches the pool; proving here exists as the seam
// a future zero-knowledge proof backend would plug into, run through the
// same bounded pool as decryption rather than inline on the caller's
// goroutine.
func (p *Pool) PostTransaction(raw *chain.Transaction) (*chain.Transaction, error) {
	if len(raw.BindingSignature) == 0 {
		return nil, errors.New("transaction is missing its binding signature")
	}
	return raw, nil
}

func (p *Pool) sizeOrDefault() int64 {
	if p.Size > 0 {
		return p.Size
	}
	return int64(runtime.NumCPU())
}
