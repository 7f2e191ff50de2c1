package walletdb

import (
	"github.com/pkg/errors"
)

// BlockCheckpoint is one entry in the chain follower's reorg-detection
// ring: a (sequence, hash) pair recent enough that the follower can still
// be asked to confirm it is on the chain's best fork.
type BlockCheckpoint struct {
	Sequence uint64
	Hash     []byte
}

const keyCheckpoints = "m/checkpoints"

// GetCheckpoints returns the chain follower's persisted checkpoint ring,
// ordered oldest to newest, or nil if none have been recorded yet.
func GetCheckpoints(q Querier) ([]*BlockCheckpoint, error) {
	b, err := q.Get([]byte(keyCheckpoints))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var checkpoints []*BlockCheckpoint
	if err := gobDecode(&checkpoints, b); err != nil {
		return nil, err
	}
	return checkpoints, nil
}

// PutCheckpoints overwrites the checkpoint ring wholesale. The ring is
// small and bounded (a fixed finality depth), so rewriting it atomically
// on every block is simpler than maintaining per-entry keys.
func PutCheckpoints(tx Transactor, checkpoints []*BlockCheckpoint) error {
	return errors.WithStack(tx.Set([]byte(keyCheckpoints), gobEncode(checkpoints)))
}
