package walletdb

import (
	"github.com/pkg/errors"
)

// NullifierBloomState is the wallet's serialized spent-nullifier filter
// together with the highest block sequence whose spends it has absorbed.
// The sequence is persisted atomically with the bits so that after a
// restart the wallet knows exactly which block range still needs to be
// replayed into the filter.
type NullifierBloomState struct {
	Sequence uint64
	Bits     []byte
}

func PutNullifierBloomState(tx Transactor, state *NullifierBloomState) error {
	return errors.WithStack(tx.Set([]byte(keyNullifierBloom), gobEncode(state)))
}

// GetNullifierBloomState returns (nil, nil) when no filter has been
// persisted yet, the state of a wallet that has never connected a block.
func GetNullifierBloomState(q Querier) (*NullifierBloomState, error) {
	b, err := q.Get([]byte(keyNullifierBloom))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	state := new(NullifierBloomState)
	if err := gobDecode(state, b); err != nil {
		return nil, err
	}
	return state, nil
}
