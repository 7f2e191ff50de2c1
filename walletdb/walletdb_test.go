package walletdb

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func TestAccountRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	id := uuid.New()

	rec := &AccountRecord{
		ID:                id,
		Name:              "primary",
		EncryptedSpendKey: []byte("ciphertext"),
		IncomingViewKey:   bytes.Repeat([]byte{0x01}, 32),
		OutgoingViewKey:   bytes.Repeat([]byte{0x02}, 32),
		PublicAddressHash: bytes.Repeat([]byte{0x03}, 20),
		AccountIndex:      0,
		CreatedAt:         time.Unix(0, 0).UTC(),
	}

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutAccount(tx, rec)
	}))

	var got *AccountRecord
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetAccount(q, id)
		return err
	}))

	require.Equal(t, rec.Name, got.Name)
	require.Equal(t, rec.IncomingViewKey, got.IncomingViewKey)
}

func TestGetAccountMissing(t *testing.T) {
	e := newTestEngine(t)
	err := e.View(func(q Querier) error {
		_, err := GetAccount(q, uuid.New())
		return err
	})
	require.Error(t, err)
}

func TestDefaultAccountIDRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	id := uuid.New()

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return SetDefaultAccountID(tx, id)
	}))

	var got uuid.UUID
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetDefaultAccountID(q)
		return err
	}))
	require.Equal(t, id, got)
}

func TestHeadRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	id := uuid.New()

	require.NoError(t, e.View(func(q Querier) error {
		head, err := GetHead(q, id)
		require.NoError(t, err)
		require.Nil(t, head)
		return nil
	}))

	head := &Head{Hash: bytes.Repeat([]byte{0xaa}, 32), Sequence: 100}
	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutHead(tx, id, head)
	}))

	var got *Head
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetHead(q, id)
		return err
	}))
	require.Equal(t, head.Sequence, got.Sequence)
	require.Equal(t, head.Hash, got.Hash)
}

func TestNoteRoundTripAndListing(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	owner := &chain.Address{Hash: bytes.Repeat([]byte{0x01}, chain.PublicAddressLen)}
	sender := &chain.Address{Hash: bytes.Repeat([]byte{0x02}, chain.PublicAddressLen)}
	note := &chain.Note{Owner: owner, Sender: sender, AssetID: chain.NativeAssetID, Value: 50}

	dn := &DecryptedNote{
		Note:       note,
		Commitment: note.Commitment(),
		Position:   12,
		TxHash:     bytes.Repeat([]byte{0x05}, 32),
	}

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutNote(tx, accountID, dn)
	}))

	var got *DecryptedNote
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetNote(q, accountID, dn.Commitment)
		return err
	}))
	require.Equal(t, dn.Position, got.Position)
	require.Equal(t, dn.Note.Value, got.Note.Value)

	var listed []*DecryptedNote
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		listed, err = ListNotes(q, accountID)
		return err
	}))
	require.Len(t, listed, 1)
}

func TestUnspentIndexOrdering(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()
	assetID := chain.NativeAssetID

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		if err := PutUnspentIndex(tx, accountID, assetID, 3, []byte("commitment-c")); err != nil {
			return err
		}
		if err := PutUnspentIndex(tx, accountID, assetID, 1, []byte("commitment-a")); err != nil {
			return err
		}
		return PutUnspentIndex(tx, accountID, assetID, 2, []byte("commitment-b"))
	}))

	var order []string
	require.NoError(t, e.View(func(q Querier) error {
		return IterateUnspentNotes(q, accountID, assetID, func(commitment []byte) (bool, error) {
			order = append(order, string(commitment))
			return true, nil
		})
	}))

	require.Equal(t, []string{"commitment-a", "commitment-b", "commitment-c"}, order)
}

func TestUnspentIndexIterationStopsEarly(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()
	assetID := chain.NativeAssetID

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		for i := uint64(0); i < 5; i++ {
			if err := PutUnspentIndex(tx, accountID, assetID, i, []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))

	var visited int
	require.NoError(t, e.View(func(q Querier) error {
		return IterateUnspentNotes(q, accountID, assetID, func(commitment []byte) (bool, error) {
			visited++
			return visited < 2, nil
		})
	}))
	require.Equal(t, 2, visited)
}

func TestNullifierIndexRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()
	nullifier := bytes.Repeat([]byte{0x09}, 32)
	commitment := []byte("commitment")

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutNullifierIndex(tx, accountID, nullifier, commitment)
	}))

	var got []byte
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetNoteByNullifier(q, accountID, nullifier)
		return err
	}))
	require.Equal(t, commitment, got)

	require.NoError(t, e.View(func(q Querier) error {
		got, err := GetNoteByNullifier(q, accountID, bytes.Repeat([]byte{0xff}, 32))
		require.NoError(t, err)
		require.Nil(t, got)
		return nil
	}))
}

func TestTransactionRecordRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	tx := &chain.Transaction{Fee: 5, Expiration: 100}
	rec := &TransactionRecord{
		Hash:         tx.Hash(),
		Tx:           tx,
		SubmittedSeq: 1,
	}

	require.NoError(t, e.Transaction(func(txr Transactor) error {
		return PutTransaction(txr, accountID, rec)
	}))

	var got *TransactionRecord
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetTransaction(q, accountID, rec.Hash)
		return err
	}))
	require.True(t, got.IsPending())
	require.Equal(t, rec.Tx.Fee, got.Tx.Fee)
}

func TestPendingIndexOrdering(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		if err := PutPendingIndex(tx, accountID, 2, []byte("tx-b")); err != nil {
			return err
		}
		return PutPendingIndex(tx, accountID, 1, []byte("tx-a"))
	}))

	var order []string
	require.NoError(t, e.View(func(q Querier) error {
		return IteratePendingTransactions(q, accountID, func(txHash []byte) (bool, error) {
			order = append(order, string(txHash))
			return true, nil
		})
	}))
	require.Equal(t, []string{"tx-a", "tx-b"}, order)
}

func TestExpiredIndexBoundedScan(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	require.NoError(t, e.Transaction(func(tx Transactor) error {
		if err := PutExpiredIndex(tx, accountID, 50, []byte("expires-at-50")); err != nil {
			return err
		}
		return PutExpiredIndex(tx, accountID, 150, []byte("expires-at-150"))
	}))

	var expired []string
	require.NoError(t, e.View(func(q Querier) error {
		return IterateExpiredTransactions(q, accountID, 100, func(txHash []byte) error {
			expired = append(expired, string(txHash))
			return nil
		})
	}))
	require.Equal(t, []string{"expires-at-50"}, expired)
}

func TestBalanceRoundTripAndDefault(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	var zero *BalanceRecord
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		zero, err = GetBalance(q, accountID, chain.NativeAssetID)
		return err
	}))
	require.Equal(t, uint64(0), zero.Confirmed)

	bal := &BalanceRecord{AssetID: chain.NativeAssetID, Confirmed: 1000, Pending: 50}
	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutBalance(tx, accountID, bal)
	}))

	var got *BalanceRecord
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetBalance(q, accountID, chain.NativeAssetID)
		return err
	}))
	require.Equal(t, bal.Confirmed, got.Confirmed)
	require.Equal(t, bal.Pending, got.Pending)
}

func TestCheckpointsRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	none, err := func() ([]*BlockCheckpoint, error) {
		var cps []*BlockCheckpoint
		err := e.View(func(q Querier) error {
			var err error
			cps, err = GetCheckpoints(q)
			return err
		})
		return cps, err
	}()
	require.NoError(t, err)
	require.Nil(t, none)

	checkpoints := []*BlockCheckpoint{
		{Sequence: 1, Hash: bytes.Repeat([]byte{0x01}, 32)},
		{Sequence: 2, Hash: bytes.Repeat([]byte{0x02}, 32)},
	}
	require.NoError(t, e.Transaction(func(tx Transactor) error {
		return PutCheckpoints(tx, checkpoints)
	}))

	var got []*BlockCheckpoint
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		got, err = GetCheckpoints(q)
		return err
	}))
	require.Len(t, got, 2)
	require.Equal(t, uint64(2), got[1].Sequence)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	e := newTestEngine(t)
	accountID := uuid.New()

	sentinel := gcrypto.Hash(bytes.Repeat([]byte{0x01}, 32))
	err := e.Transaction(func(tx Transactor) error {
		if err := PutHead(tx, accountID, &Head{Hash: sentinel, Sequence: 1}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var head *Head
	require.NoError(t, e.View(func(q Querier) error {
		var err error
		head, err = GetHead(q, accountID)
		return err
	}))
	require.Nil(t, head, "a failed transaction must not leave partial writes behind")
}
