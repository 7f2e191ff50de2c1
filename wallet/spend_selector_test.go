package wallet

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/walletdb"
)

var (
	selectorNullifierKey = bytes.Repeat([]byte{0x11}, 32)
	selectorOwner        = &chain.Address{Hash: bytes.Repeat([]byte{0x22}, chain.PublicAddressLen)}
)

// seedUnspentNote persists one unspent note at position pos, with its
// unspent index entry and balance contribution, the state recordNote
// leaves behind after a block connect minus the nullifier index entry,
// which selectSpends does not read.
func seedUnspentNote(t *testing.T, e *walletdb.Engine, accountID uuid.UUID, assetID []byte, pos, value uint64) gcrypto.Hash {
	t.Helper()

	note := &chain.Note{
		Owner:   selectorOwner,
		Sender:  selectorOwner,
		AssetID: assetID,
		Value:   value,
		Memo:    [chain.MemoLen]byte{byte(pos)},
	}
	commitment := note.Commitment()

	require.NoError(t, e.Transaction(func(tx walletdb.Transactor) error {
		dn := &walletdb.DecryptedNote{Note: note, Commitment: commitment, Position: pos, TxHash: make(gcrypto.Hash, chain.HashLen)}
		if err := walletdb.PutNote(tx, accountID, dn); err != nil {
			return err
		}
		if err := walletdb.PutUnspentIndex(tx, accountID, assetID, pos, commitment); err != nil {
			return err
		}
		bal, err := walletdb.GetBalance(tx, accountID, assetID)
		if err != nil {
			return err
		}
		bal.Confirmed += value
		return walletdb.PutBalance(tx, accountID, bal)
	}))
	return commitment
}

func runSelect(t *testing.T, e *walletdb.Engine, chn Chain, bloom *NullifierBloom, accountID uuid.UUID, assetID []byte, amount uint64) ([]*SelectedNote, uint64, error) {
	t.Helper()
	var selected []*SelectedNote
	var total uint64
	err := e.Transaction(func(tx walletdb.Transactor) error {
		var selectErr error
		selected, total, selectErr = selectSpends(tx, chn, bloom, accountID, selectorNullifierKey, assetID, amount)
		return selectErr
	})
	return selected, total, err
}

func TestSelectSpendsOldestPositionFirst(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	c1 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 50)
	c2 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 2, 50)
	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 3, 50)

	selected, total, err := runSelect(t, e, sc, nil, accountID, chain.NativeAssetID, 60)
	require.NoError(t, err)
	require.Equal(t, uint64(100), total)
	require.Len(t, selected, 2)
	require.True(t, selected[0].Commitment.Equal(c1))
	require.True(t, selected[1].Commitment.Equal(c2))
}

func TestSelectSpendsInsufficientFunds(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 50)

	_, _, err := runSelect(t, e, sc, nil, accountID, chain.NativeAssetID, 101)
	require.Error(t, err)

	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, uint64(50), insufficient.Have)
	require.Equal(t, uint64(101), insufficient.Need)
}

func TestSelectSpendsSkipsZeroValueNotes(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 0)
	c2 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 2, 30)

	selected, total, err := runSelect(t, e, sc, nil, accountID, chain.NativeAssetID, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(30), total)
	require.Len(t, selected, 1)
	require.True(t, selected[0].Commitment.Equal(c2))
}

func TestSelectSpendsSkipsUnwitnessableNotes(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	sc.witnessErr = errors.New("tree mid-rotation")
	accountID := uuid.New()

	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 50)

	_, _, err := runSelect(t, e, sc, nil, accountID, chain.NativeAssetID, 10)
	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, uint64(0), insufficient.Have)
}

func TestSelectSpendsBloomMissSkipsChainLookup(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 50)
	seedUnspentNote(t, e, accountID, chain.NativeAssetID, 2, 50)

	// The filter has never seen either nullifier, so neither candidate
	// can be spent on chain and the authoritative lookup never runs.
	selected, total, err := runSelect(t, e, sc, NewNullifierBloom(), accountID, chain.NativeAssetID, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(100), total)
	require.Len(t, selected, 2)
	require.Zero(t, sc.nullifierChecks)
}

func TestSelectSpendsBloomHitFallsThroughToChain(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	c1 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 40)
	c2 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 2, 40)

	// The wallet's filter saw the block that spent c1, and the chain's
	// set agrees: the selector repairs c1 and consumes c2, confirming the
	// hit with exactly one authoritative lookup.
	n1 := gcrypto.DeriveNullifier(selectorNullifierKey, c1, 1)
	sc.nullifiers[n1.String()] = true
	bloom := NewNullifierBloom()
	bloom.Add(n1)

	selected, _, err := runSelect(t, e, sc, bloom, accountID, chain.NativeAssetID, 40)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.True(t, selected[0].Commitment.Equal(c2))
	require.Equal(t, 1, sc.nullifierChecks)

	require.NoError(t, e.View(func(q walletdb.Querier) error {
		repaired, err := walletdb.GetNote(q, accountID, c1)
		require.NoError(t, err)
		require.True(t, repaired.Spent)
		return nil
	}))
}

func TestSelectSpendsRepairsNoteSpentOnChain(t *testing.T) {
	e := setupEngine(t)
	sc := newStubChain()
	accountID := uuid.New()

	c1 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 1, 40)
	c2 := seedUnspentNote(t, e, accountID, chain.NativeAssetID, 2, 40)

	// The chain already knows c1's nullifier: our local view missed the
	// spend. The selector must repair the record and move on to c2.
	n1 := gcrypto.DeriveNullifier(selectorNullifierKey, c1, 1)
	sc.nullifiers[n1.String()] = true

	selected, total, err := runSelect(t, e, sc, nil, accountID, chain.NativeAssetID, 40)
	require.NoError(t, err)
	require.Equal(t, uint64(40), total)
	require.Len(t, selected, 1)
	require.True(t, selected[0].Commitment.Equal(c2))

	require.NoError(t, e.View(func(q walletdb.Querier) error {
		repaired, err := walletdb.GetNote(q, accountID, c1)
		require.NoError(t, err)
		require.True(t, repaired.Spent)

		bal, err := walletdb.GetBalance(q, accountID, chain.NativeAssetID)
		require.NoError(t, err)
		require.Equal(t, uint64(40), bal.Confirmed)

		var remaining int
		return walletdb.IterateUnspentNotes(q, accountID, chain.NativeAssetID, func(commitment []byte) (bool, error) {
			remaining++
			require.True(t, c2.Equal(commitment))
			return true, nil
		})
	}))
}
