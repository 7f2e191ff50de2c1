package itest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/walletdb"
)

func balanceOf(t *testing.T, tn *testNode, accountID uuid.UUID, assetID []byte) uint64 {
	t.Helper()
	bals, err := tn.wallet().Balances(accountID)
	require.NoError(t, err)
	for _, bal := range bals {
		if string(bal.AssetID) == string(assetID) {
			return bal.Confirmed
		}
	}
	return 0
}

func TestMintCreatesAndGrowsAnOwnedAsset(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 1_000)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)

	// First mint registers the asset by (name, metadata).
	minted, err := w.Mint(acc, nil, "TOKEN", "test token", 500, 10, 0)
	require.NoError(t, err)
	require.Len(t, minted.Mints, 1)

	header = tn.chain.Connect([]*chain.Transaction{minted})
	tn.sync(t, header)

	assetID := chain.ComputeAssetID(acc.PublicAddress, "TOKEN", "test token")
	require.Equal(t, uint64(500), balanceOf(t, tn, acc.ID, assetID))
	require.Equal(t, uint64(1_000-10), balanceOf(t, tn, acc.ID, chain.NativeAssetID))

	// A later mint may name the asset by id alone; its definition comes
	// back from chain storage.
	grown, err := w.Mint(acc, assetID, "", "", 250, 10, 0)
	require.NoError(t, err)

	header = tn.chain.Connect([]*chain.Transaction{grown})
	tn.sync(t, header)
	require.Equal(t, uint64(750), balanceOf(t, tn, acc.ID, assetID))
}

func TestMintRejectsForeignAsset(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	other, err := w.CreateAccount("other")
	require.NoError(t, err)

	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 1_000)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)

	minted, err := w.Mint(acc, nil, "TOKEN", "test token", 500, 10, 0)
	require.NoError(t, err)
	header = tn.chain.Connect([]*chain.Transaction{minted})
	tn.sync(t, header)

	// Recomputing the asset id under the other account's address cannot
	// match, so minting someone else's asset fails before any funding.
	assetID := chain.ComputeAssetID(acc.PublicAddress, "TOKEN", "test token")
	_, err = w.Mint(other, assetID, "", "", 100, 10, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not owned")
}

func TestBurnDestroysUnits(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 1_000)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)

	minted, err := w.Mint(acc, nil, "TOKEN", "test token", 500, 10, 0)
	require.NoError(t, err)
	header = tn.chain.Connect([]*chain.Transaction{minted})
	tn.sync(t, header)

	assetID := chain.ComputeAssetID(acc.PublicAddress, "TOKEN", "test token")
	burned, err := w.Burn(acc, assetID, 300, 10, 0)
	require.NoError(t, err)
	require.Len(t, burned.Burns, 1)

	header = tn.chain.Connect([]*chain.Transaction{burned})
	tn.sync(t, header)

	require.Equal(t, uint64(500-300), balanceOf(t, tn, acc.ID, assetID))
	require.Equal(t, uint64(1_000-10-10), balanceOf(t, tn, acc.ID, chain.NativeAssetID))

	// The pending records for both transactions confirmed along the way.
	var stillPending [][]byte
	require.NoError(t, tn.engine.View(func(q walletdb.Querier) error {
		return walletdb.IteratePendingTransactions(q, acc.ID, func(txHash []byte) (bool, error) {
			stillPending = append(stillPending, txHash)
			return true, nil
		})
	}))
	require.Empty(t, stillPending)
}
