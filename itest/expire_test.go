package itest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/walletdb"
)

func isPending(t *testing.T, tn *testNode, accountID uuid.UUID, txHash []byte) bool {
	t.Helper()
	found := false
	err := tn.engine.View(func(q walletdb.Querier) error {
		return walletdb.IteratePendingTransactions(q, accountID, func(hash []byte) (bool, error) {
			if string(hash) == string(txHash) {
				found = true
				return false, nil
			}
			return true, nil
		})
	})
	require.NoError(t, err)
	return found
}

func TestPendingTransactionExpires(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	recipient, err := w.CreateAccount("recipient")
	require.NoError(t, err)

	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 5_000)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)
	require.Equal(t, uint64(2), header.Sequence)

	sent, err := w.Send(acc, recipient.PublicAddress, recipient.IncomingViewKey, chain.NativeAssetID, 500, 10, header.Sequence+1)
	require.NoError(t, err)
	require.True(t, isPending(t, tn, acc.ID, sent.Hash()))

	// Advance the chain to the transaction's expiration sequence without ever
	// connecting it, so the next event-loop tick expires it instead of
	// confirming it.
	expireHeader := tn.chain.Connect(nil)
	tn.sync(t, expireHeader)
	require.Equal(t, header.Sequence+1, expireHeader.Sequence)

	require.Eventually(t, func() bool {
		return !isPending(t, tn, acc.ID, sent.Hash())
	}, 3*time.Second, 10*time.Millisecond)
}
