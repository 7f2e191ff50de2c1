package itest

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/wallet"
	"github.com/umbranet/umbra/walletdb"
)

func TestSendReportsShortfall(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 50)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)

	recipient := strangerKeys()
	_, err := w.Send(acc, recipient.address, recipient.ivk, chain.NativeAssetID, 100, 1, 0)
	require.Error(t, err)

	var insufficient *wallet.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, uint64(50), insufficient.Have)
	require.Equal(t, uint64(101), insufficient.Need)
}

func TestSecondSendCannotReuseAPendingSpend(t *testing.T) {
	tn := newTestNode(t)
	acc := tn.init()
	w := tn.wallet()

	// One note backs the whole balance. The first send claims it while
	// still pending; the second must observe the claim and fail rather
	// than build a conflicting spend of the same note.
	fundTx := mintTransaction(t, acc.PublicAddress, acc.IncomingViewKey, chain.NativeAssetID, 1_000)
	header := tn.chain.Connect([]*chain.Transaction{fundTx})
	tn.sync(t, header)

	recipient := strangerKeys()
	first, err := w.Send(acc, recipient.address, recipient.ivk, chain.NativeAssetID, 400, 10, 0)
	require.NoError(t, err)
	require.Len(t, first.Spends, 1)

	_, err = w.Send(acc, recipient.address, recipient.ivk, chain.NativeAssetID, 400, 10, 0)
	require.Error(t, err)

	var insufficient *wallet.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, uint64(0), insufficient.Have)
	require.Equal(t, uint64(410), insufficient.Need)

	// Once the first send confirms, its change becomes spendable and the
	// same request succeeds.
	header = tn.chain.Connect([]*chain.Transaction{first})
	tn.sync(t, header)

	second, err := w.Send(acc, recipient.address, recipient.ivk, chain.NativeAssetID, 400, 10, 0)
	require.NoError(t, err)
	require.Len(t, second.Spends, 1)

	// Connecting the first send's block also flushed the wallet's
	// spent-nullifier filter with its coverage sequence.
	require.Eventually(t, func() bool {
		var state *walletdb.NullifierBloomState
		require.NoError(t, tn.engine.View(func(q walletdb.Querier) error {
			s, err := walletdb.GetNullifierBloomState(q)
			state = s
			return err
		}))
		return state != nil && state.Sequence == header.Sequence
	}, 3*time.Second, 25*time.Millisecond)
}
