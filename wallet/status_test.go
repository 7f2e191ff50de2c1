package wallet

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/walletdb"
)

func pendingRecord(expiration uint64) *walletdb.TransactionRecord {
	tx := &chain.Transaction{Fee: 1, Expiration: expiration}
	return &walletdb.TransactionRecord{Hash: tx.Hash(), Tx: tx, SubmittedSeq: 5}
}

func minedRecord(expiration, blockSequence uint64) *walletdb.TransactionRecord {
	rec := pendingRecord(expiration)
	rec.BlockHash = bytes.Repeat([]byte{0xAB}, chain.HashLen)
	rec.BlockSequence = blockSequence
	return rec
}

func TestTransactionStatus(t *testing.T) {
	tests := []struct {
		name          string
		rec           *walletdb.TransactionRecord
		head          uint64
		confirmations uint64
		want          walletdb.TransactionStatus
	}{
		{"no head at all", pendingRecord(0), 0, 0, walletdb.StatusUnknown},
		{"unmined, no expiration", pendingRecord(0), 100, 0, walletdb.StatusPending},
		{"unmined, before expiration", pendingRecord(101), 100, 0, walletdb.StatusPending},
		{"unmined, expiration equals head", pendingRecord(100), 100, 0, walletdb.StatusExpired},
		{"unmined, past expiration", pendingRecord(99), 100, 0, walletdb.StatusExpired},
		{"mined, no depth required", minedRecord(0, 100), 100, 0, walletdb.StatusConfirmed},
		{"mined, not deep enough", minedRecord(0, 100), 100, 1, walletdb.StatusUnconfirmed},
		{"mined, exactly deep enough", minedRecord(0, 100), 102, 2, walletdb.StatusConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TransactionStatus(tt.rec, tt.head, tt.confirmations))
		})
	}
}

func TestTransactionType(t *testing.T) {
	e := setupEngine(t)
	accountID := uuid.New()

	ownNullifier := bytes.Repeat([]byte{0x31}, chain.NullifierLen)
	require.NoError(t, e.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.PutNullifierIndex(tx, accountID, ownNullifier, []byte("commitment"))
	}))

	miner := &chain.Transaction{Outputs: []*chain.EncryptedNote{{Commitment: make([]byte, chain.HashLen)}}}
	send := &chain.Transaction{
		Fee:    1,
		Spends: []*chain.Spend{{Nullifier: ownNullifier, RootHash: make([]byte, chain.HashLen)}},
	}
	receive := &chain.Transaction{
		Fee:    1,
		Spends: []*chain.Spend{{Nullifier: bytes.Repeat([]byte{0x77}, chain.NullifierLen), RootHash: make([]byte, chain.HashLen)}},
	}

	require.NoError(t, e.View(func(q walletdb.Querier) error {
		for _, tt := range []struct {
			tx   *chain.Transaction
			want walletdb.TransactionType
		}{
			{miner, walletdb.TypeMiner},
			{send, walletdb.TypeSend},
			{receive, walletdb.TypeReceive},
		} {
			rec := &walletdb.TransactionRecord{Hash: tt.tx.Hash(), Tx: tt.tx}
			got, err := TransactionType(q, accountID, rec)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		}
		return nil
	}))
}
