package chain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTransaction() *Transaction {
	owner := &Address{Hash: bytes.Repeat([]byte{0x01}, PublicAddressLen)}
	sender := &Address{Hash: bytes.Repeat([]byte{0x02}, PublicAddressLen)}

	note := &Note{
		Owner:   owner,
		Sender:  sender,
		AssetID: NativeAssetID,
		Value:   100,
	}

	return &Transaction{
		Spends: []*Spend{
			{
				Nullifier: bytes.Repeat([]byte{0x03}, NullifierLen),
				RootHash:  bytes.Repeat([]byte{0x04}, HashLen),
				TreeSize:  7,
			},
		},
		Outputs: []*EncryptedNote{
			{
				Commitment: note.Commitment(),
				Ciphertext: []byte("ciphertext"),
			},
		},
		Fee:        10,
		Expiration: 1000,
	}
}

func TestTransactionWireRoundTrip(t *testing.T) {
	tx := sampleTransaction()
	tx.BindingSignature = bytes.Repeat([]byte{0x05}, 64)

	buf := new(bytes.Buffer)
	_, err := tx.WriteTo(buf)
	require.NoError(t, err)

	var out Transaction
	_, err = out.ReadFrom(buf)
	require.NoError(t, err)

	require.Equal(t, tx.Fee, out.Fee)
	require.Equal(t, tx.Expiration, out.Expiration)
	require.Equal(t, tx.BindingSignature, out.BindingSignature)
	require.Len(t, out.Spends, 1)
	require.Equal(t, tx.Spends[0].Nullifier, out.Spends[0].Nullifier)
}

func TestTransactionHashExcludesSignature(t *testing.T) {
	tx := sampleTransaction()

	unsigned := tx.Hash()

	tx.BindingSignature = bytes.Repeat([]byte{0xff}, 64)
	require.True(t, unsigned.Equal(tx.Hash()), "signing must not change the transaction hash")
}

func TestTransactionHashChangesWithFee(t *testing.T) {
	tx := sampleTransaction()
	h1 := tx.Hash()

	tx.Fee++
	require.False(t, h1.Equal(tx.Hash()))
}

func TestTransactionIsExpired(t *testing.T) {
	tx := sampleTransaction()
	tx.Expiration = 100

	require.False(t, tx.IsExpired(99))
	require.True(t, tx.IsExpired(100))
	require.True(t, tx.IsExpired(101))

	tx.Expiration = 0
	require.False(t, tx.IsExpired(1_000_000), "zero expiration never expires")
}
