package gcrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerivedKeysAreDistinctAndDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x0a}, 32)

	spend1 := DeriveSpendingKey(seed)
	spend2 := DeriveSpendingKey(seed)
	require.Equal(t, spend1, spend2)

	inView := DeriveIncomingViewKey(spend1)
	outView := DeriveOutgoingViewKey(spend1)
	nullKey := DeriveNullifierKey(spend1)

	require.NotEqual(t, spend1, inView)
	require.NotEqual(t, inView, outView)
	require.NotEqual(t, outView, nullKey)
	require.NotEqual(t, spend1, nullKey)
}

func TestDerivePublicAddressIsStableHash(t *testing.T) {
	viewKey := bytes.Repeat([]byte{0x0b}, 32)

	addr1 := DerivePublicAddress(viewKey)
	addr2 := DerivePublicAddress(viewKey)
	require.True(t, addr1.Equal(addr2))
	require.Len(t, addr1, 20)
}
