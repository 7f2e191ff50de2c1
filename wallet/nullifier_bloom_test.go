package wallet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullifierBloomMembership(t *testing.T) {
	b := NewNullifierBloom()

	seen := bytes.Repeat([]byte{0x01}, 32)
	unseen := bytes.Repeat([]byte{0x02}, 32)

	b.Add(seen)
	require.True(t, b.Test(seen))
	require.False(t, b.Test(unseen))
}

func TestNullifierBloomBytesRoundTrip(t *testing.T) {
	b := NewNullifierBloom()
	nullifier := bytes.Repeat([]byte{0x03}, 32)
	b.Add(nullifier)

	restored, err := NullifierBloomFromBytes(b.Bytes())
	require.NoError(t, err)
	require.True(t, restored.Test(nullifier))
}

func TestNullifierBloomCopyIsIndependent(t *testing.T) {
	b := NewNullifierBloom()
	cp := b.Copy()

	nullifier := bytes.Repeat([]byte{0x04}, 32)
	cp.Add(nullifier)
	require.True(t, cp.Test(nullifier))
	require.False(t, b.Test(nullifier))
}
