package chain

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/testutil"
)

func TestComputeAssetIDIsDeterministic(t *testing.T) {
	creator := &Address{Hash: bytes.Repeat([]byte{0x01}, PublicAddressLen)}

	id := ComputeAssetID(creator, "TOKEN", "metadata")
	require.Len(t, []byte(id), AssetIDLen)
	testutil.RequireEqualHexBytes(t, hex.EncodeToString(id), ComputeAssetID(creator, "TOKEN", "metadata"))
}

func TestComputeAssetIDBindsEveryInput(t *testing.T) {
	creator := &Address{Hash: bytes.Repeat([]byte{0x01}, PublicAddressLen)}
	other := &Address{Hash: bytes.Repeat([]byte{0x02}, PublicAddressLen)}

	id := ComputeAssetID(creator, "TOKEN", "metadata")
	require.False(t, id.Equal(ComputeAssetID(other, "TOKEN", "metadata")))
	require.False(t, id.Equal(ComputeAssetID(creator, "NEKOT", "metadata")))
	require.False(t, id.Equal(ComputeAssetID(creator, "TOKEN", "different")))
}

func TestIsMinersFee(t *testing.T) {
	reward := &Transaction{Outputs: []*EncryptedNote{{Commitment: make([]byte, HashLen)}}}
	require.True(t, reward.IsMinersFee())

	spend := &Transaction{
		Fee:     1,
		Spends:  []*Spend{{Nullifier: make([]byte, NullifierLen), RootHash: make([]byte, HashLen)}},
		Outputs: []*EncryptedNote{{Commitment: make([]byte, HashLen)}},
	}
	require.False(t, spend.IsMinersFee())

	empty := &Transaction{}
	require.False(t, empty.IsMinersFee())
}
