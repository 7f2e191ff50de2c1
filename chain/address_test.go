package chain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	addr := &Address{Hash: bytes.Repeat([]byte{0xab}, PublicAddressLen)}

	bech := addr.String(NetworkMain)
	require.True(t, len(bech) > 0)

	decoded, err := NewAddressFromBech32(bech)
	require.NoError(t, err)
	require.True(t, addr.Equal(decoded))
}

func TestAddressWireRoundTrip(t *testing.T) {
	addr := &Address{Hash: bytes.Repeat([]byte{0x11}, PublicAddressLen)}

	buf := new(bytes.Buffer)
	_, err := addr.WriteTo(buf)
	require.NoError(t, err)

	var out Address
	_, err = out.ReadFrom(buf)
	require.NoError(t, err)
	require.True(t, addr.Equal(&out))
}

func TestAddressJSONRoundTrip(t *testing.T) {
	addr := &Address{Hash: bytes.Repeat([]byte{0x22}, PublicAddressLen)}

	b, err := addr.MarshalJSON()
	require.NoError(t, err)

	var out Address
	require.NoError(t, out.UnmarshalJSON(b))
	require.True(t, addr.Equal(&out))
}

func TestAddressEqualRejectsNil(t *testing.T) {
	addr := &Address{Hash: bytes.Repeat([]byte{0x33}, PublicAddressLen)}
	require.False(t, addr.Equal(nil))
}
