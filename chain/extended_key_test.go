package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const TestMnemonic = "volume doll flush federal inflict tomato result property total curtain shield aisle"
const AltMnemonic = "run term hint cram stage surround cup frame flight miracle extend reward twelve cause dragon forum barely uncover iron slot napkin walk cancel acid"

func TestMasterExtendedKeyAccountDerivation(t *testing.T) {
	mk := NewMasterExtendedKeyFromMnemonic(TestMnemonic, "foo", NetworkMain)

	acct0 := mk.AccountIndexKey(0)
	acct1 := mk.AccountIndexKey(1)

	priv0, err := acct0.PrivateKeyBytes()
	require.NoError(t, err)
	priv1, err := acct1.PrivateKeyBytes()
	require.NoError(t, err)

	require.NotEqual(t, priv0, priv1, "distinct account indices must derive distinct keys")

	again, err := mk.AccountIndexKey(0).PrivateKeyBytes()
	require.NoError(t, err)
	require.Equal(t, priv0, again, "deriving the same account index twice must be deterministic")
}

func TestMasterExtendedKeyRoundTripsThroughMnemonic(t *testing.T) {
	a := NewMasterExtendedKeyFromMnemonic(TestMnemonic, "", NetworkMain)
	b := NewMasterExtendedKeyFromMnemonic(TestMnemonic, "", NetworkMain)

	privA, err := a.AccountIndexKey(3).PrivateKeyBytes()
	require.NoError(t, err)
	privB, err := b.AccountIndexKey(3).PrivateKeyBytes()
	require.NoError(t, err)
	require.Equal(t, privA, privB)
}

func TestMasterExtendedKeyDifferentMnemonicsDiverge(t *testing.T) {
	a := NewMasterExtendedKeyFromMnemonic(TestMnemonic, "", NetworkMain)
	b := NewMasterExtendedKeyFromMnemonic(AltMnemonic, "", NetworkMain)

	privA, err := a.AccountIndexKey(0).PrivateKeyBytes()
	require.NoError(t, err)
	privB, err := b.AccountIndexKey(0).PrivateKeyBytes()
	require.NoError(t, err)
	require.NotEqual(t, privA, privB)
}

func TestIsHardenedNode(t *testing.T) {
	require.False(t, IsHardenedNode(0))
	require.False(t, IsHardenedNode(1))
	require.True(t, IsHardenedNode(HardenNode(0)))
	require.True(t, IsHardenedNode(HardenNode(1)))
}
