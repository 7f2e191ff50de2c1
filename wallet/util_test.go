package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/walletdb"
)

func setupEngine(t *testing.T) *walletdb.Engine {
	t.Helper()
	e, err := walletdb.NewEngine(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}
