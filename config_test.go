package umbra

import (
	"io/ioutil"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFileConfigMissingFileIsEmpty(t *testing.T) {
	fc, err := LoadFileConfig(path.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, FileConfig{}, fc)
}

func TestLoadFileConfigOverridesDefaults(t *testing.T) {
	p := path.Join(t.TempDir(), "config.yaml")
	require.NoError(t, ioutil.WriteFile(p, []byte(
		"node_url: http://example.com:1234\n"+
			"rebroadcast_after: 25\n"+
			"event_loop_cadence_ms: 250\n",
	), 0o600))

	fc, err := LoadFileConfig(p)
	require.NoError(t, err)
	require.Equal(t, "http://example.com:1234", fc.NodeURL)

	cfg := fc.WalletConfig()
	require.Equal(t, uint64(25), cfg.RebroadcastAfter)
	require.Equal(t, 250*time.Millisecond, cfg.EventLoopCadence)

	// Settings the file doesn't name keep their defaults.
	require.Equal(t, 20, cfg.DecryptBatchSize)
}

func TestLoadFileConfigRejectsMalformedYAML(t *testing.T) {
	p := path.Join(t.TempDir(), "config.yaml")
	require.NoError(t, ioutil.WriteFile(p, []byte("rebroadcast_after: [nope"), 0o600))

	_, err := LoadFileConfig(p)
	require.Error(t, err)
}
