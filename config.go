package umbra

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/wallet"
	"gopkg.in/yaml.v3"
)

// config holds the process-wide settings every cobra command reads after
// root.go's PersistentPreRunE resolves the selected network and data
// directory.
type config struct {
	Network *chain.Network
	Prefix  string
	File    FileConfig
}

var Config = new(config)

// FileConfig is the operator-editable subset of the configuration, read
// from config.yaml inside the network's data directory. Flags beat the
// file, the file beats the defaults; a zero value defers to the next
// layer down.
type FileConfig struct {
	NodeURL            string `yaml:"node_url"`
	NodeAPIKey         string `yaml:"node_api_key"`
	Confirmations      uint64 `yaml:"confirmations"`
	RebroadcastAfter   uint64 `yaml:"rebroadcast_after"`
	DecryptBatchSize   int    `yaml:"decrypt_batch_size"`
	ExpirationDelta    uint64 `yaml:"expiration_delta"`
	EventLoopCadenceMS uint64 `yaml:"event_loop_cadence_ms"`
}

// LoadFileConfig reads and parses path. A missing file is not an error;
// it just means every setting comes from flags and defaults.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return fc, errors.Wrap(err, "error reading config file")
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, errors.Wrap(err, "error parsing config file")
	}
	return fc, nil
}

// WalletConfig folds the file's overrides over the engine defaults.
func (fc FileConfig) WalletConfig() wallet.Config {
	cfg := wallet.DefaultConfig()
	if fc.Confirmations > 0 {
		cfg.Confirmations = fc.Confirmations
	}
	if fc.RebroadcastAfter > 0 {
		cfg.RebroadcastAfter = fc.RebroadcastAfter
	}
	if fc.DecryptBatchSize > 0 {
		cfg.DecryptBatchSize = fc.DecryptBatchSize
	}
	if fc.ExpirationDelta > 0 {
		cfg.ExpirationDelta = fc.ExpirationDelta
	}
	if fc.EventLoopCadenceMS > 0 {
		cfg.EventLoopCadence = time.Duration(fc.EventLoopCadenceMS) * time.Millisecond
	}
	return cfg
}
