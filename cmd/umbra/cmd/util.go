package cmd

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra"
	"github.com/umbranet/umbra/client"
	"github.com/umbranet/umbra/wallet"
	"github.com/umbranet/umbra/walletdb"
	"github.com/umbranet/umbra/workers"
	"gopkg.in/tomb.v2"
)

// openNode wires a Node against the network's walletdb and full node RPC
// client, using the composition the interface boundary between the
// wallet and client packages was built for: wallet.NewNode never sees a
// concrete *client.ChainClient, only the Chain/MemPool/Verifier
// interfaces it implements.
func openNode(tmb *tomb.Tomb) (*wallet.Node, *walletdb.Engine, *client.ChainClient, error) {
	engine, err := walletdb.NewEngine(path.Join(umbra.Config.Prefix, "db"), nil)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error opening wallet database")
	}

	url := nodeURL
	if url == "" {
		url = umbra.Config.File.NodeURL
	}
	if url == "" {
		url = fmt.Sprintf("http://localhost:%d", umbra.Config.Network.RPCPort)
	}
	apiKey := nodeAPIKey
	if apiKey == "" {
		apiKey = umbra.Config.File.NodeAPIKey
	}
	chainClient := client.NewChainClient(url, apiKey)

	node := wallet.NewNode(
		tmb,
		umbra.Config.Network,
		engine,
		chainClient,
		chainClient,
		chainClient,
		workers.New(),
		umbra.Config.File.WalletConfig(),
	)
	return node, engine, chainClient, nil
}

// withNode opens a Node, runs fn against it, and closes the underlying
// database before returning. Every command but "start" is a one-shot
// invocation: it reads or mutates walletdb state and exits, rather than
// holding the exclusive Badger lock open the way the daemon does.
func withNode(fn func(node *wallet.Node) error) error {
	tmb := new(tomb.Tomb)
	node, engine, _, err := openNode(tmb)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := node.Start(); err != nil {
		return errors.Wrap(err, "error starting node")
	}
	return fn(node)
}

func printJSON(in interface{}) error {
	out, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
