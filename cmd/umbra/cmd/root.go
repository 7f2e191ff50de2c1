package cmd

import (
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umbranet/umbra"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/log"
	"github.com/umbranet/umbra/wallet"
)

var (
	prefix     string
	network    string
	nodeURL    string
	nodeAPIKey string
)

var cmdLogger = log.ModuleLogger("cmd")

var rootCmd = &cobra.Command{
	Use:          "umbra",
	Short:        "A shielded wallet node",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		net, err := chain.NetworkFromName(network)
		if err != nil {
			return errors.Wrap(err, "invalid network")
		}

		dd, err := wallet.NewDataDir(prefix)
		if err != nil {
			return errors.Wrap(err, "invalid prefix")
		}
		if err := dd.EnsureNetwork(net.Name); err != nil {
			return errors.Wrap(err, "error creating network directory")
		}

		umbra.Config.Prefix = dd.NetworkPath(net.Name)
		umbra.Config.Network = net

		fc, err := umbra.LoadFileConfig(path.Join(umbra.Config.Prefix, "config.yaml"))
		if err != nil {
			return err
		}
		umbra.Config.File = fc
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "~/.umbra", "Sets umbra's data directory")
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", "main", "Sets umbra's network")
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node-url", "", "Sets an alternate URL to the full node")
	rootCmd.PersistentFlags().StringVar(&nodeAPIKey, "node-api-key", "", "Sets the full node's API key")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "Sets the account name; the wallet's default account when empty")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
