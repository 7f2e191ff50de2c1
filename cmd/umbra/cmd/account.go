package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/wallet"
)

func hexArg(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

var accountName string

var accountCreateCmd = &cobra.Command{
	Use:   "account-create <name>",
	Short: "Creates a new account under the wallet's master key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := w.CreateAccount(args[0])
			if err != nil {
				return err
			}
			return printJSON(struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Address string `json:"address"`
			}{
				ID:      acc.ID.String(),
				Name:    acc.Name,
				Address: acc.PublicAddress.String(acc.Network),
			})
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Lists the wallet's accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			type accountInfo struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Address string `json:"address"`
			}
			var out []accountInfo
			for _, acc := range w.Accounts() {
				out = append(out, accountInfo{
					ID:      acc.ID.String(),
					Name:    acc.Name,
					Address: acc.PublicAddress.String(acc.Network),
				})
			}
			return printJSON(out)
		})
	},
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Returns the selected account's balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := resolveAccount(w)
			if err != nil {
				return err
			}
			balances, err := w.Balances(acc.ID)
			if err != nil {
				return err
			}
			return printJSON(balances)
		})
	},
}

var accountSendCmd = &cobra.Command{
	Use:   "send <recipient-address> <recipient-view-key-hex> <asset-id-hex> <amount> <fee> [expiration]",
	Short: "Builds, signs, proves, and broadcasts a transaction",
	Args:  cobra.RangeArgs(5, 6),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, err := chain.NewAddressFromBech32(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid recipient address")
		}

		recipientIVK, err := hexArg(args[1])
		if err != nil {
			return errors.Wrap(err, "invalid recipient view key")
		}
		assetID, err := hexArg(args[2])
		if err != nil {
			return errors.Wrap(err, "invalid asset id")
		}
		amount, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return errors.New("invalid amount")
		}
		fee, err := strconv.ParseUint(args[4], 10, 64)
		if err != nil {
			return errors.New("invalid fee")
		}
		var expiration uint64
		if len(args) == 6 {
			expiration, err = strconv.ParseUint(args[5], 10, 64)
			if err != nil {
				return errors.New("invalid expiration")
			}
		}

		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := resolveAccount(w)
			if err != nil {
				return err
			}
			txn, err := w.Send(acc, recipient, recipientIVK, assetID, amount, fee, expiration)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Hash string `json:"hash"`
			}{Hash: txn.HashHex()})
		})
	},
}

var (
	mintAssetName     string
	mintAssetMetadata string
)

var accountMintCmd = &cobra.Command{
	Use:   "mint <asset-id-hex-or-empty> <value> <fee>",
	Short: "Mints new units of an asset owned by the selected account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var assetID []byte
		var err error
		if args[0] != "" {
			if assetID, err = hexArg(args[0]); err != nil {
				return errors.Wrap(err, "invalid asset id")
			}
		}
		value, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.New("invalid value")
		}
		fee, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return errors.New("invalid fee")
		}

		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := resolveAccount(w)
			if err != nil {
				return err
			}
			txn, err := w.Mint(acc, assetID, mintAssetName, mintAssetMetadata, value, fee, 0)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Hash string `json:"hash"`
			}{Hash: txn.HashHex()})
		})
	},
}

var accountBurnCmd = &cobra.Command{
	Use:   "burn <asset-id-hex> <value> <fee>",
	Short: "Burns units of an asset from the selected account's notes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		assetID, err := hexArg(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid asset id")
		}
		value, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.New("invalid value")
		}
		fee, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return errors.New("invalid fee")
		}

		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := resolveAccount(w)
			if err != nil {
				return err
			}
			txn, err := w.Burn(acc, assetID, value, fee, 0)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Hash string `json:"hash"`
			}{Hash: txn.HashHex()})
		})
	},
}

var accountRescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rescans the selected account from genesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := resolveAccount(w)
			if err != nil {
				return err
			}
			scan, err := w.RescanAccount(acc.ID)
			if err != nil {
				return err
			}
			<-scan.Done()
			if err := scan.Err(); err != nil {
				return err
			}
			fmt.Println("Rescan complete.")
			return nil
		})
	},
}

// resolveAccount picks the account the --account flag names, falling
// back to the wallet's default account when the flag is empty.
func resolveAccount(w *wallet.Wallet) (*wallet.Account, error) {
	if accountName == "" {
		acc, err := w.DefaultAccount()
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return nil, errors.New("wallet has no default account; pass --account")
		}
		return acc, nil
	}
	acc, err := w.AccountByName(accountName)
	if err != nil {
		return nil, errors.Errorf("no account named %q", accountName)
	}
	return acc, nil
}

func init() {
	rootCmd.AddCommand(accountCreateCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(accountBalanceCmd)
	rootCmd.AddCommand(accountSendCmd)
	rootCmd.AddCommand(accountMintCmd)
	rootCmd.AddCommand(accountBurnCmd)
	rootCmd.AddCommand(accountRescanCmd)

	accountMintCmd.Flags().StringVar(&mintAssetName, "asset-name", "", "asset name, required for a first mint")
	accountMintCmd.Flags().StringVar(&mintAssetMetadata, "asset-metadata", "", "asset metadata, recorded on first mint")
}
