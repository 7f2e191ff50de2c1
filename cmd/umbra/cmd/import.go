package cmd

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umbranet/umbra/wallet"
	"golang.org/x/term"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports a wallet from an existing mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Please enter a password to encrypt your wallet: ")
		pwB, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println("")
		if err != nil {
			return errors.Wrap(err, "error reading password")
		}

		fmt.Print("Please paste in your mnemonic: ")
		mnemonicB, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println("")
		if err != nil {
			return errors.Wrap(err, "error reading mnemonic")
		}

		err = withNode(func(node *wallet.Node) error {
			return node.ImportMnemonic(string(pwB), string(mnemonicB))
		})
		if err != nil {
			return err
		}

		fmt.Println("Wallet imported.")
		return nil
	},
}

var accountImportKeyCmd = &cobra.Command{
	Use:   "account-import-key <name> <spending-key-hex>",
	Short: "Imports an account from a bare spending key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spendingKey, err := hexArg(args[1])
		if err != nil {
			return errors.Wrap(err, "invalid spending key")
		}

		fmt.Print("Please enter your wallet password: ")
		pwB, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println("")
		if err != nil {
			return errors.Wrap(err, "error reading password")
		}

		return withNode(func(node *wallet.Node) error {
			w, err := node.Wallet()
			if err != nil {
				return err
			}
			acc, err := w.ImportAccount(args[0], string(pwB), spendingKey)
			if err != nil {
				return err
			}
			fmt.Printf("Account %s imported as %s.\n", acc.Name, acc.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(accountImportKeyCmd)
}
