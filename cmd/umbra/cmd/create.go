package cmd

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umbranet/umbra/wallet"
	"golang.org/x/term"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a new wallet seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Please enter a password to encrypt your wallet: ")
		pwB, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println("")
		if err != nil {
			return errors.Wrap(err, "error reading password")
		}

		var mnemonic string
		err = withNode(func(node *wallet.Node) error {
			m, err := node.Initialize(string(pwB))
			mnemonic = m
			return err
		})
		if err != nil {
			return err
		}

		fmt.Println("Your wallet has been created. Please take note of your seed phrase below.")
		fmt.Println("STORE YOUR SEED PHRASE SECURELY. IT WILL NOT BE SHOWN AGAIN.")
		fmt.Println("")
		fmt.Println(mnemonic)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
