package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umbranet/umbra/wallet"
	"golang.org/x/term"
	"gopkg.in/tomb.v2"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Returns status information about the wallet node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *wallet.Node) error {
			status, err := node.Status()
			if err != nil {
				return err
			}
			return printJSON(status)
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the umbra daemon, following the chain and servicing sends",
	RunE: func(cmd *cobra.Command, args []string) error {
		tmb := new(tomb.Tomb)
		node, engine, chainClient, err := openNode(tmb)
		if err != nil {
			return err
		}
		defer engine.Close()

		if health, err := chainClient.Health(); err != nil {
			cmdLogger.Warning("full node health check failed, starting anyway", "err", err)
		} else {
			cmdLogger.Info("full node reachable", "status", health.Status)
		}

		if err := node.Start(); err != nil {
			return errors.Wrap(err, "error starting node")
		}

		status, err := node.Status()
		if err != nil {
			return err
		}
		if status.Initialized && status.Locked {
			fmt.Print("Please enter your password to unlock the wallet: ")
			pwB, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println("")
			if err != nil {
				return errors.Wrap(err, "error reading password")
			}
			if err := node.Unlock(string(pwB)); err != nil {
				return errors.Wrap(err, "error unlocking wallet")
			}
		}

		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			select {
			case sig := <-sigC:
				cmdLogger.Info("caught signal, shutting down", "signal", sig.String())
				tmb.Kill(nil)
			case <-tmb.Dying():
			}
		}()

		return tmb.Wait()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
}
