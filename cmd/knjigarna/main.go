// Command knjigarna runs the bookstore inventory service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "knjigarna",
		Short:        "Bookstore inventory and sales ledger",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: environment and defaults only)")

	root.AddCommand(newServeCmd(), newInitCmd(), newRestockCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
