package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "boardstore",
		Short: "Metadata driven multi-tenant data access service",
		Long: `boardstore serves board based queries and writes over a document store.
Schemas and boards are read from the system database, cached, and kept in
sync across instances through peer signals.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./boardstore.yaml)")

	rootCmd.AddCommand(newServeCmd(&configFile))
	rootCmd.AddCommand(newSignalCmd(&configFile))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
