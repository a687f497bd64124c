package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "riskctl",
		Short:         "Run the loan document intelligence pipeline from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(fieldsCmd())
	rootCmd.AddCommand(discrepanciesCmd())
	rootCmd.AddCommand(bankingCmd())
	rootCmd.AddCommand(nsfCmd())
	rootCmd.AddCommand(scoreCmd())

	return rootCmd
}
