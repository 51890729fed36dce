// Package cmd defines and implements the CLI commands for the shopagent executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopagent",
		Short: "Synthetic shopper agents that browse an online storefront.",
		Long: `shopagent drives persona-based synthetic shoppers against an ecommerce
storefront. Each dispatched task browses search results and product pages,
asks a decision oracle which link to follow, and records every step as a
resumable trace suitable for training data generation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional; env vars prefixed SHOPAGENT also apply)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
