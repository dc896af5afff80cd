package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version     = "dev"
	configPath  string
	profileName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guestquota",
	Short: "guestquota - Sliding-window message quota for guest users",
	Long: `guestquota tracks how many messages an unauthenticated guest has sent and
admits at most a fixed number per sliding window (7 every 6 hours by default).
Usage is persisted locally in bbolt, in memory, or in Redis.`,
	Version:      version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to status command when no subcommand is provided
		return runStatus(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Guest profile (empty for the default guest)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
