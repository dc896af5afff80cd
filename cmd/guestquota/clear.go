package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the guest's usage",
	Long:  `Delete the guest's usage record, e.g. after the guest signs in.`,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := a.tracker()
	tracker.ClearUsage(cmd.Context())

	_, _ = fmt.Fprintf(os.Stdout, "✅ Guest usage cleared: %s\n", tracker.Key())
	return nil
}
