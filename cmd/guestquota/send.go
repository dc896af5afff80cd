package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goodtune/guestquota/internal/usage"
	"github.com/spf13/cobra"
)

// errLimitReached makes send exit non-zero when the guest is out of messages
var errLimitReached = errors.New("guest message limit reached")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Count one guest message",
	Long: `Check whether the guest may send a message and, if so, record it.
Exits non-zero without recording anything when the limit is reached.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := a.tracker()
	stats, err := sendMessage(cmd.Context(), tracker)
	renderStats(os.Stdout, tracker.Key(), stats)
	return err
}

// sendMessage applies the admission contract: check first, record only when
// admitted.
func sendMessage(ctx context.Context, tracker *usage.Tracker) (usage.Stats, error) {
	if !tracker.CanSendMessage(ctx) {
		return tracker.UsageStats(ctx), fmt.Errorf("%w for %s", errLimitReached, tracker.Key())
	}

	tracker.RecordMessage(ctx)
	return tracker.UsageStats(ctx), nil
}
