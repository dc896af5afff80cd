package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goodtune/guestquota/internal/usage"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the guest's remaining messages",
	Long:  `Show how many messages the guest may still send and when the next slot frees up.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print stats as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := a.tracker()
	stats := tracker.UsageStats(cmd.Context())

	if statusJSON {
		return writeStatsJSON(os.Stdout, stats)
	}

	renderStats(os.Stdout, tracker.Key(), stats)
	return nil
}

// statusOutput is the --json document
type statusOutput struct {
	usage.Stats
	State usage.State `json:"state"`
}

func writeStatsJSON(w io.Writer, stats usage.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(statusOutput{Stats: stats, State: stats.State()})
}

// renderStats prints the stats the way the guest banner shows them
func renderStats(w io.Writer, key string, stats usage.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)

	_, _ = cyan.Fprintf(w, "[%s]\n", key)
	_, _ = fmt.Fprintf(w, "  remaining = %d of %d\n", stats.Remaining, stats.Total)
	if stats.TimeUntilReset != nil {
		_, _ = fmt.Fprintf(w, "  next slot = in %s\n", *stats.TimeUntilReset)
	}
	_, _ = stateColor(stats.State()).Fprintln(w, bannerText(stats))
}

func stateColor(state usage.State) *color.Color {
	switch state {
	case usage.StateLimitReached:
		return color.New(color.FgRed, color.Bold)
	case usage.StateRunningLow:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// bannerText returns the guest-facing message for the stats
func bannerText(stats usage.Stats) string {
	switch stats.State() {
	case usage.StateLimitReached:
		return fmt.Sprintf("Let's take a pause. You can continue in %s, or sign in to keep going.", stats.ResetText())
	case usage.StateRunningLow:
		plural := "s"
		if stats.Remaining == 1 {
			plural = ""
		}
		return fmt.Sprintf("You have %d message%s left as a guest. Sign in for unlimited.", stats.Remaining, plural)
	default:
		return fmt.Sprintf("%d of %d guest messages available. Sign in for more.", stats.Remaining, stats.Total)
	}
}
