package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/goodtune/guestquota/internal/metrics"
	"github.com/goodtune/guestquota/internal/usage"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive guest session",
	Long: `Read guest messages from stdin, one per line, and admit each against the quota.

  /stats   show remaining messages
  /login   sign in: clear the guest's usage and leave guest mode
  /quit    end the session`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(a.cfg.Metrics.Address, a.logger)
		if err := metricsServer.Start(); err != nil {
			return err
		}
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := a.tracker()
	a.logger.Info().Str("key", tracker.Key()).Msg("Guest session started")

	err = chatLoop(ctx, tracker, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		a.logger.Info().Msg("Guest session interrupted")
		return nil
	}
	return err
}

// chatLoop runs the guest session until input ends, the guest leaves, or ctx
// is cancelled. Cancellation returns ctx.Err() even while waiting for input.
func chatLoop(ctx context.Context, tracker *usage.Tracker, in io.Reader, out io.Writer) error {
	dim := color.New(color.Faint)

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, readErr := readLines(readCtx, in)

	renderStats(out, tracker.Key(), tracker.UsageStats(ctx))

	for {
		_, _ = fmt.Fprint(out, "> ")

		var text string
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out)
				return <-readErr
			}
			text = next
		}

		line := strings.TrimSpace(text)
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/stats":
			renderStats(out, tracker.Key(), tracker.UsageStats(ctx))
			continue
		case "/login":
			tracker.ClearUsage(ctx)
			_, _ = fmt.Fprintln(out, "Signed in. Guest limits no longer apply.")
			return nil
		}

		stats, err := sendMessage(ctx, tracker)
		if errors.Is(err, errLimitReached) {
			_, _ = stateColor(stats.State()).Fprintln(out, bannerText(stats))
			continue
		}

		_, _ = dim.Fprintf(out, "sent (%d of %d left)\n", stats.Remaining, stats.Total)
		if stats.IsRunningLow || stats.IsLimitReached {
			_, _ = stateColor(stats.State()).Fprintln(out, bannerText(stats))
		}
	}
}

// readLines scans in on its own goroutine so the session can stop while a
// read is blocked. The goroutine stays parked in that read until it returns.
// readErr receives the scanner error before lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}
