// Package cmd defines and implements the CLI commands for the carwatch
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapeCmd creates the 'scrape' subcommand: one full run, then exit.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape-and-reconcile pass",
		Long: `Discovers every ad in the catalog, scrapes the detail pages across the
worker pool, reconciles against the previous snapshot, and writes a new
dated snapshot.`,

		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := appInstance.Engine().Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			appInstance.Logger().Warn("scrape run canceled")
			return nil
		}
		return fmt.Errorf("scrape run: %w", err)
	}

	appInstance.Logger().Info("scrape command finished",
		zap.String("run_id", result.RunID),
		zap.String("date", result.Date),
		zap.Int("total", result.Summary.Total),
	)
	return nil
}
