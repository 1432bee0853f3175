package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/api"
)

// newWatchCmd creates the 'watch' subcommand: a long-running service that
// scrapes on a cron schedule and serves the status API.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Runs scheduled scrapes and serves the status API",
		Long: `Starts a long-running service that executes a scrape-and-reconcile run
on the configured cron schedule and exposes /healthz, /metrics, /progress,
and /runs/last over HTTP.`,

		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedule := viper.GetString("watch.schedule")
	scheduler := cron.New()
	_, err = scheduler.AddFunc(schedule, func() {
		if _, runErr := appInstance.Engine().Run(ctx); runErr != nil {
			logger.Error("scheduled scrape run failed", zap.Error(runErr))
		}
	})
	if err != nil {
		return fmt.Errorf("parse watch.schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("scheduler started", zap.String("schedule", schedule))

	listen := viper.GetString("api.listen")
	server := &http.Server{
		Addr:              listen,
		Handler:           api.NewServer(appInstance.Engine(), logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("status api listening", zap.String("addr", listen))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status api: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status api shutdown failed", zap.Error(err))
	}
	return nil
}
