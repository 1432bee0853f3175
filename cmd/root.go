package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/app"
	"github.com/dealwatch/carwatch/internal/engine"
	"github.com/dealwatch/carwatch/internal/logging"
	"github.com/dealwatch/carwatch/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App is the application surface the commands use. An interface so tests
// can inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	Engine() *engine.Engine
}

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context) (App, error) {
	return app.New(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carwatch",
		Short: "Watches a car-listing catalog and tracks price and inventory changes.",
		Long: `carwatch scrapes every ad in a paginated car-listing catalog, diffs the
result against the previous run, and records per-ad NEW / UPDATED /
UNCHANGED / REMOVED statuses in a dated snapshot.`,

		// Runs after config is loaded and before the subcommand: build the
		// services and hand them to subcommands through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logging.Init(viper.GetBool("log.development")); err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/carwatch, $HOME/.carwatch)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := logging.Init(false); err != nil {
		panic(err)
	}
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
}
