// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. It is designed to be called once at
// application startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/carwatch/")
	viper.AddConfigPath("$HOME/.carwatch")

	// --- Defaults ---
	// Catalog location and selectors for the deal-drive listing platform.
	viper.SetDefault("scrape.base_url", "https://www.lindacars.com")
	viper.SetDefault("scrape.start_url",
		"https://www.lindacars.com/buy-car?hotDeals=false&page-size=12&sort-by=id&sort-order=desc&lang=en&page=")
	viper.SetDefault("scrape.tile_selector", "a.dd-product-tile")
	viper.SetDefault("scrape.detail_selectors", []string{
		"span.p-brand",
		"span.p-name",
		".MuiCardContent-root",
		"data",
	})

	// Worker pool and retry budget.
	viper.SetDefault("scrape.workers", 4)
	viper.SetDefault("scrape.max_retries", 3)
	viper.SetDefault("scrape.retry_wait", "3s")
	viper.SetDefault("scrape.page_wait", "15s")
	viper.SetDefault("scrape.ad_wait", "15s")
	viper.SetDefault("scrape.poll_interval", "400ms")
	viper.SetDefault("scrape.settle_delay", "500ms")
	viper.SetDefault("scrape.worker_stagger", "2s")
	viper.SetDefault("scrape.domain_qps", 0)

	// Image gallery handling.
	viper.SetDefault("scrape.image_domain", "content.deal-drive.com")
	viper.SetDefault("scrape.image_resolution", "fit-1324xauto")

	// Browser.
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.user_agent", "")

	// Snapshot store: fs | postgres | gcs.
	viper.SetDefault("store.provider", "fs")
	viper.SetDefault("store.fs.dir", "data/snapshots")
	viper.SetDefault("store.postgres.dsn", "")
	viper.SetDefault("store.postgres.table", "snapshots")
	viper.SetDefault("store.gcs.bucket", "")
	viper.SetDefault("store.gcs.prefix", "snapshots")

	// Notification: none | smtp | pubsub.
	viper.SetDefault("notify.provider", "none")
	viper.SetDefault("notify.smtp.host", "smtp.gmail.com")
	viper.SetDefault("notify.smtp.port", 465)
	viper.SetDefault("notify.smtp.sender", "")
	viper.SetDefault("notify.smtp.password", "")
	viper.SetDefault("notify.smtp.to", []string{})
	viper.SetDefault("notify.pubsub.project", "")
	viper.SetDefault("notify.pubsub.topic", "")

	// Status API (watch mode).
	viper.SetDefault("api.listen", ":8080")

	viper.SetDefault("watch.schedule", "0 6 * * *")
	viper.SetDefault("log.development", false)

	// --- Environment variables ---
	viper.SetEnvPrefix("CARWATCH") // e.g. CARWATCH_SCRAPE_WORKERS=8
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Config file ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
