// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeAdsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwatch_ads_scraped_total",
			Help: "Total number of ad pages scraped, labeled by result.",
		},
		[]string{"result"},
	)

	scrapeRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carwatch_ad_retries_total",
			Help: "Total number of per-ad retry attempts.",
		},
	)

	discoveryPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwatch_discovery_pages_total",
			Help: "Total listing index pages visited, labeled by mode (static or rendered).",
		},
		[]string{"mode"},
	)

	snapshotRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwatch_snapshot_rows_total",
			Help: "Snapshot rows written, labeled by reconciliation status.",
		},
		[]string{"status"},
	)

	scrapeActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carwatch_active_workers",
			Help: "Number of workers currently scraping an ad.",
		},
	)

	scrapeAdDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carwatch_ad_scrape_duration_seconds",
			Help:    "Histogram of per-ad scrape latencies including retries.",
			Buckets: []float64{1, 2, 5, 10, 20, 45, 90, 180},
		},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwatch_runs_total",
			Help: "Total scrape runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAd records the outcome of one ad scrape.
func ObserveAd(result string, duration time.Duration) {
	scrapeAdsTotal.WithLabelValues(result).Inc()
	scrapeAdDurationSeconds.Observe(duration.Seconds())
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	scrapeRetriesTotal.Inc()
}

// ObserveDiscoveryPage counts one visited listing index page.
func ObserveDiscoveryPage(mode string) {
	discoveryPagesTotal.WithLabelValues(mode).Inc()
}

// ObserveSnapshotRow counts one written snapshot row by status.
func ObserveSnapshotRow(status string) {
	snapshotRowsTotal.WithLabelValues(status).Inc()
}

// ObserveRun counts one finished run with its outcome.
func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scrapeActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scrapeActiveWorkers.Dec()
}
