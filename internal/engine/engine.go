// Package engine orchestrates one scrape run end to end: discovery,
// detail scraping, reconciliation, persistence, and notification.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/metrics"
	"github.com/dealwatch/carwatch/internal/notify"
	"github.com/dealwatch/carwatch/internal/progress"
	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
)

// Discoverer collects the ad URLs for one run.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// AdScraper scrapes every ad URL and returns one record per URL.
type AdScraper interface {
	Run(ctx context.Context, adURLs []string, tracker *progress.Tracker) []scrape.Record
}

// RunResult is the outcome of one completed run.
type RunResult struct {
	RunID   string         `json:"run_id"`
	Date    string         `json:"date"`
	Summary scrape.Summary `json:"summary"`
}

// Engine ties the pipeline stages together.
type Engine struct {
	discoverer Discoverer
	pool       AdScraper
	store      snapshot.Store
	notifier   notify.Notifier
	logger     *zap.Logger
	now        func() time.Time

	tracker atomic.Pointer[progress.Tracker]
	last    atomic.Pointer[RunResult]
}

// New wires an Engine. notifier may be nil; runs then complete without
// notification.
func New(
	discoverer Discoverer,
	pool AdScraper,
	store snapshot.Store,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Engine {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		discoverer: discoverer,
		pool:       pool,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one full scrape run for today's date.
//
// A run that discovers zero ads aborts before touching the stored
// history: an empty index almost always means the site changed or
// blocked us, and reconciling against it would mark the whole catalog
// REMOVED.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	runID := uuid.NewString()
	date := e.now().Format("2006-01-02")
	log := e.logger.With(zap.String("run_id", runID), zap.String("date", date))
	start := e.now()

	log.Info("scrape run starting")

	adURLs, err := e.discoverer.Discover(ctx)
	if err != nil {
		metrics.ObserveRun("failed")
		return RunResult{}, fmt.Errorf("discover ads: %w", err)
	}
	if len(adURLs) == 0 {
		metrics.ObserveRun("aborted")
		return RunResult{}, fmt.Errorf("no ads discovered, aborting run to protect snapshot history")
	}
	log.Info("discovery finished", zap.Int("ads", len(adURLs)))

	tracker := progress.NewTracker(len(adURLs), log)
	e.tracker.Store(tracker)

	records := e.pool.Run(ctx, adURLs, tracker)
	if err := ctx.Err(); err != nil {
		metrics.ObserveRun("failed")
		return RunResult{}, fmt.Errorf("scrape canceled: %w", err)
	}

	prior, err := e.store.MostRecent(ctx, date)
	if err != nil {
		// A missing or unreadable history degrades the run to all-NEW
		// rather than failing it.
		log.Warn("previous snapshot unavailable, treating all ads as new", zap.Error(err))
		prior = nil
	}

	snap := scrape.Reconcile(records, prior, date, log)
	if err := e.store.Write(ctx, snap); err != nil {
		metrics.ObserveRun("failed")
		return RunResult{}, fmt.Errorf("persist snapshot: %w", err)
	}

	summary := snap.Summarize()
	result := RunResult{RunID: runID, Date: date, Summary: summary}
	e.last.Store(&result)

	if err := e.notifier.Notify(ctx, snap, summary); err != nil {
		// The snapshot is already persisted; a failed notification does
		// not fail the run.
		log.Error("run notification failed", zap.Error(err))
	}

	metrics.ObserveRun("ok")
	log.Info("scrape run finished",
		zap.Duration("elapsed", e.now().Sub(start)),
		zap.Int("new", summary.New),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("removed", summary.Removed),
		zap.Int("total", summary.Total),
	)
	return result, nil
}

// Progress reports the current run's scrape progress. Zero state when no
// run has started.
func (e *Engine) Progress() progress.State {
	if t := e.tracker.Load(); t != nil {
		return t.Snapshot()
	}
	return progress.State{}
}

// LastResult returns the most recent completed run, or nil.
func (e *Engine) LastResult() *RunResult {
	return e.last.Load()
}
