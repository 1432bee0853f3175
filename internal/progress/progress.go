// Package progress tracks how far a scrape run has advanced so long runs
// stay observable from the log stream and the status API.
package progress

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// State is a point-in-time view of the run, served by the status API.
type State struct {
	Done  int64 `json:"done"`
	Total int64 `json:"total"`
}

// Tracker is a concurrency-safe attempt counter shared by the worker pool.
// A nil Tracker is valid and counts nothing.
type Tracker struct {
	total  int64
	done   atomic.Int64
	logger *zap.Logger
}

// NewTracker creates a tracker for a run of the given size.
func NewTracker(total int, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{total: int64(total), logger: logger}
}

// Step records one claimed item and logs its position in the run.
func (t *Tracker) Step(adURL string) int64 {
	if t == nil {
		return 0
	}
	n := t.done.Add(1)
	t.logger.Info("scraping ad",
		zap.Int64("n", n),
		zap.Int64("total", t.total),
		zap.String("url", adURL),
	)
	return n
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	if t == nil {
		return State{}
	}
	return State{Done: t.done.Load(), Total: t.total}
}
