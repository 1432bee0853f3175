package scrape

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/metrics"
)

// Reconcile diffs the current run's records against the most recent prior
// snapshot and classifies every ad as NEW, UPDATED, UNCHANGED, or REMOVED.
//
// Only the prior snapshot's non-REMOVED rows form the comparison baseline:
// an ad that was REMOVED and reappears is NEW again, and an ad REMOVED last
// run is not carried forward twice. Price and Mileage are compared as
// opaque strings, so a formatting change counts as a change.
func Reconcile(current []Record, prior *Snapshot, date string, logger *zap.Logger) Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}

	snap := Snapshot{Date: date, Rows: make([]Row, 0, len(current))}

	if prior == nil || len(prior.Rows) == 0 {
		logger.Info("no previous snapshot, marking all ads as NEW", zap.Int("ads", len(current)))
		for _, rec := range current {
			snap.Rows = append(snap.Rows, Row{Record: rec, ScrapedDate: date, Status: StatusNew})
		}
		observeRows(snap)
		return snap
	}

	baseline := activeBaseline(prior)
	logger.Info("comparing against previous snapshot",
		zap.String("prev_date", prior.Date),
		zap.Int("prev_rows", len(prior.Rows)),
		zap.Int("active_baseline", len(baseline)),
	)

	currentURLs := make(map[string]struct{}, len(current))
	for _, rec := range current {
		currentURLs[rec.AdURL] = struct{}{}
		snap.Rows = append(snap.Rows, diffAgainstBaseline(rec, baseline, date))
	}

	// Ads in the baseline that vanished this run are carried forward as
	// REMOVED, keeping the fields they had when last seen.
	for _, prev := range prior.Rows {
		if prev.Status == StatusRemoved {
			continue
		}
		if _, alive := currentURLs[prev.AdURL]; alive {
			continue
		}
		removed := prev
		removed.Status = StatusRemoved
		removed.ChangeDetails = ""
		removed.PrevPrice = ""
		removed.PrevMileage = ""
		snap.Rows = append(snap.Rows, removed)
	}

	observeRows(snap)
	return snap
}

func activeBaseline(prior *Snapshot) map[string]Row {
	baseline := make(map[string]Row, len(prior.Rows))
	for _, row := range prior.Rows {
		if row.Status == StatusRemoved {
			continue
		}
		baseline[row.AdURL] = row
	}
	return baseline
}

func diffAgainstBaseline(rec Record, baseline map[string]Row, date string) Row {
	row := Row{Record: rec, ScrapedDate: date, Status: StatusNew}

	prev, ok := baseline[rec.AdURL]
	if !ok {
		return row
	}

	var changes []string
	if prev.Price != rec.Price {
		changes = append(changes, fmt.Sprintf("Price: %s -> %s", prev.Price, rec.Price))
	}
	if prev.Mileage != rec.Mileage {
		changes = append(changes, fmt.Sprintf("Mileage: %s -> %s", prev.Mileage, rec.Mileage))
	}

	if len(changes) == 0 {
		row.Status = StatusUnchanged
		return row
	}

	row.Status = StatusUpdated
	row.ChangeDetails = strings.Join(changes, " | ")
	row.PrevPrice = prev.Price
	row.PrevMileage = prev.Mileage
	return row
}

func observeRows(snap Snapshot) {
	for _, row := range snap.Rows {
		metrics.ObserveSnapshotRow(string(row.Status))
	}
}
