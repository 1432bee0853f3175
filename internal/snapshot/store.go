// Package snapshot persists and retrieves run snapshots. The canonical
// artifact is a dated CSV; backends differ only in where the bytes live.
package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/dealwatch/carwatch/internal/scrape"
)

// Store reads and writes run snapshots.
type Store interface {
	// MostRecent returns the latest stored snapshot whose date is not
	// excludeDate, or (nil, nil) when none exists. Excluding today's date
	// keeps a re-run from diffing against its own partial output.
	MostRecent(ctx context.Context, excludeDate string) (*scrape.Snapshot, error)

	// Write persists the snapshot under its date, replacing any snapshot
	// already stored for that date.
	Write(ctx context.Context, snap scrape.Snapshot) error
}

// Memory is an in-process Store for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]scrape.Snapshot
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]scrape.Snapshot)}
}

// MostRecent returns the snapshot with the greatest date other than
// excludeDate.
func (m *Memory) MostRecent(_ context.Context, excludeDate string) (*scrape.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dates := make([]string, 0, len(m.snaps))
	for d := range m.snaps {
		if d != excludeDate {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return nil, nil
	}
	sort.Strings(dates)
	snap := m.snaps[dates[len(dates)-1]]
	return &snap, nil
}

// Write stores the snapshot by date.
func (m *Memory) Write(_ context.Context, snap scrape.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Date] = snap
	return nil
}
