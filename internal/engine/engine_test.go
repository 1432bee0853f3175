package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/notify/memory"
	"github.com/dealwatch/carwatch/internal/progress"
	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
)

type fakeDiscoverer struct {
	urls []string
	err  error
}

func (f *fakeDiscoverer) Discover(context.Context) ([]string, error) {
	return f.urls, f.err
}

type fakePool struct {
	records []scrape.Record
}

func (f *fakePool) Run(_ context.Context, adURLs []string, tracker *progress.Tracker) []scrape.Record {
	for _, u := range adURLs {
		tracker.Step(u)
	}
	return f.records
}

func fixedClock(e *Engine) {
	e.now = func() time.Time {
		return time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	}
}

func TestRunFirstEverProducesAllNew(t *testing.T) {
	t.Parallel()

	store := snapshot.NewMemory()
	notifier := memory.New()
	eng := New(
		&fakeDiscoverer{urls: []string{"u1", "u2"}},
		&fakePool{records: []scrape.Record{
			{AdURL: "u1", Make: "Nissan", Price: "100"},
			{AdURL: "u2", Make: "BMW", Price: "200"},
		}},
		store, notifier, zap.NewNop(),
	)
	fixedClock(eng)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, "2026-08-25", result.Date)
	require.Equal(t, scrape.Summary{New: 2, Total: 2}, result.Summary)

	stored, err := store.MostRecent(context.Background(), "other-date")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "2026-08-25", stored.Date)
	require.Len(t, stored.Rows, 2)

	deliveries := notifier.Deliveries()
	require.Len(t, deliveries, 1)
	require.Equal(t, result.Summary, deliveries[0].Summary)

	require.Equal(t, progress.State{Done: 2, Total: 2}, eng.Progress())
	require.Equal(t, &result, eng.LastResult())
}

func TestRunDiffsAgainstPriorSnapshot(t *testing.T) {
	t.Parallel()

	store := snapshot.NewMemory()
	require.NoError(t, store.Write(context.Background(), scrape.Snapshot{
		Date: "2026-08-24",
		Rows: []scrape.Row{
			{
				Record:      scrape.Record{AdURL: "u1", Make: "Nissan", Price: "110"},
				ScrapedDate: "2026-08-24",
				Status:      scrape.StatusNew,
			},
			{
				Record:      scrape.Record{AdURL: "u-gone", Make: "Kia", Price: "50"},
				ScrapedDate: "2026-08-24",
				Status:      scrape.StatusNew,
			},
		},
	}))

	eng := New(
		&fakeDiscoverer{urls: []string{"u1"}},
		&fakePool{records: []scrape.Record{{AdURL: "u1", Make: "Nissan", Price: "100"}}},
		store, nil, zap.NewNop(),
	)
	fixedClock(eng)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scrape.Summary{Updated: 1, Removed: 1, Total: 2}, result.Summary)
}

func TestRunAbortsOnEmptyDiscovery(t *testing.T) {
	t.Parallel()

	store := snapshot.NewMemory()
	require.NoError(t, store.Write(context.Background(), scrape.Snapshot{
		Date: "2026-08-24",
		Rows: []scrape.Row{{Record: scrape.Record{AdURL: "u1"}, Status: scrape.StatusNew}},
	}))

	eng := New(&fakeDiscoverer{}, &fakePool{}, store, nil, zap.NewNop())
	fixedClock(eng)

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no ads discovered")

	// History is untouched: the prior snapshot is still the latest.
	stored, err := store.MostRecent(context.Background(), "2026-08-25")
	require.NoError(t, err)
	require.Equal(t, "2026-08-24", stored.Date)
}

func TestRunDiscoveryErrorFails(t *testing.T) {
	t.Parallel()

	eng := New(
		&fakeDiscoverer{err: fmt.Errorf("browser gone")},
		&fakePool{}, snapshot.NewMemory(), nil, zap.NewNop(),
	)

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "discover ads")
}

type failingStore struct {
	snapshot.Store
}

func (failingStore) MostRecent(context.Context, string) (*scrape.Snapshot, error) {
	return nil, fmt.Errorf("disk on fire")
}

func TestRunDegradesWhenPriorUnreadable(t *testing.T) {
	t.Parallel()

	eng := New(
		&fakeDiscoverer{urls: []string{"u1"}},
		&fakePool{records: []scrape.Record{{AdURL: "u1", Make: "Nissan", Price: "1"}}},
		failingStore{Store: snapshot.NewMemory()}, nil, zap.NewNop(),
	)
	fixedClock(eng)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scrape.Summary{New: 1, Total: 1}, result.Summary)
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, scrape.Snapshot, scrape.Summary) error {
	return fmt.Errorf("smtp down")
}

func TestRunNotificationFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	eng := New(
		&fakeDiscoverer{urls: []string{"u1"}},
		&fakePool{records: []scrape.Record{{AdURL: "u1", Make: "Nissan", Price: "1"}}},
		snapshot.NewMemory(), failingNotifier{}, zap.NewNop(),
	)
	fixedClock(eng)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
}
