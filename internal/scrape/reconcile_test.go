package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rec(url, price, mileage string) Record {
	return Record{AdURL: url, Make: "Nissan", Model: "Patrol", Price: price, Mileage: mileage}
}

func snapOf(date string, rows ...Row) *Snapshot {
	return &Snapshot{Date: date, Rows: rows}
}

func TestReconcileNoPriorMarksAllNew(t *testing.T) {
	t.Parallel()

	current := []Record{rec("u1", "100", "5"), rec("u2", "200", "9")}

	snap := Reconcile(current, nil, "2026-08-25", zap.NewNop())

	require.Equal(t, "2026-08-25", snap.Date)
	require.Len(t, snap.Rows, 2)
	for _, row := range snap.Rows {
		require.Equal(t, StatusNew, row.Status)
		require.Equal(t, "2026-08-25", row.ScrapedDate)
		require.Empty(t, row.ChangeDetails)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	current := []Record{rec("u1", "100", "5"), rec("u2", "200", "9")}
	first := Reconcile(current, nil, "2026-08-24", zap.NewNop())

	// Re-running against its own output must change nothing.
	second := Reconcile(current, &first, "2026-08-25", zap.NewNop())

	require.Len(t, second.Rows, 2)
	for _, row := range second.Rows {
		require.Equal(t, StatusUnchanged, row.Status)
		require.Empty(t, row.ChangeDetails)
		require.Empty(t, row.PrevPrice)
		require.Empty(t, row.PrevMileage)
	}
}

func TestReconcilePriceAndMileageChanges(t *testing.T) {
	t.Parallel()

	prior := snapOf("2026-08-24",
		Row{Record: rec("u1", "100,000", "20,000 km"), ScrapedDate: "2026-08-24", Status: StatusNew},
		Row{Record: rec("u2", "50,000", "1,000 km"), ScrapedDate: "2026-08-24", Status: StatusNew},
	)
	current := []Record{
		rec("u1", "95,000", "21,500 km"),
		rec("u2", "50,000", "1,000 km"),
	}

	snap := Reconcile(current, prior, "2026-08-25", zap.NewNop())
	require.Len(t, snap.Rows, 2)

	changed := snap.Rows[0]
	require.Equal(t, StatusUpdated, changed.Status)
	require.Equal(t, "Price: 100,000 -> 95,000 | Mileage: 20,000 km -> 21,500 km", changed.ChangeDetails)
	require.Equal(t, "100,000", changed.PrevPrice)
	require.Equal(t, "20,000 km", changed.PrevMileage)
	require.Equal(t, "2026-08-25", changed.ScrapedDate)

	same := snap.Rows[1]
	require.Equal(t, StatusUnchanged, same.Status)
	require.Empty(t, same.ChangeDetails)
}

func TestReconcileFormattingChangeCountsAsChange(t *testing.T) {
	t.Parallel()

	// Values compare as opaque strings: a thousands-separator change is a
	// price change even though the number is the same.
	prior := snapOf("2026-08-24",
		Row{Record: rec("u1", "100000", "5"), ScrapedDate: "2026-08-24", Status: StatusNew},
	)
	snap := Reconcile([]Record{rec("u1", "100,000", "5")}, prior, "2026-08-25", zap.NewNop())

	require.Equal(t, StatusUpdated, snap.Rows[0].Status)
	require.Equal(t, "Price: 100000 -> 100,000", snap.Rows[0].ChangeDetails)
}

func TestReconcileRemovedCarriesPriorFields(t *testing.T) {
	t.Parallel()

	gone := Row{
		Record:        rec("u-gone", "77,000", "12,345 km"),
		ScrapedDate:   "2026-08-24",
		Status:        StatusUpdated,
		ChangeDetails: "Price: 80,000 -> 77,000",
		PrevPrice:     "80,000",
	}
	prior := snapOf("2026-08-24",
		gone,
		Row{Record: rec("u-stay", "10", "1"), ScrapedDate: "2026-08-24", Status: StatusNew},
	)

	snap := Reconcile([]Record{rec("u-stay", "10", "1")}, prior, "2026-08-25", zap.NewNop())
	require.Len(t, snap.Rows, 2)

	removed := snap.Rows[1]
	require.Equal(t, "u-gone", removed.AdURL)
	require.Equal(t, StatusRemoved, removed.Status)
	// Last-seen listing fields and scrape date are preserved, the change
	// annotations are not.
	require.Equal(t, "77,000", removed.Price)
	require.Equal(t, "12,345 km", removed.Mileage)
	require.Equal(t, "2026-08-24", removed.ScrapedDate)
	require.Empty(t, removed.ChangeDetails)
	require.Empty(t, removed.PrevPrice)
	require.Empty(t, removed.PrevMileage)
}

func TestReconcileRemovedNotCarriedForwardTwice(t *testing.T) {
	t.Parallel()

	prior := snapOf("2026-08-24",
		Row{Record: rec("u-old", "1", "1"), ScrapedDate: "2026-08-20", Status: StatusRemoved},
		Row{Record: rec("u-live", "2", "2"), ScrapedDate: "2026-08-24", Status: StatusUnchanged},
	)

	snap := Reconcile([]Record{rec("u-live", "2", "2")}, prior, "2026-08-25", zap.NewNop())

	require.Len(t, snap.Rows, 1)
	require.Equal(t, "u-live", snap.Rows[0].AdURL)
}

func TestReconcileReappearanceAfterRemovalIsNew(t *testing.T) {
	t.Parallel()

	prior := snapOf("2026-08-24",
		Row{Record: rec("u1", "100", "5"), ScrapedDate: "2026-08-20", Status: StatusRemoved},
	)

	snap := Reconcile([]Record{rec("u1", "90", "5")}, prior, "2026-08-25", zap.NewNop())

	require.Len(t, snap.Rows, 1)
	require.Equal(t, StatusNew, snap.Rows[0].Status)
	require.Empty(t, snap.Rows[0].ChangeDetails)
	require.Empty(t, snap.Rows[0].PrevPrice)
}

func TestReconcileBlankRecordStillDiffs(t *testing.T) {
	t.Parallel()

	// A degraded run can emit a blank record for a known ad; that reads as
	// both fields changing to empty, not as a removal.
	prior := snapOf("2026-08-24",
		Row{Record: rec("u1", "100", "5 km"), ScrapedDate: "2026-08-24", Status: StatusNew},
	)

	snap := Reconcile([]Record{{AdURL: "u1"}}, prior, "2026-08-25", zap.NewNop())

	require.Len(t, snap.Rows, 1)
	require.Equal(t, StatusUpdated, snap.Rows[0].Status)
	require.Equal(t, "Price: 100 ->  | Mileage: 5 km -> ", snap.Rows[0].ChangeDetails)
}

func TestSummarizeCountsPerStatus(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Rows: []Row{
		{Status: StatusNew}, {Status: StatusNew},
		{Status: StatusUpdated},
		{Status: StatusUnchanged}, {Status: StatusUnchanged}, {Status: StatusUnchanged},
		{Status: StatusRemoved},
	}}

	sum := snap.Summarize()
	require.Equal(t, Summary{New: 2, Updated: 1, Unchanged: 3, Removed: 1, Total: 7}, sum)
}
