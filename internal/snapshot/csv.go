package snapshot

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/dealwatch/carwatch/internal/scrape"
)

// Encode renders the snapshot as CSV with the canonical header row.
func Encode(snap scrape.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(scrape.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range snap.Rows {
		if err := w.Write(row.Values()); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses CSV bytes back into a snapshot for the given date. The
// first row must be the header; column order is fixed, so the header is
// only sanity-checked against the first column name.
func Decode(date string, data []byte) (*scrape.Snapshot, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // older snapshots may carry fewer columns

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot csv is empty")
	}
	if records[0][0] != scrape.Columns[0] {
		return nil, fmt.Errorf("unexpected header %q, want %q", records[0][0], scrape.Columns[0])
	}

	snap := &scrape.Snapshot{Date: date, Rows: make([]scrape.Row, 0, len(records)-1)}
	for _, cells := range records[1:] {
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		snap.Rows = append(snap.Rows, scrape.RowFromValues(cells))
	}
	return snap, nil
}
