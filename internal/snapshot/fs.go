package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/scrape"
)

const snapshotExt = ".csv"

// FSConfig captures the parameters for the filesystem snapshot store.
type FSConfig struct {
	// Dir is the directory holding one <date>.csv file per run.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// FS stores snapshots as dated CSV files in a flat directory.
type FS struct {
	dir    string
	logger *zap.Logger
}

// NewFS creates the directory if needed and verifies it is writable.
func NewFS(cfg FSConfig, logger *zap.Logger) (*FS, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.Dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat snapshot directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("snapshot path %s is not a directory", cfg.Dir)
	}

	return &FS{dir: cfg.Dir, logger: logger}, nil
}

// MostRecent loads the lexicographically greatest dated file other than
// excludeDate. Dates are ISO (YYYY-MM-DD), so lexicographic order is
// chronological order.
func (s *FS) MostRecent(_ context.Context, excludeDate string) (*scrape.Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshot directory: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		date := strings.TrimSuffix(e.Name(), snapshotExt)
		if date == "" || date == excludeDate {
			continue
		}
		dates = append(dates, date)
	}
	if len(dates) == 0 {
		return nil, nil
	}
	sort.Strings(dates)
	date := dates[len(dates)-1]

	data, err := os.ReadFile(filepath.Join(s.dir, date+snapshotExt))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", date, err)
	}
	snap, err := Decode(date, data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", date, err)
	}
	s.logger.Info("loaded previous snapshot",
		zap.String("date", date),
		zap.Int("rows", len(snap.Rows)),
	)
	return snap, nil
}

// Write persists the snapshot as <date>.csv, replacing any earlier file
// for that date.
func (s *FS) Write(_ context.Context, snap scrape.Snapshot) error {
	if snap.Date == "" {
		return fmt.Errorf("snapshot date is required")
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, snap.Date+snapshotExt)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	s.logger.Info("snapshot written",
		zap.String("path", path),
		zap.Int("rows", len(snap.Rows)),
	)
	return nil
}
