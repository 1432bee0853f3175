// Package gcs provides a snapshot store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
)

const snapshotExt = ".csv"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Store keeps one <prefix>/<date>.csv object per run.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed snapshot store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// MostRecent lists the dated objects under the prefix and loads the
// lexicographically greatest one whose date is not excludeDate.
func (s *Store) MostRecent(ctx context.Context, excludeDate string) (*scrape.Snapshot, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.objectName("")})

	var dates []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list snapshot objects: %w", err)
		}
		name := path.Base(attrs.Name)
		if !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		date := strings.TrimSuffix(name, snapshotExt)
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

	reader, err := s.client.Bucket(s.bucket).Object(s.objectName(date + snapshotExt)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open snapshot object %s: %w", date, err)
	}
	data, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return nil, fmt.Errorf("read snapshot object %s: %w", date, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close snapshot object %s: %w", date, closeErr)
	}

	snap, err := snapshot.Decode(date, data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", date, err)
	}
	return snap, nil
}

// Write uploads the snapshot as <prefix>/<date>.csv.
func (s *Store) Write(ctx context.Context, snap scrape.Snapshot) error {
	if snap.Date == "" {
		return fmt.Errorf("snapshot date is required")
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	writer := s.client.Bucket(s.bucket).Object(s.objectName(snap.Date + snapshotExt)).NewWriter(ctx)
	writer.ContentType = "text/csv"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("upload snapshot: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("upload snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
