// Package notify delivers post-run summaries. Implementations differ in
// transport; all of them receive the reconciled snapshot and its counts.
package notify

import (
	"context"

	"github.com/dealwatch/carwatch/internal/scrape"
)

// Notifier delivers the result of one completed run.
type Notifier interface {
	Notify(ctx context.Context, snap scrape.Snapshot, summary scrape.Summary) error
}

// Noop is a Notifier that does nothing. It is the default when no
// notification channel is configured.
type Noop struct{}

// Notify for Noop does nothing and always returns nil.
func (Noop) Notify(context.Context, scrape.Snapshot, scrape.Summary) error {
	return nil
}
