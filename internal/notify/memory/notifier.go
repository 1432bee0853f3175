// Package memory contains an in-memory notifier for tests.
package memory

import (
	"context"
	"sync"

	"github.com/dealwatch/carwatch/internal/scrape"
)

// Notifier stores delivered summaries for inspection.
type Notifier struct {
	mu         sync.RWMutex
	deliveries []Delivery
}

// Delivery captures one Notify call.
type Delivery struct {
	Snapshot scrape.Snapshot
	Summary  scrape.Summary
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records the delivery.
func (n *Notifier) Notify(_ context.Context, snap scrape.Snapshot, summary scrape.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, Delivery{Snapshot: snap, Summary: summary})
	return nil
}

// Deliveries returns the recorded notifications.
func (n *Notifier) Deliveries() []Delivery {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Delivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}
