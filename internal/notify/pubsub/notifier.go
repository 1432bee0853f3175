// Package pubsub implements a Google Cloud Pub/Sub run notifier.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/dealwatch/carwatch/internal/scrape"
)

// Notifier publishes run summaries to a Pub/Sub topic so downstream
// consumers (pricing dashboards, alerting) can react to each run.
type Notifier struct {
	topic *pubsub.Topic
}

// New creates a Notifier for the provided topic.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// message is the published payload.
type message struct {
	Date    string         `json:"date"`
	Summary scrape.Summary `json:"summary"`
}

// Notify marshals the run summary to JSON and publishes it.
func (n *Notifier) Notify(ctx context.Context, snap scrape.Snapshot, summary scrape.Summary) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(message{Date: snap.Date, Summary: summary})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"run_date": snap.Date},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}
