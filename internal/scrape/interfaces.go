package scrape

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Session is one exclusive rendering session (a browser tab). Sessions
// tolerate repeated navigation within their lifetime but must never be
// shared across workers.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitAny(ctx context.Context, selectors []string, timeout time.Duration) bool
	Document(ctx context.Context) (*goquery.Document, error)
	Close()
}

// SessionFactory opens a new private rendering session.
type SessionFactory func(ctx context.Context) (Session, error)

// DocSource returns a queryable document for a page URL without a
// rendering session, e.g. a plain HTTP probe.
type DocSource interface {
	Page(ctx context.Context, url string) (*goquery.Document, error)
}
