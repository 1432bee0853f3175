// Package fetch implements the cheap static-HTML probe used before a page
// is promoted to a headless render.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Static fetches a page over plain HTTP with Colly and parses it into a
// queryable document. Listing index pages are sometimes served with the
// tiles already in the markup; when they are, a probe saves a render.
type Static struct {
	cfg           Config
	baseCollector *colly.Collector
}

// NewStatic builds a Static fetcher.
func NewStatic(cfg Config) *Static {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	return &Static{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Page fetches the URL and returns the parsed document.
func (s *Static) Page(ctx context.Context, rawURL string) (*goquery.Document, error) {
	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.SetRequestTimeout(s.cfg.Timeout)
	collector.Context = ctx

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}
