package scrape

import (
	"context"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/metrics"
)

// Discoverer paginates the listing index and collects canonical ad URLs.
//
// Each index page is probed over plain HTTP first; when the probe shows no
// tiles (the catalog is a client-rendered app most days) the page is
// promoted to a headless render. Discovery stops on the first page that
// contributes zero new URLs, so it needs no total-count signal and follows
// the index as it grows or shrinks between runs.
type Discoverer struct {
	cfg     Config
	probe   DocSource
	session Session
	logger  *zap.Logger
}

// NewDiscoverer builds a Discoverer. probe may be nil to always render;
// session may be nil to rely on the probe alone.
func NewDiscoverer(cfg Config, probe DocSource, session Session, logger *zap.Logger) (*Discoverer, error) {
	if probe == nil && session == nil {
		return nil, fmt.Errorf("discoverer needs a probe fetcher or a rendering session")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{cfg: cfg, probe: probe, session: session, logger: logger}, nil
}

// Discover walks index pages 0,1,2,... and returns the deduplicated ad
// URLs in first-seen order. A page that fails to load counts as zero new
// ads; when that happens mid-pagination the run under-collects rather
// than aborting.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	var ads []string
	seen := make(map[string]struct{})

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return ads, fmt.Errorf("discovery canceled: %w", err)
		}

		pageURL := d.cfg.StartURL + strconv.Itoa(page)
		doc := d.loadIndexPage(ctx, pageURL)

		newCount := 0
		if doc != nil {
			newCount = d.collectTiles(doc, seen, &ads)
		}

		d.logger.Info("listing page collected",
			zap.Int("page", page),
			zap.Int("new_ads", newCount),
			zap.Int("total_ads", len(ads)),
		)

		if newCount == 0 {
			d.logger.Info("no new ads on page, stopping collection", zap.Int("page", page))
			return ads, nil
		}
	}
}

// loadIndexPage returns the page document, or nil when the page could not
// be loaded by either path.
func (d *Discoverer) loadIndexPage(ctx context.Context, pageURL string) *goquery.Document {
	if d.probe != nil {
		doc, err := d.probe.Page(ctx, pageURL)
		if err != nil {
			d.logger.Debug("static probe failed", zap.String("url", pageURL), zap.Error(err))
		} else if doc.Find(d.cfg.TileSelector).Length() > 0 {
			metrics.ObserveDiscoveryPage("static")
			return doc
		}
	}

	if d.session == nil {
		return nil
	}
	if err := d.session.Navigate(ctx, pageURL); err != nil {
		d.logger.Warn("listing page navigation failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	if !d.session.WaitAny(ctx, []string{d.cfg.TileSelector}, d.cfg.PageWait) {
		d.logger.Warn("timed out waiting for listing page tiles", zap.String("url", pageURL))
	}
	doc, err := d.session.Document(ctx)
	if err != nil {
		d.logger.Warn("listing page snapshot failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	metrics.ObserveDiscoveryPage("rendered")
	return doc
}

func (d *Discoverer) collectTiles(doc *goquery.Document, seen map[string]struct{}, ads *[]string) int {
	newCount := 0
	doc.Find(d.cfg.TileSelector).Each(func(_ int, tile *goquery.Selection) {
		href, ok := tile.Attr("href")
		if !ok || href == "" {
			return
		}
		full, err := CanonicalURL(d.cfg.BaseURL, href)
		if err != nil {
			d.logger.Debug("skipping malformed tile href", zap.String("href", href), zap.Error(err))
			return
		}
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		*ads = append(*ads, full)
		newCount++
	})
	return newCount
}
