package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/metrics"
	"github.com/dealwatch/carwatch/internal/progress"
)

// Pool scrapes ad detail pages across a fixed number of workers. Every
// worker owns a private rendering session for its whole lifetime; the work
// queue is a pre-loaded closed channel so workers drain it independently
// and stop without any rendezvous.
//
// Run returns exactly one Record per input URL: items whose retry budget is
// exhausted come back with every value field blank rather than missing.
type Pool struct {
	cfg       Config
	factory   SessionFactory
	extractor *Extractor
	logger    *zap.Logger
}

// NewPool builds a worker pool.
func NewPool(cfg Config, factory SessionFactory, extractor *Extractor, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{cfg: cfg, factory: factory, extractor: extractor, logger: logger}
}

// Run scrapes every URL and returns the records in completion order.
func (p *Pool) Run(ctx context.Context, adURLs []string, tracker *progress.Tracker) []Record {
	queue := make(chan string, len(adURLs))
	for _, u := range adURLs {
		queue <- u
	}
	close(queue)

	results := make(chan Record, len(adURLs))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Staggered start avoids racing browser session initialization.
			if !sleepCtx(ctx, time.Duration(workerID)*p.cfg.WorkerStagger) {
				return
			}
			p.runWorker(ctx, workerID, queue, results, tracker)
		}(i)
	}
	wg.Wait()

	// Coverage guarantee: anything still queued (all sessions failed, or
	// the context ended) is emitted as a degraded blank record.
	for url := range queue {
		results <- Record{AdURL: url}
	}
	close(results)

	records := make([]Record, 0, len(adURLs))
	for rec := range results {
		records = append(records, rec)
	}
	return records
}

func (p *Pool) runWorker(
	ctx context.Context,
	workerID int,
	queue <-chan string,
	results chan<- Record,
	tracker *progress.Tracker,
) {
	log := p.logger.With(zap.Int("worker", workerID))

	session, err := p.factory(ctx)
	if err != nil {
		log.Error("worker session init failed", zap.Error(err))
		return
	}
	defer session.Close()
	log.Info("worker session ready")

	for adURL := range queue {
		if ctx.Err() != nil {
			results <- Record{AdURL: adURL}
			continue
		}
		tracker.Step(adURL)
		results <- p.scrapeAd(ctx, log, session, adURL)
	}
	log.Info("worker done")
}

// scrapeAd runs the bounded retry loop for one ad. An attempt that loads
// but yields none of Make/Model/Price counts as a failure: the page most
// likely had not finished rendering.
func (p *Pool) scrapeAd(ctx context.Context, log *zap.Logger, session Session, adURL string) Record {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	start := time.Now()

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		rec, err := p.attempt(ctx, session, adURL)
		if err == nil {
			metrics.ObserveAd("ok", time.Since(start))
			log.Debug("ad scraped",
				zap.String("url", adURL),
				zap.String("make", rec.Make),
				zap.String("model", rec.Model),
				zap.String("price", rec.Price),
			)
			return rec
		}

		log.Warn("ad scrape attempt failed",
			zap.String("url", adURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.MaxRetries),
			zap.Error(err),
		)
		if attempt < p.cfg.MaxRetries {
			metrics.ObserveRetry()
			if !sleepCtx(ctx, p.cfg.RetryWait) {
				break
			}
		}
	}

	log.Error("ad failed after all attempts, emitting blank record", zap.String("url", adURL))
	metrics.ObserveAd("degraded", time.Since(start))
	return Record{AdURL: adURL}
}

func (p *Pool) attempt(ctx context.Context, session Session, adURL string) (Record, error) {
	if err := session.Navigate(ctx, adURL); err != nil {
		return Record{}, err
	}
	if !session.WaitAny(ctx, p.cfg.DetailSelectors, p.cfg.AdWait) {
		return Record{}, fmt.Errorf("page not ready after %s", p.cfg.AdWait)
	}
	doc, err := session.Document(ctx)
	if err != nil {
		return Record{}, err
	}

	rec := p.extractor.Extract(doc, adURL)
	if !rec.HasIdentity() {
		return Record{}, fmt.Errorf("all core fields empty, page likely not loaded yet")
	}
	return rec, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
