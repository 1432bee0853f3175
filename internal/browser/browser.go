// Package browser provides rendering sessions backed by headless Chrome.
// A Browser owns one exec allocator; each worker opens its own Session
// (one tab) and must not share it.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls browser behavior.
type Config struct {
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration
	DomainQPS   float64
	PollEvery   time.Duration
	SettleDelay time.Duration
}

// Browser wraps a chromedp exec allocator shared by all sessions.
type Browser struct {
	cfg            Config
	allocCtx       context.Context
	allocCancel    context.CancelFunc
	logger         *zap.Logger
	domainLimiters sync.Map
}

// New creates a Browser with a fresh exec allocator.
func New(cfg Config, logger *zap.Logger) (*Browser, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 400 * time.Millisecond
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context, tearing down every session.
func (b *Browser) Close() {
	b.allocCancel()
}

// Session is one exclusive browser tab. Sessions tolerate repeated
// navigation but are not safe for concurrent use.
type Session struct {
	browser *Browser
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewSession opens a tab and warms it up so the first navigation does not
// pay the browser start cost.
func (b *Browser) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)

	warmCtx, warmCancel := context.WithTimeout(tabCtx, b.cfg.NavTimeout)
	defer warmCancel()
	stop := forwardCancel(ctx, warmCancel)
	defer stop()

	if err := chromedp.Run(warmCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Session{
		browser: b,
		ctx:     tabCtx,
		cancel:  tabCancel,
		logger:  b.logger,
	}, nil
}

// Close releases the tab.
func (s *Session) Close() {
	s.cancel()
}

// Navigate loads the URL in this session's tab, honoring the per-domain
// QPS budget.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if err := s.browser.waitDomainBudget(ctx, rawURL); err != nil {
		return fmt.Errorf("navigation rate limit: %w", err)
	}

	navCtx, cancel := context.WithTimeout(s.ctx, s.browser.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	tasks := chromedp.Tasks{
		chromedp.Navigate(rawURL),
	}
	if s.browser.cfg.UserAgent != "" {
		tasks = append(chromedp.Tasks{
			chromedp.ActionFunc(func(c context.Context) error {
				return emulation.SetUserAgentOverride(s.browser.cfg.UserAgent).Do(c)
			}),
		}, tasks...)
	}
	if err := chromedp.Run(navCtx, tasks); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

// WaitAny polls until any of the candidate selectors matches an element or
// the timeout elapses. A short settle delay after the first hit lets the
// client-side framework finish rendering.
func (s *Session) WaitAny(ctx context.Context, selectors []string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, sel := range selectors {
			if s.present(ctx, sel) {
				s.sleep(ctx, s.browser.cfg.SettleDelay)
				return true
			}
		}
		if !s.sleep(ctx, s.browser.cfg.PollEvery) {
			return false
		}
	}
	return false
}

// Document snapshots the rendered DOM as a queryable goquery document.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.browser.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("dom snapshot: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse dom snapshot: %w", err)
	}
	return doc, nil
}

func (s *Session) present(ctx context.Context, selector string) bool {
	runCtx, cancel := context.WithTimeout(s.ctx, s.browser.cfg.PollEvery*4)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var found bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &found)); err != nil {
		return false
	}
	return found
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (b *Browser) waitDomainBudget(ctx context.Context, rawURL string) error {
	if b.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := b.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(b.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
