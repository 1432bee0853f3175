// Package app initializes and holds the long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/browser"
	"github.com/dealwatch/carwatch/internal/engine"
	"github.com/dealwatch/carwatch/internal/fetch"
	"github.com/dealwatch/carwatch/internal/logging"
	"github.com/dealwatch/carwatch/internal/notify"
	notifypubsub "github.com/dealwatch/carwatch/internal/notify/pubsub"
	notifysmtp "github.com/dealwatch/carwatch/internal/notify/smtp"
	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
	snapgcs "github.com/dealwatch/carwatch/internal/snapshot/gcs"
	snappg "github.com/dealwatch/carwatch/internal/snapshot/postgres"
)

// App holds the shared, long-lived services: the logger, the snapshot
// store, the notifier, the headless browser, and the run engine built on
// top of them. It is initialized once at startup and torn down by Close.
type App struct {
	logger  *zap.Logger
	browser *browser.Browser
	engine  *engine.Engine

	closers []func()
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Engine returns the run engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// New reads the Viper configuration and instantiates every service the
// pipeline needs. It fails fast when any critical service cannot be
// initialized.
func New(ctx context.Context) (*App, error) {
	logger := logging.L

	scrapeCfg, err := scrape.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load scrape config: %w", err)
	}

	a := &App{logger: logger}

	b, err := browser.New(browser.Config{
		Headless:    viper.GetBool("browser.headless"),
		UserAgent:   viper.GetString("browser.user_agent"),
		DomainQPS:   scrapeCfg.DomainQPS,
		PollEvery:   scrapeCfg.PollInterval,
		SettleDelay: scrapeCfg.SettleDelay,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize browser: %w", err)
	}
	a.browser = b
	a.closers = append(a.closers, b.Close)

	store, err := a.buildStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	probe := fetch.NewStatic(fetch.Config{
		UserAgent: viper.GetString("browser.user_agent"),
		Timeout:   scrapeCfg.PageWait,
	})
	discoverer := &runDiscoverer{
		cfg:     scrapeCfg,
		probe:   probe,
		browser: b,
		logger:  logger,
	}
	factory := func(ctx context.Context) (scrape.Session, error) {
		return b.NewSession(ctx)
	}
	pool := scrape.NewPool(scrapeCfg, factory, scrape.NewExtractor(scrapeCfg), logger)

	a.engine = engine.New(discoverer, pool, store, notifier, logger)

	logger.Info("application services initialized",
		zap.String("store", viper.GetString("store.provider")),
		zap.String("notify", viper.GetString("notify.provider")),
		zap.Int("workers", scrapeCfg.Workers),
	)
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (snapshot.Store, error) {
	provider := viper.GetString("store.provider")
	switch provider {
	case "fs":
		store, err := snapshot.NewFS(snapshot.FSConfig{Dir: viper.GetString("store.fs.dir")}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize fs store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := snappg.New(ctx, snappg.Config{
			DSN:   viper.GetString("store.postgres.dsn"),
			Table: viper.GetString("store.postgres.table"),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "gcs":
		bucket := viper.GetString("store.gcs.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("store provider is 'gcs' but store.gcs.bucket is not set")
		}
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing gcs client", zap.Error(err))
			}
		})
		store, err := snapgcs.New(client, snapgcs.Config{
			Bucket: bucket,
			Prefix: viper.GetString("store.gcs.prefix"),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize gcs store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", provider)
	}
}

func (a *App) buildNotifier(ctx context.Context) (notify.Notifier, error) {
	provider := viper.GetString("notify.provider")
	switch provider {
	case "", "none":
		return notify.Noop{}, nil
	case "smtp":
		notifier, err := notifysmtp.New(notifysmtp.Config{
			Host:       viper.GetString("notify.smtp.host"),
			Port:       viper.GetInt("notify.smtp.port"),
			Sender:     viper.GetString("notify.smtp.sender"),
			Password:   viper.GetString("notify.smtp.password"),
			Recipients: viper.GetStringSlice("notify.smtp.to"),
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize smtp notifier: %w", err)
		}
		return notifier, nil
	case "pubsub":
		project := viper.GetString("notify.pubsub.project")
		topicID := viper.GetString("notify.pubsub.topic")
		if project == "" || topicID == "" {
			return nil, fmt.Errorf("notify provider is 'pubsub' but project or topic is not set")
		}
		client, err := pubsub.NewClient(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub client: %w", err)
		}
		topic := client.Topic(topicID)
		a.closers = append(a.closers, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing pubsub client", zap.Error(err))
			}
		})
		return notifypubsub.New(topic), nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", provider)
	}
}

// Close shuts down every service the App owns, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	// Best effort; stderr may already be gone.
	_ = a.logger.Sync()
}

// runDiscoverer opens a fresh rendering session per run for index-page
// promotion. When the browser cannot start, discovery degrades to the
// static probe alone instead of failing the run outright.
type runDiscoverer struct {
	cfg     scrape.Config
	probe   scrape.DocSource
	browser *browser.Browser
	logger  *zap.Logger
}

func (d *runDiscoverer) Discover(ctx context.Context) ([]string, error) {
	var session scrape.Session
	if s, err := d.browser.NewSession(ctx); err != nil {
		d.logger.Warn("browser unavailable for discovery, probing only", zap.Error(err))
	} else {
		session = s
		defer s.Close()
	}

	disc, err := scrape.NewDiscoverer(d.cfg, d.probe, session, d.logger)
	if err != nil {
		return nil, err
	}
	return disc.Discover(ctx)
}
