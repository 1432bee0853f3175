package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a scrape run. All values
// originate from Viper so the pipeline can be configured via files, env
// vars, or CLI flags.
type Config struct {
	BaseURL         string
	StartURL        string
	TileSelector    string
	DetailSelectors []string
	Workers         int
	MaxRetries      int
	RetryWait       time.Duration
	PageWait        time.Duration
	AdWait          time.Duration
	PollInterval    time.Duration
	SettleDelay     time.Duration
	WorkerStagger   time.Duration
	DomainQPS       float64
	ImageDomain     string
	ImageResolution string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:         v.GetString("scrape.base_url"),
		StartURL:        v.GetString("scrape.start_url"),
		TileSelector:    v.GetString("scrape.tile_selector"),
		DetailSelectors: trimmed(v.GetStringSlice("scrape.detail_selectors")),
		Workers:         v.GetInt("scrape.workers"),
		MaxRetries:      v.GetInt("scrape.max_retries"),
		RetryWait:       v.GetDuration("scrape.retry_wait"),
		PageWait:        v.GetDuration("scrape.page_wait"),
		AdWait:          v.GetDuration("scrape.ad_wait"),
		PollInterval:    v.GetDuration("scrape.poll_interval"),
		SettleDelay:     v.GetDuration("scrape.settle_delay"),
		WorkerStagger:   v.GetDuration("scrape.worker_stagger"),
		DomainQPS:       v.GetFloat64("scrape.domain_qps"),
		ImageDomain:     v.GetString("scrape.image_domain"),
		ImageResolution: v.GetString("scrape.image_resolution"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("scrape.base_url must be set")
	}
	if c.StartURL == "" {
		return fmt.Errorf("scrape.start_url must be set")
	}
	if c.TileSelector == "" {
		return fmt.Errorf("scrape.tile_selector must be set")
	}
	if len(c.DetailSelectors) == 0 {
		return fmt.Errorf("scrape.detail_selectors must include at least one selector")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("scrape.workers must be > 0")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("scrape.max_retries must be > 0")
	}
	if c.RetryWait < 0 {
		return fmt.Errorf("scrape.retry_wait must be >= 0")
	}
	if c.PageWait <= 0 {
		return fmt.Errorf("scrape.page_wait must be > 0")
	}
	if c.AdWait <= 0 {
		return fmt.Errorf("scrape.ad_wait must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("scrape.poll_interval must be > 0")
	}
	if c.WorkerStagger < 0 {
		return fmt.Errorf("scrape.worker_stagger must be >= 0")
	}
	if c.DomainQPS < 0 {
		return fmt.Errorf("scrape.domain_qps must be >= 0")
	}
	if c.ImageDomain == "" {
		return fmt.Errorf("scrape.image_domain must be set")
	}
	if c.ImageResolution == "" {
		return fmt.Errorf("scrape.image_resolution must be set")
	}
	return nil
}

func trimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
