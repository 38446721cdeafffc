package harvest

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob that influences a harvest run.
// All values originate from Viper so the pipeline can be configured via files,
// env vars, or CLI flags. Seed lists and selector data live in the separate
// harvest data file (see Dataset).
type Config struct {
	Regions              []string
	UserAgent            string
	RespectRobots        bool
	MaxRetries           int
	RetryBaseDelay       time.Duration
	RequestTimeout       time.Duration
	DelayCurated         time.Duration
	DelayDiscovery       time.Duration
	MaxPagesPerSource    int
	Concurrency          int
	RunTimeout           time.Duration
	FeatureRenderEnabled bool
	RenderTimeout        time.Duration
	RenderMaxConcurrency int
	RenderDomainQPS      float64
	PageCacheTTL         time.Duration
	MaxBodyBytes         int64
	OutputDir            string
	DataFile             string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Regions:              v.GetStringSlice("harvest.regions"),
		UserAgent:            v.GetString("harvest.user_agent"),
		RespectRobots:        v.GetBool("harvest.respect_robots"),
		MaxRetries:           v.GetInt("harvest.max_retries"),
		RetryBaseDelay:       v.GetDuration("harvest.retry_base_delay"),
		RequestTimeout:       v.GetDuration("harvest.request_timeout"),
		DelayCurated:         v.GetDuration("harvest.delay_curated"),
		DelayDiscovery:       v.GetDuration("harvest.delay_discovery"),
		MaxPagesPerSource:    v.GetInt("harvest.max_pages_per_source"),
		Concurrency:          v.GetInt("harvest.concurrency"),
		RunTimeout:           v.GetDuration("harvest.run_timeout"),
		FeatureRenderEnabled: v.GetBool("harvest.feature_render_enabled"),
		RenderTimeout:        v.GetDuration("harvest.render_timeout"),
		RenderMaxConcurrency: v.GetInt("harvest.render_max_concurrency"),
		RenderDomainQPS:      v.GetFloat64("harvest.render_domain_qps"),
		PageCacheTTL:         v.GetDuration("harvest.page_cache_ttl"),
		MaxBodyBytes:         v.GetInt64("harvest.max_body_bytes"),
		OutputDir:            v.GetString("harvest.output_dir"),
		DataFile:             v.GetString("harvest.data_file"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations. A validation
// failure is fatal: no meaningful run can start from a broken config.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("harvest.user_agent must be set")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("harvest.max_retries must be > 0")
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("harvest.retry_base_delay must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("harvest.request_timeout must be > 0")
	}
	if c.DelayCurated < 0 || c.DelayDiscovery < 0 {
		return fmt.Errorf("harvest delays must be >= 0")
	}
	if c.MaxPagesPerSource <= 0 {
		return fmt.Errorf("harvest.max_pages_per_source must be > 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("harvest.concurrency must be > 0")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("harvest.render_timeout must be > 0")
	}
	if c.RenderMaxConcurrency < 0 {
		return fmt.Errorf("harvest.render_max_concurrency must be >= 0")
	}
	if c.RenderDomainQPS < 0 {
		return fmt.Errorf("harvest.render_domain_qps must be >= 0")
	}
	if c.PageCacheTTL < 0 {
		return fmt.Errorf("harvest.page_cache_ttl must be >= 0")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("harvest.max_body_bytes must be > 0")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("harvest.output_dir must be set")
	}
	return nil
}

// DelayFor returns the inter-request delay for a seed's trust level.
func (c Config) DelayFor(kind SeedKind) time.Duration {
	if kind == SeedCurated {
		return c.DelayCurated
	}
	return c.DelayDiscovery
}
