package harvest

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("harvest.regions", []string{"Kerala"})
	v.Set("harvest.user_agent", "test-agent")
	v.Set("harvest.respect_robots", true)
	v.Set("harvest.max_retries", 3)
	v.Set("harvest.retry_base_delay", "500ms")
	v.Set("harvest.request_timeout", "10s")
	v.Set("harvest.delay_curated", "1s")
	v.Set("harvest.delay_discovery", "3s")
	v.Set("harvest.max_pages_per_source", 25)
	v.Set("harvest.concurrency", 4)
	v.Set("harvest.run_timeout", "30m")
	v.Set("harvest.render_timeout", "20s")
	v.Set("harvest.render_max_concurrency", 2)
	v.Set("harvest.render_domain_qps", 0.5)
	v.Set("harvest.page_cache_ttl", "10m")
	v.Set("harvest.max_body_bytes", 1024)
	v.Set("harvest.output_dir", "data/harvest")
	return v
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(validViper())
	require.NoError(t, err)
	require.Equal(t, []string{"Kerala"}, cfg.Regions)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	require.Equal(t, 25, cfg.MaxPagesPerSource)
	require.Equal(t, int64(1024), cfg.MaxBodyBytes)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"missing user agent", "harvest.user_agent", ""},
		{"zero retries", "harvest.max_retries", 0},
		{"negative delay", "harvest.delay_curated", "-1s"},
		{"zero page cap", "harvest.max_pages_per_source", 0},
		{"zero concurrency", "harvest.concurrency", 0},
		{"zero body cap", "harvest.max_body_bytes", 0},
		{"missing output dir", "harvest.output_dir", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := validViper()
			v.Set(tc.key, tc.value)
			_, err := LoadConfig(v)
			require.Error(t, err)
		})
	}
}

func TestConfig_DelayFor(t *testing.T) {
	cfg := Config{DelayCurated: time.Second, DelayDiscovery: 3 * time.Second}
	require.Equal(t, time.Second, cfg.DelayFor(SeedCurated))
	require.Equal(t, 3*time.Second, cfg.DelayFor(SeedRegionListing))
	require.Equal(t, 3*time.Second, cfg.DelayFor(SeedCategorySearch))
}
