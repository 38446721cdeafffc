// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file and environment variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/janseva-labs/schemeharvest/internal/logging"
)

// InitConfig initializes the application's configuration using Viper. It sets
// defaults, defines search paths, and enables environment overrides. Called
// once at startup via cobra.OnInitialize.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/schemeharvest/")
	viper.AddConfigPath("$HOME/.schemeharvest")

	const defaultUA = "SchemeHarvest/1.0 (+https://github.com/janseva-labs/schemeharvest)"
	viper.SetDefault("harvest.regions", []string{})
	viper.SetDefault("harvest.user_agent", defaultUA)
	viper.SetDefault("harvest.respect_robots", true)
	viper.SetDefault("harvest.max_retries", 3)
	viper.SetDefault("harvest.retry_base_delay", "1s")
	viper.SetDefault("harvest.request_timeout", "15s")
	viper.SetDefault("harvest.delay_curated", "1s")
	viper.SetDefault("harvest.delay_discovery", "3s")
	viper.SetDefault("harvest.max_pages_per_source", 25)
	viper.SetDefault("harvest.concurrency", 4)
	viper.SetDefault("harvest.run_timeout", "30m")
	viper.SetDefault("harvest.feature_render_enabled", false)
	viper.SetDefault("harvest.render_timeout", "20s")
	viper.SetDefault("harvest.render_max_concurrency", 2)
	viper.SetDefault("harvest.render_domain_qps", 0.5)
	viper.SetDefault("harvest.page_cache_ttl", "10m")
	viper.SetDefault("harvest.max_body_bytes", 5*1024*1024)
	viper.SetDefault("harvest.output_dir", "data/harvest")
	viper.SetDefault("harvest.data_file", "")

	viper.SetDefault("serve.listen_addr", ":8080")

	viper.SetDefault("storage.provider", "noop")
	viper.SetDefault("database.provider", "noop")
	viper.SetDefault("publisher.provider", "noop")

	// e.g. SCHEMEHARVEST_HARVEST_CONCURRENCY=8
	viper.SetEnvPrefix("SCHEMEHARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
