package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers default values so the tool runs with no config file.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "ytghost")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.container_mode", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.disable_images", true)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.binary_paths", []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
	})

	// Anti-detection
	v.SetDefault("anti_detect.enabled", false)
	v.SetDefault("anti_detect.advanced_evasion", false)
	v.SetDefault("anti_detect.continuous_rotation", false)

	// Rotation cadence. Tuning values, not load-bearing constants.
	v.SetDefault("rotation.request_threshold_min", 50)
	v.SetDefault("rotation.request_threshold_max", 100)
	v.SetDefault("rotation.interval_min", 600*time.Second)
	v.SetDefault("rotation.interval_max", 900*time.Second)
	v.SetDefault("rotation.random_chance", 0.05)
	v.SetDefault("rotation.worker_wake_min", 3*time.Second)
	v.SetDefault("rotation.worker_wake_max", 8*time.Second)
	v.SetDefault("rotation.worker_join_timeout", 5*time.Second)

	// Behavior simulation
	v.SetDefault("behavior.enabled", true)
	v.SetDefault("behavior.min_delay", 1*time.Second)
	v.SetDefault("behavior.max_delay", 3*time.Second)
	v.SetDefault("behavior.settle_min", 3*time.Second)
	v.SetDefault("behavior.settle_max", 6*time.Second)
	v.SetDefault("behavior.max_reading_time", 5*time.Second)

	// Proxy registry
	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.endpoints", []string{})
	v.SetDefault("proxy.list_url", "")
	v.SetDefault("proxy.refresh_timeout", 5*time.Second)
	v.SetDefault("proxy.max_fetched", 10)

	// Extraction pipeline
	v.SetDefault("extractor.selector_timeout", 20*time.Second)
	v.SetDefault("extractor.retry_wait", 2*time.Second)

	// External downloader
	v.SetDefault("downloader.binary", "yt-dlp")
	v.SetDefault("downloader.timeout", 300*time.Second)
	v.SetDefault("downloader.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("downloader.referer", "https://www.youtube.com/")
	v.SetDefault("downloader.sleep_min", 1)
	v.SetDefault("downloader.sleep_max", 3)
}
