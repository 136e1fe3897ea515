// The application's root configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	AntiDetect AntiDetectConfig `mapstructure:"anti_detect"`
	Rotation   RotationConfig   `mapstructure:"rotation"`
	Behavior   BehaviorConfig   `mapstructure:"behavior"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// BrowserConfig holds settings for the controlled browser process.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless"`
	// ContainerMode adds the sandbox/shm/gpu flags required when the
	// browser runs inside a container.
	ContainerMode     bool          `mapstructure:"container_mode"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors"`
	DisableImages     bool          `mapstructure:"disable_images"`
	BinaryPaths       []string      `mapstructure:"binary_paths"`
	Args              []string      `mapstructure:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// AntiDetectConfig toggles the evasion layers.
type AntiDetectConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	AdvancedEvasion    bool `mapstructure:"advanced_evasion"`
	ContinuousRotation bool `mapstructure:"continuous_rotation"`
}

// RotationConfig holds the identity-rotation tuning values. The values are
// heuristic; they are exposed here rather than hard-coded so deployments can
// tune them empirically.
type RotationConfig struct {
	RequestThresholdMin int           `mapstructure:"request_threshold_min"`
	RequestThresholdMax int           `mapstructure:"request_threshold_max"`
	IntervalMin         time.Duration `mapstructure:"interval_min"`
	IntervalMax         time.Duration `mapstructure:"interval_max"`
	RandomChance        float64       `mapstructure:"random_chance"`
	WorkerWakeMin       time.Duration `mapstructure:"worker_wake_min"`
	WorkerWakeMax       time.Duration `mapstructure:"worker_wake_max"`
	WorkerJoinTimeout   time.Duration `mapstructure:"worker_join_timeout"`
}

// BehaviorConfig tunes the human-interaction simulation.
type BehaviorConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MinDelay       time.Duration `mapstructure:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	SettleMin      time.Duration `mapstructure:"settle_min"`
	SettleMax      time.Duration `mapstructure:"settle_max"`
	MaxReadingTime time.Duration `mapstructure:"max_reading_time"`
}

// ProxyConfig holds the egress proxy registry settings.
type ProxyConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoints is the static seed pool, entries as host:port.
	Endpoints []string `mapstructure:"endpoints"`
	// ListURL optionally points at an HTTP source of newline-delimited
	// host:port pairs used to refresh an empty pool.
	ListURL        string        `mapstructure:"list_url"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
	MaxFetched     int           `mapstructure:"max_fetched"`
}

// ExtractorConfig holds settings for the selector pipeline.
type ExtractorConfig struct {
	SelectorTimeout time.Duration `mapstructure:"selector_timeout"`
	RetryWait       time.Duration `mapstructure:"retry_wait"`
}

// DownloaderConfig holds settings for the external download tool.
type DownloaderConfig struct {
	Binary    string        `mapstructure:"binary"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Referer   string        `mapstructure:"referer"`
	SleepMin  int           `mapstructure:"sleep_min"`
	SleepMax  int           `mapstructure:"sleep_max"`
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// Requesting either evasion layer turns the whole system on.
	if cfg.AntiDetect.AdvancedEvasion || cfg.AntiDetect.ContinuousRotation {
		cfg.AntiDetect.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	r := c.Rotation
	if r.RequestThresholdMin > r.RequestThresholdMax {
		return fmt.Errorf("rotation: request_threshold_min (%d) exceeds request_threshold_max (%d)",
			r.RequestThresholdMin, r.RequestThresholdMax)
	}
	if r.IntervalMin > r.IntervalMax {
		return fmt.Errorf("rotation: interval_min (%s) exceeds interval_max (%s)", r.IntervalMin, r.IntervalMax)
	}
	if r.RandomChance < 0 || r.RandomChance > 1 {
		return fmt.Errorf("rotation: random_chance must be within [0,1], got %v", r.RandomChance)
	}
	if c.Behavior.MinDelay > c.Behavior.MaxDelay {
		return fmt.Errorf("behavior: min_delay (%s) exceeds max_delay (%s)", c.Behavior.MinDelay, c.Behavior.MaxDelay)
	}
	if c.Downloader.Binary == "" {
		return fmt.Errorf("downloader: binary must not be empty")
	}
	return nil
}
