// Package config provides configuration management for the portfolio monitor.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/logging"
	"portfolio-monitor/internal/marketdata"
	"portfolio-monitor/internal/notify"
	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/trading"
)

// EnvPrefix prefixes environment overrides, e.g. MONITOR_ANALYSIS_WORKERS.
const EnvPrefix = "MONITOR"

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig    `mapstructure:"analysis"`
	Features FeaturesConfig    `mapstructure:"features"`
	Market   MarketConfig      `mapstructure:"market"`
	Data     DataConfig        `mapstructure:"data"`
	Store    StoreConfig       `mapstructure:"store"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Watch    WatchConfig       `mapstructure:"watch"`
	Notify   NotifyConfig      `mapstructure:"notify"`
	Sectors  map[string]string `mapstructure:"sectors"`
}

// AnalysisConfig holds the analysis thresholds.
type AnalysisConfig struct {
	TrailSLTrigger   float64 `mapstructure:"trail_sl_trigger"`
	SLAlertThreshold float64 `mapstructure:"sl_alert_threshold"`
	LookbackPeriod   string  `mapstructure:"lookback_period"`
	CorrelationBars  int     `mapstructure:"correlation_bars"`
	Workers          int     `mapstructure:"workers"`
}

// FeaturesConfig toggles optional analyses.
type FeaturesConfig struct {
	Patterns          bool `mapstructure:"patterns"`
	Volume            bool `mapstructure:"volume"`
	SupportResistance bool `mapstructure:"support_resistance"`
	EmergencyExit     bool `mapstructure:"emergency_exit"`
	TrailingStop      bool `mapstructure:"trailing_stop"`
	Correlation       bool `mapstructure:"correlation"`
}

// MarketConfig holds exchange and benchmark settings.
type MarketConfig struct {
	ExchangeSuffix  string        `mapstructure:"exchange_suffix"`
	Benchmark       string        `mapstructure:"benchmark"`
	BenchmarkPeriod string        `mapstructure:"benchmark_period"`
	VolatilityIndex string        `mapstructure:"volatility_index"`
	HealthTTL       time.Duration `mapstructure:"health_ttl"`
	Holidays        []string      `mapstructure:"holidays"` // YYYY-MM-DD
}

// DataConfig holds the price fetch policy.
type DataConfig struct {
	MinInterval      time.Duration `mapstructure:"min_interval"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	Concurrency      int           `mapstructure:"concurrency"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	StaleFallback    bool          `mapstructure:"stale_fallback"`
}

// StoreConfig holds the database location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// WatchConfig holds the scheduled refresh settings.
type WatchConfig struct {
	Schedule        string `mapstructure:"schedule"`
	MarketHoursOnly bool   `mapstructure:"market_hours_only"`
}

// NotifyConfig holds alert delivery settings used by watch.
type NotifyConfig struct {
	MinPriority    string        `mapstructure:"min_priority"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	Terminal       bool          `mapstructure:"terminal"`
	Bell           bool          `mapstructure:"bell"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/portfolio-monitor"
	}
	return filepath.Join(home, ".config", "portfolio-monitor")
}

// Load loads config.toml from configDir, writing a commented template first
// when the file does not exist. If configDir is empty, uses the default
// config directory. MONITOR_* environment variables override file values.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "monitor.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	settings := trading.DefaultSettings()
	fetch := marketdata.DefaultConfig()
	logCfg := logging.DefaultLogConfig()
	notifyCfg := notify.DefaultConfig()

	v.SetDefault("analysis.trail_sl_trigger", settings.TrailTriggerPct)
	v.SetDefault("analysis.sl_alert_threshold", settings.SLAlertThreshold)
	v.SetDefault("analysis.lookback_period", fetch.Period)
	v.SetDefault("analysis.correlation_bars", settings.CorrelationBars)
	v.SetDefault("analysis.workers", 4)

	v.SetDefault("features.patterns", true)
	v.SetDefault("features.volume", true)
	v.SetDefault("features.support_resistance", true)
	v.SetDefault("features.emergency_exit", true)
	v.SetDefault("features.trailing_stop", true)
	v.SetDefault("features.correlation", true)

	v.SetDefault("market.exchange_suffix", fetch.Suffix)
	v.SetDefault("market.benchmark", fetch.BenchmarkSymbol)
	v.SetDefault("market.benchmark_period", fetch.BenchmarkPeriod)
	v.SetDefault("market.volatility_index", fetch.VolatilitySymbol)
	v.SetDefault("market.health_ttl", fetch.HealthTTL)
	v.SetDefault("market.holidays", []string{})

	v.SetDefault("data.min_interval", fetch.MinInterval)
	v.SetDefault("data.max_attempts", fetch.Retry.MaxAttempts)
	v.SetDefault("data.initial_backoff", fetch.Retry.InitialDelay)
	v.SetDefault("data.max_backoff", fetch.Retry.MaxDelay)
	v.SetDefault("data.cache_ttl", fetch.CacheTTL)
	v.SetDefault("data.concurrency", fetch.Concurrency)
	v.SetDefault("data.failure_threshold", fetch.Breaker.FailureThreshold)
	v.SetDefault("data.open_timeout", fetch.Breaker.Timeout)
	v.SetDefault("data.stale_fallback", false)

	v.SetDefault("store.path", "")

	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.console", logCfg.Console)
	v.SetDefault("logging.file", logCfg.File)
	v.SetDefault("logging.file_path", logCfg.FilePath)
	v.SetDefault("logging.max_size", logCfg.MaxSize)
	v.SetDefault("logging.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.max_age", logCfg.MaxAge)

	v.SetDefault("watch.schedule", "@every 5m")
	v.SetDefault("watch.market_hours_only", true)

	v.SetDefault("notify.min_priority", string(notifyCfg.MinPriority))
	v.SetDefault("notify.cooldown", notifyCfg.Cooldown)
	v.SetDefault("notify.terminal", notifyCfg.Terminal)
	v.SetDefault("notify.bell", notifyCfg.Bell)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_timeout", notifyCfg.WebhookTimeout)
}

// Validate checks value ranges and reports every problem at once.
func (c *Config) Validate() error {
	var err error
	invalid := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Analysis.TrailSLTrigger <= 0 || c.Analysis.TrailSLTrigger > 50 {
		invalid("analysis.trail_sl_trigger must be in (0, 50], got %v", c.Analysis.TrailSLTrigger)
	}
	if c.Analysis.SLAlertThreshold < 0 || c.Analysis.SLAlertThreshold > 100 {
		invalid("analysis.sl_alert_threshold must be between 0 and 100, got %v", c.Analysis.SLAlertThreshold)
	}
	if c.Analysis.LookbackPeriod == "" {
		invalid("analysis.lookback_period must not be empty")
	}
	if c.Analysis.CorrelationBars < 2 {
		invalid("analysis.correlation_bars must be at least 2, got %d", c.Analysis.CorrelationBars)
	}
	if c.Analysis.Workers < 1 {
		invalid("analysis.workers must be at least 1, got %d", c.Analysis.Workers)
	}

	if c.Market.Benchmark == "" {
		invalid("market.benchmark must not be empty")
	}
	for _, d := range c.Market.Holidays {
		if _, perr := time.Parse("2006-01-02", d); perr != nil {
			invalid("market.holidays entry %q must be YYYY-MM-DD", d)
		}
	}

	if c.Data.MaxAttempts < 1 {
		invalid("data.max_attempts must be at least 1, got %d", c.Data.MaxAttempts)
	}
	if c.Data.MinInterval < 0 || c.Data.CacheTTL < 0 || c.Market.HealthTTL < 0 {
		invalid("durations must not be negative")
	}
	if c.Data.Concurrency < 1 {
		invalid("data.concurrency must be at least 1, got %d", c.Data.Concurrency)
	}

	if trading.Priority(strings.ToUpper(c.Notify.MinPriority)).Rank() == 0 {
		invalid("notify.min_priority %q must be LOW, MEDIUM, HIGH or CRITICAL", c.Notify.MinPriority)
	}
	if c.Notify.WebhookURL != "" {
		if u, perr := url.Parse(c.Notify.WebhookURL); perr != nil || (u.Scheme != "http" && u.Scheme != "https") {
			invalid("notify.webhook_url %q must be an http(s) URL", c.Notify.WebhookURL)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid("logging.level %q is not a known level", c.Logging.Level)
	}
	return err
}

// Settings projects the analysis section onto the engine's settings value.
func (c *Config) Settings() trading.Settings {
	return trading.Settings{
		TrailTriggerPct:  c.Analysis.TrailSLTrigger,
		SLAlertThreshold: c.Analysis.SLAlertThreshold,
		CorrelationBars:  c.Analysis.CorrelationBars,
		Features: trading.FeatureFlags{
			Patterns:          c.Features.Patterns,
			Volume:            c.Features.Volume,
			SupportResistance: c.Features.SupportResistance,
			EmergencyExit:     c.Features.EmergencyExit,
			TrailingStop:      c.Features.TrailingStop,
			Correlation:       c.Features.Correlation,
		},
	}
}

// FetcherConfig projects the market and data sections onto the fetcher config.
func (c *Config) FetcherConfig() marketdata.Config {
	cfg := marketdata.DefaultConfig()
	cfg.Suffix = c.Market.ExchangeSuffix
	cfg.Period = c.Analysis.LookbackPeriod
	cfg.BenchmarkSymbol = c.Market.Benchmark
	cfg.BenchmarkPeriod = c.Market.BenchmarkPeriod
	cfg.VolatilitySymbol = c.Market.VolatilityIndex
	cfg.HealthTTL = c.Market.HealthTTL
	cfg.MinInterval = c.Data.MinInterval
	cfg.CacheTTL = c.Data.CacheTTL
	cfg.Concurrency = c.Data.Concurrency
	cfg.StaleFallback = c.Data.StaleFallback
	cfg.Retry = resilience.RetryPolicy{
		MaxAttempts:  c.Data.MaxAttempts,
		InitialDelay: c.Data.InitialBackoff,
		MaxDelay:     c.Data.MaxBackoff,
		Multiplier:   cfg.Retry.Multiplier,
	}
	if c.Data.FailureThreshold > 0 {
		cfg.Breaker.FailureThreshold = c.Data.FailureThreshold
	}
	if c.Data.OpenTimeout > 0 {
		cfg.Breaker.Timeout = c.Data.OpenTimeout
	}
	return cfg
}

// LogConfig projects the logging section onto the logger config.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// NotifyConfig projects the notify section onto the dispatcher config.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		MinPriority:    trading.Priority(strings.ToUpper(c.Notify.MinPriority)),
		Cooldown:       c.Notify.Cooldown,
		Terminal:       c.Notify.Terminal,
		Bell:           c.Notify.Bell,
		WebhookURL:     c.Notify.WebhookURL,
		WebhookTimeout: c.Notify.WebhookTimeout,
	}
}
