package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Portfolio Monitor Configuration

[analysis]
# Profit (%) after which a trailing stop is suggested; also the trail distance
trail_sl_trigger = 2.0
# Stop-loss risk score (0-100) that puts a position on WARNING
sl_alert_threshold = 50
# History fetched per ticker
lookback_period = "6mo"
# Recent bars used for the correlation matrix
correlation_bars = 63
# Positions analysed in parallel
workers = 4

[features]
patterns = true
volume = true
support_resistance = true
emergency_exit = true
trailing_stop = true
correlation = true

[market]
exchange_suffix = ".NS"
benchmark = "^NSEI"
benchmark_period = "3mo"
volatility_index = "^INDIAVIX"
# How long a market health reading is reused
health_ttl = "5m"
# Exchange holidays, YYYY-MM-DD
holidays = []

[data]
# Minimum spacing between requests for the same ticker
min_interval = "1s"
max_attempts = 3
initial_backoff = "1s"
max_backoff = "10s"
cache_ttl = "5m"
concurrency = 4
# Consecutive source failures before fetches fail fast
failure_threshold = 5
open_timeout = "30s"
# Serve archived bars when the source is down
stale_fallback = false

[store]
# Defaults to monitor.db in the config directory
path = ""

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
max_size = 50
max_backups = 5
max_age = 30

[watch]
schedule = "@every 5m"
market_hours_only = true

[notify]
# Alerts below this priority are not delivered: LOW, MEDIUM, HIGH, CRITICAL
min_priority = "HIGH"
# Repeats of the same ticker and alert are suppressed for this long
cooldown = "30m"
terminal = true
# Ring the terminal bell on CRITICAL alerts
bell = false
# Optional JSON webhook
webhook_url = ""
webhook_timeout = "10s"

# Sector overrides, ticker = sector
[sectors]
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
