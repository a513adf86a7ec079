// Package cli provides the command-line interface for the portfolio monitor.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"portfolio-monitor/internal/config"
	"portfolio-monitor/internal/logging"
	"portfolio-monitor/internal/marketdata"
	"portfolio-monitor/internal/notify"
	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/security"
	"portfolio-monitor/internal/store"
	"portfolio-monitor/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.PositionStore
	Fetcher  trading.PriceFetcher
	Monitor  *trading.Monitor
	Hours    *resilience.MarketHoursManager
	Clock    resilience.Clock
	Notifier *notify.Dispatcher // built by watch when nil
}

var errNoStore = errors.New("position store unavailable")

// NewRootCmd creates the root command. Dependencies are built from the
// configuration once flags are parsed.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

// newRootCmd builds the command tree around app. Fields already set on app
// are kept, which lets tests inject a store and fetcher.
func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Portfolio Monitor - stop-loss risk and exit signals for open positions",
		Long: `Portfolio Monitor tracks open NSE positions and, on every refresh, scores
stop-loss risk, momentum, support/resistance, chart patterns and volume,
checks market health (NIFTY and India VIX) and raises exit, target and
trailing-stop alerts.

Use 'monitor positions add' to track a position and 'monitor analyze' to run a refresh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")
			return app.init(configDir, debug)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/portfolio-monitor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newHealthCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

// init wires whatever app is missing from the configuration.
func (app *App) init(configDir string, debug bool) error {
	if app.Config == nil {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
	}
	if debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	if app.Clock == nil {
		app.Clock = resilience.SystemClock
	}

	if app.Store == nil {
		s, err := store.NewSQLiteStore(app.Config.Store.Path)
		if err != nil {
			app.Logger.Warn().Err(err).Str("path", app.Config.Store.Path).Msg("Failed to open store")
		} else {
			app.Store = s
			app.Logger.Debug().Str("path", app.Config.Store.Path).Msg("SQLite store initialized")
		}
	}

	if app.Fetcher == nil {
		var opts []marketdata.FetcherOption
		opts = append(opts, marketdata.WithFetchLogger(app.Logger), marketdata.WithFetchClock(app.Clock))
		if app.Store != nil {
			opts = append(opts, marketdata.WithArchive(app.Store))
		}
		app.Fetcher = marketdata.NewFetcher(marketdata.NewYahooSource(), app.Config.FetcherConfig(), opts...)
	}

	if app.Monitor == nil {
		app.Monitor = trading.NewMonitor(app.Fetcher, app.Config.Settings(),
			trading.WithWorkers(app.Config.Analysis.Workers),
			trading.WithSectorMap(trading.NewSectorMap(app.Config.Sectors)),
			trading.WithClock(app.Clock),
			trading.WithLogger(app.Logger),
		)
	}

	if app.Hours == nil {
		app.Hours = resilience.NewMarketHoursManager(app.Clock)
		if err := app.Hours.AddHolidays(app.Config.Market.Holidays); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the store.
func (app *App) Close() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}

func (app *App) requireStore() (store.PositionStore, error) {
	if app.Store == nil {
		return nil, errNoStore
	}
	return app.Store, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Portfolio Monitor v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			NewOutput(cmd).Println(dir)
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analysis")
	output.Printf("  Trail SL trigger:   %.1f%%\n", cfg.Analysis.TrailSLTrigger)
	output.Printf("  SL alert threshold: %.0f\n", cfg.Analysis.SLAlertThreshold)
	output.Printf("  Lookback:           %s\n", cfg.Analysis.LookbackPeriod)
	output.Printf("  Correlation bars:   %d\n", cfg.Analysis.CorrelationBars)
	output.Printf("  Workers:            %d\n", cfg.Analysis.Workers)
	output.Println()

	output.Bold("Features")
	f := cfg.Features
	output.Printf("  patterns=%v volume=%v levels=%v emergency=%v trailing=%v correlation=%v\n",
		f.Patterns, f.Volume, f.SupportResistance, f.EmergencyExit, f.TrailingStop, f.Correlation)
	output.Println()

	output.Bold("Market data")
	output.Printf("  Benchmark:   %s (%s), volatility %s\n", cfg.Market.Benchmark, cfg.Market.BenchmarkPeriod, cfg.Market.VolatilityIndex)
	output.Printf("  Suffix:      %s\n", cfg.Market.ExchangeSuffix)
	output.Printf("  Retry:       %d attempts, %s..%s\n", cfg.Data.MaxAttempts, cfg.Data.InitialBackoff, cfg.Data.MaxBackoff)
	output.Printf("  Cache TTL:   %s (health %s)\n", cfg.Data.CacheTTL, cfg.Market.HealthTTL)
	output.Println()

	output.Bold("Store")
	output.Printf("  Path: %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Schedule: %s (market hours only: %v)\n", cfg.Watch.Schedule, cfg.Watch.MarketHoursOnly)
	output.Printf("  Alerts:   %s and above, cooldown %s\n", strings.ToUpper(cfg.Notify.MinPriority), cfg.Notify.Cooldown)
	if cfg.Notify.WebhookURL != "" {
		output.Printf("  Webhook:  %s\n", security.MaskURL(cfg.Notify.WebhookURL))
	}
	if len(cfg.Sectors) > 0 {
		output.Println()
		output.Bold("Sector overrides")
		for t, s := range cfg.Sectors {
			output.Printf("  %s = %s\n", t, s)
		}
	}
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(s, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid position id %q", s)
	}
	return id, nil
}
