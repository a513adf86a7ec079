package cli

import (
	"context"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"portfolio-monitor/internal/logging"
	"portfolio-monitor/internal/notify"
	"portfolio-monitor/internal/resilience"
)

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh on a schedule until interrupted",
		Long: `Run a refresh cycle on a cron schedule (standard 5-field specs in IST, or
descriptors such as "@every 5m") and print each report. With
--market-hours-only, cycles outside the trading session are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			schedule, _ := cmd.Flags().GetString("schedule")
			if schedule == "" {
				schedule = app.Config.Watch.Schedule
			}
			marketHoursOnly := app.Config.Watch.MarketHoursOnly
			if cmd.Flags().Changed("market-hours-only") {
				marketHoursOnly, _ = cmd.Flags().GetBool("market-hours-only")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if app.Notifier == nil {
				noColor, _ := cmd.Flags().GetBool("no-color")
				app.Notifier = app.newNotifier(cmd.ErrOrStderr(), noColor)
			}

			w := &watcher{app: app, output: output, ctx: ctx, marketHoursOnly: marketHoursOnly}
			c := cron.New(cron.WithLocation(resilience.IndiaLocation))
			if _, err := c.AddFunc(schedule, w.cycle); err != nil {
				return err
			}

			app.Logger.Info().Str("schedule", schedule).Bool("market_hours_only", marketHoursOnly).Msg("Watch started")
			output.Info("Watching (%s). Press Ctrl+C to stop.", schedule)
			w.cycle()

			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			app.Logger.Info().Msg("Watch stopped")
			return nil
		},
	}
	cmd.Flags().String("schedule", "", `cron schedule (default from config, e.g. "@every 5m")`)
	cmd.Flags().Bool("market-hours-only", true, "skip cycles outside market hours")
	return cmd
}

// watcher runs one refresh per cron tick. Overlapping ticks are dropped.
type watcher struct {
	app             *App
	output          *Output
	ctx             context.Context
	marketHoursOnly bool

	mu sync.Mutex
}

func (w *watcher) cycle() {
	if !w.mu.TryLock() {
		w.app.Logger.Warn().Msg("Previous cycle still running, tick skipped")
		return
	}
	defer w.mu.Unlock()

	log := logging.WithOperation(w.app.Logger, "watch")
	if w.marketHoursOnly && !w.app.Hours.IsMarketOpen() {
		log.Debug().Str("market", w.app.Hours.StatusMessage()).Msg("Market closed, cycle skipped")
		return
	}
	if w.ctx.Err() != nil {
		return
	}

	report, err := w.app.refresh(w.ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Refresh failed")
		return
	}
	if report == nil {
		log.Info().Msg("No active positions")
		return
	}
	if sent, err := w.app.Notifier.Dispatch(w.ctx, report); err != nil {
		log.Warn().Err(err).Msg("Alert delivery failed")
	} else if sent > 0 {
		log.Info().Int("alerts", sent).Msg("Alerts delivered")
	}

	if w.output.IsJSON() {
		w.output.JSON(report)
		return
	}
	w.output.Println()
	renderReport(w.output, w.app, report)
}

// newNotifier builds the alert dispatcher from the notify config section.
func (app *App) newNotifier(term io.Writer, noColor bool) *notify.Dispatcher {
	cfg := app.Config.NotifyConfig()
	var channels []notify.Channel
	if cfg.Terminal {
		channels = append(channels, notify.NewTerminalChannel(term, cfg.Bell, noColor))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel(cfg.WebhookURL, cfg.WebhookTimeout, app.Config.FetcherConfig().Retry))
	}
	return notify.NewDispatcher(cfg, app.Clock, app.Logger, channels...)
}
