// Package notify delivers position alerts raised by a refresh cycle to the
// terminal and to an optional webhook.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/trading"
)

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Notification is one alert for one position.
type Notification struct {
	CycleID   string
	Ticker    string
	Priority  trading.Priority
	Kind      trading.AlertKind
	Action    trading.Action
	Title     string
	Message   string
	Timestamp time.Time
}

// Config holds notification settings.
type Config struct {
	// MinPriority drops alerts ranked below it.
	MinPriority trading.Priority
	// Cooldown suppresses repeats of the same ticker and alert kind.
	Cooldown       time.Duration
	Terminal       bool
	Bell           bool
	WebhookURL     string
	WebhookTimeout time.Duration
}

// DefaultConfig returns terminal-only delivery of HIGH and CRITICAL alerts.
func DefaultConfig() Config {
	return Config{
		MinPriority:    trading.PriorityHigh,
		Cooldown:       30 * time.Minute,
		Terminal:       true,
		Bell:           false,
		WebhookTimeout: 10 * time.Second,
	}
}

// Dispatcher fans notifications out to every channel. It is safe for
// concurrent use.
type Dispatcher struct {
	minPriority trading.Priority
	recent      *resilience.TimedCache[string, struct{}]
	clock       resilience.Clock
	logger      zerolog.Logger

	mu       sync.RWMutex
	channels []Channel
}

// NewDispatcher creates a dispatcher with the given channels.
func NewDispatcher(cfg Config, clock resilience.Clock, logger zerolog.Logger, channels ...Channel) *Dispatcher {
	if clock == nil {
		clock = resilience.SystemClock
	}
	if cfg.MinPriority == "" {
		cfg.MinPriority = trading.PriorityLow
	}
	return &Dispatcher{
		minPriority: cfg.MinPriority,
		recent:      resilience.NewTimedCache[string, struct{}](cfg.Cooldown, clock),
		clock:       clock,
		logger:      logger.With().Str("component", "notify").Logger(),
		channels:    channels,
	}
}

// AddChannel adds a delivery target.
func (d *Dispatcher) AddChannel(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, ch)
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// FromReport turns every alert in report into a notification, most urgent
// first within each position.
func FromReport(report *trading.Report) []Notification {
	if report == nil {
		return nil
	}
	var out []Notification
	for _, r := range report.Results {
		for _, a := range r.Alerts {
			out = append(out, Notification{
				CycleID:   report.ID,
				Ticker:    r.Ticker(),
				Priority:  a.Priority,
				Kind:      a.Kind,
				Action:    a.Action,
				Title:     fmt.Sprintf("%s %s", r.Ticker(), strings.ReplaceAll(string(a.Kind), "_", " ")),
				Message:   fmt.Sprintf("%s (price %.2f, P&L %+.2f%%)", a.Message, r.CurrentPrice, r.PnLPercent),
				Timestamp: report.GeneratedAt,
			})
		}
	}
	return out
}

// Dispatch sends the report's alerts that pass the priority filter and are
// not in cooldown. It returns how many notifications went out and every
// channel error.
func (d *Dispatcher) Dispatch(ctx context.Context, report *trading.Report) (int, error) {
	var sent int
	var errs error
	for _, n := range FromReport(report) {
		if !d.shouldSend(n) {
			continue
		}
		if err := d.Send(ctx, n); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		d.recent.Set(cooldownKey(n), struct{}{})
		sent++
	}
	return sent, errs
}

func (d *Dispatcher) shouldSend(n Notification) bool {
	if n.Priority.Rank() < d.minPriority.Rank() {
		return false
	}
	if _, ok := d.recent.Get(cooldownKey(n)); ok {
		d.logger.Debug().Str("ticker", n.Ticker).Str("kind", string(n.Kind)).Msg("Alert in cooldown")
		return false
	}
	return true
}

func cooldownKey(n Notification) string {
	return n.Ticker + "|" + string(n.Kind)
}

// Send delivers n to every channel regardless of filters. A notification
// counts as delivered when at least one channel accepts it.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = d.clock.Now()
	}

	d.mu.RLock()
	channels := d.channels
	d.mu.RUnlock()

	var errs error
	delivered := 0
	for _, ch := range channels {
		if err := ch.Send(ctx, n); err != nil {
			d.logger.Warn().Err(err).Str("channel", ch.Name()).Str("ticker", n.Ticker).Msg("Notification failed")
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered++
	}
	if delivered == 0 && errs != nil {
		return errs
	}
	return nil
}
