package resilience

import (
	"fmt"
	"time"

	"portfolio-monitor/internal/models"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Clock supplies the current time. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

const (
	marketOpenMinutes  = 9*60 + 15  // 09:15 IST
	marketCloseMinutes = 15*60 + 30 // 15:30 IST
)

// MarketHoursManager reports the exchange session from an injected clock.
type MarketHoursManager struct {
	clock    Clock
	holidays map[string]bool // Date string -> is holiday
}

// NewMarketHoursManager creates a new market hours manager.
func NewMarketHoursManager(clock Clock) *MarketHoursManager {
	if clock == nil {
		clock = SystemClock
	}
	return &MarketHoursManager{
		clock:    clock,
		holidays: make(map[string]bool),
	}
}

// AddHoliday adds a market holiday.
func (m *MarketHoursManager) AddHoliday(date time.Time) {
	m.holidays[date.Format("2006-01-02")] = true
}

// IsHoliday checks if a date is a market holiday.
func (m *MarketHoursManager) IsHoliday(date time.Time) bool {
	return m.holidays[date.In(IndiaLocation).Format("2006-01-02")]
}

// GetMarketStatus returns the current market status.
func (m *MarketHoursManager) GetMarketStatus() models.MarketStatus {
	return m.GetMarketStatusAt(m.clock.Now())
}

// GetMarketStatusAt returns the market status at a specific time.
func (m *MarketHoursManager) GetMarketStatusAt(t time.Time) models.MarketStatus {
	t = t.In(IndiaLocation)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return models.MarketWeekend
	}
	if m.IsHoliday(t) {
		return models.MarketClosed
	}

	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < marketOpenMinutes:
		return models.MarketPreMarket
	case minutes > marketCloseMinutes:
		return models.MarketClosed
	default:
		return models.MarketOpen
	}
}

// IsMarketOpen checks if the market is currently open.
func (m *MarketHoursManager) IsMarketOpen() bool {
	return m.GetMarketStatus() == models.MarketOpen
}

// NextOpen returns the next session open strictly after now, skipping
// weekends and holidays.
func (m *MarketHoursManager) NextOpen() time.Time {
	now := m.clock.Now().In(IndiaLocation)
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, marketOpenMinutes, 0, 0, IndiaLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday || m.IsHoliday(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TimeUntilClose returns the time left in today's session, zero when the
// market is not open.
func (m *MarketHoursManager) TimeUntilClose() time.Duration {
	now := m.clock.Now().In(IndiaLocation)
	if m.GetMarketStatusAt(now) != models.MarketOpen {
		return 0
	}
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), 0, marketCloseMinutes, 0, 0, IndiaLocation)
	return closeAt.Sub(now)
}

// StatusMessage describes the current session for display.
func (m *MarketHoursManager) StatusMessage() string {
	switch m.GetMarketStatus() {
	case models.MarketPreMarket:
		return "Opens at 09:15 IST"
	case models.MarketOpen:
		return fmt.Sprintf("Closes at 15:30 IST (%s left)", m.TimeUntilClose().Truncate(time.Minute))
	default:
		return "Closed, opens " + m.NextOpen().Format("Mon 02-Jan 15:04") + " IST"
	}
}

// AddHolidays registers exchange holidays given as YYYY-MM-DD strings.
func (m *MarketHoursManager) AddHolidays(dates []string) error {
	for _, d := range dates {
		t, err := time.ParseInLocation("2006-01-02", d, IndiaLocation)
		if err != nil {
			return fmt.Errorf("invalid holiday %q: %w", d, err)
		}
		m.AddHoliday(t)
	}
	return nil
}
