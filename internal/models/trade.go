package models

import "time"

// Trade represents a closed position recorded in trade history.
type Trade struct {
	ID         int64
	PositionID int64
	Ticker     string
	Direction  Direction
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	PnLPercent float64
	ExitReason string
	EntryDate  time.Time
	ExitDate   time.Time
}

// HoldDuration returns how long the position was held.
func (t Trade) HoldDuration() time.Duration {
	return t.ExitDate.Sub(t.EntryDate)
}

// StopLossChange records a stop-loss or target adjustment applied by the caller.
type StopLossChange struct {
	PositionID int64
	Ticker     string
	OldValue   float64
	NewValue   float64
	Field      string // stop_loss, target_1, target_2
	Reason     string
	ChangedAt  time.Time
}
