// Package models provides domain models for the portfolio monitor.
package models

// Direction represents whether a position profits from a rise or a fall in price.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// PositionStatus represents the lifecycle status of a tracked position.
type PositionStatus string

const (
	StatusActive   PositionStatus = "ACTIVE"
	StatusPending  PositionStatus = "PENDING"
	StatusInactive PositionStatus = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s PositionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusInactive:
		return true
	}
	return false
}

// MarketStatus represents the current market session status.
type MarketStatus string

const (
	MarketOpen      MarketStatus = "OPEN"
	MarketPreMarket MarketStatus = "PRE-MARKET"
	MarketClosed    MarketStatus = "CLOSED"
	MarketWeekend   MarketStatus = "WEEKEND"
)
