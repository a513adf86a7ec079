package models

import (
	"time"

	"go.uber.org/multierr"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/security"
)

// Position represents a tracked trade.
type Position struct {
	ID         int64
	Ticker     string
	Direction  Direction
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	Target1    float64
	Target2    float64
	EntryDate  time.Time
	Status     PositionStatus
	Notes      string
}

// PositionParams are the raw inputs for NewPosition. Target2 of zero means "derive it".
type PositionParams struct {
	Ticker     string
	Direction  Direction
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	Target1    float64
	Target2    float64
	EntryDate  time.Time
	Status     PositionStatus
	Notes      string
}

// NewPosition validates params and builds a Position. All failures are
// reported together; each one wraps errors.ErrInvalidPosition.
func NewPosition(p PositionParams) (Position, error) {
	p.Ticker = security.NormalizeTicker(p.Ticker)
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.EntryDate.IsZero() {
		p.EntryDate = time.Now()
	}
	if p.Target2 == 0 && p.Direction.Valid() {
		p.Target2 = DefaultTarget2(p.EntryPrice, p.Target1)
	}

	pos := Position{
		Ticker:     p.Ticker,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		Quantity:   p.Quantity,
		StopLoss:   p.StopLoss,
		Target1:    p.Target1,
		Target2:    p.Target2,
		EntryDate:  p.EntryDate,
		Status:     p.Status,
		Notes:      p.Notes,
	}
	if err := pos.Validate(); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Validate checks the position invariants. For LONG, stop < entry < target1;
// for SHORT, stop > entry > target1.
func (p Position) Validate() error {
	var err error

	if terr := security.ValidateTicker(p.Ticker); terr != nil {
		err = multierr.Append(err, terr)
	}
	if !p.Direction.Valid() {
		err = multierr.Append(err, apperrors.NewValidationError("direction", p.Direction, "must be LONG or SHORT"))
	}
	if !p.Status.Valid() {
		err = multierr.Append(err, apperrors.NewValidationError("status", p.Status, "must be ACTIVE, PENDING or INACTIVE"))
	}
	if p.EntryPrice <= 0 {
		err = multierr.Append(err, apperrors.NewValidationError("entry_price", p.EntryPrice, "must be positive"))
	}
	if p.Quantity <= 0 {
		err = multierr.Append(err, apperrors.NewValidationError("quantity", p.Quantity, "must be positive"))
	}
	if p.StopLoss <= 0 {
		err = multierr.Append(err, apperrors.NewValidationError("stop_loss", p.StopLoss, "must be positive"))
	}
	if p.Target1 <= 0 {
		err = multierr.Append(err, apperrors.NewValidationError("target_1", p.Target1, "must be positive"))
	}
	if p.Target2 <= 0 {
		err = multierr.Append(err, apperrors.NewValidationError("target_2", p.Target2, "must be positive"))
	}
	if err != nil {
		return err
	}

	switch p.Direction {
	case Long:
		if p.StopLoss >= p.EntryPrice {
			err = multierr.Append(err, apperrors.NewValidationError("stop_loss", p.StopLoss, "must be below entry for LONG"))
		}
		if p.Target1 <= p.EntryPrice {
			err = multierr.Append(err, apperrors.NewValidationError("target_1", p.Target1, "must be above entry for LONG"))
		}
	case Short:
		if p.StopLoss <= p.EntryPrice {
			err = multierr.Append(err, apperrors.NewValidationError("stop_loss", p.StopLoss, "must be above entry for SHORT"))
		}
		if p.Target1 >= p.EntryPrice {
			err = multierr.Append(err, apperrors.NewValidationError("target_1", p.Target1, "must be below entry for SHORT"))
		}
	}
	return err
}

// DefaultTarget2 derives a second target 10% further from entry than target1.
// The sign of (target1 - entry) carries the direction, so SHORT targets stay below entry.
func DefaultTarget2(entry, target1 float64) float64 {
	return entry + (target1-entry)*1.1
}

// IsLong reports whether the position profits from a rise.
func (p Position) IsLong() bool {
	return p.Direction == Long
}

// Invested returns entry value of the position.
func (p Position) Invested() float64 {
	return p.EntryPrice * p.Quantity
}

// PnL returns the direction-aware unrealised P&L amount and percent at price.
func (p Position) PnL(price float64) (amount, percent float64) {
	diff := price - p.EntryPrice
	if p.Direction == Short {
		diff = -diff
	}
	return diff * p.Quantity, diff / p.EntryPrice * 100
}

// StopBreached reports whether price is at or through the stop.
func (p Position) StopBreached(price float64) bool {
	if p.Direction == Short {
		return price >= p.StopLoss
	}
	return price <= p.StopLoss
}

// TargetReached reports whether price is at or beyond target.
func (p Position) TargetReached(price, target float64) bool {
	if p.Direction == Short {
		return price <= target
	}
	return price >= target
}
