// Package store provides persistence for tracked positions, trade history,
// stop-loss adjustments and archived price bars.
package store

import (
	"context"
	"time"

	"portfolio-monitor/internal/models"
)

// PositionStore defines the persistence collaborator of the monitor.
type PositionStore interface {
	// Positions
	AddPosition(ctx context.Context, p models.Position) (int64, error)
	GetPosition(ctx context.Context, id int64) (*models.Position, error)
	GetActivePositions(ctx context.Context) ([]models.Position, error)
	GetPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error)
	UpdateStopLoss(ctx context.Context, id int64, stop float64, reason string) error
	UpdateTarget(ctx context.Context, id int64, field string, value float64, reason string) error
	ClosePosition(ctx context.Context, id int64, exitPrice float64, reason string, exitDate time.Time) (*models.Trade, error)

	// History
	GetTradeHistory(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	GetStopLossChanges(ctx context.Context, positionID int64) ([]models.StopLossChange, error)

	// Price archive
	SaveBars(ctx context.Context, ticker string, bars models.PriceSeries) error
	GetBars(ctx context.Context, ticker string, since time.Time) (models.PriceSeries, error)

	// Lifecycle
	Close() error
}

// PositionFilter represents filters for querying positions.
type PositionFilter struct {
	Ticker string
	Status models.PositionStatus
	Limit  int
}

// TradeFilter represents filters for querying closed trades.
type TradeFilter struct {
	Ticker    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Target fields accepted by UpdateTarget.
const (
	FieldStopLoss = "stop_loss"
	FieldTarget1  = "target_1"
	FieldTarget2  = "target_2"
)
