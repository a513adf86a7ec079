package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	apperrors "portfolio-monitor/internal/errors"
)

var entryDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestNewPosition_Defaults(t *testing.T) {
	p, err := NewPosition(PositionParams{
		Ticker:     " tcs.ns ",
		Direction:  Long,
		EntryPrice: 100,
		Quantity:   10,
		StopLoss:   95,
		Target1:    110,
		EntryDate:  entryDate,
	})
	require.NoError(t, err)
	assert.Equal(t, "TCS", p.Ticker)
	assert.Equal(t, StatusActive, p.Status)
	assert.InDelta(t, 111, p.Target2, 1e-9)
	assert.InDelta(t, 1000, p.Invested(), 1e-9)
	assert.True(t, p.IsLong())
}

func TestNewPosition_ShortTarget2(t *testing.T) {
	p, err := NewPosition(PositionParams{
		Ticker: "INFY", Direction: Short, EntryPrice: 200, Quantity: 5,
		StopLoss: 210, Target1: 180, EntryDate: entryDate,
	})
	require.NoError(t, err)
	assert.InDelta(t, 178, p.Target2, 1e-9)
}

func TestNewPosition_ReportsEveryFailure(t *testing.T) {
	_, err := NewPosition(PositionParams{
		Ticker:     "",
		Direction:  "SIDEWAYS",
		EntryPrice: -1,
		Quantity:   0,
		StopLoss:   1,
		Target1:    1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidPosition))
	assert.GreaterOrEqual(t, len(multierr.Errors(err)), 4)
}

func TestPosition_ValidateOrdering(t *testing.T) {
	tests := []struct {
		name  string
		dir   Direction
		stop  float64
		t1    float64
		field string
	}{
		{"long stop above entry", Long, 105, 110, "stop_loss"},
		{"long target below entry", Long, 95, 99, "target_1"},
		{"short stop below entry", Short, 95, 90, "stop_loss"},
		{"short target above entry", Short, 105, 101, "target_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPosition(PositionParams{
				Ticker: "TCS", Direction: tt.dir, EntryPrice: 100, Quantity: 1,
				StopLoss: tt.stop, Target1: tt.t1, Target2: tt.t1, EntryDate: entryDate,
			})
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr), "err = %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPosition_PnLAndLevels(t *testing.T) {
	long := Position{Direction: Long, EntryPrice: 100, Quantity: 10, StopLoss: 95}
	amount, pct := long.PnL(108)
	assert.InDelta(t, 80, amount, 1e-9)
	assert.InDelta(t, 8, pct, 1e-9)
	assert.True(t, long.StopBreached(95))
	assert.False(t, long.StopBreached(95.01))
	assert.True(t, long.TargetReached(110, 110))

	short := Position{Direction: Short, EntryPrice: 200, Quantity: 5, StopLoss: 210}
	amount, pct = short.PnL(190)
	assert.InDelta(t, 50, amount, 1e-9)
	assert.InDelta(t, 5, pct, 1e-9)
	assert.True(t, short.StopBreached(210))
	assert.True(t, short.TargetReached(180, 180))
	assert.False(t, short.TargetReached(181, 180))
}

func TestTrade_HoldDuration(t *testing.T) {
	tr := Trade{EntryDate: entryDate, ExitDate: entryDate.AddDate(0, 0, 7)}
	assert.Equal(t, 7*24*time.Hour, tr.HoldDuration())
}

func TestPriceSeries(t *testing.T) {
	s := PriceSeries{
		{Date: entryDate, Close: 1, Volume: 10},
		{Date: entryDate.AddDate(0, 0, 1), Close: 2, Volume: 20},
		{Date: entryDate.AddDate(0, 0, 2), Close: 3, Volume: 30},
	}
	assert.Equal(t, []float64{2, 3}, s.Tail(2).Closes())
	assert.Len(t, s.Tail(10), 3)
	assert.Nil(t, s.Tail(0))
	assert.Equal(t, 3.0, s.Last().Close)
	assert.True(t, s.Ordered())

	s[2].Date = s[1].Date
	assert.False(t, s.Ordered())
	assert.True(t, PriceSeries(nil).Empty())
}

func TestProperty_DefaultTarget2(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("target 2 lies beyond target 1 on the target side", prop.ForAll(
		func(entry, offset float64, short bool) bool {
			t1 := entry + offset
			if short {
				t1 = entry - offset
			}
			t2 := DefaultTarget2(entry, t1)
			if math.Abs(math.Abs(t2-entry)-1.1*offset) > 1e-6 {
				return false
			}
			if short {
				return t2 < t1
			}
			return t2 > t1
		},
		gen.Float64Range(10, 10000),
		gen.Float64Range(0.5, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
