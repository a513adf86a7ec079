package store

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func longPosition(t *testing.T, ticker string, entryDate time.Time) models.Position {
	t.Helper()
	p, err := models.NewPosition(models.PositionParams{
		Ticker:     ticker,
		Direction:  models.Long,
		EntryPrice: 100,
		Quantity:   10,
		StopLoss:   95,
		Target1:    110,
		EntryDate:  entryDate,
	})
	require.NoError(t, err)
	return p
}

func TestSQLiteStore_AddAndGetPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	id, err := s.AddPosition(ctx, longPosition(t, "tcs", entry))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.GetPosition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "TCS", got.Ticker)
	assert.Equal(t, models.Long, got.Direction)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.InDelta(t, 111.0, got.Target2, 1e-9)
	assert.True(t, got.EntryDate.Equal(entry))
}

func TestSQLiteStore_AddPositionRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	p := longPosition(t, "TCS", time.Now())
	p.StopLoss = 120

	_, err := s.AddPosition(context.Background(), p)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidPosition(err))
}

func TestSQLiteStore_GetPositionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetPosition(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrPositionNotFound)
}

func TestSQLiteStore_ActivePositionsOrderedByEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	_, err := s.AddPosition(ctx, longPosition(t, "INFY", base.AddDate(0, 0, 2)))
	require.NoError(t, err)
	_, err = s.AddPosition(ctx, longPosition(t, "TCS", base))
	require.NoError(t, err)
	pending := longPosition(t, "WIPRO", base)
	pending.Status = models.StatusPending
	_, err = s.AddPosition(ctx, pending)
	require.NoError(t, err)

	active, err := s.GetActivePositions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "TCS", active[0].Ticker)
	assert.Equal(t, "INFY", active[1].Ticker)

	byTicker, err := s.GetPositions(ctx, PositionFilter{Ticker: "wipro"})
	require.NoError(t, err)
	require.Len(t, byTicker, 1)
	assert.Equal(t, models.StatusPending, byTicker[0].Status)
}

func TestSQLiteStore_UpdateStopLossRecordsChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.AddPosition(ctx, longPosition(t, "TCS", time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.UpdateStopLoss(ctx, id, 98, "trail"))

	got, err := s.GetPosition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 98.0, got.StopLoss)

	changes, err := s.GetStopLossChanges(ctx, id)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, FieldStopLoss, changes[0].Field)
	assert.Equal(t, 95.0, changes[0].OldValue)
	assert.Equal(t, 98.0, changes[0].NewValue)
	assert.Equal(t, "trail", changes[0].Reason)
}

func TestSQLiteStore_UpdateTargetValidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.AddPosition(ctx, longPosition(t, "TCS", time.Now()))
	require.NoError(t, err)

	// A stop above entry breaks the LONG invariant.
	err = s.UpdateStopLoss(ctx, id, 101, "bad")
	assert.True(t, apperrors.IsInvalidPosition(err))

	err = s.UpdateTarget(ctx, id, "entry_price", 1, "bad")
	assert.Error(t, err)

	require.NoError(t, s.UpdateTarget(ctx, id, FieldTarget1, 115, "raised"))
	got, err := s.GetPosition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 115.0, got.Target1)
	assert.Equal(t, 95.0, got.StopLoss)

	changes, err := s.GetStopLossChanges(ctx, id)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestSQLiteStore_ClosePosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	id, err := s.AddPosition(ctx, longPosition(t, "TCS", entry))
	require.NoError(t, err)

	trade, err := s.ClosePosition(ctx, id, 108, "target", exit)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, trade.PnL, 1e-9)
	assert.InDelta(t, 8.0, trade.PnLPercent, 1e-9)
	assert.Equal(t, 7*24*time.Hour, trade.HoldDuration())

	got, err := s.GetPosition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, got.Status)

	active, err := s.GetActivePositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.ClosePosition(ctx, id, 108, "again", exit)
	assert.True(t, apperrors.IsInvalidPosition(err))

	history, err := s.GetTradeHistory(ctx, TradeFilter{Ticker: "TCS"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "target", history[0].ExitReason)
	assert.True(t, history[0].ExitDate.Equal(exit))
}

func TestSQLiteStore_TradeHistoryDateFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, ticker := range []string{"TCS", "INFY", "WIPRO"} {
		id, err := s.AddPosition(ctx, longPosition(t, ticker, entry))
		require.NoError(t, err)
		_, err = s.ClosePosition(ctx, id, 105, "manual", entry.AddDate(0, 1, i*10))
		require.NoError(t, err)
	}

	trades, err := s.GetTradeHistory(ctx, TradeFilter{
		StartDate: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "WIPRO", trades[0].Ticker)
	assert.Equal(t, "INFY", trades[1].Ticker)

	limited, err := s.GetTradeHistory(ctx, TradeFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_BarsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveBars(ctx, "TCS", models.PriceSeries{
		{Date: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Open: 1.5, High: 2, Low: 1, Close: 1.8, Volume: 20},
	}))
	require.NoError(t, s.SaveBars(ctx, "tcs", models.PriceSeries{
		{Date: day.AddDate(0, 0, 1), Open: 1.5, High: 2.5, Low: 1, Close: 2.2, Volume: 30},
	}))

	bars, err := s.GetBars(ctx, "TCS", day)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.2, bars[1].Close)
	assert.Equal(t, int64(30), bars[1].Volume)

	recent, err := s.GetBars(ctx, "TCS", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	none, err := s.GetBars(ctx, "INFY", day)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProperty_BarsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := 0

	properties.Property("saved bars are returned unchanged and in date order", prop.ForAll(
		func(count int, base float64, volume int64) bool {
			seq++
			ticker := "SYM" + strconv.Itoa(seq)
			series := make(models.PriceSeries, count)
			for i := range series {
				p := base + float64(i)
				series[i] = models.PriceBar{
					Date:   start.AddDate(0, 0, count-1-i),
					Open:   p,
					High:   p + 1,
					Low:    p - 1,
					Close:  p + 0.5,
					Volume: volume + int64(i),
				}
			}

			ctx := context.Background()
			if err := s.SaveBars(ctx, ticker, series); err != nil {
				return false
			}
			got, err := s.GetBars(ctx, ticker, start)
			if err != nil || len(got) != count {
				return false
			}
			for i := range got {
				want := series[count-1-i]
				if !got[i].Date.Equal(want.Date) || got[i].Close != want.Close || got[i].Volume != want.Volume {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.Float64Range(10, 5000),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}
