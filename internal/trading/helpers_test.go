package trading

import (
	"testing"
	"time"

	"portfolio-monitor/internal/models"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustPosition(t testing.TB, ticker string, dir models.Direction, entry, qty, stop, t1, t2 float64) models.Position {
	t.Helper()
	p, err := models.NewPosition(models.PositionParams{
		Ticker:     ticker,
		Direction:  dir,
		EntryPrice: entry,
		Quantity:   qty,
		StopLoss:   stop,
		Target1:    t1,
		Target2:    t2,
		EntryDate:  testStart,
	})
	if err != nil {
		t.Fatalf("NewPosition(%s): %v", ticker, err)
	}
	return p
}

func seriesOf(closes ...float64) models.PriceSeries {
	series := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = models.PriceBar{
			Date:   testStart.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return series
}

// endingAt returns a 40-bar flat series at base whose last close is last.
func endingAt(base, last float64) models.PriceSeries {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = base
	}
	closes[len(closes)-1] = last
	return seriesOf(closes...)
}
