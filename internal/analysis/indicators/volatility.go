package indicators

import (
	"fmt"

	"portfolio-monitor/internal/models"
)

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

// Calculate returns the rolling mean of true range. The first bar has no
// previous close, so values are defined from bar period onward and read 0 before.
func (a *ATR) Calculate(series models.PriceSeries) ([]float64, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(series)
	result := make([]float64, n)
	if n < a.period+1 {
		return result, nil
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(series[i].High, series[i].Low, series[i-1].Close)
	}

	for i := a.period; i < n; i++ {
		result[i] = mean(tr[i-a.period+1 : i+1])
	}
	return result, nil
}

// BandsResult holds Bollinger band series.
type BandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands calculates Bollinger Bands.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

// Calculate returns the bands. Before the first full window all three bands
// collapse onto the close.
func (b *BollingerBands) Calculate(series models.PriceSeries) (BandsResult, error) {
	if b.period <= 0 {
		return BandsResult{}, ErrInvalidPeriod
	}

	closes := series.Closes()
	n := len(closes)
	upper := make([]float64, n)
	middle := make([]float64, n)
	lower := make([]float64, n)

	sma := CalculateSMA(closes, b.period)
	for i := 0; i < n; i++ {
		if i < b.period-1 {
			upper[i], middle[i], lower[i] = closes[i], closes[i], closes[i]
			continue
		}
		sd := sampleStdDev(closes[i-b.period+1 : i+1])
		middle[i] = sma[i]
		upper[i] = sma[i] + b.stdDevMul*sd
		lower[i] = sma[i] - b.stdDevMul*sd
	}

	return BandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}, nil
}
