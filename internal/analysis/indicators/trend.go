package indicators

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"portfolio-monitor/internal/models"
)

// SMA calculates Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

// Calculate returns the SMA series. Bars before the first full window hold
// the running mean of what is available.
func (s *SMA) Calculate(series models.PriceSeries) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return CalculateSMA(series.Closes(), s.period), nil
}

// CalculateSMA computes an SMA on raw values. The leading partial windows use
// the mean of the values seen so far.
func CalculateSMA(values []float64, period int) []float64 {
	n := len(values)
	if n == 0 || period <= 0 {
		return nil
	}
	result := make([]float64, n)
	full := 0
	if n >= period {
		full = period - 1
		copy(result[full:], talib.Sma(values, period)[full:])
	} else {
		full = n
	}
	var running float64
	for i := 0; i < full; i++ {
		running += values[i]
		result[i] = running / float64(i+1)
	}
	return result
}

// LastSMA returns the latest SMA value, or the mean of all values when fewer
// than period are available.
func LastSMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		return mean(values)
	}
	return mean(values[len(values)-period:])
}

// EMA calculates Exponential Moving Average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(series models.PriceSeries) ([]float64, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return CalculateEMA(series.Closes(), e.period), nil
}

// CalculateEMA calculates a recursive EMA with smoothing 2/(period+1), seeded
// with the first value so it is defined from the first bar.
func CalculateEMA(values []float64, period int) []float64 {
	return ewm(values, 2.0/float64(period+1))
}

// ewm is an exponentially weighted mean seeded with the first value.
func ewm(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	result := make([]float64, len(values))
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result
}

// MACDResult holds the MACD line, signal line and histogram series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator. The defaults are (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod - 1
}

func (m *MACD) Calculate(series models.PriceSeries) (MACDResult, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return MACDResult{}, ErrInvalidPeriod
	}
	closes := series.Closes()
	if len(closes) == 0 {
		return MACDResult{}, nil
	}

	fastEMA := CalculateEMA(closes, m.fastPeriod)
	slowEMA := CalculateEMA(closes, m.slowPeriod)

	// MACD Line = Fast EMA - Slow EMA
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal Line = EMA of MACD Line
	signalLine := CalculateEMA(macdLine, m.signalPeriod)

	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}, nil
}
