package models

import (
	"time"
)

// PriceBar represents OHLCV data for one trading day.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// PriceSeries is a chronologically ordered sequence of bars with strictly
// increasing dates. It is supplied fresh each cycle and never mutated by the engine.
type PriceSeries []PriceBar

// Len returns the number of bars.
func (s PriceSeries) Len() int {
	return len(s)
}

// Empty reports whether the series has no bars.
func (s PriceSeries) Empty() bool {
	return len(s) == 0
}

// Last returns the most recent bar. It panics on an empty series.
func (s PriceSeries) Last() PriceBar {
	return s[len(s)-1]
}

// Tail returns the last n bars, or the whole series when it is shorter.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Closes extracts close prices.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts volumes as float64 for averaging.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Volume)
	}
	return out
}

// Ordered reports whether dates are strictly increasing.
func (s PriceSeries) Ordered() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return false
		}
	}
	return true
}
