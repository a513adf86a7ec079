package indicators

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Epsilon replaces zero denominators so no indicator divides by zero.
const Epsilon = 1e-10

// Neutral is the value oscillators report when history is too short.
const Neutral = 50.0

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sampleStdDev is the n-1 standard deviation, matching a rolling std over closes.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// trueRange calculates the true range of a bar given the previous close.
func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// Last returns the final value of a slice, or fallback when it is empty or not finite.
func Last(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Prev returns the second-to-last value of a slice, or fallback.
func Prev(values []float64, fallback float64) float64 {
	if len(values) < 2 {
		return fallback
	}
	return Last(values[:len(values)-1], fallback)
}

// SafeDivide returns fallback when the denominator is zero or the result is not finite.
func SafeDivide(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fallback
	}
	return r
}

// Clamp restricts a value to the given range.
func Clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}

// PercentChange returns (to-from)/from*100, or 0 when from is zero.
func PercentChange(from, to float64) float64 {
	return SafeDivide(to-from, from, 0) * 100
}

// Returns converts prices into simple period returns; returns[i] is the change into bar i+1.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = SafeDivide(prices[i]-prices[i-1], prices[i-1], 0)
	}
	return out
}
