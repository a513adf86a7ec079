// Package patterns provides support/resistance, chart pattern and volume
// pressure detection over daily price series.
package patterns

import (
	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/models"
)

// LevelAnalyzer identifies support and resistance levels from price pivots.
type LevelAnalyzer struct {
	lookback      int     // bars scanned for pivots
	pivotStrength int     // bars skipped at each edge of the window
	minBars       int     // below this, synthetic bands are returned
	fallbackBand  float64 // synthetic band width as a fraction of price
	strongPivots  int     // pivots needed for a STRONG level
	keepLevels    int     // most recent pivots reported per side
}

// NewLevelAnalyzer creates a new support/resistance level analyzer.
func NewLevelAnalyzer() *LevelAnalyzer {
	return &LevelAnalyzer{
		lookback:      60,
		pivotStrength: 3,
		minBars:       10,
		fallbackBand:  0.05,
		strongPivots:  3,
		keepLevels:    5,
	}
}

// WithLookback returns a copy of the analyzer scanning the given number of bars.
func (l *LevelAnalyzer) WithLookback(bars int) *LevelAnalyzer {
	c := *l
	if bars > 0 {
		c.lookback = bars
	}
	return &c
}

func (l *LevelAnalyzer) Name() string {
	return "LevelAnalyzer"
}

// Analyze locates the nearest support and resistance around the latest close.
// The series must not be empty.
func (l *LevelAnalyzer) Analyze(series models.PriceSeries) analysis.Levels {
	window := series.Tail(l.lookback)
	current := series.Last().Close

	if len(window) < l.minBars {
		return analysis.Levels{
			NearestSupport:       current * (1 - l.fallbackBand),
			NearestResistance:    current * (1 + l.fallbackBand),
			DistanceToSupport:    l.fallbackBand * 100,
			DistanceToResistance: l.fallbackBand * 100,
			SupportStrength:      analysis.StrengthWeak,
			ResistanceStrength:   analysis.StrengthWeak,
		}
	}

	pivotHighs, pivotLows := l.findPivots(window)

	support := lowest(window.Lows())
	if len(pivotLows) > 0 {
		support = highestOf(pivotLows)
	}

	resistance := highestOf(window.Highs())
	found := false
	for _, p := range pivotHighs {
		if p > current && (!found || p < resistance) {
			resistance = p
			found = true
		}
	}

	return analysis.Levels{
		SupportLevels:        lastN(pivotLows, l.keepLevels),
		ResistanceLevels:     lastN(pivotHighs, l.keepLevels),
		NearestSupport:       support,
		NearestResistance:    resistance,
		DistanceToSupport:    (current - support) / current * 100,
		DistanceToResistance: (resistance - current) / current * 100,
		SupportStrength:      l.strength(len(pivotLows)),
		ResistanceStrength:   l.strength(len(pivotHighs)),
	}
}

// findPivots returns pivot highs and lows in chronological order. A pivot
// is at least as extreme as both immediate neighbours.
func (l *LevelAnalyzer) findPivots(window models.PriceSeries) (highs, lows []float64) {
	for i := l.pivotStrength; i < len(window)-l.pivotStrength; i++ {
		if window[i].High >= window[i-1].High && window[i].High >= window[i+1].High {
			highs = append(highs, window[i].High)
		}
		if window[i].Low <= window[i-1].Low && window[i].Low <= window[i+1].Low {
			lows = append(lows, window[i].Low)
		}
	}
	return highs, lows
}

func (l *LevelAnalyzer) strength(pivots int) analysis.LevelStrength {
	if pivots >= l.strongPivots {
		return analysis.StrengthStrong
	}
	return analysis.StrengthWeak
}

func highestOf(values []float64) float64 {
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

func lowest(values []float64) float64 {
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return append([]float64(nil), values...)
	}
	return append([]float64(nil), values[len(values)-n:]...)
}
