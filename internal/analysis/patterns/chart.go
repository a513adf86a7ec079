package patterns

import (
	"fmt"
	"math"
	"sort"

	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/models"
)

// ChartPatternDetector detects double tops and double bottoms over recent bars.
type ChartPatternDetector struct {
	window           int     // bars scanned
	candidates       int     // extreme highs/lows considered
	tolerancePercent float64 // max gap between the two extremes
	confirmPercent   float64 // retracement from the tested level
}

// NewChartPatternDetector creates a new chart pattern detector.
func NewChartPatternDetector() *ChartPatternDetector {
	return &ChartPatternDetector{
		window:           30,
		candidates:       5,
		tolerancePercent: 0.02,
		confirmPercent:   0.02,
	}
}

func (d *ChartPatternDetector) Name() string {
	return "ChartPatternDetector"
}

// Detect returns the patterns present at the latest bar. Fewer bars than the
// window yield no patterns.
func (d *ChartPatternDetector) Detect(series models.PriceSeries) []analysis.Pattern {
	if len(series) < d.window {
		return nil
	}

	recent := series.Tail(d.window)
	current := series.Last().Close

	var patterns []analysis.Pattern
	if p := d.detectDoubleTop(recent, current); p != nil {
		patterns = append(patterns, *p)
	}
	if p := d.detectDoubleBottom(recent, current); p != nil {
		patterns = append(patterns, *p)
	}
	return patterns
}

// detectDoubleTop detects Double Top pattern (bearish reversal)
func (d *ChartPatternDetector) detectDoubleTop(recent models.PriceSeries, current float64) *analysis.Pattern {
	highs := recent.Highs()
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))
	top := highs[:d.candidates]

	peak1, peak2 := top[0], top[1]
	if !d.pricesEqual(peak1, peak2) {
		return nil
	}
	if current > peak2*(1-d.confirmPercent) {
		return nil
	}

	return &analysis.Pattern{
		Name:        analysis.DoubleTop,
		Direction:   analysis.PatternBearish,
		Level:       peak1,
		Description: fmt.Sprintf("Resistance at %.2f tested twice", peak1),
	}
}

// detectDoubleBottom detects Double Bottom pattern (bullish reversal)
func (d *ChartPatternDetector) detectDoubleBottom(recent models.PriceSeries, current float64) *analysis.Pattern {
	lows := recent.Lows()
	sort.Float64s(lows)
	bottom := lows[:d.candidates]

	bottom1, bottom2 := bottom[0], bottom[1]
	if !d.pricesEqual(bottom1, bottom2) {
		return nil
	}
	if current < bottom2*(1+d.confirmPercent) {
		return nil
	}

	return &analysis.Pattern{
		Name:        analysis.DoubleBottom,
		Direction:   analysis.PatternBullish,
		Level:       bottom1,
		Description: fmt.Sprintf("Support at %.2f held twice", bottom1),
	}
}

// pricesEqual reports whether two extremes are within tolerance of the first.
func (d *ChartPatternDetector) pricesEqual(p1, p2 float64) bool {
	if p1 == 0 {
		return false
	}
	return math.Abs(p1-p2)/p1 < d.tolerancePercent
}
