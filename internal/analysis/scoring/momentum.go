// Package scoring provides the composite momentum score.
package scoring

import (
	"portfolio-monitor/internal/analysis"
	"portfolio-monitor/internal/analysis/indicators"
	"portfolio-monitor/internal/models"
)

const (
	baseline       = 50.0
	maStep         = 5.0
	returnScale    = 3.0
	returnCap      = 15.0
	returnLookback = 5
)

// MomentumScorer combines RSI, MACD, moving-average alignment and the short
// term return into a 0-100 trend score.
type MomentumScorer struct{}

// NewMomentumScorer creates a new momentum scorer.
func NewMomentumScorer() *MomentumScorer {
	return &MomentumScorer{}
}

// Score calculates the momentum score from a series and its indicator snapshot.
// An empty series scores a flat 50.
func (s *MomentumScorer) Score(series models.PriceSeries, snap indicators.Snapshot) analysis.Momentum {
	if series.Empty() {
		return analysis.Momentum{Score: baseline, Trend: analysis.TrendNeutral}
	}

	c := analysis.MomentumComponents{
		RSI:         rsiComponent(snap.RSI),
		MACD:        macdComponent(snap.MACDHistogram, snap.MACDPrevHistogram),
		MAAlignment: alignmentComponent(snap),
		Return5:     returnComponent(series.Closes()),
	}

	score := clamp(baseline+c.RSI+c.MACD+c.MAAlignment+c.Return5, 0, 100)
	return analysis.Momentum{
		Score:      score,
		Trend:      TrendFromScore(score),
		Components: c,
	}
}

func rsiComponent(rsi float64) float64 {
	switch {
	case rsi > 70:
		return -10
	case rsi > 60:
		return 15
	case rsi > 50:
		return 10
	case rsi > 40:
		return -5
	case rsi > 30:
		return -15
	default:
		return 10
	}
}

func macdComponent(hist, prev float64) float64 {
	if hist > 0 {
		if hist > prev {
			return 20
		}
		return 10
	}
	if hist < prev {
		return -20
	}
	return -10
}

func alignmentComponent(snap indicators.Snapshot) float64 {
	var score float64
	for _, up := range []bool{
		snap.Close > snap.EMA9,
		snap.Close > snap.SMA20,
		snap.Close > snap.SMA50,
		snap.SMA20 > snap.SMA50,
	} {
		if up {
			score += maStep
		} else {
			score -= maStep
		}
	}
	return score
}

func returnComponent(closes []float64) float64 {
	n := len(closes)
	if n <= returnLookback {
		return 0
	}
	ret := indicators.PercentChange(closes[n-1-returnLookback], closes[n-1])
	return clamp(ret*returnScale, -returnCap, returnCap)
}

// TrendFromScore maps a momentum score to its trend label.
func TrendFromScore(score float64) analysis.Trend {
	switch {
	case score >= 70:
		return analysis.TrendStrongBullish
	case score >= 55:
		return analysis.TrendBullish
	case score >= 45:
		return analysis.TrendNeutral
	case score >= 30:
		return analysis.TrendBearish
	default:
		return analysis.TrendStrongBearish
	}
}

// clamp restricts a value to the given range.
func clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
