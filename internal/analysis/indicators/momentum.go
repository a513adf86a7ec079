package indicators

import (
	"fmt"

	"portfolio-monitor/internal/models"
)

// RSI calculates Relative Strength Index with Wilder smoothing.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

// Calculate returns one RSI value per bar. Bars before the first full
// window read Neutral.
func (r *RSI) Calculate(series models.PriceSeries) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return CalculateRSI(series.Closes(), r.period), nil
}

// CalculateRSI computes RSI on raw closes. Average gain and loss are
// exponentially smoothed with factor 1/period; the first bar contributes a
// zero change, so the first defined value is at index period-1.
func CalculateRSI(closes []float64, period int) []float64 {
	result := make([]float64, len(closes))
	for i := range result {
		result[i] = Neutral
	}
	if period <= 0 || len(closes) < period {
		return result
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = alpha*gain + (1-alpha)*avgGain
		avgLoss = alpha*loss + (1-alpha)*avgLoss

		if i < period-1 {
			continue
		}
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return Neutral
	}
	if avgLoss == 0 {
		avgLoss = Epsilon
	}
	rs := avgGain / avgLoss
	return Clamp(100-(100/(1+rs)), 0, 100)
}

// StochasticResult holds %K and %D series.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic calculates the Stochastic Oscillator.
type Stochastic struct {
	kPeriod int
	dPeriod int
}

// NewStochastic creates a new Stochastic indicator. The defaults are (14, 3).
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod,
		dPeriod: dPeriod,
	}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("Stochastic_%d_%d", s.kPeriod, s.dPeriod)
}

func (s *Stochastic) Period() int {
	return s.kPeriod + s.dPeriod - 1
}

// Calculate returns %K and %D. Values before the first full window read Neutral.
func (s *Stochastic) Calculate(series models.PriceSeries) (StochasticResult, error) {
	if s.kPeriod <= 0 || s.dPeriod <= 0 {
		return StochasticResult{}, ErrInvalidPeriod
	}

	n := len(series)
	k := make([]float64, n)
	d := make([]float64, n)
	for i := range k {
		k[i] = Neutral
		d[i] = Neutral
	}

	highs := series.Highs()
	lows := series.Lows()
	for i := s.kPeriod - 1; i < n; i++ {
		start := i - s.kPeriod + 1
		hh := highest(highs[start : i+1])
		ll := lowest(lows[start : i+1])
		k[i] = Clamp(100*(series[i].Close-ll)/(hh-ll+Epsilon), 0, 100)
	}

	// %D needs dPeriod defined %K values
	for i := s.kPeriod + s.dPeriod - 2; i < n; i++ {
		d[i] = mean(k[i-s.dPeriod+1 : i+1])
	}

	return StochasticResult{K: k, D: d}, nil
}
