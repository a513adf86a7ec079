package resilience

import (
	"fmt"

	"portfolio-monitor/internal/analysis/indicators"
	"portfolio-monitor/internal/models"
)

// HealthStatus classifies overall market conditions.
type HealthStatus string

const (
	HealthBullish HealthStatus = "BULLISH"
	HealthNeutral HealthStatus = "NEUTRAL"
	HealthWeak    HealthStatus = "WEAK"
	HealthBearish HealthStatus = "BEARISH"
)

// SLAdjustment is the stop-loss alert policy recommended for a market status.
// The caller applies it to its own threshold.
type SLAdjustment string

const (
	SLNormal     SLAdjustment = "NORMAL"
	SLTighten    SLAdjustment = "TIGHTEN"
	SLAggressive SLAdjustment = "AGGRESSIVE"
)

// VIXLevel represents VIX-based volatility levels.
type VIXLevel string

const (
	VIXLow      VIXLevel = "LOW"      // VIX < 15
	VIXNormal   VIXLevel = "NORMAL"   // 15 <= VIX < 20
	VIXElevated VIXLevel = "ELEVATED" // 20 <= VIX < 25
	VIXHigh     VIXLevel = "HIGH"     // 25 <= VIX < 30
	VIXExtreme  VIXLevel = "EXTREME"  // VIX >= 30
)

// DefaultVolatilityIndex is assumed when no volatility index quote is available.
const DefaultVolatilityIndex = 15.0

// MarketHealth is the composite market condition for one refresh cycle.
type MarketHealth struct {
	Score              float64
	Status             HealthStatus
	BenchmarkPrice     float64
	BenchmarkChangePct float64
	BenchmarkRSI       float64
	VolatilityIndex    float64
	VIXLevel           VIXLevel
	SLAdjustment       SLAdjustment
	Action             string
}

// Message summarises the benchmark and volatility readings.
func (h MarketHealth) Message() string {
	return fmt.Sprintf("Benchmark: %.0f (%+.2f%%) | RSI: %.0f | VIX: %.1f",
		h.BenchmarkPrice, h.BenchmarkChangePct, h.BenchmarkRSI, h.VolatilityIndex)
}

// RegimeConfig holds configuration for market health evaluation.
type RegimeConfig struct {
	// VIX thresholds
	VIXLowThreshold      float64
	VIXNormalThreshold   float64
	VIXElevatedThreshold float64
	VIXHighThreshold     float64

	RSIPeriod int
}

// DefaultRegimeConfig returns default market health configuration.
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		VIXLowThreshold:      15.0,
		VIXNormalThreshold:   20.0,
		VIXElevatedThreshold: 25.0,
		VIXHighThreshold:     30.0,
		RSIPeriod:            14,
	}
}

// HealthEvaluator scores market health from a benchmark index series and the
// latest volatility index value. It holds no state between calls.
type HealthEvaluator struct {
	config RegimeConfig
}

// NewHealthEvaluator creates a new market health evaluator.
func NewHealthEvaluator(config RegimeConfig) *HealthEvaluator {
	if config.RSIPeriod <= 0 {
		config.RSIPeriod = 14
	}
	return &HealthEvaluator{config: config}
}

// Evaluate computes market health. It returns nil when the benchmark series
// is empty; callers then skip every market-dependent rule.
func (e *HealthEvaluator) Evaluate(benchmark models.PriceSeries, vix float64) *MarketHealth {
	if benchmark.Empty() {
		return nil
	}

	closes := benchmark.Closes()
	price := benchmark.Last().Close

	change := 0.0
	if len(closes) > 1 {
		change = indicators.PercentChange(closes[len(closes)-2], price)
	}

	sma20 := indicators.LastSMA(closes, 20)
	rsi := indicators.Last(indicators.CalculateRSI(closes, e.config.RSIPeriod), indicators.Neutral)

	score := 50.0
	score += plusMinus(price > sma20, 15)
	// Without 50 bars there is no SMA50; both of its terms stay neutral.
	if len(closes) >= 50 {
		sma50 := indicators.LastSMA(closes, 50)
		score += plusMinus(price > sma50, 10)
		score += plusMinus(sma20 > sma50, 10)
	}

	switch {
	case rsi > 55:
		score += 15
	case rsi < 35:
		score -= 15
	case rsi > 50:
		score += 5
	case rsi < 45:
		score -= 5
	}

	switch {
	case vix < 12:
		score += 20
	case vix < 15:
		score += 10
	case vix > 25:
		score -= 20
	case vix > 18:
		score -= 10
	}

	score = indicators.Clamp(score, 0, 100)
	status := StatusFromScore(score)

	return &MarketHealth{
		Score:              score,
		Status:             status,
		BenchmarkPrice:     price,
		BenchmarkChangePct: change,
		BenchmarkRSI:       rsi,
		VolatilityIndex:    vix,
		VIXLevel:           e.classifyVIX(vix),
		SLAdjustment:       status.SLAdjustment(),
		Action:             status.action(),
	}
}

func plusMinus(cond bool, points float64) float64 {
	if cond {
		return points
	}
	return -points
}

func (e *HealthEvaluator) classifyVIX(vix float64) VIXLevel {
	switch {
	case vix < e.config.VIXLowThreshold:
		return VIXLow
	case vix < e.config.VIXNormalThreshold:
		return VIXNormal
	case vix < e.config.VIXElevatedThreshold:
		return VIXElevated
	case vix < e.config.VIXHighThreshold:
		return VIXHigh
	default:
		return VIXExtreme
	}
}

// StatusFromScore maps a health score to a market status.
func StatusFromScore(score float64) HealthStatus {
	switch {
	case score >= 70:
		return HealthBullish
	case score >= 50:
		return HealthNeutral
	case score >= 30:
		return HealthWeak
	default:
		return HealthBearish
	}
}

// SLAdjustment returns the stop-loss policy hint for the status.
func (s HealthStatus) SLAdjustment() SLAdjustment {
	switch s {
	case HealthWeak:
		return SLTighten
	case HealthBearish:
		return SLAggressive
	default:
		return SLNormal
	}
}

func (s HealthStatus) action() string {
	switch s {
	case HealthBullish:
		return "Good environment for trading"
	case HealthNeutral:
		return "Be selective with positions"
	case HealthWeak:
		return "Tighten stops and avoid new entries"
	default:
		return "HIGH RISK - consider reducing exposure"
	}
}

// AdjustAlertThreshold applies an SL adjustment hint to a base SL-alert
// threshold: TIGHTEN lowers it by 10, AGGRESSIVE by 20, never below 10.
func AdjustAlertThreshold(base float64, adj SLAdjustment) float64 {
	var adjusted float64
	switch adj {
	case SLTighten:
		adjusted = base - 10
	case SLAggressive:
		adjusted = base - 20
	default:
		return base
	}
	if adjusted < 10 {
		adjusted = 10
	}
	return adjusted
}
