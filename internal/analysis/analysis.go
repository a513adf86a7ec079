// Package analysis provides the shared result types for technical analysis:
// chart patterns, support/resistance levels and volume signals.
package analysis

// Pattern represents a detected chart pattern.
type Pattern struct {
	Name        string
	Direction   PatternDirection
	Level       float64 // price of the tested peak or trough
	Description string
}

// PatternDirection represents the expected direction of a pattern.
type PatternDirection string

const (
	PatternBullish PatternDirection = "BULLISH"
	PatternBearish PatternDirection = "BEARISH"
)

// Pattern names.
const (
	DoubleTop    = "DOUBLE TOP"
	DoubleBottom = "DOUBLE BOTTOM"
)

// LevelStrength grades a support or resistance level.
type LevelStrength string

const (
	StrengthStrong LevelStrength = "STRONG"
	StrengthWeak   LevelStrength = "WEAK"
)

// Levels holds the nearest support and resistance around the current price.
type Levels struct {
	SupportLevels        []float64 // last five pivot lows
	ResistanceLevels     []float64 // last five pivot highs
	NearestSupport       float64
	NearestResistance    float64
	DistanceToSupport    float64 // % of current price
	DistanceToResistance float64 // % of current price
	SupportStrength      LevelStrength
	ResistanceStrength   LevelStrength
}

// VolumeSignal classifies buying or selling pressure.
type VolumeSignal string

const (
	VolumeStrongBuying  VolumeSignal = "STRONG_BUYING"
	VolumeBuying        VolumeSignal = "BUYING"
	VolumeWeakBuying    VolumeSignal = "WEAK_BUYING"
	VolumeNeutral       VolumeSignal = "NEUTRAL"
	VolumeWeakSelling   VolumeSignal = "WEAK_SELLING"
	VolumeSelling       VolumeSignal = "SELLING"
	VolumeStrongSelling VolumeSignal = "STRONG_SELLING"
)

// VolumeAnalysis is the output of the volume analyzer.
type VolumeAnalysis struct {
	Signal      VolumeSignal
	Ratio       float64
	Description string
}

// Trend labels a momentum score.
type Trend string

const (
	TrendStrongBullish Trend = "STRONG BULLISH"
	TrendBullish       Trend = "BULLISH"
	TrendNeutral       Trend = "NEUTRAL"
	TrendBearish       Trend = "BEARISH"
	TrendStrongBearish Trend = "STRONG BEARISH"
)

// Momentum is a composite 0-100 trend score with its components.
type Momentum struct {
	Score      float64
	Trend      Trend
	Components MomentumComponents
}

// MomentumComponents records each additive adjustment to the baseline of 50.
type MomentumComponents struct {
	RSI         float64
	MACD        float64
	MAAlignment float64
	Return5     float64
}
