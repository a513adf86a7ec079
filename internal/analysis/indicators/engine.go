// Package indicators provides the technical indicator library: RSI, MACD,
// Bollinger Bands, Stochastic, ATR and moving averages over a price series.
//
// Every indicator is total over well-formed input. Short histories yield the
// documented neutral defaults instead of errors; only a non-positive period fails.
package indicators

import (
	"portfolio-monitor/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(series models.PriceSeries) ([]float64, error)
	Period() int
}

var (
	_ Indicator = (*SMA)(nil)
	_ Indicator = (*EMA)(nil)
	_ Indicator = (*RSI)(nil)
	_ Indicator = (*ATR)(nil)
	_ Indicator = (*VolumeRatio)(nil)
)

// MACDLabel is the direction read from the MACD histogram.
type MACDLabel string

const (
	MACDBullish MACDLabel = "BULLISH"
	MACDBearish MACDLabel = "BEARISH"
)

// Bands is the latest Bollinger band triple.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Snapshot holds the latest value of every indicator for one series.
type Snapshot struct {
	Close             float64
	RSI               float64
	MACD              float64
	MACDSignal        float64
	MACDHistogram     float64
	MACDPrevHistogram float64
	MACDLabel         MACDLabel
	Bollinger         Bands
	StochasticK       float64
	StochasticD       float64
	ATR               float64
	EMA9              float64
	SMA20             float64
	SMA50             float64
	VolumeRatio       float64
}

// Params configures indicator periods.
type Params struct {
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	BollingerPeriod  int
	BollingerStdDev  float64
	StochasticPeriod int
	StochasticSmooth int
	ATRPeriod        int
	VolumePeriod     int
}

// DefaultParams returns the standard indicator periods.
func DefaultParams() Params {
	return Params{
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BollingerPeriod:  20,
		BollingerStdDev:  2,
		StochasticPeriod: 14,
		StochasticSmooth: 3,
		ATRPeriod:        14,
		VolumePeriod:     20,
	}
}

// Engine computes indicator snapshots. It holds only configuration and is
// safe for concurrent use.
type Engine struct {
	rsi    *RSI
	macd   *MACD
	bands  *BollingerBands
	stoch  *Stochastic
	atr    *ATR
	volume *VolumeRatio
}

// NewEngine creates a new indicator engine. Non-positive periods fall back to defaults.
func NewEngine(p Params) *Engine {
	d := DefaultParams()
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
		p.MACDFast, p.MACDSlow, p.MACDSignal = d.MACDFast, d.MACDSlow, d.MACDSignal
	}
	if p.BollingerPeriod <= 0 {
		p.BollingerPeriod = d.BollingerPeriod
	}
	if p.BollingerStdDev <= 0 {
		p.BollingerStdDev = d.BollingerStdDev
	}
	if p.StochasticPeriod <= 0 {
		p.StochasticPeriod = d.StochasticPeriod
	}
	if p.StochasticSmooth <= 0 {
		p.StochasticSmooth = d.StochasticSmooth
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.VolumePeriod <= 0 {
		p.VolumePeriod = d.VolumePeriod
	}

	return &Engine{
		rsi:    NewRSI(p.RSIPeriod),
		macd:   NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal),
		bands:  NewBollingerBands(p.BollingerPeriod, p.BollingerStdDev),
		stoch:  NewStochastic(p.StochasticPeriod, p.StochasticSmooth),
		atr:    NewATR(p.ATRPeriod),
		volume: NewVolumeRatio(p.VolumePeriod),
	}
}

// Snapshot computes the latest indicator values. An empty series yields the
// neutral defaults: RSI and Stochastic at 50, volume ratio at 1, the rest 0.
func (e *Engine) Snapshot(series models.PriceSeries) Snapshot {
	snap := Snapshot{
		RSI:         Neutral,
		StochasticK: Neutral,
		StochasticD: Neutral,
		MACDLabel:   MACDBearish,
		VolumeRatio: 1.0,
	}
	if series.Empty() {
		return snap
	}

	closes := series.Closes()
	snap.Close = series.Last().Close

	// Periods are validated in NewEngine, so the errors below cannot occur.
	rsi, _ := e.rsi.Calculate(series)
	snap.RSI = Last(rsi, Neutral)

	macd, _ := e.macd.Calculate(series)
	snap.MACD = Last(macd.MACD, 0)
	snap.MACDSignal = Last(macd.Signal, 0)
	snap.MACDHistogram = Last(macd.Histogram, 0)
	snap.MACDPrevHistogram = Prev(macd.Histogram, snap.MACDHistogram)
	if snap.MACDHistogram > 0 {
		snap.MACDLabel = MACDBullish
	}

	bands, _ := e.bands.Calculate(series)
	snap.Bollinger = Bands{
		Upper:  Last(bands.Upper, snap.Close),
		Middle: Last(bands.Middle, snap.Close),
		Lower:  Last(bands.Lower, snap.Close),
	}

	stoch, _ := e.stoch.Calculate(series)
	snap.StochasticK = Last(stoch.K, Neutral)
	snap.StochasticD = Last(stoch.D, Neutral)

	atr, _ := e.atr.Calculate(series)
	snap.ATR = Last(atr, 0)

	vol, _ := e.volume.Calculate(series)
	snap.VolumeRatio = Last(vol, 1.0)

	snap.EMA9 = Last(CalculateEMA(closes, 9), snap.Close)
	snap.SMA20 = LastSMA(closes, 20)
	snap.SMA50 = LastSMA(closes, 50)

	return snap
}
