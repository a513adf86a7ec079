package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"portfolio-monitor/internal/models"
)

// Property: for any valid bar data, bounded indicators stay within their
// mathematical bounds and never produce NaN.

// barGen generates valid bars with realistic OHLCV values
func barGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.PriceBar{}), map[string]gopter.Gen{
		"Date":   gen.TimeRange(time.Now().Add(-365*24*time.Hour), time.Hour),
		"Open":   gen.Float64Range(100.0, 1000.0),
		"High":   gen.Float64Range(100.0, 1000.0),
		"Low":    gen.Float64Range(100.0, 1000.0),
		"Close":  gen.Float64Range(100.0, 1000.0),
		"Volume": gen.Int64Range(1000, 10000000),
	}).Map(fixBar)
}

// fixBar enforces High >= max(Open, Close) and Low <= min(Open, Close).
func fixBar(b models.PriceBar) models.PriceBar {
	if b.Open <= 0 {
		b.Open = 100.0
	}
	if b.Close <= 0 {
		b.Close = 100.0
	}
	b.High = math.Max(b.High, math.Max(b.Open, b.Close))
	b.Low = math.Min(b.Low, math.Min(b.Open, b.Close))
	if b.Low <= 0 {
		b.Low = math.Min(b.Open, b.Close)
	}
	return b
}

// seriesGen generates an ordered series of valid bars
func seriesGen(n int) gopter.Gen {
	return gen.SliceOfN(n, barGen()).Map(func(bars []models.PriceBar) models.PriceSeries {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range bars {
			bars[i] = fixBar(bars[i])
			bars[i].Date = start.AddDate(0, 0, i)
		}
		return models.PriceSeries(bars)
	})
}

func flatSeries(n int, price float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, n)
	for i := range series {
		series[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return series
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(series models.PriceSeries) bool {
			values, err := NewRSI(14).Calculate(series)
			if err != nil {
				return false
			}
			for _, v := range values {
				if math.IsNaN(v) || v < 0 || v > 100 {
					return false
				}
			}
			return true
		},
		seriesGen(60),
	))

	properties.TestingRun(t)
}

func TestProperty_StochasticWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Stochastic %K and %D are within [0, 100]", prop.ForAll(
		func(series models.PriceSeries) bool {
			result, err := NewStochastic(14, 3).Calculate(series)
			if err != nil {
				return false
			}
			for i := range result.K {
				if result.K[i] < 0 || result.K[i] > 100 || result.D[i] < 0 || result.D[i] > 100 {
					return false
				}
			}
			return true
		},
		seriesGen(40),
	))

	properties.TestingRun(t)
}

func TestProperty_BollingerBandsOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("upper >= middle >= lower", prop.ForAll(
		func(series models.PriceSeries) bool {
			bands, err := NewBollingerBands(20, 2).Calculate(series)
			if err != nil {
				return false
			}
			for i := range bands.Middle {
				if bands.Upper[i] < bands.Middle[i]-1e-9 || bands.Middle[i] < bands.Lower[i]-1e-9 {
					return false
				}
			}
			return true
		},
		seriesGen(50),
	))

	properties.TestingRun(t)
}

func TestProperty_ATRIsNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("ATR values are non-negative", prop.ForAll(
		func(series models.PriceSeries) bool {
			values, err := NewATR(14).Calculate(series)
			if err != nil {
				return false
			}
			for _, v := range values {
				if v < 0 {
					return false
				}
			}
			return true
		},
		seriesGen(40),
	))

	properties.TestingRun(t)
}

func TestProperty_SMAIsAverageOfPrices(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("SMA lies between the window min and max", prop.ForAll(
		func(series models.PriceSeries) bool {
			closes := series.Closes()
			sma := CalculateSMA(closes, 20)
			for i := 19; i < len(closes); i++ {
				window := closes[i-19 : i+1]
				if sma[i] < lowest(window)-1e-6 || sma[i] > highest(window)+1e-6 {
					return false
				}
			}
			return true
		},
		seriesGen(40),
	))

	properties.TestingRun(t)
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	values, err := NewRSI(14).Calculate(flatSeries(30, 250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range values {
		if v != 50 {
			t.Fatalf("RSI[%d] = %v, want exactly 50", i, v)
		}
	}
}

func TestRSI_InsufficientHistoryIsNeutral(t *testing.T) {
	values := CalculateRSI([]float64{100, 101, 102}, 14)
	for i, v := range values {
		if v != Neutral {
			t.Errorf("RSI[%d] = %v, want %v", i, v, Neutral)
		}
	}
}

func TestRSI_AllGainsApproaches100(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := Last(CalculateRSI(closes, 14), 0)
	if rsi < 99.99 || rsi > 100 {
		t.Errorf("RSI = %v, want ~100", rsi)
	}
}

func TestStochastic_ShortSeriesDefaults(t *testing.T) {
	snap := NewEngine(DefaultParams()).Snapshot(flatSeries(5, 100))
	if snap.StochasticK != 50 || snap.StochasticD != 50 {
		t.Errorf("stochastic = %v/%v, want 50/50", snap.StochasticK, snap.StochasticD)
	}
}

func TestATR_ShortSeriesIsZero(t *testing.T) {
	values, err := NewATR(14).Calculate(flatSeries(1, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Last(values, -1) != 0 {
		t.Errorf("ATR = %v, want 0", Last(values, -1))
	}
}

func TestInvalidPeriod(t *testing.T) {
	if _, err := NewRSI(0).Calculate(flatSeries(20, 100)); err != ErrInvalidPeriod {
		t.Errorf("RSI err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := NewATR(-1).Calculate(flatSeries(20, 100)); err != ErrInvalidPeriod {
		t.Errorf("ATR err = %v, want ErrInvalidPeriod", err)
	}
}

func TestMACD_LabelFollowsHistogram(t *testing.T) {
	closes := make(models.PriceSeries, 60)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		p := 100 + float64(i)*float64(i)*0.05
		closes[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000}
	}
	snap := NewEngine(DefaultParams()).Snapshot(closes)
	if snap.MACDHistogram <= 0 {
		t.Fatalf("accelerating uptrend should have a positive histogram, got %v", snap.MACDHistogram)
	}
	if snap.MACDLabel != MACDBullish {
		t.Errorf("label = %s, want BULLISH", snap.MACDLabel)
	}
}

func TestVolumeRatio(t *testing.T) {
	series := flatSeries(20, 100)
	series[19].Volume = 3000
	values, err := NewVolumeRatio(20).Calculate(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// average = (19*1000 + 3000)/20 = 1100
	want := 3000.0 / 1100.0
	if got := Last(values, 0); math.Abs(got-want) > 1e-9 {
		t.Errorf("ratio = %v, want %v", got, want)
	}

	short, _ := NewVolumeRatio(20).Calculate(flatSeries(5, 100))
	if Last(short, 0) != 1.0 {
		t.Errorf("short series ratio = %v, want 1.0", Last(short, 0))
	}
}

func TestSnapshot_Idempotent(t *testing.T) {
	series := flatSeries(80, 100)
	for i := range series {
		series[i].Close = 100 + math.Sin(float64(i)/3)*5
		series[i].High = series[i].Close + 1
		series[i].Low = series[i].Close - 1
	}
	e := NewEngine(DefaultParams())
	if a, b := e.Snapshot(series), e.Snapshot(series); a != b {
		t.Errorf("snapshots differ: %+v vs %+v", a, b)
	}
}

func TestSnapshot_Empty(t *testing.T) {
	snap := NewEngine(Params{}).Snapshot(nil)
	if snap.RSI != 50 || snap.StochasticK != 50 || snap.ATR != 0 || snap.VolumeRatio != 1 {
		t.Errorf("unexpected empty snapshot: %+v", snap)
	}
}
