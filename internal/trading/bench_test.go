package trading

import (
	"context"
	"testing"

	"portfolio-monitor/internal/analysis/indicators"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

var benchTickers = []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK", "SBIN", "WIPRO", "HCLTECH", "BHARTIARTL", "ITC"}

// benchSeries is a deterministic oscillating daily series.
func benchSeries(count int) models.PriceSeries {
	series := make(models.PriceSeries, count)
	price := 1000.0
	for i := 0; i < count; i++ {
		open := price + (float64(i%20)-10)*0.5
		closePrice := open + (float64(i%10)-5)*0.3
		series[i] = models.PriceBar{
			Date:   testStart.AddDate(0, 0, i),
			Open:   open,
			High:   open + float64(i%5)*0.5 + 0.5,
			Low:    open - float64(i%5)*0.5 - 0.5,
			Close:  closePrice,
			Volume: int64(10000 + i*100),
		}
		price = closePrice
	}
	return series
}

func BenchmarkIndicatorSnapshot(b *testing.B) {
	series := benchSeries(125)
	engine := indicators.NewEngine(indicators.DefaultParams())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Snapshot(series)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	series := benchSeries(125)
	pos := mustPosition(b, "TCS", models.Long, series[60].Close, 10, series[60].Close*0.95, series[60].Close*1.1, 0)
	analyzer := NewAnalyzer()
	settings := DefaultSettings()
	health := resilience.NewHealthEvaluator(resilience.DefaultRegimeConfig()).Evaluate(benchSeries(60), 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		analyzer.Analyze(pos, series, settings, health)
	}
}

func BenchmarkAnalyzeBatch(b *testing.B) {
	items := make([]BatchItem, len(benchTickers))
	for i, ticker := range benchTickers {
		series := benchSeries(125)
		entry := series[60].Close
		items[i] = BatchItem{
			Position: mustPosition(b, ticker, models.Long, entry, 10, entry*0.95, entry*1.1, 0),
			Series:   series,
		}
	}
	analyzer := NewAnalyzer()
	settings := DefaultSettings()

	for _, bc := range []struct {
		name    string
		workers int
	}{{"Sequential", 1}, {"Parallel", 4}} {
		b.Run(bc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				analyzer.AnalyzeBatch(items, settings, nil, bc.workers)
			}
		})
	}
}

func BenchmarkMonitorRefresh(b *testing.B) {
	fetcher := &fakeFetcher{series: make(map[string]models.PriceSeries)}
	var positions []models.Position
	for _, ticker := range benchTickers {
		series := benchSeries(125)
		fetcher.series[ticker] = series
		entry := series[60].Close
		positions = append(positions, mustPosition(b, ticker, models.Long, entry, 10, entry*0.95, entry*1.1, 0))
	}
	monitor := NewMonitor(fetcher, DefaultSettings())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := monitor.Refresh(ctx, positions); err != nil {
			b.Fatal(err)
		}
	}
}
