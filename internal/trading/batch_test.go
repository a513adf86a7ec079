package trading

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

func TestAnalyzeBatch_PartialData(t *testing.T) {
	tickers := []string{"TCS", "INFY", "WIPRO", "ITC", "ONGC"}
	var items []BatchItem
	for _, ticker := range tickers {
		series := endingAt(100, 101)
		if ticker == "WIPRO" {
			series = nil
		}
		items = append(items, BatchItem{
			Position: mustPosition(t, ticker, models.Long, 100, 10, 95, 110, 0),
			Series:   series,
		})
	}

	results := NewAnalyzer().AnalyzeBatch(items, DefaultSettings(), nil, 2)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	want := []string{"TCS", "INFY", "ITC", "ONGC"}
	for i, r := range results {
		if r.Ticker() != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, r.Ticker(), want[i])
		}
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	series  map[string]models.PriceSeries
	health  *resilience.MarketHealth
	fetched []string
}

func (f *fakeFetcher) SeriesBatch(_ context.Context, tickers []string) map[string]models.PriceSeries {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, tickers...)
	out := make(map[string]models.PriceSeries)
	for _, t := range tickers {
		if s, ok := f.series[t]; ok {
			out[t] = s
		}
	}
	return out
}

func (f *fakeFetcher) MarketHealth(context.Context) *resilience.MarketHealth {
	return f.health
}

func TestMonitor_Refresh(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[string]models.PriceSeries{
			"TCS":  seriesOf(100, 102, 101, 103, 104, 102, 105),
			"INFY": seriesOf(200, 204, 202, 206, 208, 204, 210),
		},
		health: &resilience.MarketHealth{Status: resilience.HealthBearish, SLAdjustment: resilience.SLAggressive, VolatilityIndex: 22},
	}
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, resilience.IndiaLocation)
	monitor := NewMonitor(fetcher, DefaultSettings(), WithClock(resilience.ClockFunc(func() time.Time { return now })), WithWorkers(2))

	positions := []models.Position{
		mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 0),
		mustPosition(t, "INFY", models.Long, 200, 5, 190, 220, 0),
		mustPosition(t, "HCL", models.Long, 50, 10, 45, 60, 0),
		mustPosition(t, "TCS", models.Long, 98, 5, 94, 108, 0),
	}

	report, err := monitor.Refresh(context.Background(), positions)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if report.ID == "" || !report.GeneratedAt.Equal(now) {
		t.Errorf("id/time = %q/%v", report.ID, report.GeneratedAt)
	}
	if len(report.Results) != 3 {
		t.Errorf("results = %d, want 3", len(report.Results))
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "HCL" {
		t.Errorf("skipped = %v, want [HCL]", report.Skipped)
	}
	if report.Settings.SLAlertThreshold != 30 {
		t.Errorf("threshold = %v, want 30 after AGGRESSIVE adjustment", report.Settings.SLAlertThreshold)
	}
	if monitor.Settings().SLAlertThreshold != 50 {
		t.Error("base settings must not change")
	}
	if report.Risk.Positions != 3 {
		t.Errorf("risk positions = %d, want 3 (HCL excluded)", report.Risk.Positions)
	}
	if report.Correlation == nil || len(report.Correlation.Tickers) != 2 {
		t.Errorf("correlation = %+v, want TCS and INFY", report.Correlation)
	}
	if len(fetcher.fetched) != 3 {
		t.Errorf("fetched = %v, want each ticker once", fetcher.fetched)
	}
}

func TestMonitor_RefreshWithoutHealth(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]models.PriceSeries{"TCS": endingAt(100, 101)}}
	monitor := NewMonitor(fetcher, DefaultSettings())

	report, err := monitor.Refresh(context.Background(), []models.Position{
		mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 0),
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if report.Health != nil || report.Settings.SLAlertThreshold != 50 {
		t.Errorf("health = %+v threshold = %v", report.Health, report.Settings.SLAlertThreshold)
	}
}

func TestMonitor_RefreshLogsSkippedTickers(t *testing.T) {
	var buf bytes.Buffer
	fetcher := &fakeFetcher{series: map[string]models.PriceSeries{"TCS": endingAt(100, 101)}}
	monitor := NewMonitor(fetcher, DefaultSettings(), WithLogger(zerolog.New(&buf)))

	report, err := monitor.Refresh(context.Background(), []models.Position{
		mustPosition(t, "TCS", models.Long, 100, 10, 95, 110, 0),
		mustPosition(t, "HCL", models.Long, 50, 10, 45, 60, 0),
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("skipped = %v, want [HCL]", report.Skipped)
	}

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "No price data, position skipped") {
			found = true
			if !strings.Contains(line, `"ticker":"HCL"`) || !strings.Contains(line, `"level":"warn"`) {
				t.Errorf("skip line = %s", line)
			}
		}
	}
	if !found {
		t.Errorf("no skip warning logged:\n%s", buf.String())
	}
}

func TestMonitor_RefreshCancelled(t *testing.T) {
	monitor := NewMonitor(&fakeFetcher{}, DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := monitor.Refresh(ctx, nil); err == nil {
		t.Error("expected context error")
	}
}
