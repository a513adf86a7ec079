package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"portfolio-monitor/internal/logging"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

// BatchItem pairs a position with its price history.
type BatchItem struct {
	Position models.Position
	Series   models.PriceSeries
}

// AnalyzeBatch analyses items on up to workers goroutines. Results keep the
// input order; items with an empty series are left out. workers <= 0 means
// no limit.
func (a *Analyzer) AnalyzeBatch(items []BatchItem, settings Settings, health *resilience.MarketHealth, workers int) []AnalysisResult {
	slots := make([]*AnalysisResult, len(items))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			slots[i] = a.Analyze(item.Position, item.Series, settings, health)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]AnalysisResult, 0, len(items))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// PriceFetcher is the price-data collaborator used by Monitor. Failures are
// reported as missing or empty series and a nil health, never as errors.
type PriceFetcher interface {
	SeriesBatch(ctx context.Context, tickers []string) map[string]models.PriceSeries
	MarketHealth(ctx context.Context) *resilience.MarketHealth
}

// Report is the output of one refresh cycle.
type Report struct {
	ID          string
	GeneratedAt time.Time
	// Settings are the thresholds actually applied, after the market's
	// stop-loss adjustment.
	Settings    Settings
	Health      *resilience.MarketHealth
	Results     []AnalysisResult
	Emergencies []EmergencyExit
	Risk        PortfolioRiskSummary
	Sectors     SectorExposureReport
	Correlation *CorrelationReport
	// Skipped lists tickers whose prices could not be obtained.
	Skipped []string
}

// AlertCount returns the number of alerts across all results.
func (r *Report) AlertCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Alerts)
	}
	return n
}

// Monitor runs refresh cycles: fetch, evaluate market health, analyse every
// position and aggregate the portfolio.
type Monitor struct {
	analyzer *Analyzer
	fetcher  PriceFetcher
	sectors  *SectorMap
	settings Settings
	workers  int
	clock    resilience.Clock
	logger   zerolog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithWorkers bounds concurrent position analysis.
func WithWorkers(n int) MonitorOption {
	return func(m *Monitor) { m.workers = n }
}

// WithSectorMap replaces the default sector lookup.
func WithSectorMap(s *SectorMap) MonitorOption {
	return func(m *Monitor) { m.sectors = s }
}

// WithClock sets the clock used to stamp reports.
func WithClock(c resilience.Clock) MonitorOption {
	return func(m *Monitor) { m.clock = c }
}

// WithLogger sets the monitor's logger.
func WithLogger(l zerolog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a monitor over fetcher.
func NewMonitor(fetcher PriceFetcher, settings Settings, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		analyzer: NewAnalyzer(),
		fetcher:  fetcher,
		sectors:  NewSectorMap(nil),
		settings: settings,
		workers:  4,
		clock:    resilience.SystemClock,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Settings returns the monitor's base settings.
func (m *Monitor) Settings() Settings {
	return m.settings
}

// Refresh runs one cycle over positions. Tickers without prices are reported
// in Skipped; the only error is ctx's.
func (m *Monitor) Refresh(ctx context.Context, positions []models.Position) (*Report, error) {
	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: m.clock.Now(),
	}
	log := logging.WithCycle(m.logger, report.ID)
	start := time.Now()

	tickers := distinctTickers(positions)

	var health *resilience.MarketHealth
	var series map[string]models.PriceSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health = m.fetcher.MarketHealth(gctx)
		return nil
	})
	g.Go(func() error {
		series = m.fetcher.SeriesBatch(gctx, tickers)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := m.settings
	if health != nil {
		settings.SLAlertThreshold = resilience.AdjustAlertThreshold(settings.SLAlertThreshold, health.SLAdjustment)
	} else {
		log.Warn().Msg("Market health unavailable, market rules skipped")
	}
	report.Settings = settings
	report.Health = health

	items := make([]BatchItem, len(positions))
	skipped := make(map[string]bool)
	for i, p := range positions {
		s := series[p.Ticker]
		items[i] = BatchItem{Position: p, Series: s}
		if s.Empty() && !skipped[p.Ticker] {
			skipped[p.Ticker] = true
			report.Skipped = append(report.Skipped, p.Ticker)
		}
	}
	for _, t := range report.Skipped {
		tl := logging.WithTicker(log, t)
		tl.Warn().Msg("No price data, position skipped")
	}

	report.Results = m.analyzer.AnalyzeBatch(items, settings, health, m.workers)

	analysed := make([]models.Position, len(report.Results))
	for i, r := range report.Results {
		analysed[i] = r.Position
		logging.LogAnalysis(log, r.Ticker(), string(r.Status), r.PnLPercent, r.Risk.Score)
		if r.Emergency.Emergency {
			report.Emergencies = append(report.Emergencies, r.Emergency)
			logging.LogEmergency(log, r.Ticker(), r.Emergency.Reasons)
		}
	}

	report.Risk = SummarizeRisk(analysed)
	report.Sectors = m.sectors.Exposure(analysed)
	if settings.Features.Correlation {
		recent := make(map[string]models.PriceSeries, len(series))
		for t, s := range series {
			recent[t] = s.Tail(settings.CorrelationBars)
		}
		report.Correlation = AnalyzeCorrelation(distinctTickers(analysed), recent)
	}

	log.Info().
		Int("positions", len(positions)).
		Int("analysed", len(report.Results)).
		Int("skipped", len(report.Skipped)).
		Int("alerts", report.AlertCount()).
		Dur("duration", time.Since(start)).
		Msg("Refresh cycle completed")

	return report, nil
}

func distinctTickers(positions []models.Position) []string {
	seen := make(map[string]bool, len(positions))
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	return out
}
