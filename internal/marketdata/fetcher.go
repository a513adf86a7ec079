package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/logging"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
)

// Config controls symbol mapping, lookback and the fetch policies.
type Config struct {
	Suffix           string
	Period           string
	BenchmarkSymbol  string
	BenchmarkPeriod  string
	VolatilitySymbol string

	MinInterval time.Duration
	Retry       resilience.RetryPolicy
	CacheTTL    time.Duration
	HealthTTL   time.Duration
	Concurrency int
	Breaker     resilience.CircuitBreakerConfig
	// StaleFallback serves archived bars when the source fails.
	StaleFallback bool
}

// DefaultConfig returns the NSE defaults.
func DefaultConfig() Config {
	return Config{
		Suffix:           ".NS",
		Period:           "6mo",
		BenchmarkSymbol:  "^NSEI",
		BenchmarkPeriod:  "3mo",
		VolatilitySymbol: "^INDIAVIX",
		MinInterval:      time.Second,
		Retry:            resilience.DefaultRetryPolicy(),
		CacheTTL:         5 * time.Minute,
		HealthTTL:        5 * time.Minute,
		Concurrency:      4,
		Breaker:          resilience.DefaultCircuitBreakerConfig(),
	}
}

// BarArchive persists fetched bars. The SQLite store implements it.
type BarArchive interface {
	SaveBars(ctx context.Context, ticker string, bars models.PriceSeries) error
	GetBars(ctx context.Context, ticker string, since time.Time) (models.PriceSeries, error)
}

// Fetcher wraps a PriceSource with per-ticker rate limiting, retries, a
// circuit breaker and TTL caches. Failures surface as empty series, never as
// errors, so a bad ticker cannot stop a refresh cycle.
type Fetcher struct {
	source    PriceSource
	cfg       Config
	clock     resilience.Clock
	limiter   *resilience.RateLimiter
	breaker   *resilience.CircuitBreaker
	series    *resilience.TimedCache[string, models.PriceSeries]
	health    *resilience.TimedCache[string, *resilience.MarketHealth]
	evaluator *resilience.HealthEvaluator
	archive   BarArchive
	logger    zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithArchive stores every successful fetch in archive.
func WithArchive(a BarArchive) FetcherOption {
	return func(f *Fetcher) { f.archive = a }
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithFetchClock sets the clock used for rate limiting, caching and the breaker.
func WithFetchClock(c resilience.Clock) FetcherOption {
	return func(f *Fetcher) { f.clock = c }
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source PriceSource, cfg Config, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:    source,
		cfg:       cfg,
		clock:     resilience.SystemClock,
		evaluator: resilience.NewHealthEvaluator(resilience.DefaultRegimeConfig()),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.Concurrency <= 0 {
		f.cfg.Concurrency = 1
	}
	if f.cfg.BenchmarkPeriod == "" {
		f.cfg.BenchmarkPeriod = f.cfg.Period
	}

	f.limiter = resilience.NewRateLimiter(cfg.MinInterval, f.clock)
	f.breaker = resilience.NewCircuitBreaker("price-source", cfg.Breaker, f.clock)
	f.breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		ev := f.logger.Info()
		if to == resilience.CircuitOpen {
			ev = f.logger.Warn()
		}
		ev.Str("breaker", name).Str("from", string(from)).Str("to", string(to)).Msg("Circuit state changed")
	})
	f.series = resilience.NewTimedCache[string, models.PriceSeries](cfg.CacheTTL, f.clock)
	f.health = resilience.NewTimedCache[string, *resilience.MarketHealth](cfg.HealthTTL, f.clock)
	return f
}

// Breaker exposes the source circuit breaker for status display.
func (f *Fetcher) Breaker() *resilience.CircuitBreaker {
	return f.breaker
}

// History fetches symbol over period through the cache, limiter, retry
// policy and breaker.
func (f *Fetcher) History(ctx context.Context, symbol, period string) (models.PriceSeries, error) {
	return f.series.GetOrLoad(ctx, symbol+"|"+period, func(ctx context.Context) (models.PriceSeries, error) {
		start := time.Now()
		s, err := resilience.RetryWithResult(ctx, f.cfg.Retry, func(ctx context.Context) (models.PriceSeries, error) {
			return f.attempt(ctx, symbol, period)
		})
		logging.LogFetch(f.logger, symbol, period, len(s), time.Since(start), err)
		return s, err
	})
}

func (f *Fetcher) attempt(ctx context.Context, symbol, period string) (models.PriceSeries, error) {
	if err := f.limiter.Wait(ctx, symbol); err != nil {
		return nil, resilience.Permanent(err)
	}

	var series models.PriceSeries
	err := f.breaker.Execute(ctx, func(ctx context.Context) error {
		s, err := f.source.History(ctx, symbol, period)
		if err != nil {
			return err
		}
		if s.Empty() {
			return apperrors.NewDataError("history", symbol, "no bars returned", nil)
		}
		series = s
		return nil
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, resilience.Permanent(err)
	case err != nil:
		return nil, err
	}
	return series, nil
}

// Series returns the configured lookback for ticker, or an empty series when
// it cannot be obtained.
func (f *Fetcher) Series(ctx context.Context, ticker string) models.PriceSeries {
	symbol := Symbol(ticker, f.cfg.Suffix)
	log := logging.WithTicker(f.logger, ticker)

	s, err := f.History(ctx, symbol, f.cfg.Period)
	if err == nil {
		if f.archive != nil {
			if aerr := f.archive.SaveBars(ctx, ticker, s); aerr != nil {
				log.Warn().Err(aerr).Msg("Failed to archive bars")
			}
		}
		return s
	}

	log.Warn().Err(err).Msg("Price data unavailable")
	if f.cfg.StaleFallback && f.archive != nil {
		since := PeriodStart(f.cfg.Period, f.clock.Now())
		stale, aerr := f.archive.GetBars(ctx, ticker, since)
		if aerr == nil && !stale.Empty() {
			log.Info().Int("bars", len(stale)).Msg("Using archived bars")
			return stale
		}
	}
	return nil
}

// LastPrice returns ticker's latest close.
func (f *Fetcher) LastPrice(ctx context.Context, ticker string) (float64, error) {
	s := f.Series(ctx, ticker)
	if s.Empty() {
		return 0, apperrors.NewDataError("quote", ticker, "no price available", nil)
	}
	return s.Last().Close, nil
}

// SeriesBatch fetches every ticker on a bounded pool. Tickers that fail are
// absent from the result.
func (f *Fetcher) SeriesBatch(ctx context.Context, tickers []string) map[string]models.PriceSeries {
	var mu sync.Mutex
	out := make(map[string]models.PriceSeries, len(tickers))

	p := pool.New().WithMaxGoroutines(f.cfg.Concurrency)
	for _, t := range tickers {
		t := t
		p.Go(func() {
			s := f.Series(ctx, t)
			if s.Empty() {
				return
			}
			mu.Lock()
			out[t] = s
			mu.Unlock()
		})
	}
	p.Wait()
	return out
}

// MarketHealth evaluates the benchmark and volatility index, cached for the
// health TTL. It returns nil when the benchmark cannot be fetched. A missing
// volatility index falls back to resilience.DefaultVolatilityIndex.
func (f *Fetcher) MarketHealth(ctx context.Context) *resilience.MarketHealth {
	h, err := f.health.GetOrLoad(ctx, "market", func(ctx context.Context) (*resilience.MarketHealth, error) {
		benchmark, err := f.History(ctx, f.cfg.BenchmarkSymbol, f.cfg.BenchmarkPeriod)
		if err != nil {
			return nil, err
		}

		vix := resilience.DefaultVolatilityIndex
		if vs, err := f.History(ctx, f.cfg.VolatilitySymbol, "5d"); err == nil {
			vix = vs.Last().Close
		} else {
			f.logger.Warn().Err(err).Msg("Volatility index unavailable, using default")
		}

		health := f.evaluator.Evaluate(benchmark, vix)
		if health == nil {
			return nil, apperrors.NewDataError("health", f.cfg.BenchmarkSymbol, "empty benchmark", nil)
		}
		return health, nil
	})
	if err != nil {
		f.logger.Warn().Err(err).Msg("Market health unavailable")
		return nil
	}
	return h
}
