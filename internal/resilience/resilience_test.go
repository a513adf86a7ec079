package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"portfolio-monitor/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ist(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, IndiaLocation)
}

func closesSeries(closes []float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return series
}

func rising(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func TestHealthEvaluator_EmptyBenchmark(t *testing.T) {
	if h := NewHealthEvaluator(DefaultRegimeConfig()).Evaluate(nil, 14); h != nil {
		t.Errorf("health = %+v, want nil", h)
	}
}

func TestHealthEvaluator_StrongUptrendLowVIX(t *testing.T) {
	h := NewHealthEvaluator(DefaultRegimeConfig()).Evaluate(closesSeries(rising(60, 100, 1)), 11)
	if h == nil {
		t.Fatal("health is nil")
	}
	if h.Score != 100 {
		t.Errorf("score = %v, want 100", h.Score)
	}
	if h.Status != HealthBullish || h.SLAdjustment != SLNormal {
		t.Errorf("status = %s/%s, want BULLISH/NORMAL", h.Status, h.SLAdjustment)
	}
	if h.VIXLevel != VIXLow {
		t.Errorf("vix level = %s, want LOW", h.VIXLevel)
	}
}

func TestHealthEvaluator_DowntrendHighVIX(t *testing.T) {
	h := NewHealthEvaluator(DefaultRegimeConfig()).Evaluate(closesSeries(rising(60, 200, -1)), 28)
	if h.Score != 0 {
		t.Errorf("score = %v, want 0", h.Score)
	}
	if h.Status != HealthBearish || h.SLAdjustment != SLAggressive {
		t.Errorf("status = %s/%s, want BEARISH/AGGRESSIVE", h.Status, h.SLAdjustment)
	}
	if h.BenchmarkChangePct >= 0 {
		t.Errorf("change = %v, want negative", h.BenchmarkChangePct)
	}
}

func TestHealthEvaluator_ShortBenchmarkSkipsSMA50(t *testing.T) {
	// 40 falling bars: below SMA20 (-15), RSI near 0 (-15), VIX 16 scores nothing.
	h := NewHealthEvaluator(DefaultRegimeConfig()).Evaluate(closesSeries(rising(40, 200, -1)), 16)
	if h == nil {
		t.Fatal("health is nil")
	}
	if h.Score != 20 {
		t.Errorf("score = %v, want 20 with both SMA50 terms neutral", h.Score)
	}
	if h.Status != HealthBearish {
		t.Errorf("status = %s, want BEARISH", h.Status)
	}
}

func TestProperty_HealthScoreBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	evaluator := NewHealthEvaluator(DefaultRegimeConfig())

	properties.Property("health score stays within [0,100]", prop.ForAll(
		func(closes []float64, vix float64) bool {
			h := evaluator.Evaluate(closesSeries(closes), vix)
			return h != nil && h.Score >= 0 && h.Score <= 100 && h.Status == StatusFromScore(h.Score)
		},
		gen.SliceOfN(60, gen.Float64Range(100, 200)),
		gen.Float64Range(5, 50),
	))

	properties.TestingRun(t)
}

func TestStatusFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  HealthStatus
		adj   SLAdjustment
	}{
		{85, HealthBullish, SLNormal},
		{70, HealthBullish, SLNormal},
		{55, HealthNeutral, SLNormal},
		{30, HealthWeak, SLTighten},
		{10, HealthBearish, SLAggressive},
	}
	for _, tt := range tests {
		got := StatusFromScore(tt.score)
		if got != tt.want || got.SLAdjustment() != tt.adj {
			t.Errorf("StatusFromScore(%v) = %s/%s, want %s/%s", tt.score, got, got.SLAdjustment(), tt.want, tt.adj)
		}
	}
}

func TestAdjustAlertThreshold(t *testing.T) {
	tests := []struct {
		base float64
		adj  SLAdjustment
		want float64
	}{
		{50, SLNormal, 50},
		{50, SLTighten, 40},
		{50, SLAggressive, 30},
		{25, SLAggressive, 10},
		{15, SLTighten, 10},
	}
	for _, tt := range tests {
		if got := AdjustAlertThreshold(tt.base, tt.adj); got != tt.want {
			t.Errorf("AdjustAlertThreshold(%v, %s) = %v, want %v", tt.base, tt.adj, got, tt.want)
		}
	}
}

func TestMarketHours(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want models.MarketStatus
	}{
		{"saturday", ist(2024, 6, 8, 11, 0), models.MarketWeekend},
		{"pre-market", ist(2024, 6, 10, 9, 0), models.MarketPreMarket},
		{"open", ist(2024, 6, 10, 9, 15), models.MarketOpen},
		{"closing minute", ist(2024, 6, 10, 15, 30), models.MarketOpen},
		{"after close", ist(2024, 6, 10, 15, 31), models.MarketClosed},
		{"holiday", ist(2024, 6, 17, 11, 0), models.MarketClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarketHoursManager(newFakeClock(tt.at))
			if err := m.AddHolidays([]string{"2024-06-17"}); err != nil {
				t.Fatalf("AddHolidays: %v", err)
			}
			if got := m.GetMarketStatus(); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
			if m.IsMarketOpen() != (tt.want == models.MarketOpen) {
				t.Errorf("IsMarketOpen disagrees with status %s", tt.want)
			}
		})
	}
}

func TestMarketHours_NextOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
		msg  string
	}{
		{"pre-market", ist(2024, 6, 10, 8, 0), ist(2024, 6, 10, 9, 15), "Opens at 09:15 IST"},
		{"open", ist(2024, 6, 10, 13, 0), ist(2024, 6, 11, 9, 15), "Closes at 15:30 IST (2h30m0s left)"},
		{"friday evening", ist(2024, 6, 14, 16, 0), ist(2024, 6, 18, 9, 15), "Closed, opens Tue 18-Jun 09:15 IST"},
		{"saturday", ist(2024, 6, 15, 11, 0), ist(2024, 6, 18, 9, 15), "Closed, opens Tue 18-Jun 09:15 IST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarketHoursManager(newFakeClock(tt.at))
			if err := m.AddHolidays([]string{"2024-06-17"}); err != nil {
				t.Fatalf("AddHolidays: %v", err)
			}
			if got := m.NextOpen(); !got.Equal(tt.want) {
				t.Errorf("NextOpen = %v, want %v", got, tt.want)
			}
			if got := m.StatusMessage(); got != tt.msg {
				t.Errorf("StatusMessage = %q, want %q", got, tt.msg)
			}
		})
	}
}

func TestMarketHours_UTCInput(t *testing.T) {
	// 04:00 UTC is 09:30 IST.
	m := NewMarketHoursManager(newFakeClock(time.Date(2024, 6, 10, 4, 0, 0, 0, time.UTC)))
	if got := m.GetMarketStatus(); got != models.MarketOpen {
		t.Errorf("status = %s, want OPEN", got)
	}
}

func TestMarketHours_InvalidHoliday(t *testing.T) {
	m := NewMarketHoursManager(nil)
	if err := m.AddHolidays([]string{"17/06/2024"}); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute}, clock)
	ctx := context.Background()
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}
	if err := cb.Execute(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}

	clock.Advance(time.Minute)
	if err := cb.Execute(ctx, ok); err != nil {
		t.Errorf("half-open trial: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED", cb.State())
	}

	stats := cb.Stats()
	if stats.TotalRejected != 1 || stats.TotalFailures != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCircuitBreaker_TransitionsAndRetryAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Minute}, clock)
	var seen []string
	cb.OnStateChange(func(_ string, from, to CircuitState) {
		seen = append(seen, string(from)+">"+string(to))
	})
	ctx := context.Background()
	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	_ = cb.Execute(ctx, fail)
	if got := cb.Stats().RetryAt; !got.Equal(start.Add(time.Minute)) {
		t.Errorf("retry at = %v, want %v", got, start.Add(time.Minute))
	}

	// A failed trial call reopens and restarts the timeout.
	clock.Advance(time.Minute)
	_ = cb.Execute(ctx, fail)
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	clock.Advance(time.Minute)
	_ = cb.Execute(ctx, ok)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN after one of two trial calls", cb.State())
	}
	_ = cb.Execute(ctx, ok)

	want := []string{
		"CLOSED>OPEN",
		"OPEN>HALF_OPEN", "HALF_OPEN>OPEN",
		"OPEN>HALF_OPEN", "HALF_OPEN>CLOSED",
	}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("transitions = %v, want %v", seen, want)
	}
	if !cb.Stats().RetryAt.IsZero() {
		t.Error("closed circuit should have no retry time")
	}
}

func TestCircuitBreaker_SingleTrialCall(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Minute}, clock)
	ctx := context.Background()
	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("down") })
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("concurrent call during trial: err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("trial call: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreaker_IgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Minute}, nil)
	_ = cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED", cb.State())
	}
}

func TestRateLimiter_PerTicker(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(time.Second, clock)

	if !rl.Allow("TCS") {
		t.Fatal("first TCS call should be allowed")
	}
	if rl.Allow("TCS") {
		t.Error("second TCS call inside the interval should be refused")
	}
	if !rl.Allow("INFY") {
		t.Error("INFY has its own schedule")
	}

	clock.Advance(time.Second)
	if !rl.Allow("TCS") {
		t.Error("TCS should be allowed after the interval")
	}
	if rl.Tickers() != 2 {
		t.Errorf("tickers = %d, want 2", rl.Tickers())
	}
}

func TestRateLimiter_Reserve(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(2*time.Second, clock)

	if d := rl.Reserve("TCS"); d != 0 {
		t.Errorf("first delay = %v, want 0", d)
	}
	if d := rl.Reserve("TCS"); d != 2*time.Second {
		t.Errorf("second delay = %v, want 2s", d)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, nil)
	for i := 0; i < 5; i++ {
		if err := rl.Wait(context.Background(), "TCS"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(time.Hour, clock)
	rl.Allow("TCS")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx, "TCS"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTimedCache_Expiry(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	cache := NewTimedCache[string, float64](5*time.Minute, clock)

	cache.Set("NIFTY", 22000)
	if v, ok := cache.Get("NIFTY"); !ok || v != 22000 {
		t.Fatalf("Get = %v,%v", v, ok)
	}

	clock.Advance(5 * time.Minute)
	if _, ok := cache.Get("NIFTY"); ok {
		t.Error("entry should expire at the TTL")
	}
	if n := cache.Purge(); n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if cache.Len() != 0 {
		t.Errorf("len = %d, want 0", cache.Len())
	}
}

func TestTimedCache_GetOrLoad(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	cache := NewTimedCache[string, int](time.Minute, clock)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	for i := 0; i < 3; i++ {
		v, err := cache.GetOrLoad(ctx, "k", load)
		if err != nil || v != 1 {
			t.Fatalf("GetOrLoad = %v,%v, want 1", v, err)
		}
	}

	failing := func(context.Context) (int, error) { return 0, errors.New("down") }
	if _, err := cache.GetOrLoad(ctx, "other", failing); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := cache.Get("other"); ok {
		t.Error("failed loads must not be cached")
	}

	cache.Invalidate("k")
	if v, _ := cache.GetOrLoad(ctx, "k", load); v != 2 {
		t.Errorf("after invalidate = %v, want reload", v)
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	ctx := context.Background()

	calls := 0
	err := policy.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("flaky")
	})
	if err == nil || calls != 3 {
		t.Errorf("calls = %d, err = %v; want 3 attempts and an error", calls, err)
	}

	calls = 0
	v, err := RetryWithResult(ctx, policy, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" || calls != 2 {
		t.Errorf("RetryWithResult = %q,%v after %d calls", v, err, calls)
	}

	calls = 0
	notFound := errors.New("no such symbol")
	err = policy.Do(ctx, func(context.Context) error {
		calls++
		return Permanent(notFound)
	})
	if !errors.Is(err, notFound) || calls != 1 {
		t.Errorf("permanent: calls = %d, err = %v", calls, err)
	}
}
