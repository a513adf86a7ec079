// Package marketdata fetches daily price history for positions and for the
// market benchmarks. It owns every network concern: symbol mapping, rate
// limiting, retries, caching and the source circuit breaker.
package marketdata

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolio-monitor/internal/models"
)

// PriceSource returns daily bars for a provider symbol over a period such as
// "6mo" or "3mo".
type PriceSource interface {
	History(ctx context.Context, symbol, period string) (models.PriceSeries, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context, symbol, period string) (models.PriceSeries, error)

func (f PriceSourceFunc) History(ctx context.Context, symbol, period string) (models.PriceSeries, error) {
	return f(ctx, symbol, period)
}

// Symbol maps an exchange ticker to a provider symbol by appending suffix.
// Index symbols (^NSEI) and symbols that already carry a suffix pass through.
func Symbol(ticker, suffix string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || strings.HasPrefix(t, "^") || strings.Contains(t, ".") {
		return t
	}
	return t + suffix
}

// PeriodStart returns the first date covered by a Yahoo-style period ("5d",
// "1wk", "6mo", "1y", "ytd") ending at now. "max" and unrecognised periods
// return the zero time, meaning no lower bound.
func PeriodStart(period string, now time.Time) time.Time {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "ytd" {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}

	units := []struct {
		suffix     string
		y, m, days int
	}{
		{"wk", 0, 0, 7},
		{"mo", 0, 1, 0},
		{"d", 0, 0, 1},
		{"y", 1, 0, 0},
	}
	for _, u := range units {
		n, err := strconv.Atoi(strings.TrimSuffix(p, u.suffix))
		if !strings.HasSuffix(p, u.suffix) || err != nil || n <= 0 {
			continue
		}
		return now.AddDate(-n*u.y, -n*u.m, -n*u.days)
	}
	return time.Time{}
}

// Normalize orders bars by date, keeps the last bar of any repeated date and
// drops bars without a positive close, so the result satisfies the
// PriceSeries ordering invariant.
func Normalize(bars models.PriceSeries) models.PriceSeries {
	out := make(models.PriceSeries, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
