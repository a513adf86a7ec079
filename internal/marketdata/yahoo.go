package marketdata

import (
	"context"
	"fmt"

	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/models"
)

// YahooSource reads daily history from Yahoo Finance.
type YahooSource struct {
	interval string
}

// NewYahooSource creates a Yahoo Finance price source for daily bars.
func NewYahooSource() *YahooSource {
	return &YahooSource{interval: "1d"}
}

// History fetches split-adjusted daily bars for symbol.
func (y *YahooSource) History(ctx context.Context, symbol, period string) (models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker %s: %w", symbol, err)
	}
	defer t.Close()

	bars, err := t.History(yfmodels.HistoryParams{
		Period:     period,
		Interval:   y.interval,
		AutoAdjust: true,
	})
	if err != nil {
		return nil, apperrors.NewDataError("history", symbol, "yahoo request failed", err)
	}

	series := make(models.PriceSeries, 0, len(bars))
	for _, bar := range bars {
		series = append(series, models.PriceBar{
			Date:   bar.Date,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}
	return Normalize(series), nil
}
