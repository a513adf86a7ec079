package trading

import (
	"sort"

	"portfolio-monitor/internal/models"
)

// TradeStats summarises realised performance over a set of closed trades.
// Break-even trades count as losses.
type TradeStats struct {
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64 // zero or negative
	NetPnL       float64
	WinRate      float64 // percent
	AvgWin       float64
	AvgLoss      float64
	LargestWin   float64
	LargestLoss  float64
	ProfitFactor float64 // zero when there are no losses
	Expectancy   float64 // mean P&L per trade
	ByTicker     []TickerStats
}

// TickerStats is the per-ticker breakdown of TradeStats.
type TickerStats struct {
	Ticker  string
	Trades  int
	Wins    int
	NetPnL  float64
	WinRate float64
}

// SummarizeTrades computes trade statistics. ByTicker is ordered by net P&L,
// best first.
func SummarizeTrades(trades []models.Trade) TradeStats {
	var s TradeStats
	if len(trades) == 0 {
		return s
	}

	byTicker := make(map[string]*TickerStats)
	for _, t := range trades {
		s.Trades++
		if t.PnL > 0 {
			s.Wins++
			s.GrossProfit += t.PnL
			if t.PnL > s.LargestWin {
				s.LargestWin = t.PnL
			}
		} else {
			s.Losses++
			s.GrossLoss += t.PnL
			if t.PnL < s.LargestLoss {
				s.LargestLoss = t.PnL
			}
		}

		ts, ok := byTicker[t.Ticker]
		if !ok {
			ts = &TickerStats{Ticker: t.Ticker}
			byTicker[t.Ticker] = ts
		}
		ts.Trades++
		ts.NetPnL += t.PnL
		if t.PnL > 0 {
			ts.Wins++
		}
	}

	s.NetPnL = s.GrossProfit + s.GrossLoss
	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	s.Expectancy = s.NetPnL / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}
	if s.GrossLoss != 0 {
		s.ProfitFactor = s.GrossProfit / -s.GrossLoss
	}

	for _, ts := range byTicker {
		ts.WinRate = float64(ts.Wins) / float64(ts.Trades) * 100
		s.ByTicker = append(s.ByTicker, *ts)
	}
	sort.Slice(s.ByTicker, func(i, j int) bool {
		if s.ByTicker[i].NetPnL != s.ByTicker[j].NetPnL {
			return s.ByTicker[i].NetPnL > s.ByTicker[j].NetPnL
		}
		return s.ByTicker[i].Ticker < s.ByTicker[j].Ticker
	})
	return s
}
