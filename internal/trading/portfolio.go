package trading

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"portfolio-monitor/internal/models"
)

// Rating grades a portfolio's aggregate reward-to-risk ratio.
type Rating string

const (
	RatingExcellent Rating = "EXCELLENT"
	RatingGood      Rating = "GOOD"
	RatingFair      Rating = "FAIR"
	RatingPoor      Rating = "POOR"
)

// PortfolioRiskSummary rolls up risk and reward across positions.
type PortfolioRiskSummary struct {
	Positions      int
	TotalInvested  float64
	TotalAtRisk    float64
	TotalPotential float64
	RiskPct        float64 // at risk as % of invested
	RewardPct      float64 // potential as % of invested
	Ratio          float64 // potential / at risk, 0 when nothing is at risk
	Rating         Rating
}

// SummarizeRisk computes the risk/reward rollup. Money is accumulated in
// decimal so the totals do not drift with position count.
func SummarizeRisk(positions []models.Position) PortfolioRiskSummary {
	invested := decimal.Zero
	atRisk := decimal.Zero
	potential := decimal.Zero

	for _, p := range positions {
		entry := decimal.NewFromFloat(p.EntryPrice)
		qty := decimal.NewFromFloat(p.Quantity)

		invested = invested.Add(entry.Mul(qty))
		atRisk = atRisk.Add(entry.Sub(decimal.NewFromFloat(p.StopLoss)).Abs().Mul(qty))
		potential = potential.Add(decimal.NewFromFloat(p.Target1).Sub(entry).Abs().Mul(qty))
	}

	summary := PortfolioRiskSummary{
		Positions:      len(positions),
		TotalInvested:  invested.InexactFloat64(),
		TotalAtRisk:    atRisk.InexactFloat64(),
		TotalPotential: potential.InexactFloat64(),
	}
	hundred := decimal.NewFromInt(100)
	if invested.IsPositive() {
		summary.RiskPct = atRisk.Div(invested).Mul(hundred).InexactFloat64()
		summary.RewardPct = potential.Div(invested).Mul(hundred).InexactFloat64()
	}
	if atRisk.IsPositive() {
		summary.Ratio = potential.Div(atRisk).InexactFloat64()
	}
	summary.Rating = RatingFor(summary.Ratio)
	return summary
}

// RatingFor maps a reward-to-risk ratio to a rating.
func RatingFor(ratio float64) Rating {
	switch {
	case ratio >= 3:
		return RatingExcellent
	case ratio >= 2:
		return RatingGood
	case ratio >= 1:
		return RatingFair
	default:
		return RatingPoor
	}
}

// CorrelationLevel is the concentration risk from co-moving positions.
type CorrelationLevel string

const (
	CorrelationLow    CorrelationLevel = "LOW"
	CorrelationMedium CorrelationLevel = "MEDIUM"
	CorrelationHigh   CorrelationLevel = "HIGH"
)

const (
	maxCorrelationTickers = 10
	highCorrelation       = 0.7
)

// CorrelationPair is a ticker pair whose returns are strongly correlated.
type CorrelationPair struct {
	A, B        string
	Correlation float64
}

// CorrelationReport is the pairwise correlation of daily returns.
type CorrelationReport struct {
	Tickers   []string
	Matrix    [][]float64 // Matrix[i][j] is the correlation of Tickers[i] and Tickers[j]
	HighPairs []CorrelationPair
	Level     CorrelationLevel
	Warning   string
}

// AnalyzeCorrelation correlates the daily returns of the first ten distinct
// tickers, in order, that have price history. Each pair is aligned on the
// dates both series share. It returns nil when fewer than two tickers have
// history.
func AnalyzeCorrelation(tickers []string, series map[string]models.PriceSeries) *CorrelationReport {
	var selected []string
	returns := make(map[string]map[time.Time]float64)
	for _, t := range tickers {
		if _, seen := returns[t]; seen {
			continue
		}
		s := series[t]
		if len(s) < 2 {
			continue
		}
		returns[t] = dailyReturns(s)
		selected = append(selected, t)
		if len(selected) == maxCorrelationTickers {
			break
		}
	}
	if len(selected) < 2 {
		return nil
	}

	n := len(selected)
	report := &CorrelationReport{
		Tickers: selected,
		Matrix:  make([][]float64, n),
		Level:   CorrelationLow,
	}
	for i := range report.Matrix {
		report.Matrix[i] = make([]float64, n)
		report.Matrix[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := pairCorrelation(returns[selected[i]], returns[selected[j]])
			report.Matrix[i][j], report.Matrix[j][i] = c, c
			if math.Abs(c) > highCorrelation {
				report.HighPairs = append(report.HighPairs, CorrelationPair{A: selected[i], B: selected[j], Correlation: c})
			}
		}
	}

	switch pairs := len(report.HighPairs); {
	case pairs > 3:
		report.Level = CorrelationHigh
		report.Warning = fmt.Sprintf("%d highly correlated pairs detected, diversify", pairs)
	case pairs > 1:
		report.Level = CorrelationMedium
		report.Warning = fmt.Sprintf("%d correlated pairs, monitor carefully", pairs)
	}
	return report
}

func dailyReturns(s models.PriceSeries) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		if s[i-1].Close == 0 {
			continue
		}
		out[s[i].Date] = (s[i].Close - s[i-1].Close) / s[i-1].Close
	}
	return out
}

// pairCorrelation is the Pearson correlation over shared dates. Degenerate
// inputs (fewer than two shared dates, zero variance) correlate at 0.
func pairCorrelation(a, b map[time.Time]float64) float64 {
	dates := make([]time.Time, 0, len(a))
	for d := range a {
		if _, ok := b[d]; ok {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	x := make([]float64, len(dates))
	y := make([]float64, len(dates))
	for i, d := range dates {
		x[i], y[i] = a[d], b[d]
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}
