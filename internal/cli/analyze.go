package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/security"
	"portfolio-monitor/internal/trading"
	"portfolio-monitor/pkg/utils"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [TICKER...]",
		Short: "Run one refresh cycle over active positions",
		Long: `Fetch prices, evaluate market health and analyse every active position,
or only the given tickers. Prints per-position status, risk and alerts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			report, err := app.refresh(cmd.Context(), args)
			if err != nil {
				return err
			}
			if report == nil {
				output.Warning("No active positions")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, app, report)
			return nil
		},
	}
	return cmd
}

// refresh loads active positions, optionally filtered by tickers, and runs
// a refresh cycle. It returns nil when there is nothing to analyse.
func (app *App) refresh(ctx context.Context, tickers []string) (*trading.Report, error) {
	st, err := app.requireStore()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	positions, err := st.GetActivePositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading positions: %w", err)
	}
	positions = filterTickers(positions, tickers)
	if len(positions) == 0 {
		return nil, nil
	}
	return app.Monitor.Refresh(ctx, positions)
}

func filterTickers(positions []models.Position, tickers []string) []models.Position {
	if len(tickers) == 0 {
		return positions
	}
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[security.NormalizeTicker(t)] = true
	}
	out := positions[:0:0]
	for _, p := range positions {
		if want[p.Ticker] {
			out = append(out, p)
		}
	}
	return out
}

func renderReport(output *Output, app *App, report *trading.Report) {
	now := app.Clock.Now()
	output.Bold("Refresh %s", report.ID[:8])
	output.Dim("%s | market %s", report.GeneratedAt.In(resilience.IndiaLocation).Format("02-Jan-2006 15:04:05"), app.Hours.StatusMessage())
	output.Println()

	renderHealthLine(output, report)
	output.Println()

	table := NewTable(output, "TICKER", "DIR", "PRICE", "DAY", "P&L", "P&L %", "SL RISK", "MOMENTUM", "STATUS", "ACTION", "HELD")
	for _, r := range report.Results {
		table.AddRow(
			r.Ticker(),
			output.Direction(r.Position.Direction),
			fmt.Sprintf("%.2f", r.CurrentPrice),
			output.FormatPercent(r.DayChangePct),
			output.FormatPnL(r.PnLAmount),
			output.FormatPercent(r.PnLPercent),
			fmt.Sprintf("%s %3.0f", riskBar(r.Risk.Score), r.Risk.Score),
			fmt.Sprintf("%.0f %s", r.Momentum.Score, r.Momentum.Trend),
			output.Status(r.Status),
			string(r.Action),
			utils.FormatHeld(r.Position.EntryDate, now),
		)
	}
	table.Render()

	for _, r := range report.Results {
		renderDetail(output, r)
	}

	if len(report.Skipped) > 0 {
		output.Println()
		output.Warning("No price data: %s", strings.Join(report.Skipped, ", "))
	}

	output.Println()
	output.Printf("%d positions, %d alerts, %d emergency exits\n", len(report.Results), report.AlertCount(), len(report.Emergencies))
}

func renderHealthLine(output *Output, report *trading.Report) {
	h := report.Health
	if h == nil {
		output.Warning("Market health unavailable; market rules skipped")
		return
	}
	output.Printf("Market %s (%.0f) | %s | VIX %s | SL policy %s (alert at %.0f)\n",
		output.Health(h.Status), h.Score, h.Message(), h.VIXLevel, h.SLAdjustment, report.Settings.SLAlertThreshold)
}

func renderDetail(output *Output, r trading.AnalysisResult) {
	if len(r.Alerts) == 0 && len(r.Patterns) == 0 && r.Levels.NearestSupport == 0 {
		return
	}
	output.Println()
	output.Bold("%s  %s", r.Ticker(), output.Status(r.Status))
	output.Printf("  Stop %.2f (%.2f%% away, %s)  T1 %.2f  T2 %.2f\n",
		r.Position.StopLoss, r.Risk.DistancePct, r.Risk.Recommendation, r.Position.Target1, r.Position.Target2)
	ind := r.Indicators
	output.Printf("  RSI %.1f  MACD %s  Stoch %.0f/%.0f  ATR %.2f\n", ind.RSI, ind.MACDLabel, ind.StochasticK, ind.StochasticD, ind.ATR)
	if r.Levels.NearestSupport > 0 {
		output.Printf("  Support %.2f (%s, %.1f%%)  Resistance %.2f (%s, %.1f%%)\n",
			r.Levels.NearestSupport, r.Levels.SupportStrength, r.Levels.DistanceToSupport,
			r.Levels.NearestResistance, r.Levels.ResistanceStrength, r.Levels.DistanceToResistance)
	}
	if r.Volume.Description != "" {
		output.Printf("  Volume %s\n", output.Volume(r.Volume))
	}
	if len(r.Patterns) > 0 {
		output.Printf("  Patterns %s\n", describePatterns(r.Patterns))
	}
	for _, reason := range r.Risk.Reasons {
		output.Dim("  - %s", reason)
	}
	for _, a := range r.Alerts {
		output.Printf("  [%s] %s\n", output.Priority(a.Priority), a.Message)
	}
}
