package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-monitor/internal/trading"
	"portfolio-monitor/pkg/utils"
)

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show portfolio risk, sector exposure and correlation",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			report, err := app.refresh(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if report == nil {
				output.Warning("No active positions")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(struct {
					Risk        trading.PortfolioRiskSummary `json:"risk"`
					Sectors     trading.SectorExposureReport `json:"sectors"`
					Correlation *trading.CorrelationReport   `json:"correlation"`
					Skipped     []string                     `json:"skipped"`
				}{report.Risk, report.Sectors, report.Correlation, report.Skipped})
			}
			renderPortfolio(output, report)
			return nil
		},
	}
}

func renderPortfolio(output *Output, report *trading.Report) {
	risk := report.Risk
	output.Bold("Risk / Reward (%d positions)", risk.Positions)
	output.Printf("  Invested:   %s\n", utils.FormatCompact(risk.TotalInvested))
	output.Printf("  At risk:    %s (%.2f%%)\n", output.Red(utils.FormatIndianCurrency(risk.TotalAtRisk)), risk.RiskPct)
	output.Printf("  Potential:  %s (%.2f%%)\n", output.Green(utils.FormatIndianCurrency(risk.TotalPotential)), risk.RewardPct)
	output.Printf("  Ratio:      %.2f  %s\n", risk.Ratio, ratingText(output, risk.Rating))
	output.Println()

	output.Bold("Sector exposure")
	table := NewTable(output, "SECTOR", "VALUE", "SHARE")
	for _, s := range report.Sectors.Sectors {
		table.AddRow(s.Sector, utils.FormatCompact(s.Value), fmt.Sprintf("%.1f%%", s.Percent))
	}
	table.Render()
	for _, w := range report.Sectors.Warnings {
		if w.Level == trading.ConcentrationOver {
			output.Error("  %s", w)
		} else {
			output.Warning("  %s", w)
		}
	}
	output.Println()

	c := report.Correlation
	if c == nil {
		output.Dim("Correlation: not enough price history")
		return
	}
	output.Bold("Correlation (%s)", c.Level)
	header := append([]string{""}, c.Tickers...)
	matrix := NewTable(output, header...)
	for i, t := range c.Tickers {
		row := []string{t}
		for j := range c.Tickers {
			row = append(row, fmt.Sprintf("%.2f", c.Matrix[i][j]))
		}
		matrix.AddRow(row...)
	}
	matrix.Render()
	if len(c.HighPairs) > 0 {
		pairs := make([]string, len(c.HighPairs))
		for i, p := range c.HighPairs {
			pairs[i] = fmt.Sprintf("%s/%s %.2f", p.A, p.B, p.Correlation)
		}
		output.Printf("  Highly correlated: %s\n", strings.Join(pairs, ", "))
	}
	if c.Warning != "" {
		output.Warning("  %s", c.Warning)
	}
}

func ratingText(output *Output, r trading.Rating) string {
	switch r {
	case trading.RatingGood, trading.RatingExcellent:
		return output.Green(string(r))
	case trading.RatingFair:
		return output.Yellow(string(r))
	default:
		return output.Red(string(r))
	}
}
