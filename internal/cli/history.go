package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/store"
	"portfolio-monitor/internal/trading"
	"portfolio-monitor/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			filter := store.TradeFilter{}
			filter.Ticker, _ = flags.GetString("ticker")
			filter.Limit, _ = flags.GetInt("limit")
			if since, _ := flags.GetString("since"); since != "" {
				t, err := time.Parse(dateLayout, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q: want YYYY-MM-DD", since)
				}
				filter.StartDate = t
			}

			trades, err := st.GetTradeHistory(cmd.Context(), filter)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if path, _ := flags.GetString("csv"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := store.ExportTradesCSV(f, trades); err != nil {
					return err
				}
				output.Success("✓ Wrote %d trades to %s", len(trades), path)
				return nil
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No closed trades")
				return nil
			}

			table := NewTable(output, "ID", "TICKER", "DIR", "QTY", "ENTRY", "EXIT", "P&L", "P&L %", "HELD", "REASON", "CLOSED")
			for _, t := range trades {
				table.AddRow(
					strconv.FormatInt(t.PositionID, 10),
					t.Ticker,
					output.Direction(t.Direction),
					utils.FormatQuantity(t.Quantity),
					fmt.Sprintf("%.2f", t.EntryPrice),
					fmt.Sprintf("%.2f", t.ExitPrice),
					output.FormatPnL(t.PnL),
					output.FormatPercent(t.PnLPercent),
					utils.FormatHeld(t.EntryDate, t.ExitDate),
					t.ExitReason,
					t.ExitDate.Format("02-Jan-2006"),
				)
			}
			table.Render()
			output.Println()
			stats := trading.SummarizeTrades(trades)
			output.Printf("%d trades, %d winners (%.0f%%), net %s\n",
				stats.Trades, stats.Wins, stats.WinRate, output.FormatPnL(stats.NetPnL))
			return nil
		},
	}
	cmd.Flags().String("ticker", "", "filter by ticker")
	cmd.Flags().String("since", "", "only trades closed on or after YYYY-MM-DD")
	cmd.Flags().Int("limit", 0, "maximum number of trades")
	cmd.Flags().String("csv", "", "write trades to this CSV file instead of printing")

	cmd.AddCommand(newHistoryStopsCmd(app))
	cmd.AddCommand(newHistoryStatsCmd(app))
	return cmd
}

func newHistoryStopsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stops ID",
		Short: "Show stop-loss and target changes of a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			changes, err := st.GetStopLossChanges(cmd.Context(), id)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(changes)
			}
			if len(changes) == 0 {
				output.Dim("No changes recorded for #%d", id)
				return nil
			}
			now := app.Clock.Now()
			table := NewTable(output, "WHEN", "FIELD", "FROM", "TO", "REASON")
			for _, c := range changes {
				table.AddRow(utils.FormatAge(c.ChangedAt, now), c.Field,
					fmt.Sprintf("%.2f", c.OldValue), fmt.Sprintf("%.2f", c.NewValue), c.Reason)
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise realised performance",
		Example: `  monitor history stats --period weekly
  monitor history stats --period all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			period, _ := cmd.Flags().GetString("period")
			label, start, err := periodStart(period, app.Clock.Now())
			if err != nil {
				return err
			}

			trades, err := st.GetTradeHistory(cmd.Context(), store.TradeFilter{StartDate: start})
			if err != nil {
				return err
			}
			stats := trading.SummarizeTrades(trades)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(stats)
			}
			output.Bold("%s Performance", label)
			if stats.Trades == 0 {
				output.Dim("No trades closed in this period")
				return nil
			}
			output.Printf("  Trades:         %d (%d won, %d lost)\n", stats.Trades, stats.Wins, stats.Losses)
			output.Printf("  Win rate:       %.1f%%\n", stats.WinRate)
			output.Printf("  Gross profit:   %s\n", output.Green(utils.FormatIndianCurrency(stats.GrossProfit)))
			output.Printf("  Gross loss:     %s\n", output.Red(utils.FormatIndianCurrency(stats.GrossLoss)))
			output.Printf("  Net P&L:        %s\n", output.FormatPnL(stats.NetPnL))
			output.Printf("  Profit factor:  %.2f\n", stats.ProfitFactor)
			output.Printf("  Avg win/loss:   %s / %s\n", utils.FormatIndianCurrency(stats.AvgWin), utils.FormatIndianCurrency(stats.AvgLoss))
			output.Printf("  Largest:        %s / %s\n", utils.FormatIndianCurrency(stats.LargestWin), utils.FormatIndianCurrency(stats.LargestLoss))
			output.Printf("  Expectancy:     %s per trade\n", utils.FormatIndianCurrency(stats.Expectancy))
			output.Println()

			table := NewTable(output, "TICKER", "TRADES", "WIN %", "NET P&L")
			for _, ts := range stats.ByTicker {
				table.AddRow(ts.Ticker, strconv.Itoa(ts.Trades), fmt.Sprintf("%.0f%%", ts.WinRate), output.FormatPnL(ts.NetPnL))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("period", "all", "daily, weekly, monthly or all")
	return cmd
}

// periodStart returns the report label and the first exit time included.
// Days start at midnight IST.
func periodStart(period string, now time.Time) (string, time.Time, error) {
	now = now.In(resilience.IndiaLocation)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, resilience.IndiaLocation)
	switch period {
	case "daily":
		return "Daily", today, nil
	case "weekly":
		return "Weekly", today.AddDate(0, 0, -7), nil
	case "monthly":
		return "Monthly", today.AddDate(0, -1, 0), nil
	case "all", "":
		return "All-time", time.Time{}, nil
	}
	return "", time.Time{}, fmt.Errorf("invalid --period %q: want daily, weekly, monthly or all", period)
}
