package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/models"
	"portfolio-monitor/internal/security"
	"portfolio-monitor/internal/store"
	"portfolio-monitor/pkg/utils"
)

const dateLayout = "2006-01-02"

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "positions",
		Aliases: []string{"pos"},
		Short:   "Manage tracked positions",
	}

	cmd.AddCommand(newPositionsListCmd(app))
	cmd.AddCommand(newPositionsAddCmd(app))
	cmd.AddCommand(newPositionsCloseCmd(app))
	cmd.AddCommand(newPositionsSetStopCmd(app))
	cmd.AddCommand(newPositionsSetTargetCmd(app))
	cmd.AddCommand(newPositionsImportCmd(app))
	return cmd
}

func newPositionsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			status, _ := cmd.Flags().GetString("status")
			ticker, _ := cmd.Flags().GetString("ticker")

			filter := store.PositionFilter{Ticker: security.NormalizeTicker(ticker), Status: models.PositionStatus(status)}
			if status == "all" {
				filter.Status = ""
			}
			positions, err := st.GetPositions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Dim("No positions")
				return nil
			}

			now := app.Clock.Now()
			table := NewTable(output, "ID", "TICKER", "DIR", "QTY", "ENTRY", "STOP", "T1", "T2", "INVESTED", "STATUS", "HELD")
			for _, p := range positions {
				table.AddRow(
					strconv.FormatInt(p.ID, 10),
					p.Ticker,
					output.Direction(p.Direction),
					utils.FormatQuantity(p.Quantity),
					fmt.Sprintf("%.2f", p.EntryPrice),
					fmt.Sprintf("%.2f", p.StopLoss),
					fmt.Sprintf("%.2f", p.Target1),
					fmt.Sprintf("%.2f", p.Target2),
					utils.FormatCompact(p.Invested()),
					string(p.Status),
					utils.FormatHeld(p.EntryDate, now),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("status", string(models.StatusActive), "ACTIVE, PENDING, INACTIVE or all")
	cmd.Flags().String("ticker", "", "filter by ticker")
	return cmd
}

func newPositionsAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add TICKER",
		Short: "Track a new position",
		Example: `  monitor positions add TCS --entry 3850 --qty 10 --stop 3780 --target1 4000
  monitor positions add INFY --short --entry 1500 --qty 20 --stop 1540 --target1 1420`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			flags := cmd.Flags()

			params := models.PositionParams{Ticker: args[0], Direction: models.Long}
			if short, _ := flags.GetBool("short"); short {
				params.Direction = models.Short
			}
			params.EntryPrice, _ = flags.GetFloat64("entry")
			params.Quantity, _ = flags.GetFloat64("qty")
			params.StopLoss, _ = flags.GetFloat64("stop")
			params.Target1, _ = flags.GetFloat64("target1")
			params.Target2, _ = flags.GetFloat64("target2")
			params.Notes, _ = flags.GetString("notes")
			if pending, _ := flags.GetBool("pending"); pending {
				params.Status = models.StatusPending
			}
			if d, _ := flags.GetString("date"); d != "" {
				entry, err := time.ParseInLocation(dateLayout, d, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", d)
				}
				params.EntryDate = entry
			} else {
				params.EntryDate = app.Clock.Now()
			}

			pos, err := models.NewPosition(params)
			if err != nil {
				return err
			}
			id, err := st.AddPosition(cmd.Context(), pos)
			if err != nil {
				return err
			}
			app.Logger.Info().Int64("id", id).Str("ticker", pos.Ticker).Msg("Position added")

			if output.IsJSON() {
				pos.ID = id
				return output.JSON(pos)
			}
			output.Success("✓ Added #%d %s %s %s @ %.2f (SL %.2f, T1 %.2f, T2 %.2f)",
				id, pos.Direction, utils.FormatQuantity(pos.Quantity), pos.Ticker, pos.EntryPrice, pos.StopLoss, pos.Target1, pos.Target2)
			return nil
		},
	}
	cmd.Flags().Bool("short", false, "short position")
	cmd.Flags().Float64("entry", 0, "entry price")
	cmd.Flags().Float64("qty", 0, "quantity")
	cmd.Flags().Float64("stop", 0, "stop loss")
	cmd.Flags().Float64("target1", 0, "first target")
	cmd.Flags().Float64("target2", 0, "second target (default: derived from target1)")
	cmd.Flags().String("date", "", "entry date YYYY-MM-DD (default: today)")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().Bool("pending", false, "track as PENDING instead of ACTIVE")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("qty")
	cmd.MarkFlagRequired("stop")
	cmd.MarkFlagRequired("target1")
	return cmd
}

func newPositionsCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close ID EXIT_PRICE",
		Short: "Close a position and record the trade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid exit price %q", args[1])
			}
			reason, _ := cmd.Flags().GetString("reason")

			trade, err := st.ClosePosition(cmd.Context(), id, price, reason, app.Clock.Now())
			if apperrors.IsNotFound(err) {
				return fmt.Errorf("no position #%d; see 'monitor positions list --status all'", id)
			}
			if err != nil {
				return err
			}
			app.Logger.Info().Int64("id", id).Str("ticker", trade.Ticker).Float64("pnl", trade.PnL).Msg("Position closed")

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Closed #%d %s @ %.2f", id, trade.Ticker, trade.ExitPrice)
			output.Printf("  P&L: %s (%s)\n", output.FormatPnL(trade.PnL), output.FormatPercent(trade.PnLPercent))
			return nil
		},
	}
	cmd.Flags().String("reason", "manual", "exit reason")
	return cmd
}

func newPositionsSetStopCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-sl ID PRICE",
		Short: "Move a position's stop loss",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.updateLevel(cmd, args[0], store.FieldStopLoss, args[1])
		},
	}
	cmd.Flags().String("reason", "manual", "reason recorded with the change")
	return cmd
}

func newPositionsSetTargetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-target ID 1|2 PRICE",
		Short: "Change a position's first or second target",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var field string
			switch args[1] {
			case "1":
				field = store.FieldTarget1
			case "2":
				field = store.FieldTarget2
			default:
				return fmt.Errorf("target must be 1 or 2, got %q", args[1])
			}
			return app.updateLevel(cmd, args[0], field, args[2])
		},
	}
	cmd.Flags().String("reason", "manual", "reason recorded with the change")
	return cmd
}

func (app *App) updateLevel(cmd *cobra.Command, idArg, field, priceArg string) error {
	st, err := app.requireStore()
	if err != nil {
		return err
	}
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	price, err := strconv.ParseFloat(priceArg, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", priceArg)
	}
	price = utils.RoundToTick(price)
	reason, _ := cmd.Flags().GetString("reason")

	if err := st.UpdateTarget(cmd.Context(), id, field, price, reason); err != nil {
		return err
	}
	app.Logger.Info().Int64("id", id).Str("field", field).Float64("value", price).Msg("Position level updated")
	NewOutput(cmd).Success("✓ #%d %s set to %.2f", id, field, price)
	return nil
}

func newPositionsImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import positions from CSV",
		Long: `Import positions from a CSV file with the header
ticker,direction,entry_price,quantity,stop_loss,target_1,target_2,entry_date,notes

target_2, entry_date and notes may be empty. Nothing is imported if any row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			positions, err := store.ImportPositionsCSV(f)
			if err != nil {
				output := NewOutput(cmd)
				for _, e := range multierr.Errors(err) {
					output.Error("  %v", e)
				}
				return fmt.Errorf("import failed")
			}

			for _, p := range positions {
				if _, err := st.AddPosition(cmd.Context(), p); err != nil {
					return fmt.Errorf("adding %s: %w", p.Ticker, err)
				}
			}
			NewOutput(cmd).Success("✓ Imported %d positions", len(positions))
			return nil
		},
	}
}
