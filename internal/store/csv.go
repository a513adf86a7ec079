package store

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/models"
)

const csvDateLayout = "2006-01-02"

// positionRow is one line of a positions import file.
type positionRow struct {
	Ticker     string  `csv:"ticker"`
	Direction  string  `csv:"direction"`
	EntryPrice float64 `csv:"entry_price"`
	Quantity   float64 `csv:"quantity"`
	StopLoss   float64 `csv:"stop_loss"`
	Target1    float64 `csv:"target_1"`
	Target2    string  `csv:"target_2"`
	EntryDate  string  `csv:"entry_date"`
	Notes      string  `csv:"notes"`
}

// tradeRow is one line of a trade history export.
type tradeRow struct {
	ID         int64   `csv:"id"`
	PositionID int64   `csv:"position_id"`
	Ticker     string  `csv:"ticker"`
	Direction  string  `csv:"direction"`
	Quantity   float64 `csv:"quantity"`
	EntryPrice float64 `csv:"entry_price"`
	ExitPrice  float64 `csv:"exit_price"`
	PnL        string  `csv:"pnl"`
	PnLPercent string  `csv:"pnl_percent"`
	ExitReason string  `csv:"exit_reason"`
	EntryDate  string  `csv:"entry_date"`
	ExitDate   string  `csv:"exit_date"`
}

// ImportPositionsCSV parses positions from r. Every row goes through
// models.NewPosition; all row failures are returned together, each prefixed
// with its line number. No positions are returned when any row fails.
func ImportPositionsCSV(r io.Reader) ([]models.Position, error) {
	var rows []*positionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse positions csv: %w", err)
	}

	var errs error
	positions := make([]models.Position, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // header is line 1
		pos, err := row.toPosition()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		positions = append(positions, pos)
	}
	if errs != nil {
		return nil, errs
	}
	return positions, nil
}

func (r *positionRow) toPosition() (models.Position, error) {
	params := models.PositionParams{
		Ticker:     r.Ticker,
		Direction:  models.Direction(strings.ToUpper(strings.TrimSpace(r.Direction))),
		EntryPrice: r.EntryPrice,
		Quantity:   r.Quantity,
		StopLoss:   r.StopLoss,
		Target1:    r.Target1,
		Notes:      strings.TrimSpace(r.Notes),
	}

	if s := strings.TrimSpace(r.Target2); s != "" {
		t2, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Position{}, apperrors.NewValidationError("target_2", s, "must be a number")
		}
		params.Target2 = t2
	}
	if s := strings.TrimSpace(r.EntryDate); s != "" {
		d, err := time.Parse(csvDateLayout, s)
		if err != nil {
			return models.Position{}, apperrors.NewValidationError("entry_date", s, "must be YYYY-MM-DD")
		}
		params.EntryDate = d
	}

	return models.NewPosition(params)
}

// ExportTradesCSV writes trades to w with a header row.
func ExportTradesCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]*tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &tradeRow{
			ID:         t.ID,
			PositionID: t.PositionID,
			Ticker:     t.Ticker,
			Direction:  string(t.Direction),
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        strconv.FormatFloat(t.PnL, 'f', 2, 64),
			PnLPercent: strconv.FormatFloat(t.PnLPercent, 'f', 2, 64),
			ExitReason: t.ExitReason,
			EntryDate:  t.EntryDate.Format(csvDateLayout),
			ExitDate:   t.ExitDate.Format(csvDateLayout),
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write trades csv: %w", err)
	}
	return nil
}
