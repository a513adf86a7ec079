package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "portfolio-monitor/internal/errors"
	"portfolio-monitor/internal/models"
)

// SQLiteStore implements PositionStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ PositionStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Tracked positions
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		stop_loss REAL NOT NULL,
		target_1 REAL NOT NULL,
		target_2 REAL NOT NULL,
		entry_date DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Closed positions
	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		direction TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		exit_reason TEXT,
		entry_date DATETIME NOT NULL,
		exit_date DATETIME NOT NULL,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	-- Stop-loss and target adjustments
	CREATE TABLE IF NOT EXISTS sl_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value REAL NOT NULL,
		new_value REAL NOT NULL,
		reason TEXT,
		changed_at DATETIME NOT NULL,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	-- Archived daily bars
	CREATE TABLE IF NOT EXISTS bars (
		ticker TEXT NOT NULL,
		date DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		PRIMARY KEY (ticker, date)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	CREATE INDEX IF NOT EXISTS idx_positions_ticker ON positions(ticker);
	CREATE INDEX IF NOT EXISTS idx_trade_history_ticker ON trade_history(ticker);
	CREATE INDEX IF NOT EXISTS idx_trade_history_exit ON trade_history(exit_date);
	CREATE INDEX IF NOT EXISTS idx_sl_changes_position ON sl_changes(position_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddPosition validates and inserts p, returning its ID.
func (s *SQLiteStore) AddPosition(ctx context.Context, p models.Position) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (ticker, direction, entry_price, quantity, stop_loss, target_1, target_2, entry_date, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Ticker, string(p.Direction), p.EntryPrice, p.Quantity, p.StopLoss, p.Target1, p.Target2,
		p.EntryDate.UTC(), string(p.Status), p.Notes)
	if err != nil {
		return 0, apperrors.NewStoreError("add position", err)
	}
	return res.LastInsertId()
}

const positionColumns = `id, ticker, direction, entry_price, quantity, stop_loss, target_1, target_2, entry_date, status, notes`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (models.Position, error) {
	var p models.Position
	var direction, status string
	var notes sql.NullString
	err := row.Scan(&p.ID, &p.Ticker, &direction, &p.EntryPrice, &p.Quantity, &p.StopLoss,
		&p.Target1, &p.Target2, &p.EntryDate, &status, &notes)
	if err != nil {
		return p, err
	}
	p.Direction = models.Direction(direction)
	p.Status = models.PositionStatus(status)
	p.Notes = notes.String
	return p, nil
}

// GetPosition returns the position with id.
func (s *SQLiteStore) GetPosition(ctx context.Context, id int64) (*models.Position, error) {
	return getPosition(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getPosition(ctx context.Context, q queryer, id int64) (*models.Position, error) {
	row := q.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = ?`, id)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %d: %w", id, apperrors.ErrPositionNotFound)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get position", err)
	}
	return &p, nil
}

// GetActivePositions returns every ACTIVE position, oldest first.
func (s *SQLiteStore) GetActivePositions(ctx context.Context) ([]models.Position, error) {
	return s.GetPositions(ctx, PositionFilter{Status: models.StatusActive})
}

// GetPositions returns positions matching filter, oldest first.
func (s *SQLiteStore) GetPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE 1=1`
	var args []interface{}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, strings.ToUpper(filter.Ticker))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY entry_date ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query positions", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan position", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("iterate positions", err)
	}
	return positions, nil
}

// UpdateStopLoss moves the stop of position id and records the change.
func (s *SQLiteStore) UpdateStopLoss(ctx context.Context, id int64, stop float64, reason string) error {
	return s.UpdateTarget(ctx, id, FieldStopLoss, stop, reason)
}

// UpdateTarget changes stop_loss, target_1 or target_2 of position id,
// rejecting values that break the position's invariants, and records the
// change in the adjustment log.
func (s *SQLiteStore) UpdateTarget(ctx context.Context, id int64, field string, value float64, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	p, err := getPosition(ctx, tx, id)
	if err != nil {
		return err
	}

	var old float64
	switch field {
	case FieldStopLoss:
		old, p.StopLoss = p.StopLoss, value
	case FieldTarget1:
		old, p.Target1 = p.Target1, value
	case FieldTarget2:
		old, p.Target2 = p.Target2, value
	default:
		return apperrors.NewValidationError("field", field, "must be stop_loss, target_1 or target_2")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	// field is one of the three constants above.
	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET `+field+` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, value, id); err != nil {
		return apperrors.NewStoreError("update "+field, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sl_changes (position_id, ticker, field, old_value, new_value, reason, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, p.Ticker, field, old, value, reason, time.Now().UTC()); err != nil {
		return apperrors.NewStoreError("log change", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("commit", err)
	}
	return nil
}

// ClosePosition marks position id INACTIVE and records the trade.
func (s *SQLiteStore) ClosePosition(ctx context.Context, id int64, exitPrice float64, reason string, exitDate time.Time) (*models.Trade, error) {
	if exitPrice <= 0 {
		return nil, apperrors.NewValidationError("exit_price", exitPrice, "must be positive")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	p, err := getPosition(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.StatusInactive {
		return nil, fmt.Errorf("position %d already closed: %w", id, apperrors.ErrInvalidPosition)
	}

	pnl, pnlPct := p.PnL(exitPrice)
	trade := &models.Trade{
		PositionID: p.ID,
		Ticker:     p.Ticker,
		Direction:  p.Direction,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		PnLPercent: pnlPct,
		ExitReason: reason,
		EntryDate:  p.EntryDate,
		ExitDate:   exitDate.UTC(),
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trade_history (position_id, ticker, direction, quantity, entry_price, exit_price, pnl, pnl_percent, exit_reason, entry_date, exit_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.PositionID, trade.Ticker, string(trade.Direction), trade.Quantity, trade.EntryPrice, trade.ExitPrice,
		trade.PnL, trade.PnLPercent, trade.ExitReason, trade.EntryDate.UTC(), trade.ExitDate)
	if err != nil {
		return nil, apperrors.NewStoreError("insert trade", err)
	}
	trade.ID, _ = res.LastInsertId()

	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(models.StatusInactive), id); err != nil {
		return nil, apperrors.NewStoreError("close position", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStoreError("commit", err)
	}
	return trade, nil
}

// GetTradeHistory returns closed trades, most recent exit first.
func (s *SQLiteStore) GetTradeHistory(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `
		SELECT id, position_id, ticker, direction, quantity, entry_price, exit_price, pnl, pnl_percent,
		       exit_reason, entry_date, exit_date
		FROM trade_history WHERE 1=1`
	var args []interface{}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, strings.ToUpper(filter.Ticker))
	}
	if !filter.StartDate.IsZero() {
		query += " AND exit_date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND exit_date <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	query += " ORDER BY exit_date DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query trades", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var direction string
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.PositionID, &t.Ticker, &direction, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.PnL, &t.PnLPercent, &reason, &t.EntryDate, &t.ExitDate); err != nil {
			return nil, apperrors.NewStoreError("scan trade", err)
		}
		t.Direction = models.Direction(direction)
		t.ExitReason = reason.String
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("iterate trades", err)
	}
	return trades, nil
}

// GetStopLossChanges returns the adjustment log of a position, oldest first.
func (s *SQLiteStore) GetStopLossChanges(ctx context.Context, positionID int64) ([]models.StopLossChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, ticker, field, old_value, new_value, reason, changed_at
		FROM sl_changes WHERE position_id = ? ORDER BY changed_at ASC, id ASC
	`, positionID)
	if err != nil {
		return nil, apperrors.NewStoreError("query sl changes", err)
	}
	defer rows.Close()

	var changes []models.StopLossChange
	for rows.Next() {
		var c models.StopLossChange
		var reason sql.NullString
		if err := rows.Scan(&c.PositionID, &c.Ticker, &c.Field, &c.OldValue, &c.NewValue, &reason, &c.ChangedAt); err != nil {
			return nil, apperrors.NewStoreError("scan sl change", err)
		}
		c.Reason = reason.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("iterate sl changes", err)
	}
	return changes, nil
}

// SaveBars upserts daily bars for ticker.
func (s *SQLiteStore) SaveBars(ctx context.Context, ticker string, bars models.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("prepare bars", err)
	}
	defer stmt.Close()

	ticker = strings.ToUpper(ticker)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.Date.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return apperrors.NewStoreError("insert bar", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("commit", err)
	}
	return nil
}

// GetBars returns archived bars for ticker dated at or after since, oldest first.
func (s *SQLiteStore) GetBars(ctx context.Context, ticker string, since time.Time) (models.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND date >= ?
		ORDER BY date ASC
	`, strings.ToUpper(ticker), since.UTC())
	if err != nil {
		return nil, apperrors.NewStoreError("query bars", err)
	}
	defer rows.Close()

	var series models.PriceSeries
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, apperrors.NewStoreError("scan bar", err)
		}
		series = append(series, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("iterate bars", err)
	}
	return series, nil
}
