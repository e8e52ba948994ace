package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"flow_bot/internal/models"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// одна запись за раз
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tickers (
			product_code TEXT NOT NULL,
			ts           TEXT NOT NULL,
			best_bid     REAL NOT NULL,
			best_ask     REAL NOT NULL,
			ltp          REAL NOT NULL,
			received_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickers_product_ts ON tickers(product_code, ts)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id          INTEGER NOT NULL,
			channel     TEXT NOT NULL,
			side        TEXT NOT NULL,
			price       REAL NOT NULL,
			size        REAL NOT NULL,
			exec_date   TEXT NOT NULL,
			received_at TEXT NOT NULL,
			PRIMARY KEY (channel, id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *SQLite) Record(ctx context.Context, msg models.Message) error {
	if msg.Ticker != nil {
		t := msg.Ticker
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tickers (product_code, ts, best_bid, best_ask, ltp, received_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ProductCode, ts(t.Timestamp), t.BestBid, t.BestAsk, t.Ltp, ts(msg.ReceivedAt))
		if err != nil {
			return fmt.Errorf("insert ticker: %w", err)
		}
		return nil
	}
	if len(msg.Executions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO executions (id, channel, side, price, size, exec_date, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range msg.Executions {
		if _, err := stmt.ExecContext(ctx, e.ID, msg.Channel, string(e.Side), e.Price, e.Size, ts(e.ExecDate), ts(msg.ReceivedAt)); err != nil {
			return fmt.Errorf("insert execution %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Counts: число строк в таблицах, для проверки и вывода в stream.
func (s *SQLite) Counts(ctx context.Context) (tickers, executions int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers`).Scan(&tickers); err != nil {
		return
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`).Scan(&executions)
	return
}

func (s *SQLite) Close() error { return s.db.Close() }
