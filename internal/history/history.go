// Package history keeps a local SQLite log of the balances written to the sheet.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Snapshot is one balance row written to the spreadsheet.
type Snapshot struct {
	ID          int64     `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	BalanceType string    `json:"balance_type"`
	Reference   string    `json:"reference"`
	SheetRange  string    `json:"sheet_range"`
	WrittenAt   time.Time `json:"written_at"`
}

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance_type TEXT NOT NULL,
			reference TEXT NOT NULL,
			sheet_range TEXT NOT NULL,
			written_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_account ON snapshots(account_id, written_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record appends s and returns it with its assigned ID.
func (d *DB) Record(ctx context.Context, s Snapshot) (Snapshot, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO snapshots (account_id, amount, currency, balance_type, reference, sheet_range, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.AccountID, s.Amount, s.Currency, s.BalanceType, s.Reference, s.SheetRange, s.WrittenAt.Unix(),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("inserting snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot id: %w", err)
	}
	s.ID = id
	return s, nil
}

// Recent returns up to limit snapshots, newest first. An empty accountID
// matches every account.
func (d *DB) Recent(ctx context.Context, accountID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, account_id, amount, currency, balance_type, reference, sheet_range, written_at
		FROM snapshots`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY written_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var writtenAt int64
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Amount, &s.Currency, &s.BalanceType, &s.Reference, &s.SheetRange, &writtenAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		s.WrittenAt = time.Unix(writtenAt, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
