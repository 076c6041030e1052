// Package store persists a transaction log and computed tax reports in a
// SQLite database.
//
// The schema is managed with golang-migrate from migrations embedded in the
// binary, and the database is pure Go (modernc.org/sqlite).
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/etnz/taxlot"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a report has not been saved.
var ErrNotFound = errors.New("not found")

// Store is a transaction log and report cache backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens, or creates, the database at path and brings its schema up to
// date.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// a single connection avoids SQLite locking errors.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrateUp(db, path); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB, path string) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, path, driver)
	if err != nil {
		return fmt.Errorf("migration instance creation failed: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Printf("%s: database migrations applied", path)
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Append adds transactions to the log. They are validated, their ids must be
// new and, per ticker, their dates must not go backward. Nothing is written
// unless all of txs are accepted. Saved reports are dropped.
func (s *Store) Append(ctx context.Context, txs ...taxlot.Transaction) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	last := make(map[string]taxlot.Date)
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}

		var exists int
		if err := sqlTx.QueryRowContext(ctx, `SELECT count(*) FROM transactions WHERE id = ?`, tx.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up transaction %q: %w", tx.ID, err)
		}
		if exists > 0 {
			return &taxlot.MalformedTransactionError{ID: tx.ID, Kind: tx.Kind, Reason: "duplicate id"}
		}

		prev, ok := last[tx.Ticker]
		if !ok {
			if prev, err = latestDate(ctx, sqlTx, tx.Ticker); err != nil {
				return err
			}
		}
		if !prev.IsZero() && tx.Date.Before(prev) {
			return &taxlot.InvalidDateOrderingError{ID: tx.ID, Date: tx.Date, Previous: prev}
		}
		last[tx.Ticker] = tx.Date

		body, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to encode transaction %q: %w", tx.ID, err)
		}
		if _, err := sqlTx.ExecContext(ctx,
			`INSERT INTO transactions (id, ticker, kind, date, body) VALUES (?, ?, ?, ?, ?)`,
			tx.ID, tx.Ticker, string(tx.Kind), tx.Date.String(), string(body),
		); err != nil {
			return fmt.Errorf("failed to insert transaction %q: %w", tx.ID, err)
		}
	}
	// saved reports are derived from the log.
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		return fmt.Errorf("failed to invalidate reports: %w", err)
	}
	return sqlTx.Commit()
}

// latestDate returns the date of the latest transaction on ticker, or the
// zero Date.
func latestDate(ctx context.Context, q *sql.Tx, ticker string) (taxlot.Date, error) {
	var latest sql.NullString
	if err := q.QueryRowContext(ctx, `SELECT max(date) FROM transactions WHERE ticker = ?`, ticker).Scan(&latest); err != nil {
		return taxlot.Date{}, fmt.Errorf("failed to look up latest %s transaction: %w", ticker, err)
	}
	if !latest.Valid {
		return taxlot.Date{}, nil
	}
	return taxlot.ParseDate(latest.String)
}

// Transactions returns the log of ticker in chronological order. Transactions
// on the same day keep their insertion order.
func (s *Store) Transactions(ctx context.Context, ticker string) ([]taxlot.Transaction, error) {
	return s.query(ctx, `SELECT body FROM transactions WHERE ticker = ? ORDER BY date, seq`, ticker)
}

// All returns the whole log in chronological order.
func (s *Store) All(ctx context.Context) ([]taxlot.Transaction, error) {
	return s.query(ctx, `SELECT body FROM transactions ORDER BY date, seq`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]taxlot.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []taxlot.Transaction
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		var tx taxlot.Transaction
		if err := json.Unmarshal([]byte(body), &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", body, err)
		}
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SaveReport stores r, replacing any report of the same year and method.
func (s *Store) SaveReport(ctx context.Context, r taxlot.TaxYearReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode %d report: %w", r.Year, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (year, method, body, computed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (year, method) DO UPDATE SET body = excluded.body, computed_at = excluded.computed_at`,
		r.Year, r.Method.String(), string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save %d report: %w", r.Year, err)
	}
	return nil
}

// Report returns the report saved for year and method, or ErrNotFound.
func (s *Store) Report(ctx context.Context, year int, method taxlot.AccountingMethod) (taxlot.TaxYearReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE year = ? AND method = ?`, year, method.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return taxlot.TaxYearReport{}, fmt.Errorf("%d %s report: %w", year, method, ErrNotFound)
	}
	if err != nil {
		return taxlot.TaxYearReport{}, fmt.Errorf("failed to load %d report: %w", year, err)
	}
	var r taxlot.TaxYearReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return taxlot.TaxYearReport{}, fmt.Errorf("failed to decode %d report: %w", year, err)
	}
	return r, nil
}
