package engagement

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hesapkit.com/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

const memoryDSN = ":memory:"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	dsn := path
	if path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating engagement db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening engagement db: %w", err)
	}
	// SQLite allows one writer at a time, and with ":memory:" every extra
	// connection would see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		logging.SafeCloseWithLogging(db, logger, "close engagement db after schema failure")
		return nil, fmt.Errorf("creating engagement schema: %w", err)
	}
	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) AddHistory(ctx context.Context, visitor string, e Entry) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history insert: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, s.logger, "add_history")

	if _, err = tx.ExecContext(ctx, `INSERT INTO history
		(visitor, calculator, locale, query, result_key, result, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		visitor, e.Calculator, e.Locale, e.Query, e.ResultKey, e.Result, e.Currency, e.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM history
		WHERE visitor = ? AND id NOT IN (
			SELECT id FROM history WHERE visitor = ? ORDER BY id DESC LIMIT ?
		)`, visitor, visitor, MaxHistory,
	); err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

func (s *SQLite) History(ctx context.Context, visitor string, limit int) (entries []Entry, err error) {
	if err := checkVisitor(visitor); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, calculator, locale, query, result_key, result, currency, created_at
		FROM history WHERE visitor = ? ORDER BY id DESC LIMIT ?`, visitor, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer logging.HandleDeferredError(&err, rows.Close, s.logger, "close history rows")

	entries = []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Calculator, &e.Locale, &e.Query, &e.ResultKey, &e.Result, &e.Currency, &created); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

func (s *SQLite) ClearHistory(ctx context.Context, visitor string) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE visitor = ?`, visitor); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func (s *SQLite) Rate(ctx context.Context, visitor, calculator string, score int) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	if err := checkScore(score); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO ratings (visitor, calculator, score, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (visitor, calculator) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		visitor, calculator, score, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving rating: %w", err)
	}
	return nil
}

func (s *SQLite) Rating(ctx context.Context, calculator string) (Rating, error) {
	var count int
	var sum float64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(score), 0) FROM ratings WHERE calculator = ?`,
		calculator).Scan(&count, &sum)
	if err != nil {
		return Rating{}, fmt.Errorf("querying rating: %w", err)
	}
	return newRating(calculator, count, sum), nil
}
