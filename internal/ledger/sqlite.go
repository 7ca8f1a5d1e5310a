package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. The additive upsert is a
// single statement, so concurrent readers (history rollups) never observe
// a half-applied day.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the ledger database.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: sqlite serializes writers anyway, and a pooled
	// ":memory:" database would otherwise be one-per-connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS day_records (
		date TEXT PRIMARY KEY,
		screen_time_secs INTEGER NOT NULL DEFAULT 0,
		distance_violations INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSnapshot adds the deltas to date's totals, creating the row when
// absent. Never overwrites.
func (s *SQLiteStore) RecordSnapshot(ctx context.Context, date string, deltaSecs uint64, deltaViolations uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO day_records (date, screen_time_secs, distance_violations) VALUES (?, ?, ?)
		 ON CONFLICT (date) DO UPDATE SET
			screen_time_secs = screen_time_secs + excluded.screen_time_secs,
			distance_violations = distance_violations + excluded.distance_violations`,
		date, deltaSecs, deltaViolations,
	)
	if err != nil {
		return fmt.Errorf("record day snapshot: %w", err)
	}
	return nil
}

// GetRecord returns date's totals, zero-valued when the date was never
// archived.
func (s *SQLiteStore) GetRecord(ctx context.Context, date string) (DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := DayRecord{Date: date}
	err := s.db.QueryRowContext(ctx,
		"SELECT screen_time_secs, distance_violations FROM day_records WHERE date = ?",
		date,
	).Scan(&rec.ScreenTimeSecs, &rec.DistanceViolations)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("query day record: %w", err)
	}
	return rec, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
