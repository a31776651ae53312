// Package sqlite provides a single-file alternative to the PostgreSQL store,
// for local runs without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Register the sqlite3 driver

	"github.com/justestif/go-weather-mood/internal/learning"
)

const schema = `
CREATE TABLE IF NOT EXISTS mood_stats (
	identity     TEXT    NOT NULL,
	date         TEXT    NOT NULL,
	total_offset INTEGER NOT NULL DEFAULT 0,
	count        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (identity, date)
);
CREATE INDEX IF NOT EXISTS idx_mood_stats_date ON mood_stats (date);
CREATE TABLE IF NOT EXISTS search_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	identity     TEXT    NOT NULL,
	city         TEXT    NOT NULL DEFAULT '',
	weather      TEXT    NOT NULL,
	temperature  REAL    NOT NULL,
	local_hour   INTEGER NOT NULL,
	base_mood    INTEGER NOT NULL,
	learned_bias INTEGER NOT NULL,
	user_offset  INTEGER NOT NULL,
	final_mood   INTEGER NOT NULL,
	created_at   TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a SQLite-backed feedback repository and search log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection: writes serialize and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Increment atomically adds one offset to a day's record.
func (s *Store) Increment(ctx context.Context, identity, date string, offset int) (learning.Record, error) {
	rec := learning.Record{Identity: identity, Date: date}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mood_stats (identity, date, total_offset, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (identity, date) DO UPDATE SET
			total_offset = total_offset + excluded.total_offset,
			count = count + 1
		RETURNING total_offset, count
	`, identity, date, offset).Scan(&rec.TotalOffset, &rec.Count)
	if err != nil {
		return learning.Record{}, fmt.Errorf("upserting mood stats: %w", err)
	}
	return rec, nil
}

// Get retrieves a day's record. A missing row is a zero-count record.
func (s *Store) Get(ctx context.Context, identity, date string) (learning.Record, error) {
	rec := learning.Record{Identity: identity, Date: date}
	err := s.db.QueryRowContext(ctx,
		"SELECT total_offset, count FROM mood_stats WHERE identity = ? AND date = ?",
		identity, date,
	).Scan(&rec.TotalOffset, &rec.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return learning.Record{}, fmt.Errorf("querying mood stats: %w", err)
	}
	return rec, nil
}

// History retrieves an identity's records since a date, most recent first.
func (s *Store) History(ctx context.Context, identity, since string) ([]learning.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_offset, count
		FROM mood_stats
		WHERE identity = ? AND date >= ?
		ORDER BY date DESC
	`, identity, since)
	if err != nil {
		return nil, fmt.Errorf("querying mood history: %w", err)
	}
	defer rows.Close()

	var records []learning.Record
	for rows.Next() {
		rec := learning.Record{Identity: identity}
		if err := rows.Scan(&rec.Date, &rec.TotalOffset, &rec.Count); err != nil {
			return nil, fmt.Errorf("scanning mood stats: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteBefore removes records dated strictly before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM mood_stats WHERE date < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old mood stats: %w", err)
	}
	return res.RowsAffected()
}

// DeleteForIdentity removes every record of an identity.
func (s *Store) DeleteForIdentity(ctx context.Context, identity string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM mood_stats WHERE identity = ?", identity)
	if err != nil {
		return 0, fmt.Errorf("deleting mood stats: %w", err)
	}
	return res.RowsAffected()
}

// Log appends one search to the history.
func (s *Store) Log(ctx context.Context, srch learning.Search) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (identity, city, weather, temperature, local_hour,
			base_mood, learned_bias, user_offset, final_mood)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, srch.Identity, srch.City, srch.Weather, srch.TemperatureCelsius, srch.LocalHour,
		srch.BaseMood, srch.LearnedBias, srch.UserOffset, srch.FinalMood)
	if err != nil {
		return fmt.Errorf("inserting search: %w", err)
	}
	return nil
}

// searchCount returns how many searches an identity has made.
func (s *Store) searchCount(ctx context.Context, identity string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_history WHERE identity = ?", identity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting searches: %w", err)
	}
	return n, nil
}

var (
	_ learning.Repository = (*Store)(nil)
	_ learning.SearchLog  = (*Store)(nil)
)
