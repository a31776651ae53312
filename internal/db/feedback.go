package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-weather-mood/internal/learning"
)

// FeedbackRepository handles mood_stats database operations.
type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func parseDate(date string) (time.Time, error) {
	d, err := time.Parse(learning.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	return d, nil
}

// Increment atomically adds one offset to a day's record.
func (r *FeedbackRepository) Increment(ctx context.Context, identity, date string, offset int) (learning.Record, error) {
	d, err := parseDate(date)
	if err != nil {
		return learning.Record{}, err
	}

	query := `
		INSERT INTO mood_stats (identity, date, total_offset, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (identity, date) DO UPDATE SET
			total_offset = mood_stats.total_offset + EXCLUDED.total_offset,
			count = mood_stats.count + 1
		RETURNING total_offset, count
	`
	rec := learning.Record{Identity: identity, Date: date}
	if err := r.pool.QueryRow(ctx, query, identity, d, offset).Scan(&rec.TotalOffset, &rec.Count); err != nil {
		return learning.Record{}, fmt.Errorf("upserting mood stats: %w", err)
	}
	return rec, nil
}

// Get retrieves a day's record. A missing row is a zero-count record.
func (r *FeedbackRepository) Get(ctx context.Context, identity, date string) (learning.Record, error) {
	d, err := parseDate(date)
	if err != nil {
		return learning.Record{}, err
	}

	query := `
		SELECT total_offset, count
		FROM mood_stats
		WHERE identity = $1 AND date = $2
	`
	rec := learning.Record{Identity: identity, Date: date}
	err = r.pool.QueryRow(ctx, query, identity, d).Scan(&rec.TotalOffset, &rec.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return learning.Record{}, fmt.Errorf("querying mood stats: %w", err)
	}
	return rec, nil
}

// History retrieves an identity's records since a date, most recent first.
func (r *FeedbackRepository) History(ctx context.Context, identity, since string) ([]learning.Record, error) {
	d, err := parseDate(since)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT date, total_offset, count
		FROM mood_stats
		WHERE identity = $1 AND date >= $2
		ORDER BY date DESC
	`
	rows, err := r.pool.Query(ctx, query, identity, d)
	if err != nil {
		return nil, fmt.Errorf("querying mood history: %w", err)
	}
	defer rows.Close()

	var records []learning.Record
	for rows.Next() {
		var (
			day time.Time
			rec = learning.Record{Identity: identity}
		)
		if err := rows.Scan(&day, &rec.TotalOffset, &rec.Count); err != nil {
			return nil, fmt.Errorf("scanning mood stats: %w", err)
		}
		rec.Date = day.Format(learning.DateLayout)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteBefore removes records dated strictly before cutoff.
func (r *FeedbackRepository) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	d, err := parseDate(cutoff)
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM mood_stats WHERE date < $1`, d)
	if err != nil {
		return 0, fmt.Errorf("deleting old mood stats: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteForIdentity removes every record of an identity.
func (r *FeedbackRepository) DeleteForIdentity(ctx context.Context, identity string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM mood_stats WHERE identity = $1`, identity)
	if err != nil {
		return 0, fmt.Errorf("deleting mood stats: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ learning.Repository = (*FeedbackRepository)(nil)
