package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-weather-mood/internal/learning"
)

// SearchRepository handles search_history database operations.
type SearchRepository struct {
	pool *pgxpool.Pool
}

// Log appends one search to the history.
func (r *SearchRepository) Log(ctx context.Context, s learning.Search) error {
	query := `
		INSERT INTO search_history (identity, city, weather, temperature, local_hour,
			base_mood, learned_bias, user_offset, final_mood)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		s.Identity,
		s.City,
		s.Weather,
		s.TemperatureCelsius,
		s.LocalHour,
		s.BaseMood,
		s.LearnedBias,
		s.UserOffset,
		s.FinalMood,
	)
	if err != nil {
		return fmt.Errorf("inserting search: %w", err)
	}
	return nil
}

var _ learning.SearchLog = (*SearchRepository)(nil)
