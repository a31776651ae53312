package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/justestif/go-weather-mood/internal/cache"
	"github.com/justestif/go-weather-mood/internal/config"
	"github.com/justestif/go-weather-mood/internal/db"
	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/logging"
	"github.com/justestif/go-weather-mood/internal/sqlite"
)

// storage is the opened durable store for the configured driver.
type storage struct {
	driver   string
	repo     learning.Repository
	searches learning.SearchLog
	close    func()
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	driver := cfg.ResolvedDriver()

	switch driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return &storage{
			driver:   driver,
			repo:     database.Feedback(),
			searches: database.Searches(),
			close:    database.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return &storage{
			driver:   driver,
			repo:     store,
			searches: store,
			close: func() {
				if err := store.Close(); err != nil {
					logging.Warn().Err(err).Msg("closing sqlite store")
				}
			},
		}, nil

	default:
		logging.Warn().Msg("no durable storage configured, feedback is kept in memory")
		return &storage{
			driver: config.DriverMemory,
			repo:   learning.NewMemoryRepository(),
			close:  func() {},
		}, nil
	}
}

// connectRedis returns nil when caching is disabled or Redis is unreachable.
// The cache is advisory, so the service starts without it.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	client, err := cache.Connect(ctx, url)
	if err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, caching disabled")
		return nil
	}
	return client
}
