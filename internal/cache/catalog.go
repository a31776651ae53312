package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/justestif/go-weather-mood/internal/metrics"
)

// CatalogCache caches catalog results as JSON under spotify:{weather}:{mood}.
type CatalogCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCatalogCache creates a catalog cache on the given client.
func NewCatalogCache(client redis.UniversalClient, opts ...Option) *CatalogCache {
	o := buildOptions(opts)
	return &CatalogCache{client: client, ttl: o.ttl}
}

func catalogKey(weather string, mood int) string {
	return "spotify:" + weather + ":" + strconv.Itoa(mood)
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *CatalogCache) Get(ctx context.Context, weather string, mood int, dst any) (bool, error) {
	data, err := c.client.Get(ctx, catalogKey(weather, mood)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("catalog", false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting cached catalog: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheLookup("catalog", false)
		return false, nil
	}
	metrics.RecordCacheLookup("catalog", true)
	return true, nil
}

// Set encodes v and stores it with the cache TTL.
func (c *CatalogCache) Set(ctx context.Context, weather string, mood int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey(weather, mood), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching catalog: %w", err)
	}
	return nil
}
