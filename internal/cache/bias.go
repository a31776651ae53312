package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/metrics"
)

const biasPrefix = "mood:bias:"

// BiasCache caches learned biases under mood:bias:{identity}:{date}.
type BiasCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewBiasCache creates a bias cache on the given client.
func NewBiasCache(client redis.UniversalClient, opts ...Option) *BiasCache {
	o := buildOptions(opts)
	return &BiasCache{client: client, ttl: o.ttl}
}

func biasKey(identity, date string) string {
	return biasPrefix + identity + ":" + date
}

// GetBias returns the cached bias and whether it was present.
func (c *BiasCache) GetBias(ctx context.Context, identity, date string) (int, bool, error) {
	val, err := c.client.Get(ctx, biasKey(identity, date)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("bias", false)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting cached bias: %w", err)
	}

	bias, err := strconv.Atoi(val)
	if err != nil {
		// Unreadable entries are treated as misses.
		metrics.RecordCacheLookup("bias", false)
		return 0, false, nil
	}
	metrics.RecordCacheLookup("bias", true)
	return bias, true, nil
}

// SetBias stores a bias with the cache TTL.
func (c *BiasCache) SetBias(ctx context.Context, identity, date string, bias int) error {
	if err := c.client.Set(ctx, biasKey(identity, date), bias, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching bias: %w", err)
	}
	return nil
}

// DeleteBias evicts one entry.
func (c *BiasCache) DeleteBias(ctx context.Context, identity, date string) error {
	if err := c.client.Del(ctx, biasKey(identity, date)).Err(); err != nil {
		return fmt.Errorf("evicting cached bias: %w", err)
	}
	return nil
}

// DeleteIdentity evicts every cached bias for an identity.
func (c *BiasCache) DeleteIdentity(ctx context.Context, identity string) error {
	// Anchored on the date so "u1" does not match keys of "u1:abc".
	pattern := biasPrefix + escapeGlob(identity) + ":????-??-??"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cached biases: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("evicting cached biases: %w", err)
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var _ learning.BiasCache = (*BiasCache)(nil)
