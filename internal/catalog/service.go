package catalog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/justestif/go-weather-mood/internal/metrics"
)

// ResultCache caches catalog results per condition and mood score.
type ResultCache interface {
	Get(ctx context.Context, weather string, mood int, dst any) (bool, error)
	Set(ctx context.Context, weather string, mood int, v any) error
}

// Service answers catalog requests from the cache, then the primary
// catalog, then the static fallback. It always returns tracks.
type Service struct {
	primary  Catalog
	fallback Catalog
	cache    ResultCache
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPrimary sets the primary catalog (typically Spotify).
func WithPrimary(c Catalog) Option {
	return func(s *Service) {
		s.primary = c
	}
}

// WithCache sets the result cache.
func WithCache(c ResultCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a catalog service that falls back to the given catalog.
func NewService(fallback Catalog, opts ...Option) *Service {
	s := &Service{
		fallback: fallback,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasPrimary reports whether a primary catalog is configured.
func (s *Service) HasPrimary() bool {
	return s.primary != nil
}

// Recommend returns tracks for the request. Only primary results are cached.
func (s *Service) Recommend(ctx context.Context, req Request) Result {
	limit := req.normalizedLimit()
	weather := string(req.Condition)

	if s.primary != nil {
		if s.cache != nil {
			var cached []Track
			ok, err := s.cache.Get(ctx, weather, req.MoodScore, &cached)
			if err != nil {
				s.logger.Warn().Err(err).Msg("catalog cache read failed")
			} else if ok && len(cached) >= limit {
				return Result{Tracks: cached[:limit], Source: SourceCache}
			}
		}

		tracks, err := s.primary.Recommend(ctx, req)
		if err == nil && len(tracks) > 0 {
			if s.cache != nil {
				if err := s.cache.Set(ctx, weather, req.MoodScore, tracks); err != nil {
					s.logger.Warn().Err(err).Msg("catalog cache write failed")
				}
			}
			return Result{Tracks: tracks, Source: SourceSpotify}
		}
		s.logger.Warn().Err(err).Str("weather", weather).Int("mood", req.MoodScore).
			Msg("primary catalog failed, using static catalog")
		metrics.RecordProviderFallback(spotifyProvider)
	}

	tracks, err := s.fallback.Recommend(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("static catalog failed")
		tracks = []Track{}
	}
	return Result{Tracks: tracks, Source: SourceStatic}
}
