// Package purge deletes expired mood feedback on a schedule.
package purge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/metrics"
)

// Common errors.
var (
	// ErrPurgeTooRecent is returned when a purge is attempted within the cooldown period.
	ErrPurgeTooRecent = errors.New("purge attempted too recently")
)

const (
	// DefaultInterval is the default time between scheduled purges.
	DefaultInterval = 24 * time.Hour

	// DefaultCooldown is the minimum time between two purges.
	DefaultCooldown = time.Minute
)

// Purger deletes feedback older than a number of days.
type Purger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// Service runs retention purges.
type Service struct {
	purger        Purger
	retentionDays int
	interval      time.Duration
	cooldown      time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithInterval sets the time between scheduled purges.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCooldown sets the minimum time between purges.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.cooldown = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a purge service keeping retentionDays of feedback.
func New(purger Purger, retentionDays int, opts ...Option) *Service {
	if retentionDays <= 0 {
		retentionDays = learning.DefaultRetentionDays
	}
	s := &Service{
		purger:        purger,
		retentionDays: retentionDays,
		interval:      DefaultInterval,
		cooldown:      DefaultCooldown,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result contains the result of a purge.
type Result struct {
	Deleted  int64
	PurgedAt time.Time
}

// Run purges once. Returns ErrPurgeTooRecent if called within the cooldown
// period; force bypasses the check.
func (s *Service) Run(ctx context.Context, force bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !force && !s.lastRun.IsZero() {
		next := s.lastRun.Add(s.cooldown)
		if now.Before(next) {
			return Result{}, fmt.Errorf("%w: next purge available at %s", ErrPurgeTooRecent, next.Format(time.RFC3339))
		}
	}

	n, err := s.purger.PurgeOlderThan(ctx, s.retentionDays)
	if err != nil {
		return Result{}, err
	}
	s.lastRun = now
	metrics.FeedbackPurged.Add(float64(n))

	s.logger.Info().
		Int64("deleted", n).
		Int("retention_days", s.retentionDays).
		Msg("expired mood feedback purged")
	return Result{Deleted: n, PurgedAt: now}, nil
}

// Serve purges on start and then every interval until ctx is cancelled.
// It satisfies suture.Service. Failed purges are logged and retried on the
// next tick.
func (s *Service) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, true); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("scheduled purge failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) String() string {
	return "feedback-purge"
}
