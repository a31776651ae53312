package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/go-weather-mood/internal/metrics"
)

// DefaultHistoryDays is the default history window in days.
const DefaultHistoryDays = 7

// DefaultRetentionDays is how long feedback records are kept.
const DefaultRetentionDays = 30

// Store is the bias store: a durable repository fronted by an optional cache.
type Store struct {
	repo   Repository
	cache  BiasCache
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCache sets the bias cache.
func WithCache(c BiasCache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithLogger sets the logger used for degraded reads and cache failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the clock used to derive "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a bias store over the given repository.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current UTC date.
func (s *Store) Today() string {
	return Day(s.now())
}

// RecordFeedback appends one offset to the (identity, date) record.
// Persistence failures are returned wrapped in ErrWriteFailed.
func (s *Store) RecordFeedback(ctx context.Context, identity, date string, offset int) error {
	if err := ValidateFeedback(identity, date, offset); err != nil {
		return err
	}

	rec, err := s.repo.Increment(ctx, identity, date, offset)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	metrics.FeedbackRecorded.Inc()

	s.invalidateCache(ctx, rec)

	s.logger.Debug().
		Str("identity", identity).
		Str("date", date).
		Int("offset", offset).
		Int("count", rec.Count).
		Msg("mood feedback recorded")
	return nil
}

// invalidateCache drops the cached bias of a record just written. The next
// LearnedBias call reloads it from the repository, so concurrent writes
// cannot leave an older bias behind.
func (s *Store) invalidateCache(ctx context.Context, rec Record) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBias(ctx, rec.Identity, rec.Date); err != nil {
		s.logger.Warn().Err(err).Str("identity", rec.Identity).Msg("bias cache invalidation failed")
	}
}

// LearnedBias returns the learned bias for (identity, date).
// It never fails: an unreachable store yields 0.
func (s *Store) LearnedBias(ctx context.Context, identity, date string) int {
	if s.cache != nil {
		bias, ok, err := s.cache.GetBias(ctx, identity, date)
		if err != nil {
			s.logger.Warn().Err(err).Msg("bias cache read failed")
		} else if ok {
			return bias
		}
	}

	rec, err := s.repo.Get(ctx, identity, date)
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", identity).Msg("bias store unavailable, using 0")
		return 0
	}

	bias := rec.Bias()
	if s.cache != nil {
		if err := s.cache.SetBias(ctx, identity, date, bias); err != nil {
			s.logger.Warn().Err(err).Msg("bias cache write failed")
		}
	}
	return bias
}

// TodayRecord returns the identity's accumulated feedback for today.
func (s *Store) TodayRecord(ctx context.Context, identity string) (Record, error) {
	return s.record(ctx, identity, s.Today())
}

func (s *Store) record(ctx context.Context, identity, date string) (Record, error) {
	rec, err := s.repo.Get(ctx, identity, date)
	if err != nil {
		return Record{}, fmt.Errorf("getting feedback record: %w", err)
	}
	return rec, nil
}

// PurgeOlderThan deletes records dated more than days before today.
// A record exactly days old is kept.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		days = 0
	}
	cutoff := Day(s.now().UTC().AddDate(0, 0, -days))
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging feedback before %s: %w", cutoff, err)
	}
	return n, nil
}

// History returns the last days calendar days of feedback (today inclusive),
// most recent first. Days without feedback are omitted.
func (s *Store) History(ctx context.Context, identity string, days int) ([]DailyStat, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	since := Day(s.now().UTC().AddDate(0, 0, -(days - 1)))

	records, err := s.repo.History(ctx, identity, since)
	if err != nil {
		return nil, fmt.Errorf("getting feedback history: %w", err)
	}

	stats := make([]DailyStat, len(records))
	for i, r := range records {
		stats[i] = statFromRecord(r)
	}
	return stats, nil
}

// Reset deletes every record of an identity and evicts its cached biases.
func (s *Store) Reset(ctx context.Context, identity string) (int64, error) {
	n, err := s.repo.DeleteForIdentity(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if s.cache != nil {
		if err := s.cache.DeleteIdentity(ctx, identity); err != nil {
			s.logger.Warn().Err(err).Str("identity", identity).Msg("bias cache eviction failed")
		}
	}
	return n, nil
}

// Suggest builds an adjustment suggestion from the identity's history.
// History failures degrade to the low-confidence suggestion.
func (s *Store) Suggest(ctx context.Context, identity string, baseMood, days int) Suggestion {
	if days < DefaultHistoryDays {
		days = DefaultHistoryDays
	}
	history, err := s.History(ctx, identity, days)
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", identity).Msg("history unavailable for suggestion")
		history = nil
	}
	return Suggest(baseMood, s.Today(), history)
}

// Stats summarizes the trend of the last days of feedback.
func (s *Store) Stats(ctx context.Context, identity string, days int) (Trend, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	history, err := s.History(ctx, identity, days)
	if err != nil {
		return Trend{}, err
	}
	return TrendSummary(history, s.Today(), days), nil
}
