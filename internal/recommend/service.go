// Package recommend ties the pipeline together: weather, mood scoring with the
// learned bias, catalog selection, explanation and search logging.
package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/go-weather-mood/internal/catalog"
	"github.com/justestif/go-weather-mood/internal/explain"
	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/metrics"
	"github.com/justestif/go-weather-mood/internal/mood"
	"github.com/justestif/go-weather-mood/internal/weather"
)

// WeatherSource returns current weather for a city, degrading to a neutral report.
type WeatherSource interface {
	Observe(ctx context.Context, city string) weather.Report
}

// TrackSource returns tracks for a request. It always answers.
type TrackSource interface {
	Recommend(ctx context.Context, req catalog.Request) catalog.Result
}

// Explainer explains a selection. It always answers.
type Explainer interface {
	Explain(ctx context.Context, req explain.Request) explain.Explanation
}

// BiasSource supplies the learned bias for an identity.
type BiasSource interface {
	LearnedBias(ctx context.Context, identity, date string) int
	Today() string
}

// Query is one recommendation request. When City is set the observation is
// looked up; otherwise Observation is used as given.
type Query struct {
	Identity     string
	City         string
	Observation  mood.Observation
	ManualOffset int
	Limit        int
}

// Mood is the scoring breakdown of a request.
type Mood struct {
	BaseScore    int               `json:"baseMoodScore"`
	LearnedBias  int               `json:"learnedBias"`
	ManualOffset int               `json:"userOffset"`
	FinalScore   int               `json:"moodScore"`
	Category     mood.Category     `json:"category"`
	Label        string            `json:"label"`
	Color        string            `json:"color"`
	Profile      mood.AudioProfile `json:"audioProfile"`
}

// Recommendation is the full pipeline output.
type Recommendation struct {
	Weather     weather.Report      `json:"weather"`
	Mood        Mood                `json:"mood"`
	Tracks      []catalog.Track     `json:"tracks"`
	TrackSource catalog.Source      `json:"trackSource"`
	Explanation explain.Explanation `json:"explanation"`
}

// Service runs the recommendation pipeline.
type Service struct {
	weather   WeatherSource
	tracks    TrackSource
	explainer Explainer
	bias      BiasSource
	searches  learning.SearchLog
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSearchLog enables best-effort search logging.
func WithSearchLog(l learning.SearchLog) Option {
	return func(s *Service) {
		s.searches = l
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a recommendation service.
func New(w WeatherSource, t TrackSource, e Explainer, b BiasSource, opts ...Option) *Service {
	s := &Service{
		weather:   w,
		tracks:    t,
		explainer: e,
		bias:      b,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the mood breakdown for an observation and identity.
// The observation must be valid.
func (s *Service) Score(ctx context.Context, identity string, obs mood.Observation, manual int) (Mood, error) {
	if err := obs.Validate(); err != nil {
		return Mood{}, err
	}

	bias := 0
	if identity != "" {
		bias = s.bias.LearnedBias(ctx, identity, s.bias.Today())
	}
	return breakdown(obs, bias, manual), nil
}

func breakdown(obs mood.Observation, bias, manual int) Mood {
	r := mood.Evaluate(obs, bias, manual)
	return Mood{
		BaseScore:    r.BaseScore,
		LearnedBias:  bias,
		ManualOffset: clampOffset(manual),
		FinalScore:   r.FinalScore,
		Category:     r.Category,
		Label:        r.Category.Label(),
		Color:        r.Category.Color(),
		Profile:      r.Profile,
	}
}

func clampOffset(v int) int {
	return min(max(v, -mood.MaxManualOffset), mood.MaxManualOffset)
}

// Recommend runs the full pipeline. Only invalid input is an error: every
// external failure degrades to a fallback.
func (s *Service) Recommend(ctx context.Context, q Query) (Recommendation, error) {
	report := weather.Report{Observation: q.Observation}
	if q.City != "" {
		report = s.weather.Observe(ctx, q.City)
	}

	m, err := s.Score(ctx, q.Identity, report.Observation, q.ManualOffset)
	if err != nil {
		return Recommendation{}, err
	}
	metrics.MoodScores.Observe(float64(m.FinalScore))

	result := s.tracks.Recommend(ctx, catalog.Request{
		Condition: report.Condition,
		MoodScore: m.FinalScore,
		Profile:   m.Profile,
		Limit:     q.Limit,
	})

	exp := s.explainer.Explain(ctx, explain.Request{
		City:               report.City,
		Condition:          report.Condition,
		TemperatureCelsius: report.TemperatureCelsius,
		Vibe:               string(m.Category),
		Tracks:             result.Tracks,
	})

	s.logSearch(q, report, m)

	return Recommendation{
		Weather:     report,
		Mood:        m,
		Tracks:      result.Tracks,
		TrackSource: result.Source,
		Explanation: exp,
	}, nil
}

// logSearch records the search without blocking or failing the request.
func (s *Service) logSearch(q Query, report weather.Report, m Mood) {
	if s.searches == nil || q.Identity == "" {
		return
	}
	entry := learning.Search{
		Identity:           q.Identity,
		City:               report.City,
		Weather:            string(report.Condition),
		TemperatureCelsius: report.TemperatureCelsius,
		LocalHour:          report.LocalHour,
		BaseMood:           m.BaseScore,
		LearnedBias:        m.LearnedBias,
		UserOffset:         m.ManualOffset,
		FinalMood:          m.FinalScore,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.searches.Log(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("identity", q.Identity).Msg("search logging failed")
	}
}
