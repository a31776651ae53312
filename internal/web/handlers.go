package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/justestif/go-weather-mood/internal/catalog"
	"github.com/justestif/go-weather-mood/internal/explain"
	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/logging"
	"github.com/justestif/go-weather-mood/internal/mood"
	"github.com/justestif/go-weather-mood/internal/purge"
	"github.com/justestif/go-weather-mood/internal/recommend"
)

const (
	defaultTemperature = 20.0
	maxHistoryDays     = 90
)

// Recommender runs the recommendation pipeline.
type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (recommend.Recommendation, error)
	Score(ctx context.Context, identity string, obs mood.Observation, manual int) (recommend.Mood, error)
}

// FeedbackStore records and summarizes mood feedback.
type FeedbackStore interface {
	Today() string
	RecordFeedback(ctx context.Context, identity, date string, offset int) error
	LearnedBias(ctx context.Context, identity, date string) int
	Reset(ctx context.Context, identity string) (int64, error)
	Suggest(ctx context.Context, identity string, baseMood, days int) learning.Suggestion
	Stats(ctx context.Context, identity string, days int) (learning.Trend, error)
	TodayRecord(ctx context.Context, identity string) (learning.Record, error)
}

// Purger runs an on-demand retention purge.
type Purger interface {
	Run(ctx context.Context, force bool) (purge.Result, error)
}

// Explainer writes explanations on demand.
type Explainer interface {
	Explain(ctx context.Context, req explain.Request) explain.Explanation
}

// Components reports which collaborators are configured.
type Components struct {
	Storage string `json:"storage"`
	Cache   bool   `json:"cache"`
	Weather bool   `json:"weather"`
	Spotify bool   `json:"spotify"`
	AI      bool   `json:"ai"`
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	recommender Recommender
	feedback    FeedbackStore
	explainer   Explainer
	components  Components
	purger      Purger
	now         func() time.Time
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithPurger enables POST /api/admin/purge.
func WithPurger(p Purger) HandlerOption {
	return func(h *Handlers) {
		h.purger = p
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rec Recommender, feedback FeedbackStore, exp Explainer, components Components, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		recommender: rec,
		feedback:    feedback,
		explainer:   exp,
		components:  components,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Components
}

// Health reports liveness and configured collaborators (GET /api/health).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Time:       h.now().UTC().Format(time.RFC3339),
		Components: h.components,
	})
}

// observationFromQuery reads weather, temp and hour. Missing temp and hour
// default to 20°C and the current UTC hour.
func (h *Handlers) observationFromQuery(r *http.Request) (mood.Observation, error) {
	temp, err := queryFloat(r, "temp", defaultTemperature)
	if err != nil {
		return mood.Observation{}, err
	}
	hour, err := queryInt(r, "hour", h.now().UTC().Hour())
	if err != nil {
		return mood.Observation{}, err
	}
	return mood.Observation{
		Condition:          mood.ParseCondition(r.URL.Query().Get("weather")),
		TemperatureCelsius: temp,
		LocalHour:          hour,
	}, nil
}

// Recommendations runs the full pipeline (GET /api/recommendations).
// Either city or weather is required; city takes precedence.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := q.Get("city")
	if city == "" && q.Get("weather") == "" {
		writeError(w, http.StatusBadRequest, "city or weather is required")
		return
	}

	obs, err := h.observationFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", catalog.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.recommender.Recommend(r.Context(), recommend.Query{
		Identity:     logging.IdentityFromContext(r.Context()),
		City:         city,
		Observation:  obs,
		ManualOffset: offset,
		Limit:        limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type moodResponse struct {
	recommend.Mood
	LegacyScore      int               `json:"legacyMoodScore"`
	ConditionProfile mood.AudioProfile `json:"conditionProfile"`
	BucketProfile    mood.AudioProfile `json:"bucketProfile"`
}

// Mood scores an observation without selecting tracks (GET /api/mood).
func (h *Handlers) Mood(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("weather") == "" {
		writeError(w, http.StatusBadRequest, "weather is required")
		return
	}
	obs, err := h.observationFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.recommender.Score(r.Context(), logging.IdentityFromContext(r.Context()), obs, 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moodResponse{
		Mood:             m,
		LegacyScore:      mood.LegacyBaseMoodScore(obs),
		ConditionProfile: mood.ProfileFromCondition(obs.Condition),
		BucketProfile:    mood.ProfileFromBucket(m.FinalScore),
	})
}

type feedbackRequest struct {
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Offset *int   `json:"offset" validate:"required,gte=-20,lte=20"`
}

type feedbackResponse struct {
	Success     bool   `json:"success"`
	Identity    string `json:"identity"`
	Date        string `json:"date"`
	Offset      int    `json:"offset"`
	LearnedBias int    `json:"learnedBias"`
}

// RecordFeedback stores one explicit adjustment (POST /api/feedback).
// The date defaults to today.
func (h *Handlers) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := logging.IdentityFromContext(r.Context())
	date := req.Date
	if date == "" {
		date = h.feedback.Today()
	}

	if err := h.feedback.RecordFeedback(r.Context(), id, date, *req.Offset); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, feedbackResponse{
		Success:     true,
		Identity:    id,
		Date:        date,
		Offset:      *req.Offset,
		LearnedBias: h.feedback.LearnedBias(r.Context(), id, date),
	})
}

type resetResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

// ResetFeedback deletes all feedback of the caller (DELETE /api/feedback).
func (h *Handlers) ResetFeedback(w http.ResponseWriter, r *http.Request) {
	n, err := h.feedback.Reset(r.Context(), logging.IdentityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Success: true, Deleted: n})
}

// Suggestion returns an adjustment suggestion (GET /api/suggestion).
func (h *Handlers) Suggestion(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("baseMood") == "" {
		writeError(w, http.StatusBadRequest, "baseMood is required")
		return
	}
	base, err := queryInt(r, "baseMood", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if base < 0 || base > 100 {
		writeError(w, http.StatusBadRequest, "baseMood must be between 0 and 100")
		return
	}
	days, err := h.days(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := h.feedback.Suggest(r.Context(), logging.IdentityFromContext(r.Context()), base, days)
	writeJSON(w, http.StatusOK, s)
}

type statsResponse struct {
	learning.Trend
	Today learning.DailyStat `json:"today"`
}

// Stats returns the feedback trend of the caller and today's record (GET /api/stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	days, err := h.days(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := logging.IdentityFromContext(r.Context())
	t, err := h.feedback.Stats(r.Context(), id, days)
	if err != nil {
		storageUnavailable(w, r, err)
		return
	}
	today, err := h.feedback.TodayRecord(r.Context(), id)
	if err != nil {
		storageUnavailable(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Trend: t,
		Today: learning.DailyStat{
			Date:        h.feedback.Today(),
			TotalOffset: today.TotalOffset,
			Count:       today.Count,
			Average:     today.Bias(),
		},
	})
}

func storageUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Msg("loading feedback stats")
	writeError(w, http.StatusServiceUnavailable, "feedback storage unavailable")
}

func (h *Handlers) days(r *http.Request) (int, error) {
	days, err := queryInt(r, "days", learning.DefaultHistoryDays)
	if err != nil {
		return 0, err
	}
	if days < 1 || days > maxHistoryDays {
		return 0, badRequest("days must be between 1 and 90")
	}
	return days, nil
}

type explainRequest struct {
	City        string  `json:"city"`
	Weather     string  `json:"weather" validate:"required"`
	Temperature float64 `json:"temp" validate:"gte=-100,lte=100"`
	Vibe        string  `json:"vibe" validate:"omitempty,oneof=energetic chill melancholic lofi"`
}

// Explain writes an explanation for a weather and vibe (POST /api/explain).
// Without a vibe the one matching the current mood score is used.
func (h *Handlers) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cond := mood.ParseCondition(req.Weather)
	vibe := req.Vibe
	if vibe == "" {
		obs := mood.Observation{Condition: cond, TemperatureCelsius: req.Temperature, LocalHour: h.now().UTC().Hour()}
		vibe = string(mood.CategoryFor(mood.BaseMoodScore(obs)))
	}

	writeJSON(w, http.StatusOK, h.explainer.Explain(r.Context(), explain.Request{
		City:               req.City,
		Condition:          cond,
		TemperatureCelsius: req.Temperature,
		Vibe:               vibe,
	}))
}

type purgeResponse struct {
	Deleted  int64  `json:"deleted"`
	PurgedAt string `json:"purgedAt"`
}

// Purge deletes expired feedback unless a purge ran within the cooldown.
func (h *Handlers) Purge(w http.ResponseWriter, r *http.Request) {
	if h.purger == nil {
		writeError(w, http.StatusServiceUnavailable, "purge not configured")
		return
	}

	res, err := h.purger.Run(r.Context(), false)
	switch {
	case errors.Is(err, purge.ErrPurgeTooRecent):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("purging feedback")
		writeError(w, http.StatusServiceUnavailable, "feedback storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, purgeResponse{
		Deleted:  res.Deleted,
		PurgedAt: res.PurgedAt.UTC().Format(time.RFC3339),
	})
}
