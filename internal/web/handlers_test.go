package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/justestif/go-weather-mood/internal/explain"
	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/mood"
	"github.com/justestif/go-weather-mood/internal/purge"
	"github.com/justestif/go-weather-mood/internal/recommend"
)

var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

// stubRecommender records the last query and scores without a learned bias.
type stubRecommender struct {
	lastQuery recommend.Query
	err       error
}

func (s *stubRecommender) Recommend(_ context.Context, q recommend.Query) (recommend.Recommendation, error) {
	s.lastQuery = q
	if s.err != nil {
		return recommend.Recommendation{}, s.err
	}
	if err := q.Observation.Validate(); q.City == "" && err != nil {
		return recommend.Recommendation{}, err
	}
	return recommend.Recommendation{Mood: recommend.Mood{FinalScore: 50}}, nil
}

func (s *stubRecommender) Score(_ context.Context, _ string, obs mood.Observation, manual int) (recommend.Mood, error) {
	if err := obs.Validate(); err != nil {
		return recommend.Mood{}, err
	}
	r := mood.Evaluate(obs, 0, manual)
	return recommend.Mood{BaseScore: r.BaseScore, FinalScore: r.FinalScore, Category: r.Category}, nil
}

// brokenRepo fails every call.
type brokenRepo struct{}

var errBroken = errors.New("database is down")

func (brokenRepo) Increment(context.Context, string, string, int) (learning.Record, error) {
	return learning.Record{}, errBroken
}
func (brokenRepo) Get(context.Context, string, string) (learning.Record, error) {
	return learning.Record{}, errBroken
}
func (brokenRepo) History(context.Context, string, string) ([]learning.Record, error) {
	return nil, errBroken
}
func (brokenRepo) DeleteBefore(context.Context, string) (int64, error)      { return 0, errBroken }
func (brokenRepo) DeleteForIdentity(context.Context, string) (int64, error) { return 0, errBroken }

type testEnv struct {
	handler http.Handler
	rec     *stubRecommender
	store   *learning.Store
}

func newTestEnv(t *testing.T, repo learning.Repository, opts ...func(*learning.Store) HandlerOption) *testEnv {
	t.Helper()
	store := learning.NewStore(repo, learning.WithClock(func() time.Time { return fixedNow }))
	rec := &stubRecommender{}
	var hopts []HandlerOption
	for _, opt := range opts {
		hopts = append(hopts, opt(store))
	}
	h := NewHandlers(rec, store, explain.NewClient(""), Components{Storage: "memory"}, hopts...)
	h.now = func() time.Time { return fixedNow }
	return &testEnv{
		handler: NewServer(ServerConfig{}, h).Handler(),
		rec:     rec,
		store:   store,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rr.Body.String(), err)
	}
	return v
}

func asUser(id string) map[string]string {
	return map[string]string{userHeader: id}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	rr := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	got := decode[map[string]any](t, rr)
	if got["status"] != "ok" || got["storage"] != "memory" || got["ai"] != false {
		t.Errorf("unexpected health body: %v", got)
	}
}

func TestIdentity(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	t.Run("generated when absent", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/stats", "", nil)
		id := rr.Header().Get(sessionHeader)
		if id == "" {
			t.Fatal("expected a generated session id header")
		}
		if !strings.Contains(rr.Header().Get("Set-Cookie"), sessionCookieName+"="+id) {
			t.Errorf("cookie = %q, want session id %s", rr.Header().Get("Set-Cookie"), id)
		}
	})

	t.Run("user id preferred over session", func(t *testing.T) {
		env.do(t, http.MethodGet, "/api/recommendations?weather=Clear", "", map[string]string{
			userHeader:    "user-1",
			sessionHeader: "session-1",
		})
		if env.rec.lastQuery.Identity != "user-1" {
			t.Errorf("identity = %q, want user-1", env.rec.lastQuery.Identity)
		}
	})

	t.Run("cookie accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recommendations?weather=Clear", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-1"})
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		if env.rec.lastQuery.Identity != "cookie-1" {
			t.Errorf("identity = %q, want cookie-1", env.rec.lastQuery.Identity)
		}
		if rr.Header().Get(sessionHeader) != "" {
			t.Error("existing session should not be replaced")
		}
	})
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, q recommend.Query)
	}{
		{
			name:       "missing city and weather",
			target:     "/api/recommendations",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad temperature",
			target:     "/api/recommendations?weather=Rain&temp=warm",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "hour out of range",
			target:     "/api/recommendations?weather=Rain&hour=24",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "defaults",
			target:     "/api/recommendations?weather=rain",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q recommend.Query) {
				want := mood.Observation{Condition: mood.Rain, TemperatureCelsius: 20, LocalHour: 10}
				if q.Observation != want {
					t.Errorf("observation = %+v, want %+v", q.Observation, want)
				}
				if q.Limit != 10 || q.ManualOffset != 0 {
					t.Errorf("limit/offset = %d/%d, want 10/0", q.Limit, q.ManualOffset)
				}
			},
		},
		{
			name:       "city with offset and limit",
			target:     "/api/recommendations?city=Berlin&offset=-5&limit=3",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q recommend.Query) {
				if q.City != "Berlin" || q.ManualOffset != -5 || q.Limit != 3 {
					t.Errorf("query = %+v", q)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, learning.NewMemoryRepository())
			rr := env.do(t, http.MethodGet, tt.target, "", asUser("u"))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.check != nil {
				tt.check(t, env.rec.lastQuery)
			}
		})
	}
}

func TestMood(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	rr := env.do(t, http.MethodGet, "/api/mood?weather=Clear&temp=22&hour=12", "", asUser("u"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	obs := mood.Observation{Condition: mood.Clear, TemperatureCelsius: 22, LocalHour: 12}
	got := decode[map[string]any](t, rr)
	if got["moodScore"] != float64(mood.BaseMoodScore(obs)) {
		t.Errorf("moodScore = %v, want %d", got["moodScore"], mood.BaseMoodScore(obs))
	}
	if got["legacyMoodScore"] != float64(mood.LegacyBaseMoodScore(obs)) {
		t.Errorf("legacyMoodScore = %v, want %d", got["legacyMoodScore"], mood.LegacyBaseMoodScore(obs))
	}

	if rr := env.do(t, http.MethodGet, "/api/mood", "", asUser("u")); rr.Code != http.StatusBadRequest {
		t.Errorf("missing weather: status = %d, want 400", rr.Code)
	}
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	for _, offset := range []string{"10", "-4"} {
		rr := env.do(t, http.MethodPost, "/api/feedback", `{"offset":`+offset+`}`, asUser("alice"))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
		}
	}

	rr := env.do(t, http.MethodPost, "/api/feedback", `{"offset":0,"date":"2026-03-15"}`, asUser("alice"))
	got := decode[feedbackResponse](t, rr)
	if got.Date != "2026-03-15" || got.LearnedBias != 2 {
		t.Errorf("response = %+v, want date 2026-03-15 bias 2", got)
	}

	if bias := env.store.LearnedBias(context.Background(), "alice", "2026-03-15"); bias != 2 {
		t.Errorf("stored bias = %d, want 2", bias)
	}
}

func TestFeedback_BadRequests(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"offset":`,
		"missing offset": `{}`,
		"offset too big": `{"offset":21}`,
		"bad date":       `{"offset":1,"date":"15/03/2026"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, learning.NewMemoryRepository())
			rr := env.do(t, http.MethodPost, "/api/feedback", body, asUser("u"))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestFeedback_StorageDown(t *testing.T) {
	env := newTestEnv(t, brokenRepo{})

	rr := env.do(t, http.MethodPost, "/api/feedback", `{"offset":5}`, asUser("u"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("POST status = %d, want 503", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/api/feedback", "", asUser("u"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("DELETE status = %d, want 503", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/stats", "", asUser("u"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("stats status = %d, want 503", rr.Code)
	}

	// Suggestions degrade instead of failing.
	rr = env.do(t, http.MethodGet, "/api/suggestion?baseMood=50", "", asUser("u"))
	if rr.Code != http.StatusOK {
		t.Errorf("suggestion status = %d, want 200", rr.Code)
	}
}

func TestResetFeedback(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())
	ctx := context.Background()
	_ = env.store.RecordFeedback(ctx, "bob", "2026-03-14", 5)
	_ = env.store.RecordFeedback(ctx, "bob", "2026-03-15", 5)
	_ = env.store.RecordFeedback(ctx, "carol", "2026-03-15", 5)

	rr := env.do(t, http.MethodDelete, "/api/feedback", "", asUser("bob"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[resetResponse](t, rr); got.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", got.Deleted)
	}
	if bias := env.store.LearnedBias(ctx, "carol", "2026-03-15"); bias != 5 {
		t.Errorf("other identity bias = %d, want 5", bias)
	}
}

func TestSuggestion(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())
	ctx := context.Background()
	for range 3 {
		_ = env.store.RecordFeedback(ctx, "dana", "2026-03-15", 6)
	}

	rr := env.do(t, http.MethodGet, "/api/suggestion?baseMood=50", "", asUser("dana"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[learning.Suggestion](t, rr)
	if got.Confidence != learning.ConfidenceHigh || got.Offset != 6 || got.SuggestedFinalMood != 56 {
		t.Errorf("suggestion = %+v", got)
	}

	for _, target := range []string{
		"/api/suggestion",
		"/api/suggestion?baseMood=101",
		"/api/suggestion?baseMood=x",
		"/api/suggestion?baseMood=50&days=0",
	} {
		if rr := env.do(t, http.MethodGet, target, "", asUser("dana")); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())
	ctx := context.Background()
	_ = env.store.RecordFeedback(ctx, "erin", "2026-03-15", 10)
	_ = env.store.RecordFeedback(ctx, "erin", "2026-03-14", 6)

	rr := env.do(t, http.MethodGet, "/api/stats?days=7", "", asUser("erin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[statsResponse](t, rr)
	if got.TotalSearches != 2 || got.AverageOffset != 8 || got.Trend.Trend != learning.TrendPositive {
		t.Errorf("trend = %+v", got.Trend)
	}
	if len(got.Daily) != 2 || got.Daily[0].Date != "2026-03-15" {
		t.Errorf("daily = %+v", got.Daily)
	}
	want := learning.DailyStat{Date: "2026-03-15", TotalOffset: 10, Count: 1, Average: 10}
	if got.Today != want {
		t.Errorf("today = %+v, want %+v", got.Today, want)
	}
}

func TestPurge(t *testing.T) {
	clock := fixedNow
	withPurger := func(store *learning.Store) HandlerOption {
		return WithPurger(purge.New(store, 30,
			purge.WithCooldown(time.Minute),
			purge.WithClock(func() time.Time { return clock }),
		))
	}
	env := newTestEnv(t, learning.NewMemoryRepository(), withPurger)
	ctx := context.Background()
	_ = env.store.RecordFeedback(ctx, "erin", "2026-01-01", 5)
	_ = env.store.RecordFeedback(ctx, "erin", "2026-03-15", 5)

	rr := env.do(t, http.MethodPost, "/api/admin/purge", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("first purge status = %d, body %s", rr.Code, rr.Body.String())
	}
	got := decode[purgeResponse](t, rr)
	if got.Deleted != 1 || got.PurgedAt != "2026-03-15T10:30:00Z" {
		t.Errorf("purge = %+v", got)
	}

	rr = env.do(t, http.MethodPost, "/api/admin/purge", "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second purge status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if body := decode[errorResponse](t, rr); !strings.Contains(body.Error, "too recently") {
		t.Errorf("error = %q", body.Error)
	}

	clock = fixedNow.Add(2 * time.Minute)
	rr = env.do(t, http.MethodPost, "/api/admin/purge", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("purge after cooldown status = %d", rr.Code)
	}
	if got := decode[purgeResponse](t, rr); got.Deleted != 0 {
		t.Errorf("deleted after cooldown = %d, want 0", got.Deleted)
	}
}

func TestPurge_NotConfigured(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	rr := env.do(t, http.MethodPost, "/api/admin/purge", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestPurge_StorageDown(t *testing.T) {
	withPurger := func(store *learning.Store) HandlerOption {
		return WithPurger(purge.New(store, 30))
	}
	env := newTestEnv(t, brokenRepo{}, withPurger)

	rr := env.do(t, http.MethodPost, "/api/admin/purge", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestExplain(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())

	rr := env.do(t, http.MethodPost, "/api/explain", `{"weather":"Rain","temp":12,"vibe":"lofi"}`, asUser("u"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	got := decode[explain.Explanation](t, rr)
	if got.Source != explain.SourceTemplate || got.Vibe != "lofi" {
		t.Errorf("explanation = %+v", got)
	}
	if got.Text != explain.Fallback("lofi", mood.Rain, 12) {
		t.Errorf("text = %q", got.Text)
	}

	rr = env.do(t, http.MethodPost, "/api/explain", `{"weather":"Rain","vibe":"polka"}`, asUser("u"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown vibe: status = %d, want 400", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, learning.NewMemoryRepository())
	env.do(t, http.MethodGet, "/api/health", "", nil)

	rr := env.do(t, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "api_request_duration_seconds") {
		t.Error("request duration metric missing")
	}
}
