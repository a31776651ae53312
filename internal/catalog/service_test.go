package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// stubCatalog returns fixed tracks or an error.
type stubCatalog struct {
	tracks []Track
	err    error
	calls  atomic.Int32
}

func (s *stubCatalog) Recommend(_ context.Context, req Request) ([]Track, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.tracks[:min(len(s.tracks), req.normalizedLimit())], nil
}

// memCache is an in-process ResultCache that stores tracks directly.
type memCache struct {
	entries map[string][]Track
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]Track)}
}

func (c *memCache) key(weather string, mood int) string {
	return fmt.Sprintf("%s:%d", weather, mood)
}

func (c *memCache) Get(_ context.Context, weather string, mood int, dst any) (bool, error) {
	v, ok := c.entries[c.key(weather, mood)]
	if !ok {
		return false, nil
	}
	*(dst.(*[]Track)) = v
	return true, nil
}

func (c *memCache) Set(_ context.Context, weather string, mood int, v any) error {
	c.sets++
	c.entries[c.key(weather, mood)] = v.([]Track)
	return nil
}

func tracksN(prefix string, n int) []Track {
	out := make([]Track, n)
	for i := range out {
		out[i] = Track{ID: prefix + string(rune('a'+i)), Name: "track"}
	}
	return out
}

func TestService_Recommend(t *testing.T) {
	req := Request{Condition: mood.Rain, MoodScore: 42, Profile: mood.ProfileFromScore(42), Limit: 3}

	t.Run("no primary uses static", func(t *testing.T) {
		fallback := &stubCatalog{tracks: tracksN("s", 5)}
		svc := NewService(fallback)

		got := svc.Recommend(context.Background(), req)
		if got.Source != SourceStatic || len(got.Tracks) != 3 {
			t.Errorf("Recommend() = %d tracks from %s, want 3 from static", len(got.Tracks), got.Source)
		}
	})

	t.Run("primary then cache", func(t *testing.T) {
		primary := &stubCatalog{tracks: tracksN("p", 5)}
		cache := newMemCache()
		svc := NewService(&stubCatalog{}, WithPrimary(primary), WithCache(cache))

		first := svc.Recommend(context.Background(), req)
		if first.Source != SourceSpotify {
			t.Errorf("first Source = %s, want spotify", first.Source)
		}
		second := svc.Recommend(context.Background(), req)
		if second.Source != SourceCache {
			t.Errorf("second Source = %s, want cache", second.Source)
		}
		if primary.calls.Load() != 1 {
			t.Errorf("primary calls = %d, want 1", primary.calls.Load())
		}
		if len(second.Tracks) != 3 || second.Tracks[0].ID != first.Tracks[0].ID {
			t.Errorf("cached tracks = %+v, want %+v", second.Tracks, first.Tracks)
		}
	})

	t.Run("primary failure falls back and is not cached", func(t *testing.T) {
		primary := &stubCatalog{err: errors.New("down")}
		fallback := &stubCatalog{tracks: tracksN("s", 5)}
		cache := newMemCache()
		svc := NewService(fallback, WithPrimary(primary), WithCache(cache))

		got := svc.Recommend(context.Background(), req)
		if got.Source != SourceStatic || len(got.Tracks) != 3 {
			t.Errorf("Recommend() = %d tracks from %s, want 3 from static", len(got.Tracks), got.Source)
		}
		if cache.sets != 0 {
			t.Errorf("cache sets = %d, want 0", cache.sets)
		}
	})

	t.Run("fallback failure yields empty list", func(t *testing.T) {
		svc := NewService(&stubCatalog{err: errors.New("broken")})
		got := svc.Recommend(context.Background(), req)
		if got.Tracks == nil || len(got.Tracks) != 0 {
			t.Errorf("Tracks = %#v, want empty non-nil slice", got.Tracks)
		}
	})
}
