package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// mockAPI implements SpotifyAPI for testing.
type mockAPI struct {
	tracks    []spotify.SimpleTrack
	recErr    error
	artists   map[spotify.ID]*spotify.FullArtist
	artistErr map[spotify.ID]error
	delay     time.Duration

	mu        sync.Mutex
	lastSeeds spotify.Seeds
	recCalls  atomic.Int32
	artCalls  atomic.Int32
}

func (m *mockAPI) GetRecommendations(ctx context.Context, seeds spotify.Seeds, attrs *spotify.TrackAttributes, opts ...spotify.RequestOption) (*spotify.Recommendations, error) {
	m.recCalls.Add(1)
	m.mu.Lock()
	m.lastSeeds = seeds
	m.mu.Unlock()
	if m.recErr != nil {
		return nil, m.recErr
	}
	return &spotify.Recommendations{Tracks: m.tracks}, nil
}

func (m *mockAPI) GetArtist(ctx context.Context, id spotify.ID) (*spotify.FullArtist, error) {
	m.artCalls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.artistErr[id]; ok {
		return nil, err
	}
	if a, ok := m.artists[id]; ok {
		return a, nil
	}
	return nil, errors.New("artist not found")
}

func simpleTrack(id, name string, artists ...spotify.SimpleArtist) spotify.SimpleTrack {
	return spotify.SimpleTrack{
		ID:           spotify.ID(id),
		Name:         name,
		Artists:      artists,
		ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/" + id},
		PreviewURL:   "https://p.scdn.co/" + id,
	}
}

func fullArtist(t *testing.T, id string, followers, popularity int) *spotify.FullArtist {
	t.Helper()
	payload := fmt.Sprintf(`{"id": %q, "name": "artist", "popularity": %d, "followers": {"total": %d}, "genres": ["indie pop"]}`,
		id, popularity, followers)
	var a spotify.FullArtist
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("decoding artist: %v", err)
	}
	return &a
}

func TestConvertTrack(t *testing.T) {
	got := convertTrack(simpleTrack("t1", "Song",
		spotify.SimpleArtist{ID: "a1", Name: "Artist A"},
		spotify.SimpleArtist{ID: "a2", Name: "Artist B"},
	))

	if got.ID != "t1" || got.Name != "Song" {
		t.Errorf("convertTrack() = %+v", got)
	}
	if got.ArtistName() != "Artist A, Artist B" {
		t.Errorf("ArtistName() = %q, want %q", got.ArtistName(), "Artist A, Artist B")
	}
	if got.ArtistID != "a1" {
		t.Errorf("ArtistID = %q, want a1", got.ArtistID)
	}
	if got.URL != "https://open.spotify.com/track/t1" {
		t.Errorf("URL = %q", got.URL)
	}

	if empty := convertTrack(spotify.SimpleTrack{ID: "t2"}); empty.ArtistID != "" || len(empty.Artists) != 0 {
		t.Errorf("convertTrack() without artists = %+v", empty)
	}
}

func TestSpotify_Recommend(t *testing.T) {
	api := &mockAPI{
		tracks: []spotify.SimpleTrack{
			simpleTrack("t1", "One", spotify.SimpleArtist{ID: "a1", Name: "A"}),
			simpleTrack("t2", "Two", spotify.SimpleArtist{ID: "a1", Name: "A"}),
			simpleTrack("t3", "Three", spotify.SimpleArtist{ID: "a2", Name: "B"}),
		},
		artists: map[spotify.ID]*spotify.FullArtist{
			"a1": fullArtist(t, "a1", 1200, 64),
		},
	}
	s := NewSpotify(api, WithGenres([]string{"lofi"}))

	got, err := s.Recommend(context.Background(), Request{Profile: mood.ProfileFromScore(70), Limit: 3})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recommend() returned %d tracks, want 3", len(got))
	}

	// Distinct artists are looked up once each.
	if calls := api.artCalls.Load(); calls != 2 {
		t.Errorf("GetArtist calls = %d, want 2", calls)
	}
	if got[0].Artist == nil || got[0].Artist.Followers != 1200 || got[0].Artist.Popularity != 64 {
		t.Errorf("track 0 artist = %+v, want enriched", got[0].Artist)
	}
	if got[1].Artist == nil {
		t.Error("track 1 shares artist a1 but was not enriched")
	}
	if got[2].Artist != nil {
		t.Errorf("track 2 artist = %+v, want nil after failed lookup", got[2].Artist)
	}
	if len(api.lastSeeds.Genres) != 1 || api.lastSeeds.Genres[0] != "lofi" {
		t.Errorf("seed genres = %v, want [lofi]", api.lastSeeds.Genres)
	}
}

func TestSpotify_RecommendErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		s := NewSpotify(&mockAPI{recErr: errors.New("503")})
		if _, err := s.Recommend(context.Background(), Request{}); err == nil {
			t.Error("Recommend() error = nil, want error")
		}
	})

	t.Run("no tracks", func(t *testing.T) {
		s := NewSpotify(&mockAPI{})
		if _, err := s.Recommend(context.Background(), Request{}); !errors.Is(err, ErrNoTracks) {
			t.Errorf("Recommend() error = %v, want ErrNoTracks", err)
		}
	})
}

func TestEnricher_Concurrency(t *testing.T) {
	api := &mockAPI{
		artists: make(map[spotify.ID]*spotify.FullArtist),
		delay:   20 * time.Millisecond,
	}
	var tracks []Track
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		api.artists[spotify.ID(id)] = fullArtist(t, id, 1, 1)
		tracks = append(tracks, Track{ID: "t-" + id, ArtistID: id})
	}

	start := time.Now()
	got := NewEnricher(api, 6).Enrich(context.Background(), tracks)
	elapsed := time.Since(start)

	for _, tr := range got {
		if tr.Artist == nil {
			t.Errorf("track %s not enriched", tr.ID)
		}
	}
	// Sequential would take 120ms.
	if elapsed > 100*time.Millisecond {
		t.Errorf("Enrich() took %v, expected concurrent lookups", elapsed)
	}
}

func TestEnricher_ContextCancelled(t *testing.T) {
	api := &mockAPI{artists: map[spotify.ID]*spotify.FullArtist{"a1": fullArtist(t, "a1", 1, 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewEnricher(api, 2).Enrich(ctx, []Track{{ID: "t1", ArtistID: "a1"}})
	if len(got) != 1 || got[0].Artist != nil {
		t.Errorf("Enrich() with cancelled context = %+v, want unenriched track", got)
	}
	if api.artCalls.Load() != 0 {
		t.Errorf("GetArtist calls = %d, want 0", api.artCalls.Load())
	}
}
