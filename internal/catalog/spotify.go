package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/justestif/go-weather-mood/internal/breaker"
	"github.com/justestif/go-weather-mood/internal/metrics"
)

const spotifyProvider = "spotify"

// SpotifyAPI is the subset of the Spotify Web API client used here.
type SpotifyAPI interface {
	ArtistFetcher
	GetRecommendations(ctx context.Context, seeds spotify.Seeds, attrs *spotify.TrackAttributes, opts ...spotify.RequestOption) (*spotify.Recommendations, error)
}

// Spotify recommends tracks through the Spotify Web API.
type Spotify struct {
	api      SpotifyAPI
	enricher *Enricher
	genres   []string
	breaker  *gobreaker.CircuitBreaker[[]Track]
	logger   zerolog.Logger
}

// SpotifyOption configures a Spotify catalog.
type SpotifyOption func(*Spotify)

// WithGenres overrides DefaultGenres.
func WithGenres(genres []string) SpotifyOption {
	return func(s *Spotify) {
		if len(genres) > 0 {
			s.genres = genres
		}
	}
}

// WithEnrichConcurrency sets the number of concurrent artist lookups.
func WithEnrichConcurrency(n int) SpotifyOption {
	return func(s *Spotify) {
		s.enricher = NewEnricher(s.api, n)
	}
}

// WithSpotifyLogger sets the logger.
func WithSpotifyLogger(l zerolog.Logger) SpotifyOption {
	return func(s *Spotify) {
		s.logger = l
	}
}

// NewSpotifyAPI returns an app-authenticated Spotify client using the
// client-credentials flow. Tokens are refreshed automatically.
func NewSpotifyAPI(ctx context.Context, clientID, clientSecret string, timeout time.Duration) *spotify.Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = timeout
	return spotify.New(httpClient, spotify.WithRetry(false))
}

// NewSpotify creates a Spotify-backed catalog.
func NewSpotify(api SpotifyAPI, opts ...SpotifyOption) *Spotify {
	s := &Spotify{
		api:      api,
		enricher: NewEnricher(api, DefaultConcurrency),
		genres:   DefaultGenres,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = breaker.New[[]Track](breaker.DefaultConfig(spotifyProvider), s.logger)
	return s
}

// Recommend fetches genre-seeded recommendations shaped by the audio profile,
// then enriches them with artist details.
func (s *Spotify) Recommend(ctx context.Context, req Request) ([]Track, error) {
	start := time.Now()
	tracks, err := s.breaker.Execute(func() ([]Track, error) {
		return s.recommend(ctx, req)
	})
	metrics.RecordProviderCall(spotifyProvider, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, tracks), nil
}

func (s *Spotify) recommend(ctx context.Context, req Request) ([]Track, error) {
	p := req.Profile
	attrs := spotify.NewTrackAttributes().
		TargetEnergy(p.Energy).
		TargetValence(p.Valence).
		MinTempo(float64(p.MinTempo)).
		MaxTempo(float64(p.MaxTempo)).
		TargetAcousticness(p.Acousticness)

	recs, err := s.api.GetRecommendations(ctx, spotify.Seeds{Genres: s.genres}, attrs, spotify.Limit(req.normalizedLimit()))
	if err != nil {
		return nil, fmt.Errorf("fetching spotify recommendations: %w", err)
	}
	if len(recs.Tracks) == 0 {
		return nil, ErrNoTracks
	}

	tracks := make([]Track, len(recs.Tracks))
	for i, t := range recs.Tracks {
		tracks[i] = convertTrack(t)
	}
	return tracks, nil
}

// convertTrack converts a Spotify SimpleTrack to a Track.
func convertTrack(t spotify.SimpleTrack) Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	track := Track{
		ID:         t.ID.String(),
		Name:       t.Name,
		Artists:    artists,
		URL:        t.ExternalURLs["spotify"],
		PreviewURL: t.PreviewURL,
	}
	if len(t.Artists) > 0 {
		track.ArtistID = t.Artists[0].ID.String()
	}
	return track
}

var (
	_ Catalog    = (*Spotify)(nil)
	_ SpotifyAPI = (*spotify.Client)(nil)
)
