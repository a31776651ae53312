// Package catalog selects tracks matching an audio profile, from Spotify when
// available and from a built-in clustered catalog otherwise.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// Limits on the number of tracks per request.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// DefaultGenres seeds catalog recommendations.
var DefaultGenres = []string{"pop", "indie", "lofi", "chill", "acoustic"}

// ErrNoTracks is returned when a catalog has nothing for a request.
var ErrNoTracks = errors.New("no tracks found")

// Source names where a result came from.
type Source string

// Result sources.
const (
	SourceSpotify Source = "spotify"
	SourceCache   Source = "cache"
	SourceStatic  Source = "static"
)

// Track is a recommended track.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Artists    []string    `json:"artists"`
	ArtistID   string      `json:"artistId,omitempty"`
	URL        string      `json:"url,omitempty"`
	PreviewURL string      `json:"previewUrl,omitempty"`
	Artist     *ArtistInfo `json:"artistInfo,omitempty"`
}

// ArtistName returns the comma-joined artist names.
func (t Track) ArtistName() string {
	return strings.Join(t.Artists, ", ")
}

// ArtistInfo enriches a track with details about its primary artist.
type ArtistInfo struct {
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

// Request describes the tracks wanted.
type Request struct {
	Condition mood.Condition
	MoodScore int
	Profile   mood.AudioProfile
	Limit     int
}

// normalizedLimit clamps the limit to [1, MaxLimit], defaulting when unset.
func (r Request) normalizedLimit() int {
	switch {
	case r.Limit <= 0:
		return DefaultLimit
	case r.Limit > MaxLimit:
		return MaxLimit
	default:
		return r.Limit
	}
}

// Catalog returns tracks for a request.
type Catalog interface {
	Recommend(ctx context.Context, req Request) ([]Track, error)
}

// Result is a list of tracks and where they came from.
type Result struct {
	Tracks []Track `json:"tracks"`
	Source Source  `json:"source"`
}
