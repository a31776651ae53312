package catalog

import (
	"context"
	"sync"

	"github.com/zmb3/spotify/v2"
)

// DefaultConcurrency is the number of concurrent artist lookups.
const DefaultConcurrency = 5

// ArtistFetcher abstracts artist lookups for testing.
type ArtistFetcher interface {
	GetArtist(ctx context.Context, id spotify.ID) (*spotify.FullArtist, error)
}

// Enricher attaches artist details to tracks.
type Enricher struct {
	fetcher     ArtistFetcher
	concurrency int
}

// NewEnricher creates an enricher with the given concurrency (DefaultConcurrency if <= 0).
func NewEnricher(fetcher ArtistFetcher, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{fetcher: fetcher, concurrency: concurrency}
}

// Enrich looks up each distinct primary artist once and attaches the result.
// Failed lookups leave the track without artist details.
func (e *Enricher) Enrich(ctx context.Context, tracks []Track) []Track {
	if len(tracks) == 0 {
		return tracks
	}

	var ids []string
	seen := make(map[string]bool)
	for _, t := range tracks {
		if t.ArtistID != "" && !seen[t.ArtistID] {
			seen[t.ArtistID] = true
			ids = append(ids, t.ArtistID)
		}
	}

	infos := make([]*ArtistInfo, len(ids))

	// Create work channel
	type workItem struct {
		index int
		id    string
	}
	workCh := make(chan workItem, len(ids))
	for i, id := range ids {
		workCh <- workItem{index: i, id: id}
	}
	close(workCh)

	// Process with worker pool
	var wg sync.WaitGroup
	for range min(e.concurrency, len(ids)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				if ctx.Err() != nil {
					continue
				}
				artist, err := e.fetcher.GetArtist(ctx, spotify.ID(work.id))
				if err != nil || artist == nil {
					continue
				}
				infos[work.index] = artistInfo(artist)
			}
		}()
	}
	wg.Wait()

	byID := make(map[string]*ArtistInfo, len(ids))
	for i, id := range ids {
		if infos[i] != nil {
			byID[id] = infos[i]
		}
	}

	out := make([]Track, len(tracks))
	for i, t := range tracks {
		if info, ok := byID[t.ArtistID]; ok {
			t.Artist = info
		}
		out[i] = t
	}
	return out
}

func artistInfo(a *spotify.FullArtist) *ArtistInfo {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return &ArtistInfo{
		Followers:  int(a.Followers.Count),
		Popularity: int(a.Popularity),
		Genres:     genres,
	}
}
