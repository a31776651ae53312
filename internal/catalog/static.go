package catalog

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// staticTrack is a built-in track with its audio features.
type staticTrack struct {
	name         string
	artist       string
	energy       float64
	valence      float64
	acousticness float64
	tempo        float64
}

// builtinTracks covers the mood range from melancholic to energetic.
var builtinTracks = []staticTrack{
	{"Holocene", "Bon Iver", 0.22, 0.15, 0.88, 74},
	{"Skinny Love", "Bon Iver", 0.27, 0.20, 0.92, 76},
	{"The Night We Met", "Lord Huron", 0.31, 0.11, 0.86, 87},
	{"Hurt", "Johnny Cash", 0.21, 0.14, 0.80, 94},
	{"Motion Picture Soundtrack", "Radiohead", 0.15, 0.07, 0.91, 70},
	{"Liability", "Lorde", 0.19, 0.24, 0.94, 80},
	{"Mad World", "Gary Jules", 0.09, 0.29, 0.98, 86},
	{"Fourth of July", "Sufjan Stevens", 0.11, 0.12, 0.95, 82},
	{"Coffee", "beabadoobee", 0.39, 0.45, 0.75, 93},
	{"Sunday Morning", "Maroon 5", 0.52, 0.68, 0.30, 88},
	{"Banana Pancakes", "Jack Johnson", 0.33, 0.61, 0.61, 97},
	{"Put Your Records On", "Corinne Bailey Rae", 0.45, 0.72, 0.43, 96},
	{"Sunset Lover", "Petit Biscuit", 0.54, 0.24, 0.33, 91},
	{"Electric Feel", "MGMT", 0.55, 0.54, 0.07, 103},
	{"Bloom", "The Paper Kites", 0.29, 0.35, 0.89, 103},
	{"Dreams", "Fleetwood Mac", 0.49, 0.79, 0.06, 120},
	{"Midnight City", "M83", 0.71, 0.32, 0.02, 105},
	{"Here Comes the Sun", "The Beatles", 0.54, 0.39, 0.03, 129},
	{"Walking on Sunshine", "Katrina and the Waves", 0.88, 0.96, 0.01, 110},
	{"Uptown Funk", "Mark Ronson", 0.61, 0.93, 0.01, 115},
	{"Happy", "Pharrell Williams", 0.82, 0.96, 0.22, 160},
	{"Can't Stop the Feeling!", "Justin Timberlake", 0.83, 0.70, 0.01, 113},
	{"Shut Up and Dance", "WALK THE MOON", 0.87, 0.62, 0.01, 128},
	{"Mr. Brightside", "The Killers", 0.92, 0.24, 0.00, 148},
	{"Blinding Lights", "The Weeknd", 0.73, 0.33, 0.00, 171},
	{"Don't Stop Me Now", "Queen", 0.87, 0.61, 0.05, 156},
	{"Levitating", "Dua Lipa", 0.83, 0.92, 0.01, 103},
	{"September", "Earth, Wind & Fire", 0.83, 0.98, 0.17, 126},
}

// Tempo is scaled into [0,1] over this range so all features weigh alike.
const (
	tempoFloor = 60.0
	tempoSpan  = 120.0
)

// trackObservation wraps a track to implement clusters.Observation.
type trackObservation struct {
	index  int
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Static is an offline catalog. Its tracks are grouped by k-means on audio
// features; a request is answered from the group nearest its profile.
type Static struct {
	tracks   []staticTrack
	coords   []clusters.Coordinates
	clusters clusters.Clusters
}

// NumClusters is the number of mood groups in the static catalog.
const NumClusters = 3

// NewStatic partitions the built-in tracks into mood groups.
func NewStatic() (*Static, error) {
	return newStatic(builtinTracks, NumClusters)
}

func newStatic(tracks []staticTrack, k int) (*Static, error) {
	if len(tracks) < k {
		return nil, fmt.Errorf("static catalog: %d tracks is fewer than %d clusters", len(tracks), k)
	}

	s := &Static{tracks: tracks, coords: make([]clusters.Coordinates, len(tracks))}

	var obs clusters.Observations
	for i, t := range tracks {
		s.coords[i] = extractFeatures(t)
		obs = append(obs, trackObservation{index: i, coords: s.coords[i]})
	}

	// Run k-means clustering
	km := kmeans.New()
	result, err := km.Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("clustering static catalog: %w", err)
	}
	s.clusters = result
	return s, nil
}

// extractFeatures returns the coordinate vector of a track:
// energy, valence, acousticness, scaled tempo.
func extractFeatures(t staticTrack) clusters.Coordinates {
	return clusters.Coordinates{t.energy, t.valence, t.acousticness, scaleTempo(t.tempo)}
}

// profileCoordinates places an audio profile in the same space as the tracks.
func profileCoordinates(p mood.AudioProfile) clusters.Coordinates {
	tempo := float64(p.MinTempo+p.MaxTempo) / 2
	return clusters.Coordinates{p.Energy, p.Valence, p.Acousticness, scaleTempo(tempo)}
}

func scaleTempo(bpm float64) float64 {
	v := (bpm - tempoFloor) / tempoSpan
	return min(max(v, 0), 1)
}

// Recommend returns the tracks of the nearest mood group ordered by distance
// to the profile, topped up with the closest remaining tracks.
func (s *Static) Recommend(_ context.Context, req Request) ([]Track, error) {
	target := profileCoordinates(req.Profile)
	limit := min(req.normalizedLimit(), len(s.tracks))

	nearest := s.clusters.Nearest(target)

	inNearest := make(map[int]bool)
	var primary []int
	for _, o := range s.clusters[nearest].Observations {
		if to, ok := o.(trackObservation); ok {
			primary = append(primary, to.index)
			inNearest[to.index] = true
		}
	}

	var rest []int
	for i := range s.tracks {
		if !inNearest[i] {
			rest = append(rest, i)
		}
	}

	byDistance := func(a, b int) int {
		da, db := s.coords[a].Distance(target), s.coords[b].Distance(target)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return a - b
		}
	}
	slices.SortFunc(primary, byDistance)
	slices.SortFunc(rest, byDistance)

	order := append(primary, rest...)
	out := make([]Track, 0, limit)
	for _, i := range order[:limit] {
		out = append(out, s.tracks[i].track(i))
	}
	return out, nil
}

func (t staticTrack) track(i int) Track {
	q := url.PathEscape(t.artist + " " + t.name)
	return Track{
		ID:      fmt.Sprintf("static-%02d", i),
		Name:    t.name,
		Artists: []string{t.artist},
		URL:     "https://open.spotify.com/search/" + q,
	}
}

var _ Catalog = (*Static)(nil)
