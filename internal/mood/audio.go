package mood

import "math"

// AudioProfile holds target audio features for track selection.
type AudioProfile struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	MinTempo     int     `json:"minTempo"`
	MaxTempo     int     `json:"maxTempo"`
	Acousticness float64 `json:"acousticness"`
}

// ProfileFromScore maps a mood score linearly onto an audio profile.
// Energy and valence follow the score, tempo is centered on 60+1.2*score
// within a ±20 BPM window, and acousticness falls as the score rises.
func ProfileFromScore(score Score) AudioProfile {
	s := float64(score)
	level := clampFloat(s/100, 0.1, 1.0)
	baseTempo := 60 + s*1.2

	return AudioProfile{
		Energy:       level,
		Valence:      level,
		MinTempo:     int(math.Round(math.Max(60, baseTempo-20))),
		MaxTempo:     int(math.Round(math.Min(180, baseTempo+20))),
		Acousticness: clampFloat(1-s/120, 0.1, 0.9),
	}
}

// ProfileFromCondition returns the static profile for a weather condition.
// Used when no mood score is available.
func ProfileFromCondition(c Condition) AudioProfile {
	switch c {
	case Clear:
		return AudioProfile{Energy: 0.8, Valence: 0.8, MinTempo: 110, MaxTempo: 140, Acousticness: 0.3}
	case Clouds:
		return AudioProfile{Energy: 0.5, Valence: 0.5, MinTempo: 90, MaxTempo: 120, Acousticness: 0.5}
	case Rain, Drizzle:
		return AudioProfile{Energy: 0.3, Valence: 0.2, MinTempo: 60, MaxTempo: 90, Acousticness: 0.6}
	case Snow:
		return AudioProfile{Energy: 0.4, Valence: 0.4, MinTempo: 70, MaxTempo: 100, Acousticness: 0.7}
	case Thunderstorm:
		return AudioProfile{Energy: 0.9, Valence: 0.2, MinTempo: 120, MaxTempo: 160, Acousticness: 0.2}
	default:
		return AudioProfile{Energy: 0.5, Valence: 0.5, MinTempo: 80, MaxTempo: 120, Acousticness: 0.5}
	}
}

// ProfileFromBucket maps a score onto one of three fixed profiles:
// energetic (>= 70), chill (40-69) or melancholic (< 40).
func ProfileFromBucket(score Score) AudioProfile {
	switch {
	case score >= 70:
		return AudioProfile{Energy: 0.8, Valence: 0.8, MinTempo: 110, MaxTempo: 140, Acousticness: 0.3}
	case score >= 40:
		return AudioProfile{Energy: 0.5, Valence: 0.5, MinTempo: 90, MaxTempo: 120, Acousticness: 0.5}
	default:
		return AudioProfile{Energy: 0.3, Valence: 0.2, MinTempo: 60, MaxTempo: 85, Acousticness: 0.7}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
