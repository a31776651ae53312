package mood

// Score is a mood score in [0,100]. Higher means more energetic.
type Score = int

// Category is a coarse mood bucket derived from a score.
type Category string

// Mood categories.
const (
	Melancholic Category = "melancholic"
	Chill       Category = "chill"
	Energetic   Category = "energetic"
)

// Label returns the display label for the category.
func (c Category) Label() string {
	switch c {
	case Melancholic:
		return "Melancholic / Low Energy"
	case Energetic:
		return "Energetic / Positive"
	default:
		return "Neutral / Chill"
	}
}

// Color returns the display color for the category.
func (c Category) Color() string {
	switch c {
	case Melancholic:
		return "#8b5cf6"
	case Energetic:
		return "#f59e0b"
	default:
		return "#3b82f6"
	}
}

// CategoryFor maps a score to its category.
//
//	score <= 30 -> melancholic
//	score <= 60 -> chill
//	otherwise   -> energetic
func CategoryFor(score Score) Category {
	switch {
	case score <= 30:
		return Melancholic
	case score <= 60:
		return Chill
	default:
		return Energetic
	}
}

// TimeScore scores the local hour of day.
// Hours outside 0-23 fall into the night band.
func TimeScore(hour int) int {
	switch {
	case hour >= 6 && hour < 11:
		return 60 // morning
	case hour >= 11 && hour < 17:
		return 80 // midday
	case hour >= 17 && hour < 22:
		return 70 // evening
	default:
		return 40 // night
	}
}

// TemperatureScore scores a temperature in Celsius. The bands cover every
// real number; the trailing return only guards against NaN.
func TemperatureScore(celsius float64) int {
	switch {
	case celsius >= 20 && celsius <= 25:
		return 85
	case celsius >= 15 && celsius < 20:
		return 70
	case celsius > 25 && celsius <= 30:
		return 65
	case celsius >= 5 && celsius < 15:
		return 55
	case celsius < 5:
		return 40
	case celsius > 30:
		return 50
	}
	return 50
}

// WeatherScore scores a weather condition. Unknown conditions score 50.
func WeatherScore(c Condition) int {
	switch c {
	case Clear:
		return 85
	case Clouds:
		return 60
	case Rain:
		return 35
	case Snow:
		return 50
	case Thunderstorm:
		return 25
	case Drizzle:
		return 45
	case Mist, Fog, Haze:
		return 55
	default:
		return 50
	}
}

// BaseMoodScore combines the three factor scores with weights
// 30% time, 40% weather, 30% temperature.
//
// The sum is kept in tenths so ties round half-up exactly:
// hour 2, Clear, 10°C gives 62.5 and scores 63.
func BaseMoodScore(o Observation) Score {
	tenths := 3*TimeScore(o.LocalHour) + 4*WeatherScore(o.Condition) + 3*TemperatureScore(o.TemperatureCelsius)
	return roundTenths(tenths)
}

// LegacyBaseMoodScore is the older two-factor score: 70% weather, 30% time.
// Temperature is ignored.
func LegacyBaseMoodScore(o Observation) Score {
	tenths := 7*WeatherScore(o.Condition) + 3*TimeScore(o.LocalHour)
	return roundTenths(tenths)
}

// roundTenths rounds a non-negative value expressed in tenths half-up.
func roundTenths(tenths int) int {
	return clamp((tenths+5)/10, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
