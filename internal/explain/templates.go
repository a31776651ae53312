package explain

import (
	"fmt"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// Mood vibes with a dedicated explanation template.
const (
	VibeEnergetic   = "energetic"
	VibeChill       = "chill"
	VibeMelancholic = "melancholic"
	VibeLofi        = "lofi"
)

var templates = map[string]string{
	VibeEnergetic: "%s at %s is a great day for energetic music! This weather pairs perfectly with upbeat songs. " +
		"Driving rhythms and bright melodies will add extra life to your day. " +
		"Try these tracks on a walk outside or during a workout.",
	VibeChill: "%s at %s sets the scene for relaxing music. " +
		"This calm weather is the perfect backdrop for soft melodies and soothing rhythms. " +
		"Let these songs keep you company over coffee or a good book. Take some time for yourself and enjoy them.",
	VibeMelancholic: "%s at %s is perfect for an emotional music journey. " +
		"This weather fits deep, meaningful songs. Melancholic melodies will accompany a bit of introspection. " +
		"Listen while looking out the window or writing in your journal, and let them touch your feelings.",
	VibeLofi: "%s at %s makes an ideal setting for lo-fi music. " +
		"This quiet atmosphere is a perfect base for focus and relaxation. " +
		"Soft beats and minimal melodies will keep you company while you work or unwind. Enjoy them with a warm drink.",
}

var weatherDescriptions = map[mood.Condition]string{
	mood.Clear:        "Clear and sunny weather",
	mood.Clouds:       "Cloudy weather",
	mood.Rain:         "Rainy weather",
	mood.Drizzle:      "Drizzly weather",
	mood.Snow:         "Snowy weather",
	mood.Thunderstorm: "Stormy weather",
	mood.Mist:         "Misty weather",
	mood.Fog:          "Foggy weather",
	mood.Haze:         "Hazy weather",
}

// WeatherDescription returns a human description of a condition.
func WeatherDescription(c mood.Condition) string {
	if d, ok := weatherDescriptions[c]; ok {
		return d
	}
	return "Changeable weather"
}

// Fallback renders the template explanation for a vibe. Unknown vibes use chill.
func Fallback(vibe string, c mood.Condition, celsius float64) string {
	tmpl, ok := templates[vibe]
	if !ok {
		tmpl = templates[VibeChill]
	}
	return fmt.Sprintf(tmpl, WeatherDescription(c), formatTemp(celsius))
}

func formatTemp(celsius float64) string {
	return fmt.Sprintf("%.0f°C", celsius)
}
