package learning

import "context"

// Search is one scored request, kept for auditing how moods were adjusted.
type Search struct {
	Identity           string
	City               string
	Weather            string
	TemperatureCelsius float64
	LocalHour          int
	BaseMood           int
	LearnedBias        int
	UserOffset         int
	FinalMood          int
}

// SearchLog persists searches. Logging is best-effort.
type SearchLog interface {
	Log(ctx context.Context, s Search) error
}
