package learning

import (
	"fmt"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// Confidence expresses how much feedback backs a suggestion.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Thresholds for suggestions.
const (
	minTodayCount  = 3
	minRecentCount = 10
	recentDays     = 7
	trendThreshold = 5
)

// Suggestion is a proposed mood adjustment.
type Suggestion struct {
	Offset             int        `json:"suggestionOffset"`
	Confidence         Confidence `json:"confidence"`
	Message            string     `json:"message"`
	BaseMood           int        `json:"baseMood"`
	SuggestedFinalMood int        `json:"suggestedFinalMood"`
}

// Suggest decides whether enough feedback exists to propose an adjustment.
//
//   - 3+ records today: today's bias, high confidence.
//   - 10+ records in the trailing 7 days: their average, medium confidence.
//   - otherwise: no adjustment, low confidence.
func Suggest(baseMood int, today string, history []DailyStat) Suggestion {
	s := Suggestion{BaseMood: baseMood, Confidence: ConfidenceLow}

	var todayStat DailyStat
	for _, d := range history {
		if d.Date == today {
			todayStat = d
			break
		}
	}

	recent := TrendSummary(history, today, recentDays)

	switch {
	case todayStat.Count >= minTodayCount:
		s.Offset = averageOffset(todayStat.TotalOffset, todayStat.Count)
		s.Confidence = ConfidenceHigh
		s.Message = fmt.Sprintf("Based on today's preferences we suggest %s", signed(s.Offset))
	case recent.TotalSearches >= minRecentCount:
		s.Offset = recent.AverageOffset
		s.Confidence = ConfidenceMedium
		s.Message = fmt.Sprintf("Based on your recent preferences we suggest %s", signed(s.Offset))
	default:
		s.Message = "Not enough data yet: a few more searches will let us learn your preferences"
	}

	s.SuggestedFinalMood = mood.Adjust(baseMood, s.Offset, 0)
	return s
}

// TrendDirection describes whether feedback leans up, down or neither.
type TrendDirection string

// Trend directions.
const (
	TrendPositive TrendDirection = "positive"
	TrendNegative TrendDirection = "negative"
	TrendNeutral  TrendDirection = "neutral"
)

// Trend summarizes feedback over a window of days.
type Trend struct {
	TotalSearches  int            `json:"totalSearches"`
	AverageOffset  int            `json:"averageOffset"`
	Trend          TrendDirection `json:"trend"`
	Recommendation string         `json:"recommendation"`
	Daily          []DailyStat    `json:"dailyData"`
}

// TrendSummary aggregates the days calendar days ending today.
// Entries outside the window are ignored.
func TrendSummary(history []DailyStat, today string, days int) Trend {
	t := Trend{Trend: TrendNeutral, Daily: []DailyStat{}}

	since := today
	if d, err := ParseDay(today); err == nil && days > 0 {
		since = Day(d.AddDate(0, 0, -(days - 1)))
	}

	var total int
	for _, d := range history {
		if d.Date < since || d.Date > today {
			continue
		}
		t.Daily = append(t.Daily, d)
		total += d.TotalOffset
		t.TotalSearches += d.Count
	}
	t.AverageOffset = averageOffset(total, t.TotalSearches)

	switch {
	case t.AverageOffset > trendThreshold:
		t.Trend = TrendPositive
		t.Recommendation = "You usually prefer more energetic music"
	case t.AverageOffset < -trendThreshold:
		t.Trend = TrendNegative
		t.Recommendation = "You usually prefer calmer music"
	default:
		t.Recommendation = "Your music preferences are balanced"
	}
	return t
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
