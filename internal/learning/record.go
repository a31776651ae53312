// Package learning accumulates explicit mood feedback per identity and day and
// turns it into a learned bias and adjustment suggestions.
package learning

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// DateLayout is the ISO calendar date format used for feedback buckets.
// Days are bucketed in UTC.
const DateLayout = "2006-01-02"

// Common errors.
var (
	// ErrWriteFailed is returned when feedback could not be persisted.
	ErrWriteFailed = errors.New("feedback write failed")

	// ErrInvalidFeedback is returned for malformed feedback submissions.
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// Record is the accumulated feedback for one identity on one day.
// Count == 0 implies TotalOffset == 0.
type Record struct {
	Identity    string
	Date        string
	TotalOffset int
	Count       int
}

// Bias returns the learned bias: the average offset rounded half-up, or 0 when empty.
func (r Record) Bias() int {
	return averageOffset(r.TotalOffset, r.Count)
}

// DailyStat is one day of feedback history.
type DailyStat struct {
	Date        string `json:"date"`
	TotalOffset int    `json:"totalOffset"`
	Count       int    `json:"count"`
	Average     int    `json:"average"`
}

func statFromRecord(r Record) DailyStat {
	return DailyStat{
		Date:        r.Date,
		TotalOffset: r.TotalOffset,
		Count:       r.Count,
		Average:     r.Bias(),
	}
}

// Day returns the UTC calendar date of t.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDay parses an ISO calendar date.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidFeedback, s)
	}
	return d, nil
}

// ValidateFeedback checks a feedback submission.
func ValidateFeedback(identity, date string, offset int) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidFeedback)
	}
	if _, err := ParseDay(date); err != nil {
		return err
	}
	if offset < -mood.MaxManualOffset || offset > mood.MaxManualOffset {
		return fmt.Errorf("%w: offset %d outside [-%d,%d]", ErrInvalidFeedback, offset, mood.MaxManualOffset, mood.MaxManualOffset)
	}
	return nil
}

// averageOffset divides total by count rounding half-up (-2.5 -> -2, 2.5 -> 3).
func averageOffset(total, count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Floor(float64(total)/float64(count) + 0.5))
}
