package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/justestif/go-weather-mood/internal/learning"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Get(ctx, "u1", "2026-03-15")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.Count != 0 || rec.TotalOffset != 0 {
		t.Errorf("Get() on missing row = %+v, want zero record", rec)
	}

	if _, err := s.Increment(ctx, "u1", "2026-03-15", 10); err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	rec, err = s.Increment(ctx, "u1", "2026-03-15", -4)
	if err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	if rec.TotalOffset != 6 || rec.Count != 2 {
		t.Errorf("Increment() = %+v, want total 6 count 2", rec)
	}
	if rec.Bias() != 3 {
		t.Errorf("Bias() = %d, want 3", rec.Bias())
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Get(ctx, "nobody", "2026-03-15")
	if err != nil {
		t.Fatalf("Get() on missing row error: %v", err)
	}
	want := learning.Record{Identity: "nobody", Date: "2026-03-15"}
	if rec != want {
		t.Errorf("Get() = %+v, want %+v", rec, want)
	}

	// Errors other than a missing row are returned, not masked as empty records.
	s.Close()
	if _, err := s.Get(ctx, "nobody", "2026-03-15"); err == nil {
		t.Error("Get() on closed db returned no error")
	}
}

func TestIncrement_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const n = 25
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			if _, err := s.Increment(ctx, "u1", "2026-03-15", offset); err != nil {
				t.Errorf("Increment() error: %v", err)
			}
		}(i - 12)
	}
	wg.Wait()

	rec, err := s.Get(ctx, "u1", "2026-03-15")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.Count != n {
		t.Errorf("Count = %d, want %d", rec.Count, n)
	}
	if rec.TotalOffset != 0 {
		t.Errorf("TotalOffset = %d, want 0", rec.TotalOffset)
	}
}

func TestHistoryAndPurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, d := range []string{"2026-02-12", "2026-02-13", "2026-02-14", "2026-03-15"} {
		if _, err := s.Increment(ctx, "u1", d, 3); err != nil {
			t.Fatalf("Increment(%s) error: %v", d, err)
		}
	}
	if _, err := s.Increment(ctx, "u2", "2026-03-15", 3); err != nil {
		t.Fatalf("Increment() error: %v", err)
	}

	got, err := s.History(ctx, "u1", "2026-02-13")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	wantDates := []string{"2026-03-15", "2026-02-14", "2026-02-13"}
	if len(got) != len(wantDates) {
		t.Fatalf("History() returned %d records, want %d", len(got), len(wantDates))
	}
	for i, d := range wantDates {
		if got[i].Date != d {
			t.Errorf("History()[%d].Date = %s, want %s", i, got[i].Date, d)
		}
	}

	n, err := s.DeleteBefore(ctx, "2026-02-13")
	if err != nil {
		t.Fatalf("DeleteBefore() error: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteBefore() = %d, want 1", n)
	}

	n, err = s.DeleteForIdentity(ctx, "u1")
	if err != nil {
		t.Fatalf("DeleteForIdentity() error: %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteForIdentity() = %d, want 3", n)
	}

	rec, _ := s.Get(ctx, "u2", "2026-03-15")
	if rec.Count != 1 {
		t.Errorf("u2 record = %+v, want untouched", rec)
	}
}

func TestStoreIntegration(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	store := learning.NewStore(s, learning.WithClock(now))

	old := learning.Day(now().AddDate(0, 0, -31))
	kept := learning.Day(now().AddDate(0, 0, -29))
	for _, d := range []string{old, kept} {
		if err := store.RecordFeedback(ctx, "u1", d, 5); err != nil {
			t.Fatalf("RecordFeedback() error: %v", err)
		}
	}

	n, err := store.PurgeOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan() error: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeOlderThan() = %d, want 1", n)
	}
	if got := store.LearnedBias(ctx, "u1", kept); got != 5 {
		t.Errorf("LearnedBias() = %d, want 5", got)
	}
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	search := learning.Search{
		Identity:           "u1",
		City:               "Oslo",
		Weather:            "Snow",
		TemperatureCelsius: -3.5,
		LocalHour:          8,
		BaseMood:           40,
		LearnedBias:        -2,
		UserOffset:         5,
		FinalMood:          43,
	}
	for range 2 {
		if err := s.Log(ctx, search); err != nil {
			t.Fatalf("Log() error: %v", err)
		}
	}

	n, err := s.searchCount(ctx, "u1")
	if err != nil {
		t.Fatalf("searchCount() error: %v", err)
	}
	if n != 2 {
		t.Errorf("searchCount() = %d, want 2", n)
	}
}
