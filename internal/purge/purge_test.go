package purge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/justestif/go-weather-mood/internal/learning"
)

// mockPurger counts calls and reports a fixed number of deletions.
type mockPurger struct {
	calls   atomic.Int32
	lastDay atomic.Int32
	deleted int64
	err     error
}

func (m *mockPurger) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	m.calls.Add(1)
	m.lastDay.Store(int32(days))
	return m.deleted, m.err
}

var _ suture.Service = (*Service)(nil)

func TestRun(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := &mockPurger{deleted: 4}
	svc := New(p, 30, WithClock(clock), WithCooldown(time.Hour))

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Deleted != 4 || !res.PurgedAt.Equal(now) {
		t.Errorf("result = %+v", res)
	}
	if got := p.lastDay.Load(); got != 30 {
		t.Errorf("retention days = %d, want 30", got)
	}

	// Within the cooldown.
	now = now.Add(30 * time.Minute)
	if _, err := svc.Run(context.Background(), false); !errors.Is(err, ErrPurgeTooRecent) {
		t.Errorf("err = %v, want ErrPurgeTooRecent", err)
	}

	// Forced purges ignore the cooldown.
	if _, err := svc.Run(context.Background(), true); err != nil {
		t.Errorf("forced Run: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Errorf("Run after cooldown: %v", err)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRun_Error(t *testing.T) {
	p := &mockPurger{err: errors.New("db down")}
	svc := New(p, 0)

	if _, err := svc.Run(context.Background(), false); err == nil {
		t.Fatal("expected error")
	}
	if got := p.lastDay.Load(); got != learning.DefaultRetentionDays {
		t.Errorf("retention days = %d, want default %d", got, learning.DefaultRetentionDays)
	}

	// A failed purge does not start the cooldown.
	if _, err := svc.Run(context.Background(), false); errors.Is(err, ErrPurgeTooRecent) {
		t.Error("cooldown started by a failed purge")
	}
}

func TestServe(t *testing.T) {
	p := &mockPurger{}
	svc := New(p, 30, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if p.calls.Load() < 3 {
		t.Errorf("calls = %d, want at least 3", p.calls.Load())
	}
}
