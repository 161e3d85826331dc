package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensemanager/internal/log"
)

func TestParseRunAt(t *testing.T) {
	tests := []struct {
		in         string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{"00:00", 0, 0, false},
		{"06:30", 6, 30, false},
		{" 23:59 ", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseRunAt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (h != tt.wantHour || m != tt.wantMinute) {
				t.Errorf("got %02d:%02d", h, m)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", base, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"exactly now rolls over", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)},
		{"already passed", time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)},
		{"non utc input", time.Date(2024, 5, 1, 13, 0, 0, 0, time.FixedZone("CEST", 2*3600)), time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextRun(tt.now, 12, 0); !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyRunsJobUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	d := NewDaily(0, 0, func(context.Context) {
		runs++
		if runs == 3 {
			cancel()
		}
	}, log.Discard())

	var waits []time.Duration
	d.now = func() time.Time { return time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC) }
	d.after = func(wait time.Duration) <-chan time.Time {
		waits = append(waits, wait)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runs != 3 {
		t.Fatalf("expected 3 runs, got %d", runs)
	}
	if waits[0] != time.Hour {
		t.Errorf("expected 1h wait until midnight, got %v", waits[0])
	}
}
