package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	runs  chan time.Time
	clock clockwork.Clock
}

func (c *countingSweeper) Sweep(context.Context) (SweepResult, error) {
	c.runs <- c.clock.Now()
	return SweepResult{}, nil
}

func TestNextMidnight(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "afternoon",
			now:  time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly midnight moves to the next day",
			now:  time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "end of month",
			now:  time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "local zone differs from UTC date",
			now:  time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC), // 01:30 on the 11th in IST
			loc:  kolkata,
			want: time.Date(2025, time.March, 12, 0, 0, 0, 0, kolkata),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextMidnight(tt.now, tt.loc)))
		})
	}
}

func TestScheduler_RunsAtStartupMidnightAndDaily(t *testing.T) {
	start := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	sweeper := &countingSweeper{runs: make(chan time.Time, 4), clock: clock}
	sched := NewScheduler(sweeper, clock, time.UTC, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	assert.Equal(t, start, receive(t, sweeper.runs), "runs immediately")

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(8*time.Hour + 59*time.Minute)
	assertNoRun(t, sweeper.runs)

	clock.Advance(time.Minute)
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), receive(t, sweeper.runs), "next midnight")

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(24 * time.Hour)
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), receive(t, sweeper.runs), "24h later")

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func receive(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sweep")
		return time.Time{}
	}
}

func assertNoRun(t *testing.T, ch <-chan time.Time) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected sweep at %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
