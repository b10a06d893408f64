package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		calls int
		want  int
	}{
		{"within burst", 3, 3, 3},
		{"beyond burst", 2, 5, 2},
		{"single token", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(0.001, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("203.0.113.7") {
					passed++
				}
			}
			assert.Equal(t, tt.want, passed)
		})
	}
}

func TestKeyedRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("203.0.113.7"))
	assert.False(t, rl.Allow("203.0.113.7"))
	assert.True(t, rl.Allow("198.51.100.4"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(0.001, 2)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Burst tokens are handed out without blocking.
	require.NoError(t, rl.Wait(ctx, "smtp.example.com"))
	require.NoError(t, rl.Wait(ctx, "smtp.example.com"))

	// The next token is far beyond the deadline, so Wait gives up.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	assert.Error(t, rl.Wait(short, "smtp.example.com"))
}

func TestKeyedRateLimiter_WaitCancelled(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()
	rl.Allow("smtp.example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "smtp.example.com"))
}

func TestKeyedRateLimiter_EvictsIdleKeys(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := New(1, 1, WithClock(clock), WithIdleTTL(time.Minute))
	defer rl.Stop()

	rl.Allow("idle")
	clock.Advance(30 * time.Second)
	rl.Allow("active")
	assert.Equal(t, 2, rl.Len())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, rl.Evict())
	assert.Equal(t, 1, rl.Len())

	// An evicted key starts over with a full bucket.
	assert.True(t, rl.Allow("idle"))
}

func TestNewPerInterval_MailRelayBudget(t *testing.T) {
	// Thirty messages a minute, all of them available up front.
	rl := NewPerInterval(30, time.Minute, 30)
	defer rl.Stop()

	passed := 0
	for range 40 {
		if rl.Allow("smtp.example.com") {
			passed++
		}
	}
	assert.Equal(t, 30, passed)
}

func TestKeyedRateLimiter_StopTwice(t *testing.T) {
	rl := New(1, 1, WithClock(clockwork.NewFakeClock()))
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}
