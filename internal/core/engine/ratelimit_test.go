package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewRateLimiterRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		window time.Duration
		limit  int
		field  string
	}{
		{name: "ZeroWindow", window: 0, limit: 1, field: "window"},
		{name: "NegativeWindow", window: -time.Second, limit: 1, field: "window"},
		{name: "ZeroLimit", window: time.Second, limit: 0, field: "limit"},
		{name: "NegativeLimit", window: time.Second, limit: -3, field: "limit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limiter, err := NewRateLimiter(tc.window, tc.limit)
			require.Nil(t, limiter)

			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Second, 3, WithClock(clock.Now))
	require.NoError(t, err)

	results := []bool{limiter.Admit(), limiter.Admit(), limiter.Admit(), limiter.Admit()}
	require.Equal(t, []bool{true, true, true, false}, results)

	clock.Advance(1100 * time.Millisecond)
	require.True(t, limiter.Admit())
	require.Equal(t, 1, limiter.State().RequestCount)
}

func TestRateLimiterSequentialAdmitsMinOfCallsAndLimit(t *testing.T) {
	for _, calls := range []int{0, 1, 4, 5, 6, 12} {
		clock := newFakeClock()
		limiter, err := NewRateLimiter(time.Minute, 5, WithClock(clock.Now))
		require.NoError(t, err)

		admitted := 0
		sawReject := false
		for i := 0; i < calls; i++ {
			ok := limiter.Admit()
			if ok {
				require.False(t, sawReject, "admit after reject within one window")
				admitted++
			} else {
				sawReject = true
			}
		}
		require.Equal(t, min(calls, 5), admitted)
	}
}

func TestRateLimiterResetAtExactBoundary(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Second, 1, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, limiter.Admit())
	clock.Advance(999 * time.Millisecond)
	require.False(t, limiter.Admit())

	clock.Advance(time.Millisecond)
	require.True(t, limiter.Admit())

	state := limiter.State()
	require.Equal(t, 1, state.RequestCount)
	require.Equal(t, clock.Now(), state.WindowStart)
}

func TestRateLimiterRejectDoesNotIncrement(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Second, 2, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, limiter.Admit())
	require.True(t, limiter.Admit())
	for i := 0; i < 10; i++ {
		require.False(t, limiter.Admit())
	}
	require.Equal(t, 2, limiter.State().RequestCount)
}

func TestRateLimiterLazyResetOnlyOnAccess(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Second, 1, WithClock(clock.Now))
	require.NoError(t, err)

	start := limiter.State().WindowStart
	require.True(t, limiter.Admit())

	clock.Advance(time.Hour)
	state := limiter.State()
	require.Equal(t, start, state.WindowStart)
	require.Equal(t, 1, state.RequestCount)
	require.Equal(t, time.Duration(0), limiter.Wait())

	require.True(t, limiter.Admit())
	require.Equal(t, clock.Now(), limiter.State().WindowStart)
}

func TestRateLimiterWait(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Minute, 1, WithClock(clock.Now))
	require.NoError(t, err)

	require.Equal(t, time.Duration(0), limiter.Wait())
	require.True(t, limiter.Admit())

	clock.Advance(20 * time.Second)
	require.Equal(t, 40*time.Second, limiter.Wait())

	state := limiter.State()
	require.True(t, state.Saturated())
	require.Equal(t, state.WindowStart.Add(time.Minute), state.ResetAt)
}

func TestRateLimiterConcurrentAdmit(t *testing.T) {
	const (
		limit   = 25
		callers = 200
	)

	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Minute, limit, WithClock(clock.Now))
	require.NoError(t, err)

	var (
		admitted atomic.Int64
		rejected atomic.Int64
		wg       sync.WaitGroup
		start    = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if limiter.Admit() {
				admitted.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(limit), admitted.Load())
	require.Equal(t, int64(callers-limit), rejected.Load())
	require.Equal(t, limit, limiter.State().RequestCount)
}

func TestRateLimiterConcurrentAcrossWindows(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(time.Second, 10, WithClock(clock.Now))
	require.NoError(t, err)

	for window := 0; window < 3; window++ {
		var (
			admitted atomic.Int64
			wg       sync.WaitGroup
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Admit() {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int64(10), admitted.Load())
		clock.Advance(time.Second)
	}
}

func TestRateLimiterDefaultClock(t *testing.T) {
	limiter, err := NewRateLimiter(50*time.Millisecond, 1)
	require.NoError(t, err)

	require.True(t, limiter.Admit())
	require.False(t, limiter.Admit())
	time.Sleep(60 * time.Millisecond)
	require.True(t, limiter.Admit())
	require.Equal(t, 1, limiter.Limit())
	require.Equal(t, 50*time.Millisecond, limiter.Window())
}
