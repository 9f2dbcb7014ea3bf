// File: internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestExecutor returns an executor whose sleeps complete instantly while
// still recording the requested delay through the stats.
func newTestExecutor(cfg Config, m *Manager) *Executor {
	e := NewExecutor(cfg, zap.NewNop(), m)
	e.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	return e
}

func TestDelayStrategies(t *testing.T) {
	base := time.Second
	max := time.Minute

	t.Run("first attempt never waits", func(t *testing.T) {
		for _, s := range []errs.Strategy{errs.StrategyFixed, errs.StrategyLinear, errs.StrategyExponential} {
			assert.Zero(t, Delay(s, 1, base, max, 2.0))
		}
	})

	t.Run("fixed", func(t *testing.T) {
		assert.Equal(t, base, Delay(errs.StrategyFixed, 2, base, max, 2.0))
		assert.Equal(t, base, Delay(errs.StrategyFixed, 5, base, max, 2.0))
	})

	t.Run("linear", func(t *testing.T) {
		assert.Equal(t, base, Delay(errs.StrategyLinear, 2, base, max, 2.0))
		assert.Equal(t, 3*base, Delay(errs.StrategyLinear, 4, base, max, 2.0))
	})

	t.Run("exponential", func(t *testing.T) {
		assert.Equal(t, base, Delay(errs.StrategyExponential, 2, base, max, 2.0))
		assert.Equal(t, 2*base, Delay(errs.StrategyExponential, 3, base, max, 2.0))
		assert.Equal(t, 4*base, Delay(errs.StrategyExponential, 4, base, max, 2.0))
	})

	t.Run("exponential jitter stays within bounds", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d := Delay(errs.StrategyExponentialJitter, 3, base, max, 2.0)
			assert.GreaterOrEqual(t, d, time.Duration(float64(2*base)*0.8))
			assert.LessOrEqual(t, d, time.Duration(float64(2*base)*1.2))
		}
	})

	t.Run("random stays within bounds", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d := Delay(errs.StrategyRandom, 2, base, max, 2.0)
			assert.GreaterOrEqual(t, d, base)
			assert.LessOrEqual(t, d, max)
		}
	})

	t.Run("fibonacci", func(t *testing.T) {
		assert.Equal(t, base, Delay(errs.StrategyFibonacci, 2, base, max, 2.0))
		assert.Equal(t, base, Delay(errs.StrategyFibonacci, 3, base, max, 2.0))
		assert.Equal(t, 2*base, Delay(errs.StrategyFibonacci, 4, base, max, 2.0))
		assert.Equal(t, 3*base, Delay(errs.StrategyFibonacci, 5, base, max, 2.0))
	})

	t.Run("capped at max", func(t *testing.T) {
		assert.Equal(t, max, Delay(errs.StrategyExponential, 20, base, max, 2.0))
	})

	t.Run("none and immediate never wait", func(t *testing.T) {
		assert.Zero(t, Delay(errs.StrategyNone, 5, base, max, 2.0))
		assert.Zero(t, Delay(errs.StrategyImmediate, 5, base, max, 2.0))
	})
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("budget exhausted", func(t *testing.T) {
		assert.False(t, cfg.ShouldRetry(errors.New("x"), cfg.MaxAttempts))
	})

	t.Run("plain errors retry", func(t *testing.T) {
		assert.True(t, cfg.ShouldRetry(errors.New("x"), 1))
	})

	t.Run("severity gates retry", func(t *testing.T) {
		critical := errs.New("boom", errs.CategoryBrowser, errs.SeverityCritical)
		assert.False(t, cfg.ShouldRetry(critical, 1))

		low := errs.New("flaky", errs.CategoryBrowser, errs.SeverityLow)
		assert.True(t, cfg.ShouldRetry(low, 1))
	})

	t.Run("category allow list", func(t *testing.T) {
		dataErr := errs.New("bad data", errs.CategoryData, errs.SeverityLow)
		assert.False(t, cfg.ShouldRetry(dataErr, 1))
	})
}

func TestExecutorSucceedsAfterRetries(t *testing.T) {
	m := NewManager(zap.NewNop())
	ex := newTestExecutor(NetworkConfig(), m)

	calls := 0
	err := ex.Do(context.Background(), "flaky_op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.NewNetworkError("transient", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	stats := m.Stats("flaky_op")
	require.NotNil(t, stats)
	assert.True(t, stats.Succeeded)
	assert.Equal(t, 3, stats.TotalAttempts())
	assert.InDelta(t, 33.3, stats.SuccessRate(), 0.1)
	assert.Positive(t, stats.Attempts[1].DelayBefore, "retries should carry a computed delay")
}

func TestExecutorStopsOnNonRetryable(t *testing.T) {
	ex := newTestExecutor(DefaultConfig(), nil)

	calls := 0
	crash := errs.NewCrashError("browser crashed", nil)
	err := ex.Do(context.Background(), "crash_op", func(ctx context.Context) error {
		calls++
		return crash
	})

	assert.ErrorIs(t, err, crash)
	assert.Equal(t, 1, calls, "critical errors must not be retried")
}

func TestExecutorExhaustsBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 4
	m := NewManager(zap.NewNop())
	ex := newTestExecutor(cfg, m)

	calls := 0
	err := ex.Do(context.Background(), "always_fails", func(ctx context.Context) error {
		calls++
		return errs.NewNetworkError("still down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)

	stats := m.Stats("always_fails")
	require.NotNil(t, stats)
	assert.False(t, stats.Succeeded)
	assert.Equal(t, err, stats.FinalErr)
	assert.Zero(t, stats.SuccessRate())
}

func TestExecutorHonorsContextCancellation(t *testing.T) {
	ex := NewExecutor(DefaultConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := ex.Do(ctx, "canceled_op", func(ctx context.Context) error {
		calls++
		cancel()
		return errs.NewNetworkError("down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation must abort before the next sleep")
}

func TestCircuitBreakerTransitions(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute, SuccessThreshold: 2}
	cb := NewCircuitBreaker(cfg, zap.NewNop())

	now := time.Now()
	cb.now = func() time.Time { return now }

	fail := func() error { return errors.New("down") }
	ok := func() error { return nil }

	// Closed absorbs failures below the threshold.
	require.Error(t, cb.Call(fail))
	require.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.State())

	// A success in closed state resets the count.
	require.NoError(t, cb.Call(ok))
	require.Error(t, cb.Call(fail))
	require.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.State())

	// Third consecutive failure opens the circuit.
	require.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.State())

	// Open rejects immediately.
	assert.ErrorIs(t, cb.Call(ok), ErrCircuitOpen)

	// After the recovery timeout the breaker half-opens.
	now = now.Add(cfg.RecoveryTimeout)
	assert.Equal(t, StateHalfOpen, cb.State())

	// One success is not enough to close.
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateHalfOpen, cb.State())

	// Second success closes.
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerReopensFromHalfOpen(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 2}
	cb := NewCircuitBreaker(cfg, zap.NewNop())

	now := time.Now()
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Call(func() error { return errors.New("down") }))
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(cfg.RecoveryTimeout)
	assert.Equal(t, StateHalfOpen, cb.State())

	// A failed probe re-opens and restarts the recovery clock.
	require.Error(t, cb.Call(func() error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestExecutorWithBreakerFailsFast(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.ConfigureBreaker("catalogue", BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour, SuccessThreshold: 1})

	cfg := NetworkConfig()
	cfg.MaxAttempts = 5
	ex := newTestExecutor(cfg, m).WithBreaker("catalogue")

	calls := 0
	err := ex.Do(context.Background(), "catalogue_list", func(ctx context.Context) error {
		calls++
		return errs.NewNetworkError("503", nil)
	})

	require.Error(t, err)
	// Attempts after the breaker opens are rejected without invoking fn.
	assert.Equal(t, 2, calls)
}

func TestManagerBreakerReuse(t *testing.T) {
	m := NewManager(zap.NewNop())
	a := m.Breaker("payments")
	b := m.Breaker("payments")
	assert.Same(t, a, b)
	assert.NotSame(t, a, m.Breaker("carts"))
}

func TestManagerStatsLifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	ex := newTestExecutor(DefaultConfig(), m)

	_ = ex.Do(context.Background(), "op_a", func(ctx context.Context) error { return nil })
	_ = ex.Do(context.Background(), "op_b", func(ctx context.Context) error { return nil })

	assert.Len(t, m.AllStats(), 2)
	m.ClearStats()
	assert.Empty(t, m.AllStats())
	assert.Nil(t, m.Stats("op_a"))
}
