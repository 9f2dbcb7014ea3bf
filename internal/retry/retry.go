// File: internal/retry/retry.go

// Package retry implements backoff strategies, a retrying executor with
// per-operation statistics, and a three-state circuit breaker. Retry
// eligibility is decided from the errs taxonomy: severity gates whether an
// error may be retried at all, and the category must be on the config's
// allow list.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Delay computes the wait before the given attempt (1-based). The first
// attempt never waits. Results are capped at max.
func Delay(strategy errs.Strategy, attempt int, base, max time.Duration, multiplier float64) time.Duration {
	if attempt <= 1 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var d time.Duration
	switch strategy {
	case errs.StrategyNone, errs.StrategyImmediate:
		return 0
	case errs.StrategyFixed:
		d = base
	case errs.StrategyLinear:
		d = time.Duration(attempt-1) * base
	case errs.StrategyExponential:
		d = time.Duration(float64(base) * math.Pow(multiplier, float64(attempt-2)))
	case errs.StrategyExponentialJitter:
		exp := float64(base) * math.Pow(multiplier, float64(attempt-2))
		jitter := 0.8 + rand.Float64()*0.4
		d = time.Duration(exp * jitter)
	case errs.StrategyRandom:
		if max <= base {
			d = base
		} else {
			d = base + time.Duration(rand.Int63n(int64(max-base)))
		}
	case errs.StrategyFibonacci:
		a, b := 0, 1
		for i := 0; i < attempt-1; i++ {
			a, b = b, a+b
		}
		d = time.Duration(a) * base
	default:
		d = base
	}

	if max > 0 && d > max {
		d = max
	}
	return d
}

// Config describes a retry policy for one class of operation.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Strategy    errs.Strategy
	Multiplier  float64

	// Categories that are eligible for retry. An empty set permits all.
	RetryOn map[errs.Category]bool
}

// DefaultConfig mirrors the framework-wide defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Strategy:    errs.StrategyExponentialJitter,
		Multiplier:  2.0,
		RetryOn: map[errs.Category]bool{
			errs.CategoryNetwork: true,
			errs.CategoryTimeout: true,
			errs.CategoryBrowser: true,
		},
	}
}

// BrowserConfig tunes retries for browser lifecycle operations.
func BrowserConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Strategy:    errs.StrategyLinear,
		Multiplier:  2.0,
		RetryOn: map[errs.Category]bool{
			errs.CategoryBrowser: true,
			errs.CategoryElement: true,
			errs.CategoryTimeout: true,
		},
	}
}

// NetworkConfig tunes retries for raw network operations.
func NetworkConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Strategy:    errs.StrategyExponentialJitter,
		Multiplier:  2.0,
		RetryOn: map[errs.Category]bool{
			errs.CategoryNetwork:        true,
			errs.CategoryTimeout:        true,
			errs.CategoryInfrastructure: true,
		},
	}
}

// APIConfig tunes retries for calls against the shop's REST API.
func APIConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    20 * time.Second,
		Strategy:    errs.StrategyExponentialJitter,
		Multiplier:  1.5,
		RetryOn: map[errs.Category]bool{
			errs.CategoryNetwork:        true,
			errs.CategoryTimeout:        true,
			errs.CategoryAuthentication: true,
		},
	}
}

// ShouldRetry decides whether err warrants another attempt under the config.
func (c Config) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= c.MaxAttempts {
		return false
	}
	e, ok := errs.As(err)
	if !ok {
		// Unclassified errors are retried; transient driver hiccups often
		// arrive as plain errors.
		return true
	}
	if !e.Severity.ShouldRetry() {
		return false
	}
	if len(c.RetryOn) > 0 && !c.RetryOn[e.Category] {
		return false
	}
	return true
}

// Attempt records the outcome of a single try.
type Attempt struct {
	Number      int
	Timestamp   time.Time
	DelayBefore time.Duration
	Duration    time.Duration
	Err         error
}

// Stats aggregates the attempts of one operation invocation.
type Stats struct {
	OperationID   string
	OperationName string
	Attempts      []Attempt
	TotalDuration time.Duration
	Succeeded     bool
	FinalErr      error
}

// TotalAttempts returns the number of tries made.
func (s *Stats) TotalAttempts() int { return len(s.Attempts) }

// SuccessRate returns the fraction of successful attempts as a percentage.
func (s *Stats) SuccessRate() float64 {
	if len(s.Attempts) == 0 {
		return 0
	}
	ok := 0
	for _, a := range s.Attempts {
		if a.Err == nil {
			ok++
		}
	}
	return float64(ok) / float64(len(s.Attempts)) * 100
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// Executor runs operations under a retry config, optionally through a named
// circuit breaker, and reports stats to the manager.
type Executor struct {
	cfg     Config
	logger  *zap.Logger
	manager *Manager
	breaker *CircuitBreaker

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an executor. manager may be nil when stats collection is
// not wanted.
func NewExecutor(cfg Config, logger *zap.Logger, manager *Manager) *Executor {
	return &Executor{
		cfg:     cfg,
		logger:  logger.Named("retry"),
		manager: manager,
		sleep:   sleepCtx,
	}
}

// WithBreaker routes all calls through the named breaker from the manager.
func (e *Executor) WithBreaker(name string) *Executor {
	if e.manager != nil {
		e.breaker = e.manager.Breaker(name)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn until it succeeds, the retry budget is exhausted, the error is
// classified non-retryable, or ctx is canceled. The returned error is the
// final attempt's error.
func (e *Executor) Do(ctx context.Context, name string, fn Operation) error {
	stats := &Stats{
		OperationID:   uuid.New().String(),
		OperationName: name,
	}
	log := e.logger.With(
		zap.String("operation", name),
		zap.String("operation_id", stats.OperationID),
	)
	log.Debug("Starting operation with retry",
		zap.Int("max_attempts", e.cfg.MaxAttempts),
		zap.String("strategy", string(e.cfg.Strategy)),
	)

	defer func() {
		if e.manager != nil {
			e.manager.record(stats)
		}
	}()

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		delay := Delay(e.cfg.Strategy, attempt, e.cfg.BaseDelay, e.cfg.MaxDelay, e.cfg.Multiplier)
		if delay > 0 {
			log.Debug("Waiting before retry", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			if err := e.sleep(ctx, delay); err != nil {
				stats.FinalErr = err
				return err
			}
		}

		start := time.Now()
		var err error
		if e.breaker != nil {
			err = e.breaker.Call(func() error { return fn(ctx) })
		} else {
			err = fn(ctx)
		}
		elapsed := time.Since(start)

		stats.Attempts = append(stats.Attempts, Attempt{
			Number:      attempt,
			Timestamp:   start,
			DelayBefore: delay,
			Duration:    elapsed,
			Err:         err,
		})
		stats.TotalDuration += elapsed

		if err == nil {
			stats.Succeeded = true
			if attempt > 1 {
				log.Info("Operation succeeded after retry", zap.Int("attempt", attempt), zap.Duration("duration", elapsed))
			}
			return nil
		}

		stats.FinalErr = err
		if ctx.Err() != nil {
			log.Debug("Context done, aborting retries", zap.Error(ctx.Err()))
			return err
		}
		if !e.cfg.ShouldRetry(err, attempt) {
			log.Warn("Attempt failed, not retrying",
				zap.Int("attempt", attempt),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
			return err
		}

		log.Warn("Attempt failed, will retry",
			zap.Int("attempt", attempt),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	}

	log.Error("Operation failed after all attempts",
		zap.Int("attempts", stats.TotalAttempts()),
		zap.Duration("total_duration", stats.TotalDuration),
		zap.Error(stats.FinalErr),
	)
	return stats.FinalErr
}

// Do is a convenience for one-off calls without breaker or stats tracking.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, name string, fn Operation) error {
	return NewExecutor(cfg, logger, nil).Do(ctx, name, fn)
}
