// File: internal/observability/timer.go
package observability

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Timer measures the duration of a named operation and logs a warning when it
// exceeds its threshold. A zero threshold disables the check.
type Timer struct {
	logger    *zap.Logger
	operation string
	threshold time.Duration
	started   time.Time

	mu      sync.Mutex
	stopped bool
	elapsed time.Duration
}

// StartTimer begins measuring the named operation.
func StartTimer(logger *zap.Logger, operation string, threshold time.Duration) *Timer {
	return &Timer{
		logger:    logger,
		operation: operation,
		threshold: threshold,
		started:   time.Now(),
	}
}

// Stop ends the measurement and logs the result. Subsequent calls return the
// duration recorded by the first.
func (t *Timer) Stop() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return t.elapsed
	}
	t.stopped = true
	t.elapsed = time.Since(t.started)

	fields := []zap.Field{
		zap.String("operation", t.operation),
		zap.Duration("elapsed", t.elapsed),
	}
	if t.threshold > 0 && t.elapsed > t.threshold {
		t.logger.Warn("operation exceeded threshold",
			append(fields, zap.Duration("threshold", t.threshold))...)
	} else {
		t.logger.Debug("operation timed", fields...)
	}
	return t.elapsed
}

// Exceeded reports whether the measured duration passed the threshold. It
// stops the timer if still running.
func (t *Timer) Exceeded() bool {
	elapsed := t.Stop()
	return t.threshold > 0 && elapsed > t.threshold
}
