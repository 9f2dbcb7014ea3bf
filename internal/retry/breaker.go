// File: internal/retry/breaker.go
package retry

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is rejected because the breaker is
// open and the recovery timeout has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before a half-open
	// probe is allowed.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int
}

// DefaultBreakerConfig matches the shipped defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker guards a repeatedly failing dependency. Closed passes calls
// through, open fails fast, half-open lets probes test for recovery.
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		cfg:    cfg,
		logger: logger.Named("circuit_breaker"),
		state:  StateClosed,
		now:    time.Now,
	}
}

// State returns the current breaker state, accounting for recovery timeouts.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.cfg.RecoveryTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Call runs fn through the breaker. When the circuit is open the call is
// rejected immediately with ErrCircuitOpen.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	switch cb.currentStateLocked() {
	case StateOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.state == StateOpen {
			cb.state = StateHalfOpen
			cb.logger.Info("Circuit breaker half-open, probing dependency")
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailureLocked()
		return err
	}
	cb.onSuccessLocked()
	return nil
}

func (cb *CircuitBreaker) onSuccessLocked() {
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
			cb.logger.Info("Circuit breaker closed, dependency recovered")
		}
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.failures++
	cb.successes = 0
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.logger.Warn("Circuit breaker opened",
				zap.Int("failures", cb.failures),
				zap.Int("threshold", cb.cfg.FailureThreshold),
			)
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.logger.Warn("Circuit breaker re-opened, dependency still failing")
	}
}
