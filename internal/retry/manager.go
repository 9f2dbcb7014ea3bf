// File: internal/retry/manager.go
package retry

import (
	"sync"

	"go.uber.org/zap"
)

// Manager owns the named circuit breakers and the per-operation stats
// registry. One instance is shared across the framework so that breakers for
// the same dependency are shared between callers.
type Manager struct {
	logger *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	stats    map[string]*Stats
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("retry_manager"),
		breakers: make(map[string]*CircuitBreaker),
		stats:    make(map[string]*Stats),
	}
}

// Breaker returns the named breaker, creating it with defaults on first use.
func (m *Manager) Breaker(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(DefaultBreakerConfig(), m.logger.With(zap.String("service", name)))
		m.breakers[name] = cb
	}
	return cb
}

// ConfigureBreaker registers a breaker with explicit settings, replacing any
// existing breaker of the same name.
func (m *Manager) ConfigureBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb := NewCircuitBreaker(cfg, m.logger.With(zap.String("service", name)))
	m.breakers[name] = cb
	return cb
}

func (m *Manager) record(s *Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[s.OperationName] = s
}

// Stats returns the most recent stats for an operation name, or nil.
func (m *Manager) Stats(operation string) *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[operation]
}

// AllStats returns a snapshot of the stats registry.
func (m *Manager) AllStats() map[string]*Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Stats, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

// ClearStats drops all recorded stats.
func (m *Manager) ClearStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[string]*Stats)
	m.logger.Debug("Retry statistics cleared")
}
