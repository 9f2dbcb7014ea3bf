// internal/browser/manager_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Environment = config.EnvTesting
	return cfg
}

func TestNewManagerDefersInitialization(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())

	require.NotNil(t, m)
	assert.Nil(t, m.pw, "driver must not start until a session is requested")
	assert.Nil(t, m.browser)
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestPrepareLaunchOptionsChromiumStabilityArgs(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.Name = config.BrowserChromium
	cfg.Browser.Args = []string{"--lang=en-US"}
	cfg.Browser.Headless = true
	m := NewManager(cfg, zap.NewNop())

	opts := m.prepareLaunchOptions()

	require.NotNil(t, opts.Headless)
	assert.True(t, *opts.Headless)
	assert.Contains(t, opts.Args, "--no-sandbox")
	assert.Contains(t, opts.Args, "--disable-dev-shm-usage")
	assert.Contains(t, opts.Args, "--lang=en-US", "user args must survive the merge")
}

func TestPrepareLaunchOptionsNonChromiumSkipsChromiumFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.Name = config.BrowserFirefox
	cfg.Browser.Args = []string{"-wait-for-browser"}
	m := NewManager(cfg, zap.NewNop())

	opts := m.prepareLaunchOptions()

	assert.NotContains(t, opts.Args, "--no-sandbox")
	assert.Equal(t, []string{"-wait-for-browser"}, opts.Args)
}

func TestPrepareLaunchOptionsSlowMo(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.SlowMo = 250 * time.Millisecond
	m := NewManager(cfg, zap.NewNop())

	opts := m.prepareLaunchOptions()

	require.NotNil(t, opts.SlowMo)
	assert.Equal(t, 250.0, *opts.SlowMo)
}

func TestInitializeRetriesTransientLaunchFailure(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())
	m.launchRetry.BaseDelay = time.Millisecond
	m.launchRetry.MaxDelay = 5 * time.Millisecond

	calls := 0
	m.launch = func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("browser process exited during startup")
		}
		return nil
	}

	require.NoError(t, m.initialize(context.Background()))
	assert.Equal(t, 3, calls)

	// A second call must not relaunch.
	require.NoError(t, m.initialize(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestInitializeClassifiesExhaustedLaunch(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())
	m.launchRetry.BaseDelay = time.Millisecond
	m.launchRetry.MaxDelay = 5 * time.Millisecond

	calls := 0
	m.launch = func(ctx context.Context) error {
		calls++
		return errors.New("spawn failure")
	}

	err := m.initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, m.launchRetry.MaxAttempts, calls)
	assert.Equal(t, errs.CategoryBrowser, errs.CategoryOf(err))
}

func TestNewSessionReclaimsIdleSessionAtLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.MaxConcurrent = 1
	cfg.Browser.MaxIdle = time.Hour
	m := NewManager(cfg, zap.NewNop())
	m.launch = func(ctx context.Context) error { return nil }

	// Occupy the only slot with a long-idle session.
	require.True(t, m.sem.TryAcquire(1))
	stale := newSession(cfg, nil, zap.NewNop())
	stale.mu.Lock()
	stale.lastUsed = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()
	stale.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, stale.ID())
		m.mu.Unlock()
		m.sem.Release(1)
	}
	m.mu.Lock()
	m.sessions[stale.ID()] = stale
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	session, err := m.NewSession(ctx)
	require.NoError(t, err, "the idle session must be reclaimed instead of blocking")
	assert.True(t, stale.isClosed)

	require.NoError(t, session.Close())
}

func TestSweepIdleClosesStaleSessions(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg, zap.NewNop())

	fresh := newSession(cfg, nil, zap.NewNop())
	stale := newSession(cfg, nil, zap.NewNop())
	stale.mu.Lock()
	stale.lastUsed = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	m.mu.Lock()
	m.sessions[fresh.ID()] = fresh
	m.sessions[stale.ID()] = stale
	m.mu.Unlock()

	closed := m.SweepIdle(time.Hour)

	assert.Equal(t, 1, closed)
	assert.True(t, stale.isClosed)
	assert.False(t, fresh.isClosed)
}

func TestShutdownWithoutInitializationIsNoop(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.Shutdown(ctx))
}
