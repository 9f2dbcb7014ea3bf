// internal/browser/manager.go

// Package browser manages Playwright browser processes and the sessions that
// test scenarios run in. A single browser process is shared; each session owns
// its own isolated contexts and pages.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
	"github.com/xkilldash9x/sockshop-e2e/internal/retry"
)

const playwrightInstallTimeout = 5 * time.Minute
const shutdownGracePeriod = 15 * time.Second

// Manager handles the browser process lifecycle and session creation using Playwright.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *zap.Logger
	cfg     *config.Config

	sessions map[string]*Session
	mu       sync.RWMutex
	wg       sync.WaitGroup // Ensures all sessions are closed before shutting down the browser.

	// sem bounds the number of concurrently open sessions.
	sem *semaphore.Weighted

	// Initialization state management
	initOnce sync.Once
	initErr  error

	// launchRetry governs how launch failures are retried; launch is
	// swappable for tests.
	launchRetry retry.Config
	launch      func(ctx context.Context) error
}

// NewManager creates a new browser manager. Initialization is deferred until
// the first session is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		logger:      logger.Named("browser_manager"),
		cfg:         cfg,
		sessions:    make(map[string]*Session),
		sem:         semaphore.NewWeighted(int64(cfg.Browser.MaxConcurrent)),
		launchRetry: retry.BrowserConfig(),
	}
	m.launch = m.launchOnce
	m.logger.Info("Browser manager created (initialization deferred).",
		zap.String("browser", cfg.Browser.Name),
		zap.Int("max_concurrent", cfg.Browser.MaxConcurrent))
	return m
}

// initialize starts the Playwright driver and launches the browser instance.
// Transient launch failures are retried under the browser retry preset.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Initializing Playwright and launching browser...")

		exec := retry.NewExecutor(m.launchRetry, m.logger, nil)
		if err := exec.Do(ctx, "browser_launch", m.launch); err != nil {
			if _, classified := errs.As(err); classified {
				m.initErr = err
			} else {
				m.initErr = errs.NewLaunchError(m.cfg.Browser.Name, err)
			}
		}
	})
	return m.initErr
}

// launchOnce performs one install/run/launch attempt, unwinding partial
// driver state so a retry starts clean. Raw driver errors are returned
// unwrapped; classification happens after the retry budget is spent.
func (m *Manager) launchOnce(ctx context.Context) error {
	// 1. Ensure Playwright browsers are installed.
	if err := m.ensureInstallation(ctx); err != nil {
		return err
	}

	// 2. Start the Playwright driver.
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright driver: %w", err)
	}

	// 3. Launch the configured browser instance.
	browserType, err := m.browserType(pw)
	if err != nil {
		pw.Stop()
		return err
	}
	browser, err := browserType.Launch(m.prepareLaunchOptions())
	if err != nil {
		pw.Stop() // Clean up the driver if browser launch fails.
		return fmt.Errorf("failed to launch %s: %w", m.cfg.Browser.Name, err)
	}

	m.pw = pw
	m.browser = browser
	m.logger.Info("Browser manager initialized successfully.",
		zap.String("browser_version", browser.Version()))
	return nil
}

func (m *Manager) ensureInstallation(ctx context.Context) error {
	m.logger.Info("Verifying Playwright browser installation...",
		zap.String("browser", m.cfg.Browser.Name))
	installCtx, installCancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer installCancel()

	// Run the install command in a goroutine as it blocks.
	installErrChan := make(chan error, 1)
	go func() {
		options := &playwright.RunOptions{
			Browsers: []string{m.cfg.Browser.Name},
		}
		if err := playwright.Install(options); err != nil {
			installErrChan <- errs.NewBrowserError("failed to install playwright browsers", err)
		} else {
			installErrChan <- nil
		}
	}()

	select {
	case err := <-installErrChan:
		return err
	case <-installCtx.Done():
		return errs.NewTimeoutError("playwright installation", playwrightInstallTimeout, installCtx.Err())
	}
}

func (m *Manager) browserType(pw *playwright.Playwright) (playwright.BrowserType, error) {
	switch m.cfg.Browser.Name {
	case config.BrowserChromium:
		return pw.Chromium, nil
	case config.BrowserFirefox:
		return pw.Firefox, nil
	case config.BrowserWebKit:
		return pw.WebKit, nil
	default:
		return nil, errs.NewConfigError("browser.name",
			fmt.Sprintf("unsupported browser %q", m.cfg.Browser.Name))
	}
}

func (m *Manager) prepareLaunchOptions() playwright.BrowserTypeLaunchOptions {
	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.cfg.Browser.Headless),
		Timeout:  playwright.Float(60000), // 60 seconds launch timeout.
	}
	if m.cfg.Browser.SlowMo > 0 {
		launchOptions.SlowMo = playwright.Float(float64(m.cfg.Browser.SlowMo.Milliseconds()))
	}

	// Stability arguments for containerized runs apply to Chromium only;
	// Firefox and WebKit reject Chromium flags.
	if m.cfg.Browser.Name == config.BrowserChromium {
		defaultArgs := []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--enable-automation",
		}
		launchOptions.Args = append(defaultArgs, m.cfg.Browser.Args...)
	} else {
		launchOptions.Args = m.cfg.Browser.Args
	}
	return launchOptions
}

// NewSession creates a new isolated browser session. It blocks while the
// concurrent session limit is reached, honoring ctx.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	// Ensure initialization happens first.
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	// At the concurrency limit, reclaim idle sessions before blocking on
	// a slot.
	if !m.sem.TryAcquire(1) {
		if reclaimed := m.SweepIdle(m.cfg.Browser.MaxIdle); reclaimed > 0 {
			m.logger.Info("Reclaimed idle sessions at the session limit.",
				zap.Int("reclaimed", reclaimed))
		}
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return nil, errs.Wrap(err, "waiting for a free session slot",
				errs.CategoryTimeout, errs.SeverityMedium)
		}
	}

	session := newSession(m.cfg, m.browser, m.logger)

	m.wg.Add(1) // Increment WG before registering the session.

	// The onClose callback releases the slot and deregisters the session.
	session.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, session.ID())
		m.mu.Unlock()
		m.sem.Release(1)
		m.wg.Done()
		m.logger.Debug("Session removed from manager.", zap.String("session_id", session.ID()))
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.logger.Info("New session created.", zap.String("session_id", session.ID()))
	return session, nil
}

// ActiveSessions returns the number of currently open sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// HealthCheck verifies that the browser process is up and can serve a page.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.initialize(ctx); err != nil {
		return err
	}
	if !m.browser.IsConnected() {
		return errs.NewCrashError("browser process is not connected", nil)
	}

	browserCtx, err := m.browser.NewContext()
	if err != nil {
		return errs.NewBrowserError("failed to open probe context", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return errs.NewBrowserError("failed to open probe page", err)
	}
	return page.Close()
}

// SweepIdle closes sessions that have been idle longer than maxIdle and
// returns how many were closed.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	m.mu.RLock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.IdleTime() > maxIdle {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		m.logger.Info("Closing idle session.",
			zap.String("session_id", s.ID()),
			zap.Duration("idle", s.IdleTime()))
		if err := s.Close(); err != nil {
			m.logger.Warn("Error closing idle session.",
				zap.String("session_id", s.ID()), zap.Error(err))
		}
	}
	return len(stale)
}

// Shutdown gracefully closes all sessions and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager.")

	// If initialization never succeeded there is nothing to tear down.
	if m.pw == nil {
		m.logger.Info("Manager not fully initialized, skipping full shutdown sequence.")
		return nil
	}

	// 1. Close all active sessions concurrently.
	m.mu.RLock()
	sessionsToClose := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessionsToClose = append(sessionsToClose, s)
	}
	m.mu.RUnlock()

	for _, s := range sessionsToClose {
		go func(s *Session) {
			if err := s.Close(); err != nil {
				m.logger.Warn("Error during session close in shutdown.",
					zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}

	// 2. Wait for all sessions to finish closing (monitored by m.wg).
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions closed gracefully.")
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for sessions to close. Proceeding with forceful shutdown.",
			zap.Error(ctx.Err()))
	case <-time.After(shutdownGracePeriod):
		m.logger.Warn("Grace period elapsed waiting for sessions to close.")
	}

	// 3. Close the browser instance and driver.
	var shutdownErr error

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.logger.Error("Failed to close browser instance.", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}

	if err := m.pw.Stop(); err != nil {
		m.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
		}
	}

	m.logger.Info("Browser manager shutdown complete.")
	return shutdownErr
}
