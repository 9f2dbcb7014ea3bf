// internal/browser/session.go
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Session is an isolated unit of browser work. It owns the contexts and pages
// it creates and closes them all when the session closes.
type Session struct {
	id      string
	logger  *zap.Logger
	cfg     *config.Config
	browser playwright.Browser

	onClose func()

	mu        sync.Mutex
	contexts  []playwright.BrowserContext
	pages     []playwright.Page
	createdAt time.Time
	lastUsed  time.Time
	isClosed  bool
}

func newSession(cfg *config.Config, browser playwright.Browser, logger *zap.Logger) *Session {
	sessionID := uuid.New().String()
	now := time.Now()
	return &Session{
		id:        sessionID,
		logger:    logger.With(zap.String("session_id", sessionID)),
		cfg:       cfg,
		browser:   browser,
		createdAt: now,
		lastUsed:  now,
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.createdAt)
}

// IdleTime returns how long ago the session was last used.
func (s *Session) IdleTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastUsed)
}

// touch records activity. Callers must not hold s.mu.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// contextOptions maps the browser configuration to Playwright context options.
func (s *Session) contextOptions() playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.cfg.Browser.ViewportWidth,
			Height: s.cfg.Browser.ViewportHeight,
		},
		Locale:     playwright.String(s.cfg.Browser.Locale),
		TimezoneId: playwright.String(s.cfg.Browser.Timezone),
		BaseURL:    playwright.String(s.cfg.BaseURL),
	}
	if s.cfg.Browser.RecordVideo {
		opts.RecordVideo = &playwright.RecordVideo{
			Dir: filepath.Join(s.cfg.Browser.ScreenshotDir, "videos"),
		}
	}
	return opts
}

// NewContext creates an isolated browser context owned by this session.
func (s *Session) NewContext() (playwright.BrowserContext, error) {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil, errs.NewBrowserError("session is closed", nil)
	}
	s.mu.Unlock()

	browserCtx, err := s.browser.NewContext(s.contextOptions())
	if err != nil {
		return nil, errs.Classify(err)
	}

	s.mu.Lock()
	s.contexts = append(s.contexts, browserCtx)
	s.lastUsed = time.Now()
	s.mu.Unlock()

	s.logger.Debug("Browser context created.")
	return browserCtx, nil
}

// NewPage opens a page in a fresh context.
func (s *Session) NewPage() (playwright.Page, error) {
	browserCtx, err := s.NewContext()
	if err != nil {
		return nil, err
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, errs.Classify(err)
	}
	page.SetDefaultTimeout(float64(s.cfg.Browser.Timeout.Milliseconds()))

	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.lastUsed = time.Now()
	s.mu.Unlock()

	return page, nil
}

// Navigate drives a page to the given URL and waits for the load event.
// Failures come back classified with the URL attached.
func (s *Session) Navigate(page playwright.Page, url string) error {
	s.touch()
	timeout := s.cfg.Browser.Timeout
	s.logger.Debug("Navigating.", zap.String("url", url))

	_, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return errs.ClassifyNavigation(err, url, timeout)
	}
	return nil
}

// Screenshot captures the page into the configured screenshot directory and
// returns the file path.
func (s *Session) Screenshot(page playwright.Page, name string) (string, error) {
	s.touch()
	if err := os.MkdirAll(s.cfg.Browser.ScreenshotDir, 0o755); err != nil {
		return "", errs.Wrap(err, "creating screenshot directory",
			errs.CategoryInfrastructure, errs.SeverityLow)
	}

	path := filepath.Join(s.cfg.Browser.ScreenshotDir,
		fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", errs.Classify(err)
	}

	s.logger.Debug("Screenshot captured.", zap.String("path", path))
	return path, nil
}

// PageCount returns the number of pages opened through this session.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Close terminates the session and all contexts it owns. Safe to call more
// than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	contexts := s.contexts
	s.contexts = nil
	s.pages = nil
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	var closeErr error
	for _, browserCtx := range contexts {
		// Closing a context closes its pages too.
		if err := browserCtx.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	if s.onClose != nil {
		s.onClose()
	}

	if closeErr != nil {
		return errs.Classify(closeErr)
	}
	return nil
}
