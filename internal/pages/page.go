// Package pages holds the page objects the end-to-end scenarios drive. Each
// page wraps a live playwright page with logging, element retries, and error
// classification so scenario code stays free of driver plumbing.
package pages

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
	"github.com/xkilldash9x/sockshop-e2e/internal/retry"
)

// interactionRetryConfig keeps element retries snappy. Element and timeout
// failures are usually rendering races that resolve within a second.
func interactionRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Strategy:    errs.StrategyExponential,
		Multiplier:  2.0,
		RetryOn: map[errs.Category]bool{
			errs.CategoryElement: true,
			errs.CategoryTimeout: true,
		},
	}
}

// Base is the shared behavior of every page object.
type Base struct {
	name    string
	session *browser.Session
	page    playwright.Page
	cfg     *config.Config
	logger  *zap.Logger
	exec    *retry.Executor
}

// NewBase binds a page object to a live playwright page.
func NewBase(name string, session *browser.Session, page playwright.Page, cfg *config.Config, logger *zap.Logger) *Base {
	pageLogger := logger.With(zap.String("page", name))
	return &Base{
		name:    name,
		session: session,
		page:    page,
		cfg:     cfg,
		logger:  pageLogger,
		exec:    retry.NewExecutor(interactionRetryConfig(), pageLogger, nil),
	}
}

// Name returns the page object's name.
func (b *Base) Name() string { return b.name }

// Page exposes the underlying playwright page for one-off operations.
func (b *Base) Page() playwright.Page { return b.page }

// resolveURL joins a path with the configured base URL. Absolute URLs pass
// through unchanged.
func resolveURL(base, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errs.NewConfigError("base_url", err.Error())
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", errs.NewValidationError("path", err.Error())
	}
	return u.ResolveReference(ref).String(), nil
}

// Open navigates to a path relative to the configured base URL.
func (b *Base) Open(ctx context.Context, path string) error {
	target, err := resolveURL(b.cfg.BaseURL, path)
	if err != nil {
		return err
	}
	b.logger.Debug("opening page", zap.String("url", target))
	return b.exec.Do(ctx, "page_open", func(ctx context.Context) error {
		return b.session.Navigate(b.page, target)
	})
}

func (b *Base) actionTimeout() *float64 {
	return playwright.Float(float64(b.cfg.Browser.Timeout.Milliseconds()))
}

// Click clicks the element matching selector, retrying transient element
// failures.
func (b *Base) Click(ctx context.Context, selector string) error {
	return b.exec.Do(ctx, "page_click", func(ctx context.Context) error {
		err := b.page.Locator(selector).Click(playwright.LocatorClickOptions{
			Timeout: b.actionTimeout(),
		})
		if err != nil {
			return errs.NewElementInteraction(selector, "click", err)
		}
		return nil
	})
}

// Fill types a value into the element matching selector, clearing any
// existing content first.
func (b *Base) Fill(ctx context.Context, selector, value string) error {
	return b.exec.Do(ctx, "page_fill", func(ctx context.Context) error {
		err := b.page.Locator(selector).Fill(value, playwright.LocatorFillOptions{
			Timeout: b.actionTimeout(),
		})
		if err != nil {
			return errs.NewElementInteraction(selector, "fill", err)
		}
		return nil
	})
}

// Text returns the trimmed text content of the element matching selector.
func (b *Base) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := b.exec.Do(ctx, "page_text", func(ctx context.Context) error {
		content, err := b.page.Locator(selector).TextContent(playwright.LocatorTextContentOptions{
			Timeout: b.actionTimeout(),
		})
		if err != nil {
			return errs.NewElementNotFound(selector, err)
		}
		text = strings.TrimSpace(content)
		return nil
	})
	return text, err
}

// WaitVisible blocks until the element matching selector is visible.
func (b *Base) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = b.cfg.Browser.Timeout
	}
	err := b.page.Locator(selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return errs.NewElementTimeout(selector, timeout, err)
	}
	return nil
}

// IsVisible reports whether the element matching selector is currently
// visible. Lookup failures count as not visible.
func (b *Base) IsVisible(selector string) bool {
	visible, err := b.page.Locator(selector).IsVisible()
	if err != nil {
		b.logger.Debug("visibility check failed",
			zap.String("selector", selector), zap.Error(err))
		return false
	}
	return visible
}

// Count returns how many elements match selector.
func (b *Base) Count(selector string) (int, error) {
	n, err := b.page.Locator(selector).Count()
	if err != nil {
		return 0, errs.NewElementNotFound(selector, err)
	}
	return n, nil
}

// URL returns the page's current URL.
func (b *Base) URL() string { return b.page.URL() }

// Title returns the document title.
func (b *Base) Title() (string, error) {
	title, err := b.page.Title()
	if err != nil {
		return "", errs.NewBrowserError("failed to read page title", err)
	}
	return title, nil
}

// CaptureFailure saves a screenshot for a failed step and returns its path.
// Capture failures are logged, never propagated; the original test failure
// matters more.
func (b *Base) CaptureFailure(name string) string {
	path, err := b.session.Screenshot(b.page, b.name+"_"+name)
	if err != nil {
		b.logger.Warn("failed to capture failure screenshot",
			zap.String("step", name), zap.Error(err))
		return ""
	}
	b.logger.Info("captured failure screenshot", zap.String("path", path))
	return path
}
