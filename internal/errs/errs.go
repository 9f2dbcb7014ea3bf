// File: internal/errs/errs.go

// Package errs defines the framework's error taxonomy. Every failure that
// crosses a package boundary is wrapped in an *Error carrying a category,
// severity, correlation id, free-form context, and recovery suggestions so
// that retry logic and reporting can make decisions without string matching.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is the base error type for the framework.
type Error struct {
	Message       string
	Code          string
	CorrelationID string
	Category      Category
	Severity      Severity
	Strategy      Strategy
	Context       map[string]any
	Suggestions   []string
	Timestamp     time.Time
	Cause         error
}

// New creates a taxonomy error with the given category and severity. The
// error code and correlation id are generated; use the fluent With* methods
// to attach context.
func New(message string, category Category, severity Severity) *Error {
	now := time.Now()
	return &Error{
		Message:       message,
		Code:          generateCode(category, now),
		CorrelationID: uuid.New().String(),
		Category:      category,
		Severity:      severity,
		Strategy:      category.DefaultStrategy(),
		Context:       make(map[string]any),
		Timestamp:     now,
	}
}

// Newf is New with fmt formatting.
func Newf(category Category, severity Severity, format string, args ...any) *Error {
	return New(fmt.Sprintf(format, args...), category, severity)
}

// Wrap creates a taxonomy error with the given cause attached.
func Wrap(cause error, message string, category Category, severity Severity) *Error {
	e := New(message, category, severity)
	e.Cause = cause
	return e
}

func generateCode(category Category, ts time.Time) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(string(category)), ts.Format("20060102_150405.000000"))
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s/%s] %s", e.Category, e.Severity, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair for debugging. Returns the receiver
// for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// WithSuggestion appends a recovery suggestion, skipping duplicates.
func (e *Error) WithSuggestion(suggestion string) *Error {
	for _, s := range e.Suggestions {
		if s == suggestion {
			return e
		}
	}
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSeverity overrides the severity.
func (e *Error) WithSeverity(severity Severity) *Error {
	e.Severity = severity
	return e
}

// WithStrategy overrides the suggested retry strategy.
func (e *Error) WithStrategy(strategy Strategy) *Error {
	e.Strategy = strategy
	return e
}

// Retryable reports whether a retry of the failed operation could succeed,
// based on severity and the suggested strategy.
func (e *Error) Retryable() bool {
	return e.Severity.ShouldRetry() && e.Strategy != StrategyNone
}

// ToMap flattens the error into a map suitable for structured logging and
// monitoring pipelines.
func (e *Error) ToMap() map[string]any {
	m := map[string]any{
		"message":        e.Message,
		"error_code":     e.Code,
		"correlation_id": e.CorrelationID,
		"category":       string(e.Category),
		"severity":       string(e.Severity),
		"retry_strategy": string(e.Strategy),
		"retryable":      e.Retryable(),
		"timestamp":      e.Timestamp.Format(time.RFC3339Nano),
		"tags":           e.Category.MonitoringTags(),
	}
	if len(e.Context) > 0 {
		m["context"] = e.Context
	}
	if len(e.Suggestions) > 0 {
		m["recovery_suggestions"] = e.Suggestions
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

// JSON serializes the monitoring map.
func (e *Error) JSON() (string, error) {
	data, err := json.Marshal(e.ToMap())
	if err != nil {
		return "", fmt.Errorf("failed to marshal error: %w", err)
	}
	return string(data), nil
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CategoryOf returns the category of err, or CategoryInfrastructure if err is
// not a taxonomy error.
func CategoryOf(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return CategoryInfrastructure
}

// SeverityOf returns the severity of err, or SeverityMedium for plain errors.
func SeverityOf(err error) Severity {
	if e, ok := As(err); ok {
		return e.Severity
	}
	return SeverityMedium
}

// -- Browser errors --

// NewBrowserError covers general browser lifecycle failures.
func NewBrowserError(message string, cause error) *Error {
	return Wrap(cause, message, CategoryBrowser, SeverityHigh).
		WithSuggestion("Check if the browser is properly installed").
		WithSuggestion("Try restarting the browser").
		WithSuggestion("Check system resources (memory, disk space)")
}

// NewLaunchError is raised when a browser process cannot be started.
func NewLaunchError(browserName string, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("failed to launch browser %q", browserName), CategoryBrowser, SeverityCritical).
		WithStrategy(StrategyLinear).
		WithContext("browser_name", browserName).
		WithSuggestion("Verify the browser executable exists and is accessible").
		WithSuggestion("Run the doctor command to verify driver installation").
		WithSuggestion("Try launching the browser manually to test")
}

// NewCrashError is raised when the browser terminates unexpectedly mid-run.
func NewCrashError(message string, cause error) *Error {
	return Wrap(cause, message, CategoryBrowser, SeverityCritical).
		WithStrategy(StrategyNone).
		WithSuggestion("Restart the browser session").
		WithSuggestion("Check for out-of-memory kills in system logs")
}

// NewNavigationError is raised when page navigation fails.
func NewNavigationError(targetURL string, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("navigation to %s failed", targetURL), CategoryBrowser, SeverityMedium).
		WithStrategy(StrategyLinear).
		WithContext("target_url", targetURL).
		WithSuggestion("Verify the target URL is reachable").
		WithSuggestion("Check DNS resolution and connectivity")
}

// -- Element errors --

// NewElementNotFound is raised when a selector matches nothing.
func NewElementNotFound(selector string, cause error) *Error {
	e := Wrap(cause, fmt.Sprintf("element not found: %s", selector), CategoryElement, SeverityMedium).
		WithStrategy(StrategyLinear).
		WithContext("selector", selector).
		WithSuggestion("Verify the selector matches the current DOM").
		WithSuggestion("Wait for the page to finish loading before querying")
	analyzeSelector(e, selector)
	return e
}

// NewElementInteraction is raised when an element exists but cannot be
// interacted with (obscured, disabled, detached).
func NewElementInteraction(selector, action string, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("cannot %s element %s", action, selector), CategoryElement, SeverityMedium).
		WithStrategy(StrategyLinear).
		WithContext("selector", selector).
		WithContext("action", action).
		WithSuggestion("Scroll the element into view before interacting").
		WithSuggestion("Check for overlays or modals covering the element")
}

// NewElementState is raised when an element is found but in the wrong state
// for the requested action (disabled, hidden, read-only).
func NewElementState(selector, state string, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("element %s is %s", selector, state), CategoryElement, SeverityMedium).
		WithStrategy(StrategyLinear).
		WithContext("selector", selector).
		WithContext("state", state).
		WithSuggestion("Wait for the element to become actionable").
		WithSuggestion("Check whether the UI disables the control under current data")
}

// NewElementTimeout is raised when waiting for an element state times out.
func NewElementTimeout(selector string, timeout time.Duration, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("timed out after %s waiting for %s", timeout, selector), CategoryTimeout, SeverityMedium).
		WithStrategy(StrategyExponential).
		WithContext("selector", selector).
		WithContext("timeout", timeout.String()).
		WithSuggestion("Increase the wait timeout for slow environments").
		WithSuggestion("Verify the element is rendered under current test data")
}

// analyzeSelector adds selector-specific hints.
func analyzeSelector(e *Error, selector string) {
	switch {
	case strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "xpath="):
		e.WithContext("selector_type", "xpath").
			WithSuggestion("Consider a CSS selector; XPath is brittle across DOM changes")
	case strings.HasPrefix(selector, "text="):
		e.WithContext("selector_type", "text").
			WithSuggestion("Text selectors break on copy changes; prefer data-test attributes")
	default:
		e.WithContext("selector_type", "css")
	}
}

// -- Network / timeout errors --

// NewNetworkError is raised for connectivity and HTTP transport failures.
func NewNetworkError(message string, cause error) *Error {
	return Wrap(cause, message, CategoryNetwork, SeverityMedium).
		WithStrategy(StrategyExponentialJitter).
		WithSuggestion("Check network connectivity").
		WithSuggestion("Verify the endpoint is up and responding")
}

// NewTimeoutError is raised when an operation exceeds its deadline.
func NewTimeoutError(operation string, timeout time.Duration, cause error) *Error {
	return Wrap(cause, fmt.Sprintf("%s timed out after %s", operation, timeout), CategoryTimeout, SeverityMedium).
		WithStrategy(StrategyExponential).
		WithContext("operation", operation).
		WithContext("timeout", timeout.String())
}

// -- Data / config / auth / assertion errors --

// NewValidationError is raised when domain model validation fails. Not
// retryable: bad data stays bad.
func NewValidationError(field, message string) *Error {
	return New(fmt.Sprintf("validation failed for %s: %s", field, message), CategoryData, SeverityLow).
		WithStrategy(StrategyNone).
		WithContext("field", field)
}

// NewAuthenticationError is raised on login or token failures.
func NewAuthenticationError(message string, cause error) *Error {
	return Wrap(cause, message, CategoryAuthentication, SeverityHigh).
		WithStrategy(StrategyLinear).
		WithSuggestion("Refresh credentials and re-authenticate").
		WithSuggestion("Check account permissions and lockout state")
}

// NewConfigError is raised for invalid or missing configuration. Never
// retryable.
func NewConfigError(key, message string) *Error {
	return New(fmt.Sprintf("configuration %s: %s", key, message), CategoryConfiguration, SeverityHigh).
		WithStrategy(StrategyNone).
		WithContext("config_key", key).
		WithSuggestion("Check the config file and SOCKSHOP_* environment variables")
}

// NewAssertionError is raised when a test expectation fails.
func NewAssertionError(description string, expected, actual any) *Error {
	return New(fmt.Sprintf("assertion failed: %s", description), CategoryValidation, SeverityLow).
		WithStrategy(StrategyNone).
		WithContext("expected", expected).
		WithContext("actual", actual)
}
