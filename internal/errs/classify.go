// File: internal/errs/classify.go
package errs

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Keyword groups used to classify raw driver errors. Playwright surfaces most
// failures as flat error strings, so classification is necessarily textual.
var (
	crashKeywords    = []string{"crash", "terminated", "disconnected", "target closed", "browser has been closed"}
	timeoutKeywords  = []string{"timeout", "timed out", "deadline exceeded"}
	networkKeywords  = []string{"net::", "dns", "connection refused", "connection reset", "econnrefused", "no such host"}
	notFoundKeywords = []string{"no element", "not found", "strict mode violation", "resolved to 0 elements"}
	stateKeywords    = []string{"not enabled", "not editable", "disabled", "element is not stable", "read-only"}
	interactKeywords = []string{"not visible", "detached", "intercepts pointer events", "element is outside of the viewport"}
	launchKeywords   = []string{"executable doesn't exist", "executable not found", "failed to launch", "browsertype.launch"}
	authKeywords     = []string{"unauthorized", "401", "403", "forbidden", "invalid credentials"}
)

func containsAny(s string, keywords []string) bool {
	return firstMatch(s, keywords) != ""
}

func firstMatch(s string, keywords []string) string {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return k
		}
	}
	return ""
}

// Classify wraps a raw error from the browser driver (or the transport under
// it) into the taxonomy. Already-classified errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}

	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(err, "operation canceled", CategoryTest, SeverityLow).WithStrategy(StrategyNone)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("operation", 0, err)
	case containsAny(msg, launchKeywords):
		return NewLaunchError("", err)
	case containsAny(msg, crashKeywords):
		return NewCrashError("browser crashed", err)
	case containsAny(msg, notFoundKeywords):
		return NewElementNotFound(extractSelector(msg), err)
	case containsAny(msg, stateKeywords):
		return NewElementState(extractSelector(msg), firstMatch(msg, stateKeywords), err)
	case containsAny(msg, interactKeywords):
		return NewElementInteraction(extractSelector(msg), "interact", err)
	case containsAny(msg, timeoutKeywords):
		return NewTimeoutError("browser operation", 0, err)
	case containsAny(msg, networkKeywords):
		return NewNetworkError("network failure during browser operation", err)
	case containsAny(msg, authKeywords):
		return NewAuthenticationError("authentication failure", err)
	default:
		return Wrap(err, "unexpected automation failure", CategoryInfrastructure, SeverityMedium)
	}
}

// ClassifyNavigation wraps navigation failures with URL context attached.
func ClassifyNavigation(err error, targetURL string, timeout time.Duration) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, crashKeywords):
		return NewCrashError("browser crashed during navigation", err).
			WithContext("target_url", targetURL)
	case containsAny(msg, timeoutKeywords), containsAny(msg, networkKeywords):
		return NewNavigationError(targetURL, err).
			WithContext("navigation_timeout", timeout.String())
	default:
		return NewBrowserError("unexpected error during navigation", err).
			WithContext("target_url", targetURL)
	}
}

// extractSelector pulls a quoted selector out of a playwright error message.
// Best effort only; returns the empty string when no selector is present.
func extractSelector(msg string) string {
	for _, quote := range []string{`"`, "'"} {
		start := strings.Index(msg, quote)
		if start < 0 {
			continue
		}
		rest := msg[start+1:]
		end := strings.Index(rest, quote)
		if end > 0 {
			return rest[:end]
		}
	}
	return ""
}
