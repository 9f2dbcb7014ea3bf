// Package assert provides scenario-level assertions that pair test failures
// with structured log events, so a failed run can be diagnosed from logs and
// reports alone.
package assert

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	tassert "github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Failure captures a single failed assertion for reporting.
type Failure struct {
	Message    string    `json:"message"`
	Expected   string    `json:"expected"`
	Actual     string    `json:"actual"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	Screenshot string    `json:"screenshot,omitempty"`
}

// CaptureFunc saves a screenshot for a failed assertion and returns its path.
type CaptureFunc func(name string) string

// Checker runs assertions against a test, logging each outcome. Failures mark
// the test failed immediately but do not halt it.
type Checker struct {
	t       testing.TB
	logger  *zap.Logger
	capture CaptureFunc
}

// New builds a Checker bound to the given test.
func New(t testing.TB, logger *zap.Logger) *Checker {
	return &Checker{t: t, logger: logger.With(zap.String("test", t.Name()))}
}

// WithCapture attaches a screenshot hook invoked on every failure.
func (c *Checker) WithCapture(capture CaptureFunc) *Checker {
	c.capture = capture
	return c
}

func (c *Checker) pass(kind, message string) {
	c.logger.Debug("assertion passed",
		zap.String("kind", kind), zap.String("message", message))
}

func (c *Checker) fail(kind, message, expected, actual string) Failure {
	f := Failure{
		Message:   message,
		Expected:  expected,
		Actual:    actual,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
	if c.capture != nil {
		f.Screenshot = c.capture("assert_" + kind)
	}
	c.logger.Error("assertion failed",
		zap.String("kind", kind),
		zap.String("message", message),
		zap.String("expected", expected),
		zap.String("actual", actual),
		zap.String("screenshot", f.Screenshot))
	if c.t != nil {
		c.t.Helper()
		c.t.Errorf("%s: expected %s, got %s", message, expected, actual)
	}
	return f
}

// Equal asserts deep equality.
func (c *Checker) Equal(expected, actual any, message string) bool {
	if tassert.ObjectsAreEqual(expected, actual) {
		c.pass("equal", message)
		return true
	}
	c.fail("equal", message, fmt.Sprintf("%v", expected), fmt.Sprintf("%v", actual))
	return false
}

// NotEqual asserts the values differ.
func (c *Checker) NotEqual(unexpected, actual any, message string) bool {
	if !tassert.ObjectsAreEqual(unexpected, actual) {
		c.pass("not_equal", message)
		return true
	}
	c.fail("not_equal", message,
		fmt.Sprintf("anything but %v", unexpected), fmt.Sprintf("%v", actual))
	return false
}

// Contains asserts that haystack contains needle.
func (c *Checker) Contains(haystack, needle, message string) bool {
	if strings.Contains(haystack, needle) {
		c.pass("contains", message)
		return true
	}
	c.fail("contains", message, fmt.Sprintf("substring %q", needle), haystack)
	return false
}

// Matches asserts that value matches the regular expression pattern.
func (c *Checker) Matches(pattern, value, message string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.fail("matches", message, "valid pattern "+pattern, err.Error())
		return false
	}
	if re.MatchString(value) {
		c.pass("matches", message)
		return true
	}
	c.fail("matches", message, "match for "+pattern, value)
	return false
}

// True asserts the condition holds.
func (c *Checker) True(condition bool, message string) bool {
	if condition {
		c.pass("true", message)
		return true
	}
	c.fail("true", message, "true", "false")
	return false
}

// False asserts the condition does not hold.
func (c *Checker) False(condition bool, message string) bool {
	if !condition {
		c.pass("false", message)
		return true
	}
	c.fail("false", message, "false", "true")
	return false
}

// Greater asserts value > threshold.
func (c *Checker) Greater(value, threshold int, message string) bool {
	if value > threshold {
		c.pass("greater", message)
		return true
	}
	c.fail("greater", message, fmt.Sprintf("> %d", threshold), fmt.Sprintf("%d", value))
	return false
}

// Between asserts low <= value <= high.
func (c *Checker) Between(value, low, high int, message string) bool {
	if value >= low && value <= high {
		c.pass("between", message)
		return true
	}
	c.fail("between", message,
		fmt.Sprintf("[%d, %d]", low, high), fmt.Sprintf("%d", value))
	return false
}

// URLPath asserts the URL's path component equals the expected path.
func (c *Checker) URLPath(rawURL, expectedPath, message string) bool {
	path := rawURL
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.IndexByte(path, '/'); j >= 0 {
			path = path[j:]
		} else {
			path = "/"
		}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == expectedPath {
		c.pass("url_path", message)
		return true
	}
	c.fail("url_path", message, expectedPath, path)
	return false
}
