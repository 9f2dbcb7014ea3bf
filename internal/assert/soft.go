package assert

import (
	"fmt"
	"testing"

	json "github.com/json-iterator/go"
	tassert "github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Soft collects assertion failures without failing the test until Flush. Use
// it when a scenario should report every broken expectation in one run
// instead of stopping at the first.
type Soft struct {
	t        testing.TB
	logger   *zap.Logger
	capture  CaptureFunc
	failures []Failure
}

// NewSoft builds a Soft assertion collector bound to the given test.
func NewSoft(t testing.TB, logger *zap.Logger) *Soft {
	return &Soft{t: t, logger: logger.With(zap.String("test", t.Name()))}
}

// WithCapture attaches a screenshot hook invoked on every failure.
func (s *Soft) WithCapture(capture CaptureFunc) *Soft {
	s.capture = capture
	return s
}

// checker returns a Checker that records instead of failing.
func (s *Soft) checker() *Checker {
	return &Checker{t: nil, logger: s.logger, capture: s.capture}
}

func (s *Soft) record(ok bool, kind, message, expected, actual string) bool {
	if ok {
		s.logger.Debug("assertion passed",
			zap.String("kind", kind), zap.String("message", message))
		return true
	}
	s.failures = append(s.failures, s.checker().fail(kind, message, expected, actual))
	return false
}

// Equal asserts deep equality, deferring failure until Flush.
func (s *Soft) Equal(expected, actual any, message string) bool {
	return s.record(tassert.ObjectsAreEqual(expected, actual), "equal", message,
		fmt.Sprintf("%v", expected), fmt.Sprintf("%v", actual))
}

// True asserts the condition holds, deferring failure until Flush.
func (s *Soft) True(condition bool, message string) bool {
	return s.record(condition, "true", message, "true", "false")
}

// False asserts the condition does not hold, deferring failure until Flush.
func (s *Soft) False(condition bool, message string) bool {
	return s.record(!condition, "false", message, "false", "true")
}

// Greater asserts value > threshold, deferring failure until Flush.
func (s *Soft) Greater(value, threshold int, message string) bool {
	return s.record(value > threshold, "greater", message,
		fmt.Sprintf("> %d", threshold), fmt.Sprintf("%d", value))
}

// Failed reports whether any assertion has failed so far.
func (s *Soft) Failed() bool { return len(s.failures) > 0 }

// Failures returns the collected failures.
func (s *Soft) Failures() []Failure { return s.failures }

// Report serializes the collected failures as JSON for test reports.
func (s *Soft) Report() ([]byte, error) {
	return json.Marshal(s.failures)
}

// Flush fails the test once with a summary of every collected failure and
// resets the collector. Safe to defer; does nothing when all assertions
// passed.
func (s *Soft) Flush() {
	if len(s.failures) == 0 {
		return
	}
	s.t.Helper()
	s.logger.Error("soft assertions failed", zap.Int("count", len(s.failures)))
	for i, f := range s.failures {
		s.t.Errorf("soft assertion %d/%d [%s] %s: expected %s, got %s",
			i+1, len(s.failures), f.Kind, f.Message, f.Expected, f.Actual)
	}
	s.failures = nil
}
