// File: internal/observability/fields.go
package observability

import "go.uber.org/zap"

// WithSession returns a child logger carrying the browser session id.
func WithSession(logger *zap.Logger, sessionID string) *zap.Logger {
	return logger.With(zap.String("session_id", sessionID))
}

// WithTest returns a child logger carrying the test or scenario name.
func WithTest(logger *zap.Logger, testName string) *zap.Logger {
	return logger.With(zap.String("test_name", testName))
}

// WithCorrelation returns a child logger carrying a correlation id, used to
// tie log lines to a specific classified error.
func WithCorrelation(logger *zap.Logger, correlationID string) *zap.Logger {
	return logger.With(zap.String("correlation_id", correlationID))
}
