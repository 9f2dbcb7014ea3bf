// File: internal/errs/enums.go
package errs

// Category classifies an error by the functional area it originates from.
// Categories drive retry eligibility, monitoring tags, and triage routing.
type Category string

const (
	CategoryBrowser        Category = "browser"
	CategoryNetwork        Category = "network"
	CategoryElement        Category = "element"
	CategoryData           Category = "data"
	CategoryConfiguration  Category = "configuration"
	CategoryTimeout        Category = "timeout"
	CategoryAuthentication Category = "authentication"
	CategoryValidation     Category = "validation"
	CategoryInfrastructure Category = "infrastructure"
	CategoryTest           Category = "test"
)

// RecoveryPriority returns the triage priority for this category
// (1 = highest, 5 = lowest).
func (c Category) RecoveryPriority() int {
	switch c {
	case CategoryAuthentication, CategoryInfrastructure:
		return 1
	case CategoryBrowser, CategoryNetwork:
		return 2
	case CategoryConfiguration, CategoryTimeout:
		return 3
	case CategoryElement, CategoryData:
		return 4
	default:
		return 5
	}
}

// ResponsibleTeam maps a category to the team that typically owns failures of
// that kind. Used purely for report annotation.
func (c Category) ResponsibleTeam() string {
	switch c {
	case CategoryBrowser, CategoryInfrastructure:
		return "Infrastructure Team"
	case CategoryNetwork:
		return "Network/API Team"
	case CategoryElement:
		return "Frontend Team"
	case CategoryData:
		return "Backend/Data Team"
	case CategoryConfiguration:
		return "DevOps Team"
	case CategoryTimeout:
		return "Performance Team"
	case CategoryAuthentication:
		return "Security Team"
	default:
		return "QA Team"
	}
}

// DefaultStrategy returns the backoff strategy usually appropriate for the
// category. The retry package consults this when no explicit strategy is set
// on the error.
func (c Category) DefaultStrategy() Strategy {
	switch c {
	case CategoryBrowser, CategoryElement, CategoryAuthentication:
		return StrategyLinear
	case CategoryNetwork:
		return StrategyExponentialJitter
	case CategoryTimeout, CategoryInfrastructure:
		return StrategyExponential
	default:
		return StrategyNone
	}
}

// MonitoringTags returns the tag set attached to metrics and structured logs
// for errors of this category.
func (c Category) MonitoringTags() []string {
	base := []string{string(c), "automation_error"}
	switch c {
	case CategoryBrowser:
		return append(base, "browser_issue", "ui_automation")
	case CategoryNetwork:
		return append(base, "network_issue", "api_failure", "connectivity")
	case CategoryElement:
		return append(base, "element_issue", "ui_failure", "dom_error")
	case CategoryData:
		return append(base, "data_issue", "validation_error")
	case CategoryConfiguration:
		return append(base, "config_issue", "setup_error")
	case CategoryTimeout:
		return append(base, "timeout_issue", "performance_problem")
	case CategoryAuthentication:
		return append(base, "auth_issue", "security_error")
	case CategoryValidation:
		return append(base, "assertion_failure", "test_validation")
	case CategoryInfrastructure:
		return append(base, "infra_issue", "system_error")
	case CategoryTest:
		return append(base, "test_issue", "test_failure")
	}
	return base
}

// Severity ranks how badly an error impacts a test run.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ShouldRetry reports whether errors of this severity are eligible for
// automatic retry at all.
func (s Severity) ShouldRetry() bool {
	return s == SeverityLow || s == SeverityMedium
}

// ShouldAlert reports whether errors of this severity warrant alerting.
func (s Severity) ShouldAlert() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// MaxRetryAttempts returns the retry budget implied by the severity.
func (s Severity) MaxRetryAttempts() int {
	switch s {
	case SeverityLow:
		return 3
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 1
	default:
		return 0
	}
}

// TimeoutMultiplier scales operation timeouts when retrying after an error of
// this severity. Critical failures fail fast.
func (s Severity) TimeoutMultiplier() float64 {
	switch s {
	case SeverityLow:
		return 1.0
	case SeverityMedium:
		return 1.5
	case SeverityHigh:
		return 2.0
	default:
		return 0.5
	}
}

// Strategy names a backoff policy. The actual delay math lives in the retry
// package; the taxonomy only records which policy an error suggests.
type Strategy string

const (
	StrategyNone              Strategy = "none"
	StrategyImmediate         Strategy = "immediate"
	StrategyFixed             Strategy = "fixed"
	StrategyLinear            Strategy = "linear"
	StrategyExponential       Strategy = "exponential"
	StrategyExponentialJitter Strategy = "exponential_jitter"
	StrategyRandom            Strategy = "random"
	StrategyFibonacci         Strategy = "fibonacci"
)
