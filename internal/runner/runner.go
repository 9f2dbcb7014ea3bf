// Package runner schedules end-to-end scenarios across a bounded pool of
// browser sessions and aggregates their results into reports.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// SessionProvider hands out browser sessions. Satisfied by browser.Manager.
type SessionProvider interface {
	NewSession(ctx context.Context) (*browser.Session, error)
}

// Scenario is a single end-to-end test case.
type Scenario struct {
	Name string
	Tags []string
	// Timeout overrides the configured scenario timeout when positive.
	Timeout time.Duration
	Run     func(ctx context.Context, session *browser.Session) error
}

// Status is the outcome of a scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result records one scenario's outcome.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Tags     []string      `json:"tags,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Summary aggregates a full suite run.
type Summary struct {
	Suite       string    `json:"suite"`
	Environment string    `json:"environment"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []Result  `json:"results"`
}

// Ok reports whether every selected scenario passed.
func (s *Summary) Ok() bool { return s.Failed == 0 }

// Suite is an ordered collection of scenarios sharing one configuration.
type Suite struct {
	name      string
	cfg       *config.Config
	logger    *zap.Logger
	sessions  SessionProvider
	scenarios []Scenario
}

// NewSuite builds an empty suite.
func NewSuite(name string, cfg *config.Config, sessions SessionProvider, logger *zap.Logger) *Suite {
	return &Suite{
		name:     name,
		cfg:      cfg,
		logger:   logger.With(zap.String("suite", name)),
		sessions: sessions,
	}
}

// Add appends scenarios to the suite.
func (s *Suite) Add(scenarios ...Scenario) *Suite {
	s.scenarios = append(s.scenarios, scenarios...)
	return s
}

// selected applies the include and exclude tag filters.
func selected(sc Scenario, include, exclude []string) bool {
	if hasAnyTag(sc.Tags, exclude) {
		return false
	}
	if len(include) == 0 {
		return true
	}
	return hasAnyTag(sc.Tags, include)
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// Run executes every selected scenario, bounded by the configured worker
// count. Scenario failures are collected into the summary, not returned;
// the returned error covers infrastructure failures only.
func (s *Suite) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Suite:       s.name,
		Environment: s.cfg.Environment.String(),
		StartedAt:   time.Now().UTC(),
	}

	var mu sync.Mutex
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		summary.Results = append(summary.Results, r)
		switch r.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}

	workers := s.cfg.Test.ParallelWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, sc := range s.scenarios {
		if sc.Run == nil {
			return nil, errs.NewValidationError("scenario", fmt.Sprintf("%q has no run function", sc.Name))
		}
		if !selected(sc, s.cfg.Test.Tags, s.cfg.Test.ExcludedTags) {
			s.logger.Debug("scenario skipped by tag filter", zap.String("scenario", sc.Name))
			record(Result{Name: sc.Name, Status: StatusSkipped, Tags: sc.Tags})
			continue
		}

		sc := sc
		g.Go(func() error {
			record(s.runScenario(gctx, sc))
			return nil
		})
	}

	// Worker functions never return errors; Wait only propagates ctx errors.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	summary.FinishedAt = time.Now().UTC()

	s.logger.Info("suite finished",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// maxAttempts returns how often a scenario may run. Flaky retry grants one
// extra attempt.
func (s *Suite) maxAttempts() int {
	if s.cfg.Test.RetryFlaky {
		return 2
	}
	return 1
}

func (s *Suite) runScenario(ctx context.Context, sc Scenario) Result {
	logger := s.logger.With(zap.String("scenario", sc.Name))
	result := Result{Name: sc.Name, Tags: sc.Tags}
	started := time.Now()

	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Test.ScenarioTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts(); attempt++ {
		result.Attempts = attempt
		lastErr = s.runAttempt(ctx, sc, timeout, logger)
		if lastErr == nil {
			break
		}
		logger.Warn("scenario attempt failed",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(started)
	if lastErr != nil {
		result.Status = StatusFailed
		result.Error = lastErr.Error()
		logger.Error("scenario failed",
			zap.Duration("elapsed", result.Duration), zap.Error(lastErr))
	} else {
		result.Status = StatusPassed
		logger.Info("scenario passed",
			zap.Int("attempts", result.Attempts),
			zap.Duration("elapsed", result.Duration))
	}
	return result
}

func (s *Suite) runAttempt(ctx context.Context, sc Scenario, timeout time.Duration, logger *zap.Logger) (err error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	session, err := s.sessions.NewSession(attemptCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer func() {
		if session == nil {
			return
		}
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("failed to close session", zap.Error(closeErr))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = errs.Newf(errs.CategoryTest, errs.SeverityHigh, "scenario panicked: %v", r)
		}
	}()

	if err := sc.Run(attemptCtx, session); err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return errs.NewTimeoutError("scenario "+sc.Name, timeout, err)
		}
		return err
	}
	return attemptCtx.Err()
}
