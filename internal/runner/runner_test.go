package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	acquired atomic.Int32
	err      error
}

func (f *fakeProvider) NewSession(ctx context.Context) (*browser.Session, error) {
	f.acquired.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func testSuiteConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Test.ParallelWorkers = 2
	cfg.Test.ScenarioTimeout = 5 * time.Second
	cfg.Test.RetryFlaky = false
	cfg.Test.Tags = nil
	cfg.Test.ExcludedTags = nil
	return cfg
}

func passing(name string, tags ...string) Scenario {
	return Scenario{
		Name: name,
		Tags: tags,
		Run:  func(ctx context.Context, _ *browser.Session) error { return nil },
	}
}

func TestSuiteRunsAllScenarios(t *testing.T) {
	provider := &fakeProvider{}
	suite := NewSuite("smoke", testSuiteConfig(), provider, zaptest.NewLogger(t)).
		Add(passing("home loads"), passing("catalogue lists"), Scenario{
			Name: "login rejects bad password",
			Run: func(ctx context.Context, _ *browser.Session) error {
				return errors.New("banner not shown")
			},
		})

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Skipped)
	assert.False(t, summary.Ok())
	assert.Equal(t, int32(3), provider.acquired.Load())
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestTagFiltering(t *testing.T) {
	cfg := testSuiteConfig()
	cfg.Test.Tags = []string{"smoke"}
	cfg.Test.ExcludedTags = []string{"slow"}

	var ran atomic.Int32
	counted := func(name string, tags ...string) Scenario {
		return Scenario{Name: name, Tags: tags, Run: func(ctx context.Context, _ *browser.Session) error {
			ran.Add(1)
			return nil
		}}
	}

	suite := NewSuite("filtered", cfg, &fakeProvider{}, zaptest.NewLogger(t)).Add(
		counted("included", "smoke"),
		counted("excluded wins", "smoke", "slow"),
		counted("not included", "regression"),
	)

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, int32(1), ran.Load())
}

func TestSelected(t *testing.T) {
	sc := Scenario{Tags: []string{"smoke", "cart"}}
	assert.True(t, selected(sc, nil, nil))
	assert.True(t, selected(sc, []string{"cart"}, nil))
	assert.False(t, selected(sc, []string{"regression"}, nil))
	assert.False(t, selected(sc, []string{"smoke"}, []string{"cart"}), "exclusion wins")
	assert.False(t, selected(Scenario{}, []string{"smoke"}, nil), "untagged misses include filter")
	assert.True(t, selected(Scenario{}, nil, []string{"slow"}))
}

func TestFlakyRetryGrantsSecondAttempt(t *testing.T) {
	cfg := testSuiteConfig()
	cfg.Test.RetryFlaky = true

	var calls atomic.Int32
	suite := NewSuite("flaky", cfg, &fakeProvider{}, zaptest.NewLogger(t)).Add(Scenario{
		Name: "passes on retry",
		Run: func(ctx context.Context, _ *browser.Session) error {
			if calls.Add(1) == 1 {
				return errors.New("transient render race")
			}
			return nil
		},
	})

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 2, summary.Results[0].Attempts)
}

func TestNoRetryWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	suite := NewSuite("strict", testSuiteConfig(), &fakeProvider{}, zaptest.NewLogger(t)).Add(Scenario{
		Name: "fails once",
		Run: func(ctx context.Context, _ *browser.Session) error {
			calls.Add(1)
			return errors.New("broken")
		},
	})

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScenarioTimeout(t *testing.T) {
	suite := NewSuite("slow", testSuiteConfig(), &fakeProvider{}, zaptest.NewLogger(t)).Add(Scenario{
		Name:    "hangs",
		Timeout: 50 * time.Millisecond,
		Run: func(ctx context.Context, _ *browser.Session) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Error, "timed out")
}

func TestScenarioPanicIsContained(t *testing.T) {
	suite := NewSuite("panicky", testSuiteConfig(), &fakeProvider{}, zaptest.NewLogger(t)).Add(Scenario{
		Name: "panics",
		Run: func(ctx context.Context, _ *browser.Session) error {
			panic("nil dereference in page object")
		},
	}, passing("still runs"))

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	for _, r := range summary.Results {
		if r.Status == StatusFailed {
			assert.Contains(t, r.Error, "panicked")
		}
	}
}

func TestSessionFailureFailsScenario(t *testing.T) {
	provider := &fakeProvider{err: errors.New("browser pool exhausted")}
	suite := NewSuite("starved", testSuiteConfig(), provider, zaptest.NewLogger(t)).
		Add(passing("never runs"))

	summary, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Results[0].Error, "browser session")
}

func TestMissingRunFunctionIsRejected(t *testing.T) {
	suite := NewSuite("bad", testSuiteConfig(), &fakeProvider{}, zaptest.NewLogger(t)).
		Add(Scenario{Name: "empty"})

	_, err := suite.Run(context.Background())
	require.Error(t, err)
}

func sampleSummary() *Summary {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Summary{
		Suite:       "smoke",
		Environment: "testing",
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Passed:      1,
		Failed:      1,
		Skipped:     1,
		Results: []Result{
			{Name: "home loads", Status: StatusPassed, Attempts: 1, Duration: 2 * time.Second},
			{Name: "cart total", Status: StatusFailed, Attempts: 2, Duration: 4 * time.Second, Error: `expected "$29.99" <got> "$0.00"`},
			{Name: "checkout", Status: StatusSkipped},
		},
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteReports(sampleSummary(), dir, []string{"json", "junit", "html"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, paths, 3)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "smoke", decoded.Suite)
	assert.Len(t, decoded.Results, 3)

	xmlData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(xmlData), `failures="1"`)
	assert.Contains(t, string(xmlData), `skipped="1"`)
	assert.Contains(t, string(xmlData), "cart total")

	htmlData, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Contains(t, string(htmlData), "&quot;$29.99&quot;")
	assert.Contains(t, string(htmlData), "&lt;got&gt;")

	for _, p := range paths {
		assert.Equal(t, dir, filepath.Dir(p))
	}
}

func TestHTMLReportEscapesSuiteAndEnvironment(t *testing.T) {
	summary := sampleSummary()
	summary.Suite = `smoke <run> & "nightly"`
	summary.Environment = "stage<1>"

	paths, err := WriteReports(summary, t.TempDir(), []string{"html"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	htmlData, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	body := string(htmlData)
	assert.Contains(t, body, "smoke &lt;run&gt; &amp; &quot;nightly&quot;")
	assert.Contains(t, body, "stage&lt;1&gt;")
	assert.NotContains(t, body, "<run>")
	assert.NotContains(t, body, "stage<1>")
}

func TestWriteReportsRejectsUnknownFormat(t *testing.T) {
	_, err := WriteReports(sampleSummary(), t.TempDir(), []string{"pdf"}, zaptest.NewLogger(t))
	require.Error(t, err)
}
