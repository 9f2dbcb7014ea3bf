package runner

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// junit report structures, matching the schema CI systems ingest.
type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Cases     []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
	Skip    *struct{}     `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// WriteReports renders the summary in every configured format under dir.
// Returns the paths written.
func WriteReports(summary *Summary, dir string, formats []string, logger *zap.Logger) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := summary.StartedAt.Format("20060102_150405")
	var paths []string
	for _, format := range formats {
		var (
			path string
			err  error
		)
		switch strings.ToLower(format) {
		case "json":
			path = filepath.Join(dir, fmt.Sprintf("report_%s.json", stamp))
			err = writeJSONReport(summary, path)
		case "junit":
			path = filepath.Join(dir, fmt.Sprintf("report_%s.xml", stamp))
			err = writeJUnitReport(summary, path)
		case "html":
			path = filepath.Join(dir, fmt.Sprintf("report_%s.html", stamp))
			err = writeHTMLReport(summary, path)
		default:
			return nil, fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return nil, err
		}
		logger.Info("wrote report", zap.String("format", format), zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeJSONReport(summary *Summary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeJUnitReport(summary *Summary, path string) error {
	suite := junitTestSuite{
		Name:      summary.Suite,
		Tests:     len(summary.Results),
		Failures:  summary.Failed,
		Skipped:   summary.Skipped,
		Time:      seconds(summary.FinishedAt.Sub(summary.StartedAt)),
		Timestamp: summary.StartedAt.Format(time.RFC3339),
	}
	for _, r := range summary.Results {
		c := junitTestCase{Name: r.Name, Time: seconds(r.Duration)}
		switch r.Status {
		case StatusFailed:
			c.Failure = &junitFailure{Message: r.Error}
		case StatusSkipped:
			c.Skip = &struct{}{}
		}
		suite.Cases = append(suite.Cases, c)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode junit report: %w", err)
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}

func writeHTMLReport(summary *Summary, path string) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>")
	b.WriteString(htmlEscape(summary.Suite))
	b.WriteString("</title></head><body><h1>")
	fmt.Fprintf(&b, "%s — %s</h1>", htmlEscape(summary.Suite), htmlEscape(summary.Environment))
	fmt.Fprintf(&b, "<p>passed %d, failed %d, skipped %d</p>",
		summary.Passed, summary.Failed, summary.Skipped)
	b.WriteString("<table border=\"1\"><tr><th>Scenario</th><th>Status</th><th>Attempts</th><th>Duration</th><th>Error</th></tr>")
	for _, r := range summary.Results {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			htmlEscape(r.Name), r.Status, r.Attempts, r.Duration.Round(time.Millisecond), htmlEscape(r.Error))
	}
	b.WriteString("</table></body></html>")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}
