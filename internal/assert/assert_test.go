package assert

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingTB captures failures instead of failing the real test.
type recordingTB struct {
	testing.TB
	errors []string
}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Helper()      {}
func (r *recordingTB) Name() string { return "recording" }

func newRecordingChecker(t *testing.T) (*Checker, *recordingTB) {
	rec := &recordingTB{TB: t}
	return New(rec, zaptest.NewLogger(t)), rec
}

func TestCheckerPassesDoNotFail(t *testing.T) {
	c, rec := newRecordingChecker(t)

	require.True(t, c.Equal(3, 3, "counts match"))
	require.True(t, c.Contains("Merino Wool Socks", "Wool", "name mentions wool"))
	require.True(t, c.True(true, "flag set"))
	require.True(t, c.Between(5, 1, 10, "in range"))
	require.True(t, c.Matches(`^\$\d+\.\d{2}$`, "$29.99", "price format"))

	require.Empty(t, rec.errors)
}

func TestCheckerFailuresMarkTest(t *testing.T) {
	c, rec := newRecordingChecker(t)

	require.False(t, c.Equal(3, 4, "counts match"))
	require.False(t, c.Greater(1, 5, "enough products"))
	require.False(t, c.Matches(`[`, "x", "bad pattern fails"))

	require.Len(t, rec.errors, 3)
	require.Contains(t, rec.errors[0], "counts match")
}

func TestCheckerCaptureHookRunsOnFailure(t *testing.T) {
	c, _ := newRecordingChecker(t)

	var captured []string
	c.WithCapture(func(name string) string {
		captured = append(captured, name)
		return "/tmp/" + name + ".png"
	})

	c.True(true, "no capture on pass")
	c.True(false, "capture on fail")

	require.Equal(t, []string{"assert_true"}, captured)
}

func TestURLPath(t *testing.T) {
	c, rec := newRecordingChecker(t)

	require.True(t, c.URLPath("http://localhost:8080/catalogue?size=m", "/catalogue", "on catalogue"))
	require.True(t, c.URLPath("https://shop.example", "/", "root default"))
	require.False(t, c.URLPath("http://localhost:8080/basket.html", "/catalogue", "wrong page"))
	require.Len(t, rec.errors, 1)
}

func TestSoftCollectsUntilFlush(t *testing.T) {
	rec := &recordingTB{TB: t}
	s := NewSoft(rec, zaptest.NewLogger(t))

	s.Equal(1, 1, "passes")
	s.Equal(1, 2, "first failure")
	s.True(false, "second failure")
	s.Greater(10, 3, "passes too")

	require.True(t, s.Failed())
	require.Len(t, s.Failures(), 2)
	require.Empty(t, rec.errors, "nothing fails before Flush")

	report, err := s.Report()
	require.NoError(t, err)
	require.Contains(t, string(report), "first failure")

	s.Flush()
	require.Len(t, rec.errors, 2)
	require.False(t, s.Failed(), "Flush resets the collector")

	s.Flush()
	require.Len(t, rec.errors, 2, "empty Flush is a no-op")
}

func TestMatchers(t *testing.T) {
	require.True(t, ValidEmail("fan@example.com"))
	require.False(t, ValidEmail("not-an-email"))

	require.True(t, ValidPrice("$29.99"))
	require.True(t, ValidPrice("£1,299.00"))
	require.False(t, ValidPrice("29.99"))

	require.True(t, ValidURL("https://shop.example/catalogue"))
	require.False(t, ValidURL("ftp://shop.example"))

	require.True(t, ValidPhone("+1 (503) 555-0114"))
	require.False(t, ValidPhone("abc"))

	require.True(t, ContainsSockSize("Available in sizes M and XL."))
	require.False(t, ContainsSockSize("Small-batch merino yarn"))

	require.True(t, ValidCreditCard("4539 1488 0343 6467"))
	require.False(t, ValidCreditCard("4539 1488 0343 6468"))
	require.False(t, ValidCreditCard("1234"))
}
