package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/uiverify/pkg/runner"
)

func fixedLogger(buf *bytes.Buffer, level string) *ConsoleLogger {
	l := NewConsoleLogger(buf, level)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC) }
	return l
}

func TestNewConsoleLogger(t *testing.T) {
	t.Run("normalizes level", func(t *testing.T) {
		assert.Equal(t, "debug", NewConsoleLogger(nil, " DEBUG ").Level())
		assert.Equal(t, "info", NewConsoleLogger(nil, "loud").Level())
		assert.Equal(t, "info", NewConsoleLogger(nil, "").Level())
	})

	t.Run("no colour for buffers", func(t *testing.T) {
		l := NewConsoleLogger(&bytes.Buffer{}, "info")
		assert.False(t, l.colorOutput)
	})

	t.Run("nil writer discards", func(t *testing.T) {
		l := NewConsoleLogger(nil, "trace")
		assert.NotPanics(t, func() {
			l.Infof("hello")
			l.LogSummary(runner.RunResult{})
		})
	})
}

func TestLogFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, "info")

	l.Infof("Opening %s", "http://localhost:3000")
	l.Errorf("Step %q failed", "Employees")

	assert.Equal(t,
		"[14:05:09] [INFO] Opening http://localhost:3000\n"+
			"[14:05:09] [ERROR] Step \"Employees\" failed\n",
		buf.String())
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := fixedLogger(&buf, tt.level)
			l.Tracef("t")
			l.Debugf("d")
			l.Infof("i")
			l.Warnf("w")
			l.Errorf("e")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, len(tt.want))
			for i, lvl := range tt.want {
				assert.Contains(t, lines[i], "["+lvl+"]")
			}
		})
	}
}

func TestLogSummary(t *testing.T) {
	t.Run("failed run", func(t *testing.T) {
		var buf bytes.Buffer
		l := fixedLogger(&buf, "info")
		l.LogSummary(runner.RunResult{
			Suite:    "dashboard-tour",
			Duration: 3200 * time.Millisecond,
			Steps: []runner.StepResult{
				{Index: 1, Name: "Dashboard", Status: runner.StepPassed, Duration: 850 * time.Millisecond, Artifact: "dashboard_real"},
				{Index: 2, Name: "Employees", Status: runner.StepFailed, Duration: 2 * time.Second},
				{Index: 3, Name: "Offboarding", Status: runner.StepNotRun},
			},
			Artifacts: []runner.Artifact{{Name: "dashboard_real"}, {Name: "02_employees_error"}},
			Failure: &runner.FailureInfo{
				Step: "Employees", Index: 2, Kind: runner.KindElementNotFound,
				Message: "element not found", Artifact: "verification/02_employees_error.png",
			},
		})

		out := buf.String()
		assert.Contains(t, out, "=== Summary: dashboard-tour ===")
		assert.Contains(t, out, "PASS  1. Dashboard (850ms) -> dashboard_real")
		assert.Contains(t, out, "FAIL  2. Employees (2.0s)")
		assert.Contains(t, out, "SKIP  3. Offboarding\n")
		assert.Contains(t, out, "FAILED: 1 passed, 1 failed, 1 not run, 2 artifacts in 3.2s")
		assert.Contains(t, out, `step "Employees" failed (ElementNotFound): element not found`)
		assert.Contains(t, out, "error artifact: verification/02_employees_error.png")
	})

	t.Run("open target failure", func(t *testing.T) {
		var buf bytes.Buffer
		l := fixedLogger(&buf, "info")
		l.LogSummary(runner.RunResult{
			TargetURL: "http://localhost:3000",
			Steps:     []runner.StepResult{{Index: 1, Name: "Dashboard", Status: runner.StepNotRun}},
			Failure:   &runner.FailureInfo{Step: runner.OpenTargetStep, Kind: runner.KindNavigation, Message: "refused"},
		})
		out := buf.String()
		assert.Contains(t, out, "=== Summary: http://localhost:3000 ===")
		assert.Contains(t, out, "FAIL  0. open target")
	})

	t.Run("suppressed above info", func(t *testing.T) {
		var buf bytes.Buffer
		fixedLogger(&buf, "error").LogSummary(runner.RunResult{Success: true})
		assert.Empty(t, buf.String())
	})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "850ms", formatDuration(850*time.Millisecond))
	assert.Equal(t, "3.2s", formatDuration(3200*time.Millisecond))
	assert.Equal(t, "1m5s", formatDuration(65*time.Second))
}
