// Package logger writes run progress to the terminal.
//
// ConsoleLogger is safe for concurrent use: the browser delivers console
// messages on its own goroutine while the runner logs step progress.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/cgast/uiverify/pkg/runner"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer. Every line is prefixed
// with [HH:MM:SS] [LEVEL]. Levels below the configured one are dropped.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// Anything else means info.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// isTerminal reports whether w is a TTY that should get colour.
// NO_COLOR disables colour through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// normalizeLogLevel lowercases level and falls back to info.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Level returns the effective log level.
func (cl *ConsoleLogger) Level() string { return cl.logLevel }

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// Tracef logs at trace level.
func (cl *ConsoleLogger) Tracef(format string, args ...any) {
	cl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func (cl *ConsoleLogger) Debugf(format string, args ...any) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func (cl *ConsoleLogger) Infof(format string, args ...any) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// Warnf logs at warn level.
func (cl *ConsoleLogger) Warnf(format string, args ...any) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (cl *ConsoleLogger) Errorf(format string, args ...any) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		level = colorLevel(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", cl.timestamp(), level, message)
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	}
	return level
}

func (cl *ConsoleLogger) timestamp() string {
	return cl.now().Format("15:04:05")
}

// LogSummary prints the per-step outcome table and the overall verdict
// of a finished run. It is logged at info level.
func (cl *ConsoleLogger) LogSummary(r runner.RunResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	passed, failed, notRun := r.Counts()
	paint := func(c color.Attribute, s string) string {
		if !cl.colorOutput {
			return s
		}
		return color.New(c).Sprint(s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] === Summary: %s ===\n", ts, runLabel(r))
	for _, s := range r.Steps {
		var status string
		switch s.Status {
		case runner.StepPassed:
			status = paint(color.FgGreen, "PASS")
		case runner.StepFailed:
			status = paint(color.FgRed, "FAIL")
		default:
			status = paint(color.FgHiBlack, "SKIP")
		}
		line := fmt.Sprintf("[%s]   %s %2d. %s", ts, status, s.Index, s.Name)
		if s.Status != runner.StepNotRun {
			line += " (" + formatDuration(s.Duration) + ")"
		}
		if s.Artifact != "" {
			line += " -> " + s.Artifact
		}
		b.WriteString(line + "\n")
	}
	if f := r.Failure; f != nil && f.Index == 0 {
		fmt.Fprintf(&b, "[%s]   %s  0. %s\n", ts, paint(color.FgRed, "FAIL"), f.Step)
	}

	verdict := paint(color.FgGreen, "PASSED")
	if !r.Success {
		verdict = paint(color.FgRed, "FAILED")
	}
	fmt.Fprintf(&b, "[%s] %s: %d passed, %d failed, %d not run, %d artifacts in %s\n",
		ts, verdict, passed, failed, notRun, len(r.Artifacts), formatDuration(r.Duration))
	if f := r.Failure; f != nil {
		fmt.Fprintf(&b, "[%s] step %q failed (%s): %s\n", ts, f.Step, f.Kind, f.Message)
		if f.Artifact != "" {
			fmt.Fprintf(&b, "[%s] error artifact: %s\n", ts, f.Artifact)
		}
	}
	io.WriteString(cl.writer, b.String())
}

func runLabel(r runner.RunResult) string {
	if r.Suite != "" {
		return r.Suite
	}
	return r.TargetURL
}

// formatDuration renders d compactly: 850ms, 3.2s, 1m5s.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

var _ runner.Logger = (*ConsoleLogger)(nil)
