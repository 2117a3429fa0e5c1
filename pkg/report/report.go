// Package report renders run results as JSON and Markdown and publishes
// failed runs as GitHub issues.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cgast/uiverify/internal/filelock"
	"github.com/cgast/uiverify/internal/sandbox"
	"github.com/cgast/uiverify/pkg/runner"
)

// File names written next to the artifacts.
const (
	JSONFile     = "report.json"
	MarkdownFile = "report.md"
)

// Files lists the report files written for a run.
type Files struct {
	JSON     string `json:"json"`
	Markdown string `json:"markdown"`
}

// Write renders r into dir as report.json and report.md. A nil sandbox
// allows any path.
func Write(dir string, r runner.RunResult, sb *sandbox.Sandbox) (Files, error) {
	if sb == nil {
		sb = sandbox.Unrestricted()
	}
	data, err := JSON(r)
	if err != nil {
		return Files{}, err
	}

	var files Files
	for _, out := range []struct {
		name string
		data []byte
		dst  *string
	}{
		{JSONFile, data, &files.JSON},
		{MarkdownFile, []byte(Markdown(r)), &files.Markdown},
	} {
		path, err := sb.Resolve(dir, out.name)
		if err != nil {
			return Files{}, err
		}
		if err := sb.CheckFileSize(int64(len(out.data))); err != nil {
			return Files{}, fmt.Errorf("%s: %w", out.name, err)
		}
		if err := filelock.AtomicWrite(path, out.data); err != nil {
			return Files{}, fmt.Errorf("write %s: %w", out.name, err)
		}
		*out.dst = path
	}
	return files, nil
}

// JSON returns the indented JSON form of r.
func JSON(r runner.RunResult) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Status returns PASSED or FAILED.
func Status(r runner.RunResult) string {
	if r.Success {
		return "PASSED"
	}
	return "FAILED"
}

// Title is a one-line summary used for headings and issue titles.
func Title(r runner.RunResult) string {
	name := r.Suite
	if name == "" {
		name = r.TargetURL
	}
	if r.Failure != nil {
		return fmt.Sprintf("uiverify: %s failed at step %q (%s)", name, r.Failure.Step, r.Failure.Kind)
	}
	return fmt.Sprintf("uiverify: %s %s", name, strings.ToLower(Status(r)))
}

// Markdown renders r as a human-readable report.
func Markdown(r runner.RunResult) string {
	var b strings.Builder
	passed, failed, notRun := r.Counts()

	fmt.Fprintf(&b, "# %s\n\n", Title(r))
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | **%s** |\n", Status(r))
	fmt.Fprintf(&b, "| Run | `%s` |\n", r.ID)
	if r.Suite != "" {
		fmt.Fprintf(&b, "| Suite | %s |\n", r.Suite)
	}
	fmt.Fprintf(&b, "| Target | %s |\n", r.TargetURL)
	fmt.Fprintf(&b, "| Viewport | %s |\n", r.Viewport)
	fmt.Fprintf(&b, "| Started | %s |\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "| Steps | %d passed, %d failed, %d not run |\n", passed, failed, notRun)

	b.WriteString("\n## Steps\n\n")
	b.WriteString("| # | Step | Status | Review | Duration | Detail |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			s.Index, cell(s.Name), statusMark(s.Status), s.Review,
			s.Duration.Round(time.Millisecond), cell(stepDetail(s)))
	}

	if f := r.Failure; f != nil {
		b.WriteString("\n## Failure\n\n")
		fmt.Fprintf(&b, "Step %d (%s) failed with **%s**:\n\n", f.Index, f.Step, f.Kind)
		fmt.Fprintf(&b, "```\n%s\n```\n", f.Message)
		if f.Artifact != "" {
			fmt.Fprintf(&b, "\nError screenshot: `%s`\n", filepath.Base(f.Artifact))
		}
	}

	if len(r.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		for _, a := range r.Artifacts {
			fmt.Fprintf(&b, "- `%s` (%s, %s)\n", filepath.Base(a.Path), a.Kind, sandbox.FormatFileSize(a.Size))
		}
	}

	if len(r.Console) > 0 {
		b.WriteString("\n## Console\n\n```\n")
		for _, m := range r.Console {
			b.WriteString(m.String() + "\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func statusMark(s runner.StepStatus) string {
	switch s {
	case runner.StepPassed:
		return "passed"
	case runner.StepFailed:
		return "**failed**"
	default:
		return "not run"
	}
}

// stepDetail lists the artifact and any failing checks of a step.
func stepDetail(s runner.StepResult) string {
	var parts []string
	if s.Artifact != "" {
		parts = append(parts, "`"+s.Artifact+"`")
	}
	checks := 0
	if s.Verification != nil {
		for _, res := range s.Verification.Results {
			if !res.Passed {
				parts = append(parts, res.Message)
				checks++
			}
		}
	}
	if s.Error != "" && checks == 0 {
		parts = append(parts, s.Error)
	}
	return strings.Join(parts, "; ")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
