package runner

import (
	"context"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/verify"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultActionTimeout     = 10 * time.Second
	DefaultExpectTimeout     = verify.DefaultTimeout
)

// Review says how a step's outcome is meant to be judged: by assertions,
// by a human looking at the screenshot, or both.
type Review string

const (
	ReviewAssert Review = "assert"
	ReviewVisual Review = "visual"
	ReviewBoth   Review = "both"
	ReviewNone   Review = "none"
)

// Valid reports whether r is a known review mode. Empty is valid.
func (r Review) Valid() bool {
	switch r {
	case "", ReviewAssert, ReviewVisual, ReviewBoth, ReviewNone:
		return true
	}
	return false
}

// ElementWait waits for a target to reach a state.
type ElementWait struct {
	Target browser.Target       `yaml:"target" json:"target"`
	State  browser.ElementState `yaml:"state,omitempty" json:"state,omitempty"` // defaults to visible
}

// WaitSpec is a readiness condition. Condition waits (LoadState, For) run
// first; Settle is a fixed delay applied afterwards.
type WaitSpec struct {
	LoadState browser.LoadState `yaml:"load_state,omitempty" json:"load_state,omitempty"`
	For       *ElementWait      `yaml:"for,omitempty" json:"for,omitempty"`
	Settle    time.Duration     `yaml:"settle,omitempty" json:"settle,omitempty"`
	Timeout   time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// IsZero reports whether w waits for nothing.
func (w WaitSpec) IsZero() bool {
	return w.LoadState == "" && w.For == nil && w.Settle == 0
}

// ScreenshotSpec requests a capture after a step succeeds. An empty Name
// derives the artifact name from the step name.
type ScreenshotSpec struct {
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	FullPage bool   `yaml:"full_page,omitempty" json:"full_page,omitempty"`
}

// Step is one verification step.
type Step struct {
	Name string
	// Action may be nil for capture- or verify-only steps.
	Action     func(ctx context.Context, page browser.Page) error
	Mutates    bool
	Before     WaitSpec
	After      WaitSpec
	Expect     []verify.Expectation
	Screenshot *ScreenshotSpec
	Review     Review
}

// Config describes one verification run.
type Config struct {
	RunID     string
	Suite     string
	TargetURL string
	Viewport  browser.Viewport
	Steps     []Step
	OutputDir string

	Browser  string
	Headless bool
	SlowMo   time.Duration

	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	ExpectTimeout     time.Duration

	// ReadyState is the load state the initial navigation waits for.
	ReadyState browser.LoadState
	// Ready is satisfied after the initial navigation, before step 1.
	Ready          WaitSpec
	CaptureConsole bool
}

func (c Config) withDefaults() Config {
	if c.Viewport.IsZero() {
		c.Viewport = browser.DefaultViewport
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.ExpectTimeout <= 0 {
		c.ExpectTimeout = DefaultExpectTimeout
	}
	if c.ReadyState == "" {
		c.ReadyState = browser.LoadStateLoad
	}
	if c.Browser == "" {
		c.Browser = "chromium"
	}
	return c
}

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepPassed StepStatus = "passed"
	StepFailed StepStatus = "failed"
	StepNotRun StepStatus = "not_run"
)

// StepResult records what happened to one step.
type StepResult struct {
	Index        int                        `json:"index"`
	Name         string                     `json:"name"`
	Status       StepStatus                 `json:"status"`
	Review       Review                     `json:"review,omitempty"`
	Mutates      bool                       `json:"mutates"`
	Duration     time.Duration              `json:"duration"`
	Error        string                     `json:"error,omitempty"`
	Kind         Kind                       `json:"kind,omitempty"`
	Verification *verify.VerificationResult `json:"verification,omitempty"`
	Artifact     string                     `json:"artifact,omitempty"`
}

// ArtifactKind classifies an artifact file.
type ArtifactKind string

const (
	ArtifactScreenshot      ArtifactKind = "screenshot"
	ArtifactErrorScreenshot ArtifactKind = "error_screenshot"
	ArtifactConsoleLog      ArtifactKind = "console_log"
)

// Artifact is a file written during a run.
type Artifact struct {
	Name      string       `json:"name"`
	Kind      ArtifactKind `json:"kind"`
	Path      string       `json:"path"`
	Step      string       `json:"step,omitempty"`
	StepIndex int          `json:"step_index"`
	Size      int64        `json:"size"`
	CreatedAt time.Time    `json:"created_at"`
}

// FailureInfo summarises the failure that stopped a run.
type FailureInfo struct {
	Step     string `json:"step"`
	Index    int    `json:"index"`
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	Artifact string `json:"artifact,omitempty"`
}

// RunResult is the outcome of one run.
type RunResult struct {
	ID          string                   `json:"id"`
	Suite       string                   `json:"suite,omitempty"`
	TargetURL   string                   `json:"target_url"`
	Viewport    browser.Viewport         `json:"viewport"`
	OutputDir   string                   `json:"output_dir"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  time.Time                `json:"finished_at"`
	Duration    time.Duration            `json:"duration"`
	Success     bool                     `json:"success"`
	Steps       []StepResult             `json:"steps"`
	Artifacts   []Artifact               `json:"artifacts"`
	Console     []browser.ConsoleMessage `json:"console,omitempty"`
	Transitions []State                  `json:"transitions"`
	Failure     *FailureInfo             `json:"failure,omitempty"`
}

// Screenshots returns the screenshot artifacts in capture order.
func (r RunResult) Screenshots() []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.Kind == ArtifactScreenshot {
			out = append(out, a)
		}
	}
	return out
}

// Counts returns the number of passed, failed and not-run steps.
func (r RunResult) Counts() (passed, failed, notRun int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StepPassed:
			passed++
		case StepFailed:
			failed++
		case StepNotRun:
			notRun++
		}
	}
	return passed, failed, notRun
}
