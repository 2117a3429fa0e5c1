// Package suite loads declarative verification suites from YAML, validates
// them, produces a reviewable plan and compiles them into runner steps.
package suite

import (
	"github.com/cgast/uiverify/pkg/action"
	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/runner"
	"github.com/cgast/uiverify/pkg/verify"
)

const (
	APIVersion = "uiverify/v1"
	KindSuite  = "Suite"
)

// Suite is a named, ordered list of verification steps against one target.
type Suite struct {
	APIVersion string           `yaml:"apiVersion" json:"apiVersion"`
	Kind       string           `yaml:"kind" json:"kind"`
	Meta       Meta             `yaml:"meta" json:"meta"`
	Target     TargetSpec       `yaml:"target" json:"target"`
	Viewport   browser.Viewport `yaml:"viewport" json:"viewport"`
	Params     []ParamDef       `yaml:"params" json:"params"`
	Steps      []StepSpec       `yaml:"steps" json:"steps"`

	// Unresolved lists {{variables}} left after interpolation.
	Unresolved []string `yaml:"-" json:"-"`
}

// Meta contains metadata about the suite.
type Meta struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Author      string   `yaml:"author" json:"author"`
	Tags        []string `yaml:"tags" json:"tags"`
}

// TargetSpec locates the page the suite opens first.
type TargetSpec struct {
	// Path is resolved against the base URL; empty means the base URL itself.
	Path  string          `yaml:"path" json:"path"`
	Ready runner.WaitSpec `yaml:"ready" json:"ready"`
}

// ParamDef defines a runtime parameter that the human provides.
type ParamDef struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"` // "string", "int" or "bool"
	Default     any    `yaml:"default" json:"default"`
	Description string `yaml:"description" json:"description"`
}

// StepSpec is the declarative form of one verification step.
type StepSpec struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Review      runner.Review          `yaml:"review,omitempty" json:"review,omitempty"`
	Action      *action.Spec           `yaml:"action,omitempty" json:"action,omitempty"`
	WaitBefore  runner.WaitSpec        `yaml:"wait_before,omitempty" json:"wait_before,omitempty"`
	WaitAfter   runner.WaitSpec        `yaml:"wait_after,omitempty" json:"wait_after,omitempty"`
	Expect      []verify.Expectation   `yaml:"expect,omitempty" json:"expect,omitempty"`
	Screenshot  *runner.ScreenshotSpec `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`
}

// EffectiveReview returns the declared review mode, or the one implied by
// the step's content when none was declared.
func (s StepSpec) EffectiveReview() runner.Review {
	if s.Review != "" {
		return s.Review
	}
	switch hasExpect, hasShot := len(s.Expect) > 0, s.Screenshot != nil; {
	case hasExpect && hasShot:
		return runner.ReviewBoth
	case hasExpect:
		return runner.ReviewAssert
	case hasShot:
		return runner.ReviewVisual
	default:
		return runner.ReviewNone
	}
}

// ArtifactName returns the screenshot name the step will write, or "".
func (s StepSpec) ArtifactName() string {
	if s.Screenshot == nil {
		return ""
	}
	if s.Screenshot.Name != "" {
		return s.Screenshot.Name
	}
	return runner.Slug(s.Name)
}
