// Package action implements the step actions a suite can perform on a page:
// navigation, clicks, selection and form input.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
)

// Action defines the interface every step action implements.
type Action interface {
	// Identity
	Name() string
	Description() string

	// Mutates reports whether the action changes application state.
	// Read-only actions keep a suite idempotent.
	Mutates() bool

	// Validate checks a spec before any browser is launched.
	Validate(spec Spec) error

	Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error
}

// Spec is the declarative form of one action.
type Spec struct {
	Type   string         `yaml:"type" json:"type"`
	Target browser.Target `yaml:"target,omitempty" json:"target,omitempty"`
	URL    string         `yaml:"url,omitempty" json:"url,omitempty"`
	Value  string         `yaml:"value,omitempty" json:"value,omitempty"`
}

func (s Spec) String() string {
	switch {
	case s.URL != "":
		return fmt.Sprintf("%s %s", s.Type, s.URL)
	case s.Target.IsZero():
		return s.Type
	case s.Value != "":
		return fmt.Sprintf("%s %s = %q", s.Type, s.Target, s.Value)
	default:
		return fmt.Sprintf("%s %s", s.Type, s.Target)
	}
}

// Env carries run-level settings into action execution.
type Env struct {
	// BaseURL resolves relative navigate URLs.
	BaseURL string
	// Timeout bounds element waits and interactions.
	Timeout time.Duration
	// WaitUntil is the load state navigations wait for.
	WaitUntil browser.LoadState
}

// Func binds spec and env into a closure suitable for runner.Step.Action.
func Func(a Action, spec Spec, env Env) func(context.Context, browser.Page) error {
	return func(ctx context.Context, page browser.Page) error {
		return a.Execute(ctx, page, spec, env)
	}
}
