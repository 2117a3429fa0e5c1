package suite

import (
	"fmt"
	"strings"
	"time"

	"github.com/cgast/uiverify/pkg/action"
	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/runner"
)

// CompileOptions carries run-level settings into compiled steps.
type CompileOptions struct {
	// BaseURL is the dashboard root, e.g. http://localhost:5173.
	BaseURL string
	// Resolver looks up action types; nil uses the built-in actions.
	Resolver ActionResolver
	// ActionTimeout bounds element waits inside actions.
	ActionTimeout time.Duration
	// WaitUntil is the load state navigate and reload actions wait for.
	WaitUntil browser.LoadState
}

func defaultResolver() ActionResolver { return action.DefaultRegistry() }

// TargetURL resolves the suite's target path against baseURL. An empty or
// root path leaves baseURL as given.
func TargetURL(s Suite, baseURL string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("base url is required")
	}
	if s.Target.Path == "" || s.Target.Path == "/" {
		return baseURL, nil
	}
	return action.ResolveURL(baseURL, s.Target.Path)
}

// Compile validates s and turns its steps into runner steps.
func Compile(s Suite, opts CompileOptions) ([]runner.Step, error) {
	if opts.Resolver == nil {
		opts.Resolver = defaultResolver()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = runner.DefaultActionTimeout
	}
	if opts.WaitUntil == "" {
		opts.WaitUntil = browser.LoadStateLoad
	}

	vr := ValidateSuite(s, opts.Resolver)
	if !vr.Valid() {
		return nil, fmt.Errorf("invalid suite: %s", vr.Error())
	}

	env := action.Env{BaseURL: opts.BaseURL, Timeout: opts.ActionTimeout, WaitUntil: opts.WaitUntil}
	steps := make([]runner.Step, 0, len(s.Steps))
	for _, spec := range s.Steps {
		step := runner.Step{
			Name:       strings.TrimSpace(spec.Name),
			Before:     spec.WaitBefore,
			After:      spec.WaitAfter,
			Expect:     spec.Expect,
			Screenshot: spec.Screenshot,
			Review:     spec.EffectiveReview(),
		}
		if spec.Action != nil {
			a, err := opts.Resolver.Resolve(spec.Action.Type)
			if err != nil {
				return nil, err
			}
			step.Action = action.Func(a, *spec.Action, env)
			step.Mutates = a.Mutates()
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// RunConfig compiles s into a runner.Config. Output, browser and timeout
// settings are left for the caller.
func RunConfig(s Suite, opts CompileOptions) (runner.Config, error) {
	steps, err := Compile(s, opts)
	if err != nil {
		return runner.Config{}, err
	}
	target, err := TargetURL(s, opts.BaseURL)
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		Suite:         s.Meta.Name,
		TargetURL:     target,
		Viewport:      s.Viewport,
		Steps:         steps,
		ActionTimeout: opts.ActionTimeout,
		ReadyState:    opts.WaitUntil,
		Ready:         s.Target.Ready,
	}, nil
}
