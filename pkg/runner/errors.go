package runner

import (
	"errors"
	"fmt"

	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/verify"
)

var (
	// ErrRunInProgress is returned when another run holds the output
	// directory, in this process or another.
	ErrRunInProgress = errors.New("a run is already in progress for this output directory")
	ErrNoSteps       = errors.New("no steps to run")
)

// Kind classifies a step failure.
type Kind string

const (
	KindNavigation      Kind = "NavigationError"
	KindElementNotFound Kind = "ElementNotFound"
	KindExpectation     Kind = "ExpectationFailed"
	KindAction          Kind = "ActionError"
)

// OpenTargetStep names the initial navigation, reported as index 0.
const OpenTargetStep = "open target"

// StepFailure is returned by Run when a step fails. It unwraps to the
// underlying cause.
type StepFailure struct {
	Step  string
	Index int
	Kind  Kind
	Cause error
	// Artifact is the path of the error screenshot, if one was captured.
	Artifact string
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed (%s): %v", f.Step, f.Kind, f.Cause)
}

func (f *StepFailure) Unwrap() error { return f.Cause }

// Classify maps an error onto a failure kind. A bare driver timeout means
// the element never showed up; anything unrecognised is ActionError.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, browser.ErrNavigation):
		return KindNavigation
	case errors.Is(err, browser.ErrElementNotFound):
		return KindElementNotFound
	case errors.Is(err, verify.ErrExpectationFailed):
		return KindExpectation
	case errors.Is(err, browser.ErrAction):
		return KindAction
	case errors.Is(err, browser.ErrTimeout):
		return KindElementNotFound
	default:
		return KindAction
	}
}
