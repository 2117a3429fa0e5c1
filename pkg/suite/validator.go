package suite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cgast/uiverify/pkg/action"
	"github.com/cgast/uiverify/pkg/runner"
	"github.com/cgast/uiverify/pkg/verify"
)

// ActionResolver resolves action types for validation and compilation.
// This avoids depending on a concrete registry.
type ActionResolver interface {
	Resolve(name string) (action.Action, error)
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a suite.
type ValidationResult struct {
	Errors []ValidationError
}

// Valid returns true if no validation errors were found.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message from all validation errors.
func (r ValidationResult) Error() string {
	if r.Valid() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (r *ValidationResult) add(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// artifactNamePattern accepts names that are safe as file names on every
// platform without escaping.
var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// errorNamePattern matches the names the runner gives error screenshots.
var errorNamePattern = regexp.MustCompile(`^\d{2}_.+_error$`)

var paramTypes = map[string]bool{"": true, "string": true, "int": true, "bool": true}

// ValidateSuite checks a Suite for required fields and structural
// correctness. A nil resolver uses the default action registry.
func ValidateSuite(s Suite, resolver ActionResolver) ValidationResult {
	if resolver == nil {
		resolver = action.DefaultRegistry()
	}
	var result ValidationResult

	// Required fields.
	if s.APIVersion == "" {
		result.add("apiVersion", "required")
	} else if s.APIVersion != APIVersion {
		result.add("apiVersion", "unsupported version %q (expected %s)", s.APIVersion, APIVersion)
	}

	if s.Kind == "" {
		result.add("kind", "required")
	} else if s.Kind != KindSuite {
		result.add("kind", "unsupported kind %q (expected %s)", s.Kind, KindSuite)
	}

	if strings.TrimSpace(s.Meta.Name) == "" {
		result.add("meta.name", "required")
	}

	for _, name := range s.Unresolved {
		result.add("params", "unresolved variable {{%s}}", name)
	}

	if s.Viewport.Width < 0 || s.Viewport.Height < 0 ||
		(s.Viewport.Width == 0) != (s.Viewport.Height == 0) {
		result.add("viewport", "width and height must both be positive (got %s)", s.Viewport)
	}

	validateWait(&result, "target.ready", s.Target.Ready)

	if len(s.Steps) == 0 {
		result.add("steps", "at least one step is required")
	}

	stepNames := make(map[string]bool)
	artifacts := make(map[string]string)
	for i, step := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)

		name := strings.TrimSpace(step.Name)
		switch {
		case name == "":
			result.add(field+".name", "required")
		case strings.EqualFold(name, runner.OpenTargetStep):
			result.add(field+".name", "%q is reserved", runner.OpenTargetStep)
		case stepNames[name]:
			result.add(field+".name", "duplicate step name %q", name)
		default:
			stepNames[name] = true
		}

		if step.Action != nil {
			validateAction(&result, field+".action", *step.Action, resolver)
		}
		validateWait(&result, field+".wait_before", step.WaitBefore)
		validateWait(&result, field+".wait_after", step.WaitAfter)

		for j, e := range step.Expect {
			validateExpectation(&result, fmt.Sprintf("%s.expect[%d]", field, j), e)
		}

		if step.Screenshot != nil {
			art := step.ArtifactName()
			switch {
			case !artifactNamePattern.MatchString(art):
				result.add(field+".screenshot.name", "invalid artifact name %q", art)
			case runner.IsReserved(art):
				result.add(field+".screenshot.name", "artifact name %q is reserved", art)
			case errorNamePattern.MatchString(art):
				result.add(field+".screenshot.name", "artifact name %q collides with error screenshots", art)
			default:
				key := strings.ToLower(art)
				if prev, ok := artifacts[key]; ok {
					result.add(field+".screenshot.name", "duplicate artifact name %q (also used by %s)", art, prev)
				} else {
					artifacts[key] = field
				}
			}
		}

		if step.Action == nil && len(step.Expect) == 0 && step.Screenshot == nil && step.WaitBefore.IsZero() && step.WaitAfter.IsZero() {
			result.add(field, "step does nothing (needs an action, expectation, screenshot or wait)")
		}

		validateReview(&result, field+".review", step)
	}

	// Validate params.
	paramNames := make(map[string]bool)
	for i, p := range s.Params {
		field := fmt.Sprintf("params[%d]", i)
		if p.Name == "" {
			result.add(field+".name", "required")
		} else if paramNames[p.Name] {
			result.add(field+".name", "duplicate param name %q", p.Name)
		} else {
			paramNames[p.Name] = true
		}
		if !paramTypes[p.Type] {
			result.add(field+".type", "unknown param type %q", p.Type)
		} else if err := checkParamDefault(p); err != nil {
			result.add(field+".default", "%v", err)
		}
	}

	return result
}

func validateAction(result *ValidationResult, field string, spec action.Spec, resolver ActionResolver) {
	if spec.Type == "" {
		result.add(field+".type", "required")
		return
	}
	a, err := resolver.Resolve(spec.Type)
	if err != nil {
		result.add(field+".type", "%v", err)
		return
	}
	if err := a.Validate(spec); err != nil {
		result.add(field, "%v", err)
	}
}

func validateWait(result *ValidationResult, field string, w runner.WaitSpec) {
	if w.LoadState != "" && !w.LoadState.Valid() {
		result.add(field+".load_state", "unknown load state %q", w.LoadState)
	}
	if w.For != nil {
		if err := w.For.Target.Validate(); err != nil {
			result.add(field+".for.target", "%v", err)
		}
		if w.For.State != "" && !w.For.State.Valid() {
			result.add(field+".for.state", "unknown element state %q", w.For.State)
		}
	}
	if w.Settle < 0 {
		result.add(field+".settle", "must not be negative")
	}
	if w.Timeout < 0 {
		result.add(field+".timeout", "must not be negative")
	}
}

func validateExpectation(result *ValidationResult, field string, e verify.Expectation) {
	if e.Type == "" {
		result.add(field+".type", "required")
		return
	}
	if verify.GetChecker(e.Type) == nil {
		result.add(field+".type", "unknown expectation type %q (known: %s)", e.Type, strings.Join(verify.Types(), ", "))
		return
	}
	if verify.NeedsTarget(e.Type) {
		if err := e.Target.Validate(); err != nil {
			result.add(field+".target", "%v", err)
		}
	}
	if verify.NeedsExpected(e.Type) && e.Expected == nil {
		result.add(field+".expected", "required for %s", e.Type)
	}
}

// validateReview rejects review modes the step cannot satisfy.
func validateReview(result *ValidationResult, field string, step StepSpec) {
	if !step.Review.Valid() {
		result.add(field, "unknown review mode %q", step.Review)
		return
	}
	hasExpect, hasShot := len(step.Expect) > 0, step.Screenshot != nil
	switch step.Review {
	case runner.ReviewAssert:
		if !hasExpect {
			result.add(field, "review %q needs at least one expectation", step.Review)
		}
	case runner.ReviewVisual:
		if !hasShot {
			result.add(field, "review %q needs a screenshot", step.Review)
		}
	case runner.ReviewBoth:
		if !hasExpect || !hasShot {
			result.add(field, "review %q needs expectations and a screenshot", step.Review)
		}
	case runner.ReviewNone:
		if hasExpect || hasShot {
			result.add(field, "review %q conflicts with expectations or screenshot", step.Review)
		}
	}
}

func checkParamDefault(p ParamDef) error {
	if p.Default == nil {
		return nil
	}
	s := fmt.Sprintf("%v", p.Default)
	switch p.Type {
	case "int":
		if _, err := strconv.Atoi(s); err != nil {
			return fmt.Errorf("default %q is not an int", s)
		}
	case "bool":
		if _, err := strconv.ParseBool(s); err != nil {
			return fmt.Errorf("default %q is not a bool", s)
		}
	}
	return nil
}

// compile-time check that the default registry satisfies ActionResolver.
var _ ActionResolver = (*action.Registry)(nil)

