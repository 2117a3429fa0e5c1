package suite

import (
	"fmt"

	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/runner"
)

// ExecutionPlan is the concrete plan generated from a Suite.
type ExecutionPlan struct {
	Suite         string           `json:"suite"`
	Description   string           `json:"description,omitempty"`
	Target        string           `json:"target"`
	Viewport      browser.Viewport `json:"viewport"`
	Steps         []PlanStep       `json:"steps"`
	EstimatedRisk string           `json:"risk_summary"`
	Idempotent    bool             `json:"idempotent"`
	Expectations  int              `json:"expectations"`
	Artifacts     []string         `json:"artifacts"`
}

// PlanStep is a single step in an execution plan.
type PlanStep struct {
	Index        int           `json:"index"`
	Name         string        `json:"name"`
	Action       string        `json:"action,omitempty"`
	Risk         string        `json:"risk"` // "read-only" or "mutating"
	Review       runner.Review `json:"review"`
	Expectations int           `json:"expectations"`
	Artifact     string        `json:"artifact,omitempty"`
}

const (
	RiskReadOnly = "read-only"
	RiskMutating = "mutating"
)

// GeneratePlan produces an ExecutionPlan from a validated Suite. The plan is
// a structured preview of what will be executed, suitable for human review
// before a browser is launched.
func GeneratePlan(s Suite, resolver ActionResolver) (ExecutionPlan, error) {
	if resolver == nil {
		resolver = defaultResolver()
	}
	vr := ValidateSuite(s, resolver)
	if !vr.Valid() {
		return ExecutionPlan{}, fmt.Errorf("invalid suite: %s", vr.Error())
	}

	viewport := s.Viewport
	if viewport.IsZero() {
		viewport = browser.DefaultViewport
	}
	target := s.Target.Path
	if target == "" {
		target = "/"
	}

	plan := ExecutionPlan{
		Suite:       s.Meta.Name,
		Description: s.Meta.Description,
		Target:      target,
		Viewport:    viewport,
		Idempotent:  true,
		Artifacts:   []string{},
	}

	var reads, writes int
	for i, step := range s.Steps {
		ps := PlanStep{
			Index:        i + 1,
			Name:         step.Name,
			Risk:         RiskReadOnly,
			Review:       step.EffectiveReview(),
			Expectations: len(step.Expect),
			Artifact:     step.ArtifactName(),
		}
		if step.Action != nil {
			ps.Action = step.Action.String()
			// Validation has resolved every action type already.
			a, _ := resolver.Resolve(step.Action.Type)
			if a.Mutates() {
				ps.Risk = RiskMutating
				plan.Idempotent = false
			}
		}
		if ps.Risk == RiskMutating {
			writes++
		} else {
			reads++
		}
		plan.Expectations += ps.Expectations
		if ps.Artifact != "" {
			plan.Artifacts = append(plan.Artifacts, ps.Artifact)
		}
		plan.Steps = append(plan.Steps, ps)
	}

	plan.EstimatedRisk = fmt.Sprintf("%d read-only, %d mutating steps", reads, writes)
	return plan, nil
}
