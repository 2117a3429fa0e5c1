package verify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
)

// ErrExpectationFailed marks a check that evaluated false.
var ErrExpectationFailed = errors.New("expectation failed")

// Expectation is a predicate over the current page, asserted right after a
// step's action.
type Expectation struct {
	Type     string         `yaml:"type" json:"type"`                             // "visible", "hidden", "text_contains", "text_equals", "value_equals", "count_gte", "count_eq", "url_contains"
	Target   browser.Target `yaml:"target,omitempty" json:"target,omitempty"`     // element to inspect; unused by url_contains
	Expected any            `yaml:"expected,omitempty" json:"expected,omitempty"` // expected value or substring
	Message  string         `yaml:"message,omitempty" json:"message,omitempty"`   // human-readable failure description
}

func (e Expectation) String() string {
	var b strings.Builder
	b.WriteString(e.Type)
	if !e.Target.IsZero() {
		b.WriteString(" " + e.Target.String())
	}
	if e.Expected != nil {
		fmt.Fprintf(&b, " %v", e.Expected)
	}
	return b.String()
}

// Result records the last observation of one expectation.
type Result struct {
	Expectation Expectation `json:"expectation"`
	Passed      bool        `json:"passed"`
	Actual      any         `json:"actual,omitempty"`
	Message     string      `json:"message,omitempty"`
	Attempts    int         `json:"attempts"`
}

// VerificationResult holds the outcome of checking a step's expectations.
type VerificationResult struct {
	Passed    bool      `json:"passed"`
	Results   []Result  `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}

// Err returns nil when every expectation held, otherwise an error wrapping
// ErrExpectationFailed that names the first failing check.
func (r VerificationResult) Err() error {
	if r.Passed {
		return nil
	}
	for _, res := range r.Results {
		if !res.Passed {
			msg := res.Message
			if msg == "" {
				msg = "did not hold"
			}
			return fmt.Errorf("%w: %s: %s", ErrExpectationFailed, res.Expectation, msg)
		}
	}
	return ErrExpectationFailed
}
