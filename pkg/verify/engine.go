package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// VerificationEngine checks a page against a step's expectations.
type VerificationEngine interface {
	Verify(ctx context.Context, page browser.Page, expectations []Expectation) (VerificationResult, error)
}

// Option configures the DefaultEngine.
type Option func(*DefaultEngine)

// WithFailFast stops verification on the first failed expectation.
func WithFailFast(ff bool) Option {
	return func(e *DefaultEngine) {
		e.failFast = ff
	}
}

// WithTimeout bounds how long each expectation is retried.
func WithTimeout(d time.Duration) Option {
	return func(e *DefaultEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithInterval sets the delay between observations.
func WithInterval(d time.Duration) Option {
	return func(e *DefaultEngine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// DefaultEngine retries each expectation until it holds or its timeout
// expires, the way web-first assertions behave.
type DefaultEngine struct {
	failFast bool
	timeout  time.Duration
	interval time.Duration
}

// NewEngine creates a new verification engine with the given options.
func NewEngine(opts ...Option) *DefaultEngine {
	e := &DefaultEngine{
		failFast: true,
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the per-expectation retry bound.
func (e *DefaultEngine) Timeout() time.Duration { return e.timeout }

// Verify checks expectations in order. The returned error is non-nil only
// when ctx is done; failed checks are reported through the result.
func (e *DefaultEngine) Verify(ctx context.Context, page browser.Page, expectations []Expectation) (VerificationResult, error) {
	result := VerificationResult{
		Passed:    true,
		Timestamp: time.Now(),
		Results:   make([]Result, 0, len(expectations)),
	}

	for _, exp := range expectations {
		checker := GetChecker(exp.Type)
		if checker == nil {
			result.Results = append(result.Results, Result{
				Expectation: exp,
				Passed:      false,
				Message:     fmt.Sprintf("unknown expectation type: %q", exp.Type),
			})
			result.Passed = false
			if e.failFast {
				return result, nil
			}
			continue
		}

		var last Result
		attempts := 0
		err := Until(ctx, e.timeout, e.interval, func(ctx context.Context) (bool, error) {
			attempts++
			last = checker(ctx, page, exp)
			return last.Passed, nil
		})
		last.Attempts = attempts
		if err != nil && ctx.Err() != nil {
			result.Results = append(result.Results, last)
			result.Passed = false
			return result, ctx.Err()
		}

		result.Results = append(result.Results, last)
		if !last.Passed {
			result.Passed = false
			if e.failFast {
				return result, nil
			}
		}
	}

	return result, nil
}
