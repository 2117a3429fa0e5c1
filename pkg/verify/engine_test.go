package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/browser/browsertest"
)

func fastEngine(opts ...Option) *DefaultEngine {
	base := []Option{WithTimeout(50 * time.Millisecond), WithInterval(5 * time.Millisecond)}
	return NewEngine(append(base, opts...)...)
}

func TestEngineAllPass(t *testing.T) {
	page := dashboardPage()
	exps := []Expectation{
		{Type: "visible", Target: heading},
		{Type: "count_gte", Target: rows, Expected: 1},
	}

	result, err := fastEngine().Verify(context.Background(), page, exps)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Passed {
		t.Error("expected all expectations to pass")
	}
	if len(result.Results) != 2 {
		t.Errorf("results count = %d, want 2", len(result.Results))
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}
	// Passing checks succeed on the first observation.
	if result.Results[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Results[0].Attempts)
	}
}

func TestEngineOneFails(t *testing.T) {
	page := dashboardPage()
	exps := []Expectation{
		{Type: "visible", Target: heading},
		{Type: "visible", Target: modal},
		{Type: "count_gte", Target: rows, Expected: 1},
	}

	result, err := fastEngine(WithFailFast(false)).Verify(context.Background(), page, exps)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Passed {
		t.Error("expected overall failure")
	}
	// Without fail-fast, all 3 expectations are checked.
	if len(result.Results) != 3 {
		t.Fatalf("results count = %d, want 3", len(result.Results))
	}
	if !result.Results[0].Passed || result.Results[1].Passed || !result.Results[2].Passed {
		t.Errorf("unexpected pass pattern: %+v", result.Results)
	}
	if result.Results[1].Attempts < 2 {
		t.Errorf("failing check attempts = %d, want retries", result.Results[1].Attempts)
	}
}

func TestEngineFailFastByDefault(t *testing.T) {
	page := dashboardPage()
	exps := []Expectation{
		{Type: "visible", Target: modal},
		{Type: "visible", Target: heading},
	}

	result, err := fastEngine().Verify(context.Background(), page, exps)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Passed {
		t.Error("expected failure")
	}
	if len(result.Results) != 1 {
		t.Errorf("fail-fast results count = %d, want 1", len(result.Results))
	}
	err = result.Err()
	if !errors.Is(err, ErrExpectationFailed) {
		t.Fatalf("Err() = %v, want ErrExpectationFailed", err)
	}
	if !strings.Contains(err.Error(), "role=dialog") {
		t.Errorf("Err() = %q, want target in message", err)
	}
}

func TestEngineUnknownType(t *testing.T) {
	result, err := fastEngine().Verify(context.Background(), dashboardPage(), []Expectation{{Type: "bogus"}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Passed {
		t.Error("expected failure for unknown type")
	}
	if !strings.Contains(result.Results[0].Message, "unknown expectation type") {
		t.Errorf("message = %q", result.Results[0].Message)
	}
}

func TestEngineWaitsForLateElement(t *testing.T) {
	page := dashboardPage()
	go func() {
		time.Sleep(20 * time.Millisecond)
		page.Show(modal)
	}()

	engine := NewEngine(WithTimeout(2*time.Second), WithInterval(5*time.Millisecond))
	result, err := engine.Verify(context.Background(), page, []Expectation{{Type: "visible", Target: modal}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected modal to become visible: %s", result.Results[0].Message)
	}
}

func TestEngineContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(WithTimeout(time.Second))
	_, err := engine.Verify(ctx, dashboardPage(), []Expectation{{Type: "visible", Target: modal}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEngineClosedPage(t *testing.T) {
	page := browsertest.NewPage().Set(heading, browsertest.Elem{Visible: true})
	launcher := browsertest.NewLauncher(page)
	sess, err := launcher.Launch(context.Background(), browser.LaunchOptions{})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	sess.Close()

	result, err := fastEngine().Verify(context.Background(), sess.Page(), []Expectation{{Type: "visible", Target: heading}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Passed {
		t.Error("expected failure on a closed page")
	}
}
