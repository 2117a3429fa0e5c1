package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
)

// Checker observes the page once and reports whether e holds right now.
type Checker func(ctx context.Context, page browser.Page, e Expectation) Result

// probeTimeout bounds single reads (text, value) inside one observation.
// The engine supplies the overall bound by polling.
const probeTimeout = 500 * time.Millisecond

var builtinCheckers = map[string]Checker{
	"visible":       checkVisible,
	"hidden":        checkHidden,
	"text_contains": checkTextContains,
	"text_equals":   checkTextEquals,
	"value_equals":  checkValueEquals,
	"count_gte":     checkCountGTE,
	"count_eq":      checkCountEQ,
	"url_contains":  checkURLContains,
}

// RegisterChecker adds or replaces a checker.
func RegisterChecker(name string, checker Checker) {
	builtinCheckers[name] = checker
}

// GetChecker returns the checker for an expectation type, or nil.
func GetChecker(name string) Checker {
	return builtinCheckers[name]
}

// Types returns the registered expectation types, sorted.
func Types() []string {
	names := make([]string, 0, len(builtinCheckers))
	for n := range builtinCheckers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NeedsTarget reports whether an expectation type inspects an element.
func NeedsTarget(typ string) bool {
	return typ != "url_contains"
}

// NeedsExpected reports whether an expectation type compares against a value.
func NeedsExpected(typ string) bool {
	switch typ {
	case "visible", "hidden":
		return false
	}
	return true
}

func checkVisible(ctx context.Context, page browser.Page, e Expectation) Result {
	visible, err := page.Locate(e.Target).IsVisible(ctx)
	if err != nil {
		return failed(e, nil, fmt.Sprintf("visibility of %s: %v", e.Target, err))
	}
	return outcome(e, visible, visible, fmt.Sprintf("%s is not visible", e.Target))
}

func checkHidden(ctx context.Context, page browser.Page, e Expectation) Result {
	visible, err := page.Locate(e.Target).IsVisible(ctx)
	if err != nil {
		return failed(e, nil, fmt.Sprintf("visibility of %s: %v", e.Target, err))
	}
	return outcome(e, !visible, visible, fmt.Sprintf("%s is still visible", e.Target))
}

func checkTextContains(ctx context.Context, page browser.Page, e Expectation) Result {
	text, err := page.Locate(e.Target).TextContent(ctx, probeTimeout)
	if err != nil {
		return readFailure(e, "text", err)
	}
	want := fmt.Sprintf("%v", e.Expected)
	return outcome(e, strings.Contains(text, want), truncate(text, 200),
		fmt.Sprintf("text of %s does not contain %q", e.Target, want))
}

func checkTextEquals(ctx context.Context, page browser.Page, e Expectation) Result {
	text, err := page.Locate(e.Target).TextContent(ctx, probeTimeout)
	if err != nil {
		return readFailure(e, "text", err)
	}
	want := fmt.Sprintf("%v", e.Expected)
	got := strings.TrimSpace(text)
	return outcome(e, got == want, truncate(got, 200),
		fmt.Sprintf("text of %s is %q, want %q", e.Target, truncate(got, 80), want))
}

func checkValueEquals(ctx context.Context, page browser.Page, e Expectation) Result {
	value, err := page.Locate(e.Target).InputValue(ctx, probeTimeout)
	if err != nil {
		return readFailure(e, "value", err)
	}
	want := fmt.Sprintf("%v", e.Expected)
	return outcome(e, value == want, value,
		fmt.Sprintf("value of %s is %q, want %q", e.Target, value, want))
}

func checkCountGTE(ctx context.Context, page browser.Page, e Expectation) Result {
	return checkCount(ctx, page, e, func(got, want int) bool { return got >= want }, "at least")
}

func checkCountEQ(ctx context.Context, page browser.Page, e Expectation) Result {
	return checkCount(ctx, page, e, func(got, want int) bool { return got == want }, "exactly")
}

func checkCount(ctx context.Context, page browser.Page, e Expectation, cmp func(got, want int) bool, word string) Result {
	want, err := toInt(e.Expected)
	if err != nil {
		return failed(e, nil, fmt.Sprintf("%s: invalid expected value: %v", e.Type, e.Expected))
	}
	got, err := page.Locate(e.Target).Count(ctx)
	if err != nil {
		return failed(e, nil, fmt.Sprintf("count %s: %v", e.Target, err))
	}
	return outcome(e, cmp(got, want), got,
		fmt.Sprintf("%s matched %d element(s), want %s %d", e.Target, got, word, want))
}

func checkURLContains(_ context.Context, page browser.Page, e Expectation) Result {
	url := page.URL()
	want := fmt.Sprintf("%v", e.Expected)
	return outcome(e, strings.Contains(url, want), url,
		fmt.Sprintf("url %q does not contain %q", url, want))
}

func outcome(e Expectation, passed bool, actual any, defaultMsg string) Result {
	msg := e.Message
	if !passed && msg == "" {
		msg = defaultMsg
	}
	return Result{Expectation: e, Passed: passed, Actual: actual, Message: msg}
}

func failed(e Expectation, actual any, msg string) Result {
	return Result{Expectation: e, Passed: false, Actual: actual, Message: msg}
}

// readFailure reports a read that could not resolve its element; a driver
// timeout here means the element is absent.
func readFailure(e Expectation, what string, err error) Result {
	if errors.Is(err, browser.ErrTimeout) {
		return failed(e, nil, fmt.Sprintf("%s not found", e.Target))
	}
	return failed(e, nil, fmt.Sprintf("read %s of %s: %v", what, e.Target, err))
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		var i int
		_, err := fmt.Sscanf(n, "%d", &i)
		return i, err
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
