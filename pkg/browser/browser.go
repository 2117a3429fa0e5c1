// Package browser defines the small driver surface the runner needs from a
// headless browser, plus a playwright-go implementation of it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by actions and the runner. Driver implementations
// wrap ErrTimeout; actions wrap the remaining sentinels.
var (
	ErrTimeout         = errors.New("timeout")
	ErrNavigation      = errors.New("navigation error")
	ErrElementNotFound = errors.New("element not found")
	ErrAction          = errors.New("action error")
)

// LoadState is a page readiness milestone.
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// Valid reports whether s is a known load state. The empty state is valid
// and means "do not wait".
func (s LoadState) Valid() bool {
	switch s {
	case "", LoadStateLoad, LoadStateDOMContentLoaded, LoadStateNetworkIdle:
		return true
	}
	return false
}

// ElementState is the condition an element wait resolves on.
type ElementState string

const (
	StateVisible  ElementState = "visible"
	StateHidden   ElementState = "hidden"
	StateAttached ElementState = "attached"
	StateDetached ElementState = "detached"
)

// Valid reports whether s is a known element state.
func (s ElementState) Valid() bool {
	switch s {
	case StateVisible, StateHidden, StateAttached, StateDetached:
		return true
	}
	return false
}

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// DefaultViewport matches the playwright default.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

// IsZero reports whether neither dimension is set.
func (v Viewport) IsZero() bool { return v.Width == 0 && v.Height == 0 }

func (v Viewport) String() string { return fmt.Sprintf("%dx%d", v.Width, v.Height) }

// LaunchOptions configures a browser session.
type LaunchOptions struct {
	Browser  string // chromium, firefox or webkit
	Headless bool
	SlowMo   time.Duration
	Viewport Viewport
	// Timeout is the driver-level default for operations without an
	// explicit bound.
	Timeout time.Duration
}

// GotoOptions bounds a navigation.
type GotoOptions struct {
	WaitUntil LoadState
	Timeout   time.Duration
}

// ScreenshotOptions selects full-page or viewport-only capture.
type ScreenshotOptions struct {
	FullPage bool
	Timeout  time.Duration
}

// ConsoleMessage is a console line or uncaught page error seen by the page.
type ConsoleMessage struct {
	Kind string    `json:"kind"` // "console" or "pageerror"
	Type string    `json:"type,omitempty"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

func (m ConsoleMessage) String() string {
	if m.Kind == "pageerror" {
		return "Page Error: " + m.Text
	}
	if m.Type != "" {
		return fmt.Sprintf("Console [%s]: %s", m.Type, m.Text)
	}
	return "Console: " + m.Text
}

// Launcher starts a browser and opens exactly one page on it.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session owns a browser and its single page. Close releases both.
type Session interface {
	Page() Page
	Close() error
}

// Page is the live document steps act on.
type Page interface {
	Goto(ctx context.Context, url string, opts GotoOptions) error
	Reload(ctx context.Context, opts GotoOptions) error
	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error
	Locate(t Target) Element
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	URL() string
	OnConsole(fn func(ConsoleMessage))
}

// Element is a lazily resolved handle for a Target. Every method re-resolves
// the target against the current document.
type Element interface {
	WaitFor(ctx context.Context, state ElementState, timeout time.Duration) error
	Click(ctx context.Context, timeout time.Duration) error
	Hover(ctx context.Context, timeout time.Duration) error
	Fill(ctx context.Context, value string, timeout time.Duration) error
	Press(ctx context.Context, key string, timeout time.Duration) error
	// SelectOption picks the option whose value or label equals value.
	SelectOption(ctx context.Context, value string, timeout time.Duration) error
	IsVisible(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int, error)
	TextContent(ctx context.Context, timeout time.Duration) (string, error)
	InputValue(ctx context.Context, timeout time.Duration) (string, error)
}
