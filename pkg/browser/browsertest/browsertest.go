// Package browsertest provides a scriptable in-memory browser for tests.
// The fake tracks every resource it hands out, so tests can assert that a
// session was closed exactly once and that the page was never touched after
// teardown.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cgast/uiverify/pkg/browser"
)

// ErrClosed is returned by page operations after the session was closed.
var ErrClosed = errors.New("browsertest: target closed")

// Launcher hands out sessions that all share one scripted Page.
type Launcher struct {
	mu        sync.Mutex
	page      *Page
	launchErr error
	sessions  []*Session
	options   []browser.LaunchOptions
}

// NewLauncher returns a launcher serving page.
func NewLauncher(page *Page) *Launcher {
	return &Launcher{page: page}
}

// FailLaunch makes the next launches fail with err.
func (l *Launcher) FailLaunch(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launchErr = err
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.options = append(l.options, opts)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.page.reopen()
	s := &Session{page: l.page}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Sessions returns every session launched so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sessions)
}

// LastOptions returns the options of the most recent launch attempt.
func (l *Launcher) LastOptions() browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.options) == 0 {
		return browser.LaunchOptions{}
	}
	return l.options[len(l.options)-1]
}

// Session counts Close calls.
type Session struct {
	mu       sync.Mutex
	page     *Page
	closes   int
	CloseErr error
}

func (s *Session) Page() browser.Page { return s.page }

func (s *Session) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.page.close()
	return s.CloseErr
}

// Closes reports how many times Close was called.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Elem is the scripted state of one target.
type Elem struct {
	Visible bool
	// Count overrides the match count; zero means one match when present.
	Count int
	Text  string
	Value string
	// Options restricts SelectOption to these values when non-empty.
	Options  []string
	ClickErr error
	FillErr  error
}

type effect struct {
	action string
	key    string
	fn     func(*Page)
}

// Page is a fake document keyed by Target.String().
type Page struct {
	mu            sync.Mutex
	url           string
	closed        bool
	elements      map[string]*Elem
	effects       []effect
	calls         []string
	gotoErr       error
	loadErr       error
	screenshotErr error
	screenshot    []byte
	console       []func(browser.ConsoleMessage)
	pending       []browser.ConsoleMessage
}

// NewPage returns an empty page whose screenshots return a fixed payload.
func NewPage() *Page {
	return &Page{
		elements:   make(map[string]*Elem),
		screenshot: []byte("\x89PNG-fake"),
	}
}

// Set installs or replaces the element state for t.
func (p *Page) Set(t browser.Target, e Elem) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := e
	p.elements[t.String()] = &cp
	return p
}

// Remove deletes t from the document.
func (p *Page) Remove(t browser.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, t.String())
}

// Hide marks t invisible without removing it.
func (p *Page) Hide(t browser.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.elements[t.String()]; ok {
		e.Visible = false
	}
}

// Show marks t visible, adding it if absent.
func (p *Page) Show(t browser.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.elements[t.String()]; ok {
		e.Visible = true
		return
	}
	p.elements[t.String()] = &Elem{Visible: true}
}

// On registers fn to run after action ("click", "select", "fill", "press",
// "hover") succeeds on t. Effects model client-side state changes.
func (p *Page) On(action string, t browser.Target, fn func(*Page)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.effects = append(p.effects, effect{action: action, key: t.String(), fn: fn})
	return p
}

// FailGoto makes every navigation fail with err.
func (p *Page) FailGoto(err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotoErr = err
	return p
}

// FailLoadState makes WaitForLoadState fail with err.
func (p *Page) FailLoadState(err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadErr = err
	return p
}

// FailScreenshot makes Screenshot fail with err.
func (p *Page) FailScreenshot(err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshotErr = err
	return p
}

// Emit delivers a console message to listeners, or queues it until one is
// attached.
func (p *Page) Emit(msg browser.ConsoleMessage) {
	p.mu.Lock()
	listeners := slices.Clone(p.console)
	if len(listeners) == 0 {
		p.pending = append(p.pending, msg)
	}
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(msg)
	}
}

// Calls returns the recorded operations in order, e.g. "goto http://x/",
// `click role=button[name="Employees"]`, "screenshot full".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// Closed reports whether the owning session was closed.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Page) reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = false
}

func (p *Page) record(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	return nil
}

func (p *Page) Goto(ctx context.Context, url string, opts browser.GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.record("goto %s", url); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	return nil
}

func (p *Page) Reload(ctx context.Context, opts browser.GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.record("reload"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gotoErr
}

func (p *Page) WaitForLoadState(ctx context.Context, state browser.LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.record("load %s", state); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

func (p *Page) Locate(t browser.Target) browser.Element {
	return &element{page: p, key: t.String()}
}

func (p *Page) Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := "viewport"
	if opts.FullPage {
		mode = "full"
	}
	if err := p.record("screenshot %s", mode); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	return slices.Clone(p.screenshot), nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) OnConsole(fn func(browser.ConsoleMessage)) {
	p.mu.Lock()
	p.console = append(p.console, fn)
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, m := range pending {
		fn(m)
	}
}

func (p *Page) lookup(key string) (*Elem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.elements[key]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (p *Page) apply(action, key string) {
	p.mu.Lock()
	var fns []func(*Page)
	for _, ef := range p.effects {
		if ef.action == action && ef.key == key {
			fns = append(fns, ef.fn)
		}
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (p *Page) mutate(key string, fn func(*Elem)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.elements[key]; ok {
		fn(e)
	}
}

type element struct {
	page *Page
	key  string
}

func (e *element) timeout(what string, d time.Duration) error {
	return fmt.Errorf("%w: %s %s exceeded %s", browser.ErrTimeout, what, e.key, d)
}

// actionable waits the way a driver would before interacting: the element
// must exist and be visible.
func (e *element) actionable(ctx context.Context, verb string, timeout time.Duration) (*Elem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.page.record("%s %s", verb, e.key); err != nil {
		return nil, err
	}
	el, ok := e.page.lookup(e.key)
	if !ok || !el.Visible {
		return nil, e.timeout(verb, timeout)
	}
	return el, nil
}

func (e *element) WaitFor(ctx context.Context, state browser.ElementState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.page.record("wait %s %s", state, e.key); err != nil {
		return err
	}
	el, ok := e.page.lookup(e.key)
	var met bool
	switch state {
	case browser.StateVisible:
		met = ok && el.Visible
	case browser.StateHidden:
		met = !ok || !el.Visible
	case browser.StateAttached:
		met = ok
	case browser.StateDetached:
		met = !ok
	}
	if !met {
		return e.timeout("wait for "+string(state), timeout)
	}
	return nil
}

func (e *element) Click(ctx context.Context, timeout time.Duration) error {
	el, err := e.actionable(ctx, "click", timeout)
	if err != nil {
		return err
	}
	if el.ClickErr != nil {
		return el.ClickErr
	}
	e.page.apply("click", e.key)
	return nil
}

func (e *element) Hover(ctx context.Context, timeout time.Duration) error {
	if _, err := e.actionable(ctx, "hover", timeout); err != nil {
		return err
	}
	e.page.apply("hover", e.key)
	return nil
}

func (e *element) Fill(ctx context.Context, value string, timeout time.Duration) error {
	el, err := e.actionable(ctx, "fill", timeout)
	if err != nil {
		return err
	}
	if el.FillErr != nil {
		return el.FillErr
	}
	e.page.mutate(e.key, func(x *Elem) { x.Value = value })
	e.page.apply("fill", e.key)
	return nil
}

func (e *element) Press(ctx context.Context, key string, timeout time.Duration) error {
	if _, err := e.actionable(ctx, "press", timeout); err != nil {
		return err
	}
	e.page.apply("press", e.key)
	return nil
}

func (e *element) SelectOption(ctx context.Context, value string, timeout time.Duration) error {
	el, err := e.actionable(ctx, "select", timeout)
	if err != nil {
		return err
	}
	if len(el.Options) > 0 && !slices.Contains(el.Options, value) {
		return fmt.Errorf("browsertest: option %q not found in %s", value, e.key)
	}
	e.page.mutate(e.key, func(x *Elem) { x.Value = value })
	e.page.apply("select", e.key)
	return nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.page.Closed() {
		return false, ErrClosed
	}
	el, ok := e.page.lookup(e.key)
	return ok && el.Visible, nil
}

func (e *element) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.page.Closed() {
		return 0, ErrClosed
	}
	el, ok := e.page.lookup(e.key)
	switch {
	case !ok:
		return 0, nil
	case el.Count > 0:
		return el.Count, nil
	default:
		return 1, nil
	}
}

func (e *element) TextContent(ctx context.Context, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.page.Closed() {
		return "", ErrClosed
	}
	el, ok := e.page.lookup(e.key)
	if !ok {
		return "", e.timeout("text", timeout)
	}
	return el.Text, nil
}

func (e *element) InputValue(ctx context.Context, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.page.Closed() {
		return "", ErrClosed
	}
	el, ok := e.page.lookup(e.key)
	if !ok {
		return "", e.timeout("value", timeout)
	}
	return el.Value, nil
}
