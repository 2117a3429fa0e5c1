package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches browsers through playwright-go.
type PlaywrightLauncher struct {
	// Install downloads the driver and browser binaries before launching.
	Install bool
}

// NewPlaywrightLauncher returns a launcher; install controls whether the
// playwright driver and browsers are installed on first use.
func NewPlaywrightLauncher(install bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{Install: install}
}

// Launch starts playwright, a browser, one context sized to the viewport,
// and one page. Partially acquired resources are released on error.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := opts.Browser
	if name == "" {
		name = "chromium"
	}

	if l.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{name}}); err != nil {
			return nil, fmt.Errorf("install playwright %s: %w", name, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	s := &playwrightSession{pw: pw}

	var bt playwright.BrowserType
	switch name {
	case "chromium":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		s.Close()
		return nil, fmt.Errorf("unsupported browser %q", name)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}
	s.browser, err = bt.Launch(launch)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch %s: %w", name, err)
	}

	vp := opts.Viewport
	if vp.IsZero() {
		vp = DefaultViewport
	}
	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: vp.Width, Height: vp.Height},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}
	s.page = &playwrightPage{page: page}
	return s, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *playwrightPage
}

func (s *playwrightSession) Page() Page { return s.page }

// Close releases page, context, browser and driver in that order and
// reports every failure.
func (s *playwrightSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string, opts GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil(opts.WaitUntil),
		Timeout:   millis(opts.Timeout),
	})
	return translate(err)
}

func (p *playwrightPage) Reload(ctx context.Context, opts GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: waitUntil(opts.WaitUntil),
		Timeout:   millis(opts.Timeout),
	})
	return translate(err)
}

func (p *playwrightPage) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == "" {
		return nil
	}
	ls := playwright.LoadState(state)
	return translate(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &ls,
		Timeout: millis(timeout),
	}))
}

func (p *playwrightPage) Locate(t Target) Element {
	var loc playwright.Locator
	exact := playwright.Bool(t.Exact)
	switch {
	case t.Role != "":
		opts := playwright.PageGetByRoleOptions{Exact: exact}
		if t.Name != "" {
			opts.Name = t.Name
		}
		loc = p.page.GetByRole(playwright.AriaRole(t.Role), opts)
	case t.Text != "":
		loc = p.page.GetByText(t.Text, playwright.PageGetByTextOptions{Exact: exact})
	case t.Label != "":
		loc = p.page.GetByLabel(t.Label, playwright.PageGetByLabelOptions{Exact: exact})
	case t.Placeholder != "":
		loc = p.page.GetByPlaceholder(t.Placeholder, playwright.PageGetByPlaceholderOptions{Exact: exact})
	default:
		loc = p.page.Locator(t.CSS)
	}
	if t.First {
		loc = loc.First()
	} else if t.Nth > 0 {
		loc = loc.Nth(t.Nth)
	}
	return &playwrightElement{loc: loc}
}

func (p *playwrightPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(opts.FullPage),
		Timeout:  millis(opts.Timeout),
	})
	return data, translate(err)
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) OnConsole(fn func(ConsoleMessage)) {
	p.page.OnConsole(func(msg playwright.ConsoleMessage) {
		fn(ConsoleMessage{Kind: "console", Type: msg.Type(), Text: msg.Text(), Time: time.Now()})
	})
	p.page.OnPageError(func(err error) {
		fn(ConsoleMessage{Kind: "pageerror", Text: err.Error(), Time: time.Now()})
	})
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) WaitFor(ctx context.Context, state ElementState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := playwright.WaitForSelectorState(state)
	return translate(e.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   &st,
		Timeout: millis(timeout),
	}))
}

func (e *playwrightElement) Click(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.loc.Click(playwright.LocatorClickOptions{Timeout: millis(timeout)}))
}

func (e *playwrightElement) Hover(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.loc.Hover(playwright.LocatorHoverOptions{Timeout: millis(timeout)}))
}

func (e *playwrightElement) Fill(ctx context.Context, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: millis(timeout)}))
}

func (e *playwrightElement) Press(ctx context.Context, key string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(e.loc.Press(key, playwright.LocatorPressOptions{Timeout: millis(timeout)}))
}

func (e *playwrightElement) SelectOption(ctx context.Context, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(
		playwright.SelectOptionValues{ValuesOrLabels: &[]string{value}},
		playwright.LocatorSelectOptionOptions{Timeout: millis(timeout)},
	)
	return translate(err)
}

func (e *playwrightElement) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.loc.IsVisible()
	return ok, translate(err)
}

func (e *playwrightElement) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := e.loc.Count()
	return n, translate(err)
}

func (e *playwrightElement) TextContent(ctx context.Context, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := e.loc.TextContent(playwright.LocatorTextContentOptions{Timeout: millis(timeout)})
	return s, translate(err)
}

func (e *playwrightElement) InputValue(ctx context.Context, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := e.loc.InputValue(playwright.LocatorInputValueOptions{Timeout: millis(timeout)})
	return s, translate(err)
}

// translate tags playwright timeouts with ErrTimeout so callers never need
// to import the driver to classify a failure.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func waitUntil(s LoadState) *playwright.WaitUntilState {
	if s == "" {
		return nil
	}
	w := playwright.WaitUntilState(s)
	return &w
}
