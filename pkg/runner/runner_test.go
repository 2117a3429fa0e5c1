package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/uiverify/internal/filelock"
	"github.com/cgast/uiverify/internal/sandbox"
	"github.com/cgast/uiverify/pkg/action"
	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/browser/browsertest"
	"github.com/cgast/uiverify/pkg/events"
	"github.com/cgast/uiverify/pkg/verify"
)

const dashboardURL = "http://localhost:5173/"

var (
	navEmployees  = browser.Target{Role: "button", Name: "Employees"}
	navVacations  = browser.Target{Role: "button", Name: "Vacations"}
	navOffboard   = browser.Target{Role: "button", Name: "Offboarding"}
	employeesHead = browser.Target{Role: "heading", Name: "Employees"}
	vacationsHead = browser.Target{Role: "heading", Name: "Vacations"}
	yearSelect    = browser.Target{CSS: "select", First: true}
)

func env() action.Env {
	return action.Env{BaseURL: dashboardURL, Timeout: 50 * time.Millisecond}
}

func click(t browser.Target) func(context.Context, browser.Page) error {
	return action.Func(&action.ClickAction{}, action.Spec{Type: "click", Target: t}, env())
}

func selectValue(t browser.Target, v string) func(context.Context, browser.Page) error {
	return action.Func(&action.SelectAction{}, action.Spec{Type: "select", Target: t, Value: v}, env())
}

// dashboard scripts the four-view app: nav buttons reveal their view heading.
func dashboard() *browsertest.Page {
	p := browsertest.NewPage().
		Set(navEmployees, browsertest.Elem{Visible: true}).
		Set(navVacations, browsertest.Elem{Visible: true}).
		Set(navOffboard, browsertest.Elem{Visible: true}).
		Set(yearSelect, browsertest.Elem{Visible: false, Value: "2025", Options: []string{"2024", "2025", "2026"}})
	p.On("click", navEmployees, func(p *browsertest.Page) { p.Show(employeesHead) })
	p.On("click", navVacations, func(p *browsertest.Page) {
		p.Show(vacationsHead)
		p.Show(yearSelect)
	})
	return p
}

func tourSteps() []Step {
	return []Step{
		{Name: "Dashboard", Screenshot: &ScreenshotSpec{FullPage: true}, Review: ReviewVisual},
		{
			Name:       "Open Employees",
			Action:     click(navEmployees),
			Mutates:    true,
			Expect:     []verify.Expectation{{Type: "visible", Target: employeesHead}},
			Screenshot: &ScreenshotSpec{Name: "employees"},
			Review:     ReviewBoth,
		},
		{
			Name:       "Open Vacations",
			Action:     click(navVacations),
			Mutates:    true,
			Expect:     []verify.Expectation{{Type: "visible", Target: vacationsHead}},
			Screenshot: &ScreenshotSpec{Name: "vacations"},
			Review:     ReviewBoth,
		},
	}
}

func testConfig(t *testing.T, steps []Step) Config {
	t.Helper()
	return Config{
		TargetURL:      dashboardURL,
		Steps:          steps,
		OutputDir:      filepath.Join(t.TempDir(), "artifacts"),
		Headless:       true,
		ActionTimeout:  50 * time.Millisecond,
		ExpectTimeout:  30 * time.Millisecond,
		CaptureConsole: true,
	}
}

func artifactNames(as []Artifact) []string {
	names := make([]string, 0, len(as))
	for _, a := range as {
		names = append(names, a.Name)
	}
	return names
}

func TestRunSuccess(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)
	cfg := testConfig(t, tourSteps())

	result, err := New(launcher).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Nil(t, result.Failure)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, browser.DefaultViewport, result.Viewport)
	assert.Equal(t, []string{"dashboard", "employees", "vacations"}, artifactNames(result.Artifacts))
	for i, a := range result.Artifacts {
		assert.Equal(t, ArtifactScreenshot, a.Kind)
		assert.Equal(t, i+1, a.StepIndex)
		assert.FileExists(t, a.Path)
	}

	passed, failed, notRun := result.Counts()
	assert.Equal(t, 3, passed)
	assert.Zero(t, failed)
	assert.Zero(t, notRun)

	assert.Equal(t, []State{
		StateNotStarted, StateBrowserLaunched, StatePageReady,
		StateStepRunning, StateStepCompleted,
		StateStepRunning, StateStepCompleted,
		StateStepRunning, StateStepCompleted,
		StateTornDown,
	}, result.Transitions)

	sessions := launcher.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Closes())
	assert.True(t, page.Closed())

	opts := launcher.LastOptions()
	assert.True(t, opts.Headless)
	assert.Equal(t, "chromium", opts.Browser)
	assert.Equal(t, browser.DefaultViewport, opts.Viewport)

	calls := page.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "goto "+dashboardURL, calls[0])
	assert.Equal(t, "screenshot full", calls[1])
}

func TestRunFailureAtStepK(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)
	missing := browser.Target{Role: "heading", Name: "Payroll"}
	steps := []Step{
		{Name: "Dashboard", Screenshot: &ScreenshotSpec{}},
		{Name: "Open Payroll", Expect: []verify.Expectation{{Type: "visible", Target: missing}}, Screenshot: &ScreenshotSpec{}},
		{Name: "Open Employees", Action: click(navEmployees), Screenshot: &ScreenshotSpec{}},
		{Name: "Open Vacations", Action: click(navVacations), Screenshot: &ScreenshotSpec{}},
	}
	cfg := testConfig(t, steps)

	result, err := New(launcher).Run(context.Background(), cfg)
	require.Error(t, err)

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, "Open Payroll", sf.Step)
	assert.Equal(t, 2, sf.Index)
	assert.Equal(t, KindExpectation, sf.Kind)
	assert.ErrorIs(t, err, verify.ErrExpectationFailed)
	assert.FileExists(t, sf.Artifact)

	assert.False(t, result.Success)
	assert.Equal(t, []string{"dashboard", "02_open_payroll_error"}, artifactNames(result.Artifacts))
	assert.Equal(t, ArtifactErrorScreenshot, result.Artifacts[1].Kind)

	statuses := []StepStatus{}
	for _, s := range result.Steps {
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []StepStatus{StepPassed, StepFailed, StepNotRun, StepNotRun}, statuses)
	assert.Equal(t, KindExpectation, result.Steps[1].Kind)
	require.NotNil(t, result.Steps[1].Verification)
	assert.False(t, result.Steps[1].Verification.Passed)

	require.NotNil(t, result.Failure)
	assert.Equal(t, 2, result.Failure.Index)
	assert.Equal(t, sf.Artifact, result.Failure.Artifact)

	for _, name := range []string{"open_employees.png", "open_vacations.png"} {
		assert.NoFileExists(t, filepath.Join(cfg.OutputDir, name))
	}
	assert.NotContains(t, page.Calls(), `click role=button[name="Employees"]`)

	assert.Equal(t, []State{
		StateNotStarted, StateBrowserLaunched, StatePageReady,
		StateStepRunning, StateStepCompleted,
		StateStepRunning, StateFailed, StateErrorArtifactCaptured, StateTornDown,
	}, result.Transitions)
	assert.Equal(t, 1, launcher.Sessions()[0].Closes())
}

func TestRunElementNotFound(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())
	steps := []Step{{Name: "Open Payroll", Action: click(browser.Target{Role: "button", Name: "Payroll"})}}

	_, err := New(launcher).Run(context.Background(), testConfig(t, steps))

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, KindElementNotFound, sf.Kind)
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
	assert.Equal(t, 1, launcher.Sessions()[0].Closes())
}

func TestRunActionError(t *testing.T) {
	page := dashboard().Set(navOffboard, browsertest.Elem{Visible: true, ClickErr: errors.New("element is detached")})
	launcher := browsertest.NewLauncher(page)
	steps := []Step{{Name: "Open Offboarding", Action: click(navOffboard)}}

	_, err := New(launcher).Run(context.Background(), testConfig(t, steps))

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, KindAction, sf.Kind)
	assert.ErrorIs(t, err, browser.ErrAction)
}

func TestRunNavigationFailure(t *testing.T) {
	page := dashboard().FailGoto(errors.New("net::ERR_CONNECTION_REFUSED"))
	launcher := browsertest.NewLauncher(page)
	cfg := testConfig(t, tourSteps())

	result, err := New(launcher).Run(context.Background(), cfg)

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, OpenTargetStep, sf.Step)
	assert.Equal(t, 0, sf.Index)
	assert.Equal(t, KindNavigation, sf.Kind)
	assert.ErrorIs(t, err, browser.ErrNavigation)

	assert.Equal(t, []string{"00_open_target_error"}, artifactNames(result.Artifacts))
	for _, s := range result.Steps {
		assert.Equal(t, StepNotRun, s.Status)
	}
	assert.Equal(t, []State{
		StateNotStarted, StateBrowserLaunched, StateFailed, StateErrorArtifactCaptured, StateTornDown,
	}, result.Transitions)
	assert.Equal(t, 1, launcher.Sessions()[0].Closes())
}

type failingProber struct{ err error }

func (p failingProber) Probe(context.Context, string) error { return p.err }

func TestRunProbeFailure(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)

	_, err := New(launcher, WithProber(failingProber{errors.New("connection refused")})).
		Run(context.Background(), testConfig(t, tourSteps()))

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, KindNavigation, sf.Kind)
	assert.Equal(t, 0, sf.Index)
	assert.NotContains(t, page.Calls(), "goto "+dashboardURL)
}

func TestRunLaunchFailure(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())
	launcher.FailLaunch(errors.New("executable doesn't exist"))

	result, err := New(launcher).Run(context.Background(), testConfig(t, tourSteps()))
	require.Error(t, err)

	var sf *StepFailure
	assert.False(t, errors.As(err, &sf), "launch failure is a setup error")
	assert.ErrorContains(t, err, "launch browser")
	assert.Equal(t, []State{StateNotStarted, StateTornDown}, result.Transitions)
	assert.Empty(t, result.Artifacts)
	assert.Empty(t, launcher.Sessions())
}

func TestRunErrorScreenshotFails(t *testing.T) {
	page := dashboard().FailScreenshot(errors.New("page crashed"))
	launcher := browsertest.NewLauncher(page)
	steps := []Step{{Name: "Dashboard", Screenshot: &ScreenshotSpec{}}}

	result, err := New(launcher).Run(context.Background(), testConfig(t, steps))

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, KindAction, sf.Kind)
	assert.Empty(t, sf.Artifact)
	assert.Empty(t, result.Artifacts)
	assert.Equal(t, []State{
		StateNotStarted, StateBrowserLaunched, StatePageReady,
		StateStepRunning, StateFailed, StateTornDown,
	}, result.Transitions)
	assert.Equal(t, 1, launcher.Sessions()[0].Closes())
}

func TestRunTeardownErrorDoesNotFailRun(t *testing.T) {
	launcher := &closeErrLauncher{Launcher: browsertest.NewLauncher(dashboard())}
	result, err := New(launcher).Run(context.Background(), testConfig(t, tourSteps()[:1]))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, StateTornDown, result.Transitions[len(result.Transitions)-1])
}

type closeErrLauncher struct{ *browsertest.Launcher }

func (l *closeErrLauncher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	s, err := l.Launcher.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.(*browsertest.Session).CloseErr = errors.New("browser already gone")
	return s, nil
}

func TestRunSelectYear(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)
	steps := []Step{
		{Name: "Open Vacations", Action: click(navVacations)},
		{
			Name:       "Select 2026",
			Action:     selectValue(yearSelect, "2026"),
			Mutates:    true,
			After:      WaitSpec{Settle: time.Millisecond},
			Expect:     []verify.Expectation{{Type: "value_equals", Target: yearSelect, Expected: "2026"}},
			Screenshot: &ScreenshotSpec{Name: "vacations_2026", FullPage: true},
		},
	}

	result, err := New(launcher).Run(context.Background(), testConfig(t, steps))
	require.NoError(t, err)
	assert.Equal(t, []string{"vacations_2026"}, artifactNames(result.Artifacts))
	assert.Equal(t, "vacations_2026", result.Steps[1].Artifact)
}

func TestRunWaitSpecs(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)
	steps := []Step{{
		Name:   "Open Employees",
		Before: WaitSpec{LoadState: browser.LoadStateNetworkIdle},
		Action: click(navEmployees),
		After:  WaitSpec{For: &ElementWait{Target: employeesHead}},
	}}

	_, err := New(launcher).Run(context.Background(), testConfig(t, steps))
	require.NoError(t, err)

	calls := page.Calls()
	assert.Equal(t, []string{
		"goto " + dashboardURL,
		"load networkidle",
		`wait visible role=button[name="Employees"]`,
		`click role=button[name="Employees"]`,
		`wait visible role=heading[name="Employees"]`,
	}, calls)
}

func TestRunWaitForMissingElement(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())
	steps := []Step{{Name: "Await Payroll", Before: WaitSpec{For: &ElementWait{Target: browser.Target{Text: "Payroll"}}}}}

	_, err := New(launcher).Run(context.Background(), testConfig(t, steps))
	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, KindElementNotFound, sf.Kind)
}

func TestRunLoadStateFailure(t *testing.T) {
	page := dashboard().FailLoadState(errors.New("timeout"))
	launcher := browsertest.NewLauncher(page)
	cfg := testConfig(t, tourSteps())
	cfg.Ready = WaitSpec{LoadState: browser.LoadStateNetworkIdle}

	_, err := New(launcher).Run(context.Background(), cfg)
	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, 0, sf.Index)
	assert.Equal(t, KindNavigation, sf.Kind)
}

func TestRunConsoleCapture(t *testing.T) {
	page := dashboard()
	page.Emit(browser.ConsoleMessage{Kind: "console", Type: "warning", Text: "slow render", Time: time.Now()})
	page.Emit(browser.ConsoleMessage{Kind: "pageerror", Text: "TypeError: x is undefined", Time: time.Now()})
	launcher := browsertest.NewLauncher(page)

	result, err := New(launcher).Run(context.Background(), testConfig(t, tourSteps()[:1]))
	require.NoError(t, err)

	require.Len(t, result.Console, 2)
	names := artifactNames(result.Artifacts)
	assert.Equal(t, []string{"dashboard", ConsoleLogName}, names)

	data, err := os.ReadFile(result.Artifacts[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Console [warning]: slow render")
	assert.Contains(t, string(data), "Page Error: TypeError: x is undefined")
	assert.Equal(t, ArtifactConsoleLog, result.Artifacts[1].Kind)
}

func TestRunConsoleCaptureDisabled(t *testing.T) {
	page := dashboard()
	page.Emit(browser.ConsoleMessage{Kind: "console", Text: "hello"})
	cfg := testConfig(t, tourSteps()[:1])
	cfg.CaptureConsole = false

	result, err := New(browsertest.NewLauncher(page)).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Console)
	assert.Equal(t, []string{"dashboard"}, artifactNames(result.Artifacts))
}

func TestRunDuplicateScreenshotName(t *testing.T) {
	steps := []Step{
		{Name: "First", Screenshot: &ScreenshotSpec{Name: "view"}},
		{Name: "Second", Screenshot: &ScreenshotSpec{Name: "view"}},
	}
	_, err := New(browsertest.NewLauncher(dashboard())).Run(context.Background(), testConfig(t, steps))

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, 2, sf.Index)
	assert.ErrorIs(t, err, ErrDuplicateArtifact)
}

func TestRunIdempotentRerun(t *testing.T) {
	page := dashboard()
	launcher := browsertest.NewLauncher(page)
	r := New(launcher)
	readOnly := []Step{
		{Name: "Dashboard", Expect: []verify.Expectation{{Type: "visible", Target: navEmployees}}, Screenshot: &ScreenshotSpec{}},
		{Name: "Nav present", Expect: []verify.Expectation{{Type: "count_eq", Target: navVacations, Expected: 1}}},
	}
	cfg := testConfig(t, readOnly)

	first, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	require.Len(t, second.Steps, len(first.Steps))
	for i := range first.Steps {
		assert.Equal(t, first.Steps[i].Status, second.Steps[i].Status)
		assert.Equal(t, first.Steps[i].Artifact, second.Steps[i].Artifact)
	}
	assert.Equal(t, artifactNames(first.Artifacts), artifactNames(second.Artifacts))
	for _, s := range launcher.Sessions() {
		assert.Equal(t, 1, s.Closes())
	}
}

func TestRunLockHeld(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())
	cfg := testConfig(t, tourSteps())
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))

	holder := filelock.New(filepath.Join(cfg.OutputDir, LockFileName))
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock()

	_, err = New(launcher).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, launcher.Sessions(), "no browser may be launched while the lock is held")
}

func TestRunSerialisesCalls(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())
	r := New(launcher)
	cfg := testConfig(t, tourSteps()[:1])

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Run(context.Background(), cfg)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, launcher.Sessions(), 3)
}

func TestRunInvalidConfig(t *testing.T) {
	launcher := browsertest.NewLauncher(dashboard())

	_, err := New(launcher).Run(context.Background(), Config{TargetURL: dashboardURL, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoSteps)

	_, err = New(launcher).Run(context.Background(), Config{Steps: tourSteps(), OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "target url is required")

	_, err = New(launcher).Run(context.Background(), Config{TargetURL: dashboardURL, Steps: []Step{{}}, OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "name is required")

	for _, vp := range []browser.Viewport{{Width: -1, Height: 720}, {Width: 1280}, {Height: 720}} {
		cfg := testConfig(t, tourSteps())
		cfg.Viewport = vp
		result, err := New(launcher).Run(context.Background(), cfg)
		assert.ErrorContains(t, err, "width and height must be positive", "viewport %v", vp)
		assert.Empty(t, result.ID)
	}

	assert.Empty(t, launcher.Sessions())
}

func TestRunSandboxDeniesOutputDir(t *testing.T) {
	cfg := testConfig(t, tourSteps())
	sb, err := sandbox.New(sandbox.Config{DeniedPaths: []string{filepath.Dir(cfg.OutputDir)}})
	require.NoError(t, err)
	launcher := browsertest.NewLauncher(dashboard())

	_, err = New(launcher, WithSandbox(sb)).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, sandbox.ErrPathDenied)
	assert.Empty(t, launcher.Sessions())
}

func TestRunPublishesEvents(t *testing.T) {
	bus := events.NewMemoryBus()
	cfg := testConfig(t, tourSteps())
	cfg.RunID = "run-fixed"

	_, err := New(browsertest.NewLauncher(dashboard()), WithEvents(bus)).Run(context.Background(), cfg)
	require.NoError(t, err)

	history := bus.RunHistory("run-fixed")
	require.NotEmpty(t, history)
	assert.Equal(t, events.EventRunStart, history[0].Type)
	assert.Equal(t, events.EventRunEnd, history[len(history)-1].Type)

	counts := map[events.EventType]int{}
	for _, e := range history {
		counts[e.Type]++
	}
	assert.Equal(t, 3, counts[events.EventStepStart])
	assert.Equal(t, 3, counts[events.EventStepEnd])
	assert.Equal(t, 3, counts[events.EventArtifactSaved])
	assert.Equal(t, 2, counts[events.EventVerifyResult])
	assert.Equal(t, 1, counts[events.EventPageReady])
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Warnf(string, ...any)  {}
func (l *recordingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Infof(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, format)
}

func TestRunLogsProgressPerStep(t *testing.T) {
	log := &recordingLogger{}
	_, err := New(browsertest.NewLauncher(dashboard()), WithLogger(log)).Run(context.Background(), testConfig(t, tourSteps()))
	require.NoError(t, err)

	progress := 0
	for _, f := range log.infos {
		if f == "[%d/%d] %s" {
			progress++
		}
	}
	assert.Equal(t, 3, progress)
	assert.Empty(t, log.errors, "a clean run takes only legal transitions")
}

func TestIllegalTransitionIsLogged(t *testing.T) {
	log := &recordingLogger{}
	r := New(browsertest.NewLauncher(dashboard()), WithLogger(log))
	rn := &run{id: "3f2a9c10-run", machine: newMachine(nil)}

	r.advance(rn, StateBrowserLaunched)
	r.advance(rn, StateStepCompleted)

	assert.Equal(t, []State{StateNotStarted, StateBrowserLaunched}, rn.machine.Path())
	require.Len(t, log.errors, 1)
	assert.Contains(t, log.errors[0], "illegal state transition BrowserLaunched -> StepCompleted")
}

func TestRunConvenience(t *testing.T) {
	page := dashboard()
	dir := filepath.Join(t.TempDir(), "out")
	steps := []Step{{Name: "Dashboard", Screenshot: &ScreenshotSpec{}}}

	result, err := Run(context.Background(), browsertest.NewLauncher(page), dashboardURL, steps, dir, browser.Viewport{Width: 1280, Height: 1024})
	require.NoError(t, err)
	assert.Equal(t, browser.Viewport{Width: 1280, Height: 1024}, result.Viewport)
	assert.FileExists(t, filepath.Join(dir, "dashboard.png"))
}
