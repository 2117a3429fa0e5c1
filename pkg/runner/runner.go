// Package runner executes an ordered list of verification steps against a
// running web application in a single headless browser session. The runner
// captures screenshots, records a failure artifact when a step fails, and
// always tears the browser down exactly once.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cgast/uiverify/internal/filelock"
	"github.com/cgast/uiverify/internal/sandbox"
	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/events"
	"github.com/cgast/uiverify/pkg/verify"
)

// LockFileName is created inside the output directory for the duration of
// a run.
const LockFileName = ".uiverify.lock"

const defaultCaptureTimeout = 10 * time.Second

// Logger receives progress and diagnostic lines.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Publisher receives run events. *events.MemoryBus satisfies it.
type Publisher interface {
	Publish(event events.Event)
}

// Prober checks that the target origin answers before the browser
// navigates to it.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the progress logger.
func WithLogger(l Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEvents publishes run events to p.
func WithEvents(p Publisher) Option {
	return func(r *Runner) { r.events = p }
}

// WithEngine replaces the per-run verification engine.
func WithEngine(e verify.VerificationEngine) Option {
	return func(r *Runner) { r.engine = e }
}

// WithSandbox restricts where artifacts may be written.
func WithSandbox(sb *sandbox.Sandbox) Option {
	return func(r *Runner) { r.sandbox = sb }
}

// WithProber probes the target before the initial navigation.
func WithProber(p Prober) Option {
	return func(r *Runner) { r.prober = p }
}

// WithCaptureTimeout bounds the error screenshot taken after a failure.
func WithCaptureTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.captureTimeout = d
		}
	}
}

// Runner drives verification runs. Runs on one Runner are serialised; runs
// sharing an output directory are excluded across processes by a file lock.
type Runner struct {
	mu             sync.Mutex
	launcher       browser.Launcher
	logger         Logger
	events         Publisher
	engine         verify.VerificationEngine
	sandbox        *sandbox.Sandbox
	prober         Prober
	captureTimeout time.Duration
}

// New returns a Runner that launches browsers with launcher.
func New(launcher browser.Launcher, opts ...Option) *Runner {
	r := &Runner{
		launcher:       launcher,
		logger:         nopLogger{},
		sandbox:        sandbox.Unrestricted(),
		captureTimeout: defaultCaptureTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes steps against url and writes artifacts into dir.
func Run(ctx context.Context, launcher browser.Launcher, url string, steps []Step, dir string, viewport browser.Viewport) (RunResult, error) {
	return New(launcher).Run(ctx, Config{
		TargetURL:      url,
		Steps:          steps,
		OutputDir:      dir,
		Viewport:       viewport,
		Headless:       true,
		CaptureConsole: true,
	})
}

// run carries the mutable state of a single Run call.
type run struct {
	cfg     Config
	id      string
	page    browser.Page
	store   *ArtifactStore
	machine *machine
	result  *RunResult
	engine  verify.VerificationEngine

	consoleMu sync.Mutex
	console   []browser.ConsoleMessage
}

// Run launches one browser, opens cfg.TargetURL, executes cfg.Steps in order
// and tears the browser down. The first failing step stops the run and is
// returned as a *StepFailure; setup problems are returned as plain errors.
func (r *Runner) Run(ctx context.Context, cfg Config) (RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg = cfg.withDefaults()
	if err := validateConfig(cfg); err != nil {
		return RunResult{}, err
	}
	id := cfg.RunID
	if id == "" {
		id = uuid.NewString()
	}

	store, err := NewArtifactStore(cfg.OutputDir, r.sandbox)
	if err != nil {
		return RunResult{}, err
	}
	lock := filelock.New(filepath.Join(cfg.OutputDir, LockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return RunResult{}, err
	}
	if !acquired {
		return RunResult{}, fmt.Errorf("%s: %w", cfg.OutputDir, ErrRunInProgress)
	}
	defer lock.Unlock()

	result := RunResult{
		ID:        id,
		Suite:     cfg.Suite,
		TargetURL: cfg.TargetURL,
		Viewport:  cfg.Viewport,
		OutputDir: store.Dir(),
		StartedAt: time.Now(),
		Steps:     make([]StepResult, len(cfg.Steps)),
	}
	for i, s := range cfg.Steps {
		result.Steps[i] = StepResult{Index: i + 1, Name: s.Name, Status: StepNotRun, Review: s.Review, Mutates: s.Mutates}
	}

	rn := &run{cfg: cfg, id: id, store: store, result: &result, engine: r.engine}
	if rn.engine == nil {
		rn.engine = verify.NewEngine(verify.WithTimeout(cfg.ExpectTimeout), verify.WithFailFast(true))
	}
	rn.machine = newMachine(func(from, to State) {
		r.publish(rn, events.EventRunState, 0, 0, map[string]any{"from": from, "to": to})
	})

	r.publish(rn, events.EventRunStart, 0, 0, map[string]any{
		"target":     cfg.TargetURL,
		"step_count": len(cfg.Steps),
		"output_dir": store.Dir(),
	})
	r.logger.Infof("Run %s: %d steps against %s (viewport %s)", shortID(id), len(cfg.Steps), cfg.TargetURL, cfg.Viewport)

	runErr := r.execute(ctx, rn)

	result.Artifacts = store.List()
	result.Transitions = rn.machine.Path()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Success = runErr == nil

	r.publish(rn, events.EventRunEnd, 0, result.Duration, map[string]any{
		"success":   result.Success,
		"artifacts": len(result.Artifacts),
	})
	return result, runErr
}

// execute owns the browser session. Every path out of it passes through
// teardown exactly once.
func (r *Runner) execute(ctx context.Context, rn *run) error {
	cfg := rn.cfg
	session, err := r.launcher.Launch(ctx, browser.LaunchOptions{
		Browser:  cfg.Browser,
		Headless: cfg.Headless,
		SlowMo:   cfg.SlowMo,
		Viewport: cfg.Viewport,
		Timeout:  cfg.ActionTimeout,
	})
	if err != nil {
		r.advance(rn, StateTornDown)
		r.logger.Errorf("Browser launch failed: %v", err)
		return fmt.Errorf("launch browser: %w", err)
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				r.logger.Warnf("Browser teardown: %v", err)
			}
			r.advance(rn, StateTornDown)
			r.logger.Debugf("Browser closed")
		})
	}
	defer teardown()

	r.advance(rn, StateBrowserLaunched)
	r.publish(rn, events.EventBrowserLaunched, 0, 0, map[string]any{"browser": cfg.Browser, "headless": cfg.Headless})
	rn.page = session.Page()
	rn.page.OnConsole(func(msg browser.ConsoleMessage) { r.recordConsole(rn, msg) })

	err = r.steps(ctx, rn)
	r.saveConsole(rn)
	teardown()
	return err
}

func (r *Runner) steps(ctx context.Context, rn *run) error {
	if err := r.openTarget(ctx, rn); err != nil {
		return r.fail(ctx, rn, 0, OpenTargetStep, err)
	}
	r.advance(rn, StatePageReady)
	r.publish(rn, events.EventPageReady, 0, 0, map[string]any{"url": rn.page.URL()})

	for i, step := range rn.cfg.Steps {
		idx := i + 1
		r.advance(rn, StateStepRunning)
		sr, err := r.runStep(ctx, rn, idx, step)
		rn.result.Steps[i] = sr
		if err != nil {
			return r.fail(ctx, rn, idx, step.Name, err)
		}
		r.advance(rn, StateStepCompleted)
	}
	r.logger.Infof("All %d steps passed", len(rn.cfg.Steps))
	return nil
}

func (r *Runner) openTarget(ctx context.Context, rn *run) error {
	cfg := rn.cfg
	if r.prober != nil {
		if err := r.prober.Probe(ctx, cfg.TargetURL); err != nil {
			return fmt.Errorf("%w: probe %s: %w", browser.ErrNavigation, cfg.TargetURL, err)
		}
	}
	r.logger.Infof("Opening %s", cfg.TargetURL)
	err := rn.page.Goto(ctx, cfg.TargetURL, browser.GotoOptions{
		WaitUntil: cfg.ReadyState,
		Timeout:   cfg.NavigationTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", browser.ErrNavigation, cfg.TargetURL, err)
	}
	return r.await(ctx, rn, cfg.Ready)
}

func (r *Runner) runStep(ctx context.Context, rn *run, idx int, step Step) (StepResult, error) {
	total := len(rn.cfg.Steps)
	sr := StepResult{Index: idx, Name: step.Name, Status: StepFailed, Review: step.Review, Mutates: step.Mutates}
	r.logger.Infof("[%d/%d] %s", idx, total, step.Name)
	r.publish(rn, events.EventStepStart, idx, 0, map[string]any{"step": step.Name, "mutates": step.Mutates})

	start := time.Now()
	err := r.perform(ctx, rn, idx, step, &sr)
	sr.Duration = time.Since(start)
	if err != nil {
		sr.Error = err.Error()
		sr.Kind = Classify(err)
		return sr, err
	}

	sr.Status = StepPassed
	r.logger.Debugf("[%d/%d] %s passed in %s", idx, total, step.Name, sr.Duration.Round(time.Millisecond))
	r.publish(rn, events.EventStepEnd, idx, sr.Duration, map[string]any{"step": step.Name, "status": sr.Status})
	return sr, nil
}

// perform runs one step: wait, act, wait, verify, capture.
func (r *Runner) perform(ctx context.Context, rn *run, idx int, step Step, sr *StepResult) error {
	if err := r.await(ctx, rn, step.Before); err != nil {
		return err
	}
	if step.Action != nil {
		if err := step.Action(ctx, rn.page); err != nil {
			return err
		}
	}
	if err := r.await(ctx, rn, step.After); err != nil {
		return err
	}

	if len(step.Expect) > 0 {
		vr, err := rn.engine.Verify(ctx, rn.page, step.Expect)
		sr.Verification = &vr
		if err != nil {
			return err
		}
		r.publish(rn, events.EventVerifyResult, idx, 0, vr)
		if err := vr.Err(); err != nil {
			return err
		}
	}

	if step.Screenshot != nil {
		name := step.Screenshot.Name
		if name == "" {
			name = Slug(step.Name)
		}
		data, err := rn.page.Screenshot(ctx, browser.ScreenshotOptions{
			FullPage: step.Screenshot.FullPage,
			Timeout:  rn.cfg.ActionTimeout,
		})
		if err != nil {
			return fmt.Errorf("%w: screenshot %s: %w", browser.ErrAction, name, err)
		}
		a, err := rn.store.Save(name, ArtifactScreenshot, data, step.Name, idx)
		if err != nil {
			return fmt.Errorf("%w: save screenshot: %w", browser.ErrAction, err)
		}
		sr.Artifact = a.Name
		r.logger.Infof("Screenshot saved: %s", a.Path)
		r.publish(rn, events.EventArtifactSaved, idx, 0, a)
	}
	return nil
}

// await satisfies a WaitSpec: condition waits first, then the settle delay.
func (r *Runner) await(ctx context.Context, rn *run, w WaitSpec) error {
	if w.IsZero() {
		return nil
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = rn.cfg.ActionTimeout
	}

	if w.LoadState != "" {
		if err := rn.page.WaitForLoadState(ctx, w.LoadState, timeout); err != nil {
			return fmt.Errorf("%w: wait for load state %s: %w", browser.ErrNavigation, w.LoadState, err)
		}
	}
	if w.For != nil {
		state := w.For.State
		if state == "" {
			state = browser.StateVisible
		}
		if err := rn.page.Locate(w.For.Target).WaitFor(ctx, state, timeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: wait for %s to be %s: %w", browser.ErrElementNotFound, w.For.Target, state, err)
		}
	}
	if w.Settle > 0 {
		t := time.NewTimer(w.Settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// fail records a failure, captures the error screenshot and builds the
// StepFailure returned to the caller. The page is still open here.
func (r *Runner) fail(ctx context.Context, rn *run, idx int, name string, cause error) error {
	r.advance(rn, StateFailed)
	sf := &StepFailure{Step: name, Index: idx, Kind: Classify(cause), Cause: cause}
	r.logger.Errorf("Step %q failed (%s): %v", name, sf.Kind, cause)

	captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.captureTimeout)
	defer cancel()
	data, err := rn.page.Screenshot(captureCtx, browser.ScreenshotOptions{FullPage: true, Timeout: r.captureTimeout})
	if err == nil {
		var a Artifact
		a, err = rn.store.Save(ErrorArtifactName(idx, name), ArtifactErrorScreenshot, data, name, idx)
		if err == nil {
			sf.Artifact = a.Path
			r.advance(rn, StateErrorArtifactCaptured)
			r.logger.Infof("Error screenshot saved: %s", a.Path)
			r.publish(rn, events.EventArtifactSaved, idx, 0, a)
		}
	}
	if err != nil {
		r.logger.Warnf("Could not capture error screenshot: %v", err)
	}

	rn.result.Failure = &FailureInfo{
		Step:     name,
		Index:    idx,
		Kind:     sf.Kind,
		Message:  cause.Error(),
		Artifact: sf.Artifact,
	}
	r.publish(rn, events.EventStepError, idx, 0, map[string]any{
		"step":     name,
		"kind":     sf.Kind,
		"error":    cause.Error(),
		"artifact": sf.Artifact,
	})
	return sf
}

func (r *Runner) recordConsole(rn *run, msg browser.ConsoleMessage) {
	r.logger.Debugf("%s", msg)
	if !rn.cfg.CaptureConsole {
		return
	}
	rn.consoleMu.Lock()
	rn.console = append(rn.console, msg)
	rn.consoleMu.Unlock()
	r.publish(rn, events.EventConsoleMessage, 0, 0, msg)
}

// saveConsole writes console.log while the session is still open.
func (r *Runner) saveConsole(rn *run) {
	rn.consoleMu.Lock()
	msgs := make([]browser.ConsoleMessage, len(rn.console))
	copy(msgs, rn.console)
	rn.consoleMu.Unlock()

	rn.result.Console = msgs
	if len(msgs) == 0 {
		return
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s\n", m.Time.Format("15:04:05.000"), m)
	}
	a, err := rn.store.Save(ConsoleLogName, ArtifactConsoleLog, []byte(b.String()), "", 0)
	if err != nil {
		r.logger.Warnf("Could not write console log: %v", err)
		return
	}
	r.publish(rn, events.EventArtifactSaved, 0, 0, a)
}

func (r *Runner) publish(rn *run, typ events.EventType, idx int, d time.Duration, data any) {
	if r.events == nil {
		return
	}
	ev := events.NewEvent(typ, data)
	ev.RunID = rn.id
	ev.StepIndex = idx
	ev.Duration = d
	r.events.Publish(ev)
}

func validateConfig(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.TargetURL) == "" {
		errs = append(errs, errors.New("target url is required"))
	}
	if len(cfg.Steps) == 0 {
		errs = append(errs, ErrNoSteps)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport %s: width and height must be positive", cfg.Viewport))
	}
	for i, s := range cfg.Steps {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Errorf("step %d: name is required", i+1))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	return nil
}

// advance moves the run to next. An illegal move is a runner bug; it is
// logged and leaves the state unchanged.
func (r *Runner) advance(rn *run, next State) {
	if err := rn.machine.to(next); err != nil {
		r.logger.Errorf("Run %s: %v", shortID(rn.id), err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
