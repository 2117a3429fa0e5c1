package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/internal/config"
	"github.com/cgast/uiverify/internal/inspector"
	"github.com/cgast/uiverify/internal/logger"
	"github.com/cgast/uiverify/internal/probe"
	"github.com/cgast/uiverify/internal/sandbox"
	"github.com/cgast/uiverify/internal/suites"
	"github.com/cgast/uiverify/pkg/browser"
	"github.com/cgast/uiverify/pkg/events"
	"github.com/cgast/uiverify/pkg/history"
	"github.com/cgast/uiverify/pkg/report"
	"github.com/cgast/uiverify/pkg/runner"
	"github.com/cgast/uiverify/pkg/suite"
)

type runOptions struct {
	suiteName     string
	baseURL       string
	outputDir     string
	width         int
	height        int
	params        []string
	headless      bool
	browserName   string
	timeout       time.Duration
	probeTimeout  time.Duration
	dryRun        bool
	reportRepo    string
	inspectorPort int
	noHistory     bool
	install       bool
}

func newRunCommand(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [suite-file]",
		Short: "Run a verification suite against the dashboard",
		Long: `Run a suite from a YAML file or one of the built-in suites (--suite).

Settings are taken from flags first, then UIVERIFY_BASE_URL and HEADLESS,
then .uiverify/config.yaml, then defaults.

Exit code: 0 if every step passed, 1 otherwise`,
		Example: `  uiverify run --suite dashboard-tour
  uiverify run --suite vacations-year --param year=2027 --output-dir shots
  uiverify run suites/checkout.yaml --base-url http://localhost:5173 --headless=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd.Context(), cmd, g, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.suiteName, "suite", "", "built-in suite to run (see 'uiverify suites')")
	f.StringVar(&opts.baseURL, "base-url", "", "dashboard root URL")
	f.StringVar(&opts.outputDir, "output-dir", "", "directory for screenshots and reports")
	f.IntVar(&opts.width, "viewport-width", 0, "viewport width in pixels")
	f.IntVar(&opts.height, "viewport-height", 0, "viewport height in pixels")
	f.StringArrayVar(&opts.params, "param", nil, "suite parameter as key=value (repeatable)")
	f.BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	f.StringVar(&opts.browserName, "browser", "", "chromium, firefox or webkit")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-action timeout")
	f.DurationVar(&opts.probeTimeout, "probe-timeout", 0, "wait this long for the base URL to answer (0 disables)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the execution plan without launching a browser")
	f.StringVar(&opts.reportRepo, "report-repo", "", "open a GitHub issue in owner/name when the run fails")
	f.IntVar(&opts.inspectorPort, "inspector-port", 0, "serve the inspector on this port during the run")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record the run in the history database")
	f.BoolVar(&opts.install, "install", false, "install the playwright driver and browser first")
	return cmd
}

// applyFlags layers explicitly set flags over the loaded config.
func (o *runOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("base-url") {
		cfg.Target.BaseURL = o.baseURL
	}
	if f.Changed("output-dir") {
		cfg.Output.Dir = o.outputDir
	}
	if f.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if f.Changed("browser") {
		cfg.Browser.Name = o.browserName
	}
	if f.Changed("timeout") {
		cfg.Timeouts.Action = o.timeout
	}
	if f.Changed("probe-timeout") {
		cfg.Target.ProbeTimeout = o.probeTimeout
	}
	if f.Changed("install") {
		cfg.Browser.Install = o.install
	}
	if f.Changed("inspector-port") {
		cfg.Inspector.Enabled = o.inspectorPort > 0
		cfg.Inspector.Port = o.inspectorPort
	}
	if o.noHistory {
		cfg.History.Persist = false
	}
}

// loadSuite reads a suite file or a built-in suite.
func loadSuite(args []string, builtin string, pairs []string) (suite.Suite, error) {
	params, err := suite.ParseParams(pairs)
	if err != nil {
		return suite.Suite{}, err
	}
	switch {
	case len(args) > 0 && builtin != "":
		return suite.Suite{}, fmt.Errorf("give either a suite file or --suite, not both")
	case len(args) > 0:
		return suite.LoadSuite(args[0], params)
	case builtin != "":
		return suites.Load(builtin, params)
	}
	return suite.Suite{}, fmt.Errorf("a suite file or --suite is required (built-ins: %v)", suites.Names())
}

func runSuite(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts *runOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := g.logger(cmd, cfg)

	s, err := loadSuite(args, opts.suiteName, opts.params)
	if err != nil {
		return err
	}
	bus := events.NewMemoryBus()
	bus.Publish(events.NewEvent(events.EventSuiteLoaded, map[string]any{"suite": s.Meta.Name, "steps": len(s.Steps)}))

	if opts.dryRun {
		plan, err := suite.GeneratePlan(s, nil)
		if err != nil {
			return err
		}
		bus.Publish(events.NewEvent(events.EventPlanGenerated, plan))
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	}

	rc, err := suite.RunConfig(s, suite.CompileOptions{
		BaseURL:       cfg.Target.BaseURL,
		ActionTimeout: cfg.Timeouts.Action,
		WaitUntil:     cfg.Target.ReadyState,
	})
	if err != nil {
		return err
	}
	rc.OutputDir = cfg.Output.Dir
	rc.Browser = cfg.Browser.Name
	rc.Headless = cfg.Browser.Headless
	rc.SlowMo = cfg.Browser.SlowMo
	rc.NavigationTimeout = cfg.Timeouts.Navigation
	rc.ExpectTimeout = cfg.Timeouts.Expect
	rc.CaptureConsole = cfg.Output.CaptureConsole
	rc.Viewport = resolveViewport(cmd, opts, rc.Viewport, cfg.ViewportSize())

	sb, err := sandbox.New(cfg.Artifacts)
	if err != nil {
		return err
	}

	var store history.Store
	if cfg.History.Persist {
		bs, err := history.NewBoltStore(history.DefaultPath(g.configDir), history.WithMaxEntries(cfg.History.MaxEntries))
		if err != nil {
			log.Warnf("History disabled: %v", err)
		} else {
			defer bs.Close()
			store = bs
		}
	}

	if cfg.Inspector.Enabled {
		ictx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := inspector.New(bus, store, cfg.Output.Dir)
		defer srv.Close()
		addr, err := srv.StartAsync(ictx, cfg.Inspector.Port)
		if err != nil {
			log.Warnf("Inspector not started: %v", err)
		} else {
			log.Infof("Inspector running at http://%s", addr)
		}
	}

	ropts := []runner.Option{
		runner.WithLogger(log),
		runner.WithEvents(bus),
		runner.WithSandbox(sb),
	}
	if cfg.Target.ProbeTimeout > 0 {
		ropts = append(ropts, runner.WithProber(probe.New(
			probe.WithTimeout(cfg.Target.ProbeTimeout),
			probe.WithAllowedHosts(cfg.Target.AllowedHosts...),
		)))
	}
	r := runner.New(newLauncher(cfg.Browser.Install), ropts...)

	result, runErr := r.Run(ctx, rc)
	if result.ID == "" {
		// Nothing ran: invalid config, lock held or similar.
		return runErr
	}

	files, err := report.Write(result.OutputDir, result, sb)
	if err != nil {
		log.Warnf("Could not write report: %v", err)
	} else {
		log.Infof("Report written: %s", files.Markdown)
		bus.Publish(events.NewEvent(events.EventReportWritten, files))
	}
	if store != nil {
		if err := store.Save(result); err != nil {
			log.Warnf("Could not record run history: %v", err)
		}
	}
	log.LogSummary(result)

	if !result.Success {
		publishIssue(ctx, g, opts, log, result)
	}

	var sf *runner.StepFailure
	if errors.As(runErr, &sf) {
		return &exitError{msg: sf.Error()}
	}
	return runErr
}

// resolveViewport prefers flags, then the suite, then config.
func resolveViewport(cmd *cobra.Command, opts *runOptions, fromSuite, fromConfig browser.Viewport) browser.Viewport {
	v := fromSuite
	if v.IsZero() {
		v = fromConfig
	}
	if cmd.Flags().Changed("viewport-width") {
		v.Width = opts.width
	}
	if cmd.Flags().Changed("viewport-height") {
		v.Height = opts.height
	}
	return v
}

// publishIssue opens a GitHub issue for a failed run when a repository and
// token are configured. Errors are logged, not returned.
func publishIssue(ctx context.Context, g *globalOptions, opts *runOptions, log *logger.ConsoleLogger, result runner.RunResult) {
	plat, err := g.platforms()
	if err != nil {
		log.Warnf("Platform config: %v", err)
		return
	}
	repo := opts.reportRepo
	if repo == "" {
		repo = plat.GitHub.Repo
	}
	if repo == "" {
		return
	}
	if plat.GitHub.Token == "" {
		log.Warnf("Not reporting to %s: no GitHub token in %s", repo, config.PlatformsFile)
		return
	}

	gh, err := report.NewGitHubReporter(plat.GitHub.Token, repo, plat.GitHub.Labels, githubOptions...)
	if err != nil {
		log.Warnf("GitHub reporter: %v", err)
		return
	}
	issue, err := gh.Publish(ctx, result)
	if err != nil {
		log.Warnf("Could not open issue: %v", err)
		return
	}
	log.Infof("Opened issue #%d: %s", issue.Number, issue.URL)
}

// githubOptions lets tests point the reporter at a local server.
var githubOptions []report.GitHubOption
