package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/internal/config"
	"github.com/cgast/uiverify/internal/logger"
	"github.com/cgast/uiverify/pkg/browser"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// newLauncher builds the browser launcher; tests replace it with a fake.
var newLauncher = func(install bool) browser.Launcher {
	return browser.NewPlaywrightLauncher(install)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configDir string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "uiverify",
		Short: "Scripted UI verification for the HR dashboard",
		Long: `uiverify opens the dashboard in a headless browser, walks through an
ordered list of steps (navigate, click, select, wait, verify) and saves a
screenshot per step for human review.

The first failing step stops the run. Its state is captured as an error
screenshot named NN_<step>_error.png and the command exits with status 1.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.configDir, "config-dir", config.Dir, "directory holding config.yaml and platforms.yaml")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "trace, debug, info, warn or error (overrides config)")

	cmd.AddCommand(newRunCommand(g))
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newPlanCommand())
	cmd.AddCommand(newSuitesCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newHistoryCommand(g))
	cmd.AddCommand(newServeCommand(g))
	return cmd
}

// load reads the config directory with environment overrides applied.
func (g *globalOptions) load() (config.Config, error) {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func (g *globalOptions) platforms() (config.PlatformConfig, error) {
	return config.LoadPlatformConfig(filepath.Join(g.configDir, config.PlatformsFile))
}

func (g *globalOptions) logger(cmd *cobra.Command, cfg config.Config) *logger.ConsoleLogger {
	return logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
}
