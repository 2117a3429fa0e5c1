package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cgast/uiverify/internal/sandbox"
	"github.com/cgast/uiverify/pkg/browser"
)

// Locations relative to the working directory.
const (
	Dir           = ".uiverify"
	ConfigFile    = "config.yaml"
	PlatformsFile = "platforms.yaml"
)

// Environment variables that override the config file.
const (
	EnvBaseURL  = "UIVERIFY_BASE_URL"
	EnvHeadless = "HEADLESS"
)

// Config represents the runtime configuration from .uiverify/config.yaml.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Target    TargetConfig    `yaml:"target"`
	Browser   BrowserConfig   `yaml:"browser"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Output    OutputConfig    `yaml:"output"`
	Artifacts sandbox.Config  `yaml:"artifacts"`
	History   HistoryConfig   `yaml:"history"`
	Inspector InspectorConfig `yaml:"inspector"`
}

// TargetConfig locates the application under test.
type TargetConfig struct {
	BaseURL      string            `yaml:"base_url"`
	ReadyState   browser.LoadState `yaml:"ready_state"`
	ProbeTimeout time.Duration     `yaml:"probe_timeout"`
	// AllowedHosts limits which hosts the readiness probe may contact.
	// Empty allows any host.
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
}

// BrowserConfig selects and tunes the browser.
type BrowserConfig struct {
	Name     string        `yaml:"name"` // chromium, firefox or webkit
	Headless bool          `yaml:"headless"`
	SlowMo   time.Duration `yaml:"slow_mo"`
	Install  bool          `yaml:"install"` // download the driver and browser if missing
}

// ViewportConfig is the default page size.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TimeoutConfig bounds every wait.
type TimeoutConfig struct {
	Navigation time.Duration `yaml:"navigation"`
	Action     time.Duration `yaml:"action"`
	Expect     time.Duration `yaml:"expect"`
}

// OutputConfig controls where artifacts go.
type OutputConfig struct {
	Dir            string `yaml:"dir"`
	CaptureConsole bool   `yaml:"capture_console"`
}

// InspectorConfig defines inspector GUI settings.
type InspectorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// HistoryConfig defines run history settings.
type HistoryConfig struct {
	MaxEntries int  `yaml:"max_entries"`
	Persist    bool `yaml:"persist"`
}

// PlatformConfig represents platform credentials from .uiverify/platforms.yaml.
type PlatformConfig struct {
	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig holds GitHub issue reporting settings.
type GitHubConfig struct {
	Token  string   `yaml:"token"`
	Repo   string   `yaml:"repo"`
	Labels []string `yaml:"labels"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Target: TargetConfig{
			BaseURL:      "http://localhost:3000",
			ReadyState:   browser.LoadStateLoad,
			ProbeTimeout: 10 * time.Second,
		},
		Browser: BrowserConfig{
			Name:     "chromium",
			Headless: true,
		},
		Viewport: ViewportConfig{
			Width:  browser.DefaultViewport.Width,
			Height: browser.DefaultViewport.Height,
		},
		Timeouts: TimeoutConfig{
			Navigation: 30 * time.Second,
			Action:     10 * time.Second,
			Expect:     5 * time.Second,
		},
		Output: OutputConfig{
			Dir:            "verification",
			CaptureConsole: true,
		},
		Artifacts: sandbox.Config{
			MaxFileSize: "25MB",
		},
		History: HistoryConfig{
			MaxEntries: 500,
			Persist:    true,
		},
		Inspector: InspectorConfig{
			Port: 4040,
		},
	}
}

// LoadConfig reads and parses a runtime config YAML file.
// Returns default config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Load reads config.yaml from dir and applies environment overrides.
func Load(dir string) (Config, error) {
	cfg, err := LoadConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides file values with UIVERIFY_BASE_URL and HEADLESS.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Target.BaseURL = v
	}
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvHeadless, v)
		}
		c.Browser.Headless = b
	}
	return nil
}

var (
	browsers  = map[string]bool{"chromium": true, "firefox": true, "webkit": true}
	logLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
)

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case !logLevels[strings.ToLower(c.LogLevel)]:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	case !browsers[c.Browser.Name]:
		return fmt.Errorf("browser.name: unsupported browser %q", c.Browser.Name)
	case !c.Target.ReadyState.Valid():
		return fmt.Errorf("target.ready_state: unknown load state %q", c.Target.ReadyState)
	case c.Viewport.Width < 0 || c.Viewport.Height < 0:
		return fmt.Errorf("viewport: dimensions must not be negative")
	case c.Timeouts.Navigation < 0 || c.Timeouts.Action < 0 || c.Timeouts.Expect < 0 || c.Target.ProbeTimeout < 0:
		return fmt.Errorf("timeouts: must not be negative")
	case c.Inspector.Port < 0 || c.Inspector.Port > 65535:
		return fmt.Errorf("inspector.port: %d out of range", c.Inspector.Port)
	}
	if c.Artifacts.MaxFileSize != "" {
		if _, err := sandbox.ParseFileSize(c.Artifacts.MaxFileSize); err != nil {
			return fmt.Errorf("artifacts.max_file_size: %w", err)
		}
	}
	return nil
}

// ViewportSize returns the configured viewport.
func (c Config) ViewportSize() browser.Viewport {
	return browser.Viewport{Width: c.Viewport.Width, Height: c.Viewport.Height}
}

// LoadPlatformConfig reads and parses a platform credentials YAML file.
// Performs environment variable interpolation on string values.
func LoadPlatformConfig(path string) (PlatformConfig, error) {
	var cfg PlatformConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read platform config %s: %w", path, err)
	}

	// Interpolate environment variables before parsing.
	interpolated := interpolateEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return cfg, fmt.Errorf("parse platform config %s: %w", path, err)
	}

	// An unset ${VAR} is not a credential.
	if envVarPattern.MatchString(cfg.GitHub.Token) {
		cfg.GitHub.Token = ""
	}
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match // Leave unresolved if not set.
	})
}

// Template is the scaffold written by `uiverify init`.
func Template() ([]byte, error) {
	return yaml.Marshal(DefaultConfig())
}
