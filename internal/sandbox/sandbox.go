// Package sandbox restricts where run artifacts may be written and how large
// they may be. Artifact names come from suite files, so every write is
// checked before it touches the filesystem.
package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrPathDenied = errors.New("path denied")
	ErrTooLarge   = errors.New("file too large")
	ErrEscape     = errors.New("name escapes output directory")
)

// Sandbox enforces allowed/denied path prefixes and a file size limit.
type Sandbox struct {
	allowedPaths []string
	deniedPaths  []string
	maxFileSize  int64 // bytes, 0 means unlimited
}

// Config holds the sandbox configuration.
type Config struct {
	AllowedPaths []string `yaml:"allowed_paths"`
	DeniedPaths  []string `yaml:"denied_paths"`
	MaxFileSize  string   `yaml:"max_file_size"` // e.g. "10MB", "500KB"
}

// New creates a Sandbox from the given configuration.
// Allowed and denied paths are resolved to absolute paths.
func New(cfg Config) (*Sandbox, error) {
	s := &Sandbox{}

	for _, p := range cfg.AllowedPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve allowed path %q: %w", p, err)
		}
		s.allowedPaths = append(s.allowedPaths, abs)
	}

	for _, p := range cfg.DeniedPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve denied path %q: %w", p, err)
		}
		s.deniedPaths = append(s.deniedPaths, abs)
	}

	if cfg.MaxFileSize != "" {
		size, err := ParseFileSize(cfg.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("sandbox: parse max_file_size %q: %w", cfg.MaxFileSize, err)
		}
		s.maxFileSize = size
	}

	return s, nil
}

// Unrestricted returns a sandbox that allows every path and size.
func Unrestricted() *Sandbox {
	return &Sandbox{}
}

// CheckPath reports whether path may be written. Denied prefixes win over
// allowed ones; with no allowed prefixes every non-denied path is allowed.
func (s *Sandbox) CheckPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("sandbox: resolve path %q: %w", path, err)
	}

	for _, denied := range s.deniedPaths {
		if within(abs, denied) {
			return fmt.Errorf("sandbox: %w: %q is under %q", ErrPathDenied, abs, denied)
		}
	}

	if len(s.allowedPaths) == 0 {
		return nil
	}
	for _, allowed := range s.allowedPaths {
		if within(abs, allowed) {
			return nil
		}
	}
	return fmt.Errorf("sandbox: %w: %q is not under any allowed path %v", ErrPathDenied, abs, s.allowedPaths)
}

// CheckFileSize reports whether size bytes fit within the limit.
func (s *Sandbox) CheckFileSize(size int64) error {
	if s.maxFileSize <= 0 {
		return nil
	}
	if size > s.maxFileSize {
		return fmt.Errorf("sandbox: %w: %s exceeds maximum %s",
			ErrTooLarge, FormatFileSize(size), FormatFileSize(s.maxFileSize))
	}
	return nil
}

// Resolve joins name onto root and verifies the result stays inside root
// and passes CheckPath.
func (s *Sandbox) Resolve(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("sandbox: %w: %q", ErrEscape, name)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve root %q: %w", root, err)
	}
	full := filepath.Join(absRoot, name)
	if full == absRoot || !within(full, absRoot) {
		return "", fmt.Errorf("sandbox: %w: %q", ErrEscape, name)
	}
	if err := s.CheckPath(full); err != nil {
		return "", err
	}
	return full, nil
}

// MaxFileSize returns the configured maximum file size in bytes, or 0.
func (s *Sandbox) MaxFileSize() int64 {
	return s.maxFileSize
}

// AllowedPaths returns the list of allowed absolute paths.
func (s *Sandbox) AllowedPaths() []string {
	return s.allowedPaths
}

// DeniedPaths returns the list of denied absolute paths.
func (s *Sandbox) DeniedPaths() []string {
	return s.deniedPaths
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// ParseFileSize parses a human-readable size such as "10MB" into bytes.
// Supported suffixes: B, KB, MB, GB (case-insensitive). A bare number is bytes.
func ParseFileSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			n, err := strconv.ParseFloat(numStr, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid number %q", numStr)
			}
			return int64(n * float64(sf.multiplier)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid file size %q", s)
	}
	return n, nil
}

// FormatFileSize formats bytes into a human-readable string.
func FormatFileSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1fGB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
