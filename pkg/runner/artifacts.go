package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cgast/uiverify/internal/filelock"
	"github.com/cgast/uiverify/internal/sandbox"
)

// ErrDuplicateArtifact is returned when a run tries to reuse an artifact name.
var ErrDuplicateArtifact = errors.New("duplicate artifact name")

// ConsoleLogName is the artifact name of the captured console output.
const ConsoleLogName = "console"

// ReservedNames cannot be used for screenshots: they collide with files the
// runner and the reporters write themselves.
var ReservedNames = []string{ConsoleLogName, "report"}

var extensions = map[ArtifactKind]string{
	ArtifactScreenshot:      ".png",
	ArtifactErrorScreenshot: ".png",
	ArtifactConsoleLog:      ".log",
}

// ArtifactStore writes the artifacts of one run into its output directory.
// Names are unique within a run.
type ArtifactStore struct {
	mu      sync.Mutex
	dir     string
	sandbox *sandbox.Sandbox
	names   map[string]bool
	list    []Artifact
}

// NewArtifactStore creates dir if needed and checks it against sb.
func NewArtifactStore(dir string, sb *sandbox.Sandbox) (*ArtifactStore, error) {
	if sb == nil {
		sb = sandbox.Unrestricted()
	}
	if err := sb.CheckPath(dir); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &ArtifactStore{
		dir:     dir,
		sandbox: sb,
		names:   make(map[string]bool),
	}, nil
}

// Dir returns the output directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// Save writes data as a new artifact.
func (s *ArtifactStore) Save(name string, kind ArtifactKind, data []byte, step string, index int) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.names[name] {
		return Artifact{}, fmt.Errorf("%w: %q", ErrDuplicateArtifact, name)
	}
	ext, ok := extensions[kind]
	if !ok {
		return Artifact{}, fmt.Errorf("unknown artifact kind %q", kind)
	}
	path, err := s.sandbox.Resolve(s.dir, name+ext)
	if err != nil {
		return Artifact{}, err
	}
	if err := s.sandbox.CheckFileSize(int64(len(data))); err != nil {
		return Artifact{}, err
	}
	if err := filelock.AtomicWrite(path, data); err != nil {
		return Artifact{}, fmt.Errorf("write artifact %s: %w", name, err)
	}

	a := Artifact{
		Name:      name,
		Kind:      kind,
		Path:      path,
		Step:      step,
		StepIndex: index,
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
	}
	s.names[name] = true
	s.list = append(s.list, a)
	return a, nil
}

// List returns the artifacts written so far, in write order.
func (s *ArtifactStore) List() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.list))
	copy(out, s.list)
	return out
}

// Slug turns a step name into a file-safe artifact name:
// "Open Vacations (2026)" becomes "open_vacations_2026".
func Slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if b.Len() > 0 && !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "step"
	}
	return out
}

// ErrorArtifactName is the name of the screenshot captured when step index
// fails, e.g. "03_open_vacations_error".
func ErrorArtifactName(index int, step string) string {
	return fmt.Sprintf("%02d_%s_error", index, Slug(step))
}

// IsReserved reports whether name is reserved for runner-written files.
func IsReserved(name string) bool {
	for _, r := range ReservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}
