// Package history persists run results so past verification runs can be
// listed, inspected and compared.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cgast/uiverify/pkg/runner"
)

// Bucket names.
const (
	bucketRuns  = "runs"  // run id -> JSON RunResult
	bucketOrder = "order" // big-endian sequence -> run id
)

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("run not found")

// Store records run results.
type Store interface {
	Save(result runner.RunResult) error
	Get(id string) (runner.RunResult, error)
	List(limit int) ([]Summary, error)
	Prune(keep int) (int, error)
	Close() error
}

// Summary is the listing form of a stored run.
type Summary struct {
	ID        string        `json:"id"`
	Suite     string        `json:"suite,omitempty"`
	TargetURL string        `json:"target_url"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	NotRun    int           `json:"not_run"`
	Artifacts int           `json:"artifacts"`
	Failure   string        `json:"failure,omitempty"`
}

// Summarize condenses a run result for listings.
func Summarize(r runner.RunResult) Summary {
	passed, failed, notRun := r.Counts()
	s := Summary{
		ID:        r.ID,
		Suite:     r.Suite,
		TargetURL: r.TargetURL,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Success:   r.Success,
		Passed:    passed,
		Failed:    failed,
		NotRun:    notRun,
		Artifacts: len(r.Artifacts),
	}
	if r.Failure != nil {
		s.Failure = fmt.Sprintf("%s at step %d (%s)", r.Failure.Kind, r.Failure.Index, r.Failure.Step)
	}
	return s
}

// Option configures a BoltStore.
type Option func(*BoltStore)

// WithMaxEntries prunes the oldest runs on Save once n are stored.
// Zero keeps everything.
func WithMaxEntries(n int) Option {
	return func(s *BoltStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// BoltStore is a bbolt-backed implementation of Store.
type BoltStore struct {
	db         *bolt.DB
	mu         sync.RWMutex
	maxEntries int
}

// NewBoltStore opens (or creates) the history database at path.
func NewBoltStore(path string, opts ...Option) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketRuns, bucketOrder} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	s := &BoltStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save stores result under its run id. Saving the same id again replaces
// the stored result and keeps its position.
func (s *BoltStore) Save(result runner.RunResult) error {
	if result.ID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", result.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(bucketRuns))
		order := tx.Bucket([]byte(bucketOrder))
		existed := runs.Get([]byte(result.ID)) != nil
		if err := runs.Put([]byte(result.ID), data); err != nil {
			return err
		}
		if !existed {
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			if err := order.Put(seqKey(seq), []byte(result.ID)); err != nil {
				return err
			}
		}
		if s.maxEntries > 0 {
			_, err := prune(tx, s.maxEntries)
			return err
		}
		return nil
	})
}

// Get returns the stored result for id.
func (s *BoltStore) Get(id string) (runner.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result runner.RunResult
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return runner.RunResult{}, err
	}
	return result, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *BoltStore) List(limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(bucketRuns))
		c := tx.Bucket([]byte(bucketOrder)).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			data := runs.Get(id)
			if data == nil {
				continue
			}
			var r runner.RunResult
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("unmarshal run %s: %w", string(id), err)
			}
			out = append(out, Summarize(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes all but the newest keep runs and reports how many were
// removed.
func (s *BoltStore) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		removed, err = prune(tx, keep)
		return err
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func prune(tx *bolt.Tx, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	runs := tx.Bucket([]byte(bucketRuns))
	order := tx.Bucket([]byte(bucketOrder))

	// Collect first; deleting while iterating skips keys in bbolt.
	var keys [][]byte
	c := order.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= keep {
		return 0, nil
	}
	keys = keys[:len(keys)-keep]
	for _, k := range keys {
		id := append([]byte(nil), order.Get(k)...)
		if err := runs.Delete(id); err != nil {
			return 0, err
		}
		if err := order.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// DefaultPath returns the history database location: history.db inside
// stateDir when that directory exists, otherwise a file in the temp dir.
func DefaultPath(stateDir string) string {
	if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
		return filepath.Join(stateDir, "history.db")
	}
	return filepath.Join(os.TempDir(), "uiverify", "history.db")
}
