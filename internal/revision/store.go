// Package revision owns the HEAD pointer and the numbered, full-copy
// revision directories under the storage root. No other component may
// create, rename, or delete a revision directory.
package revision

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const headFile = "HEAD"

// Store serializes all revision creation. The mutex is held across the
// whole copy/extract, not just the metadata bump, so a reader can never
// observe a partially populated revision directory.
type Store struct {
	root   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewStore(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory belonging to a revision id.
func (s *Store) Dir(id uint64) string {
	return filepath.Join(s.root, strconv.FormatUint(id, 10))
}

// Bootstrap ensures the storage root, revision 0 and the HEAD marker
// exist. Idempotent, safe to call on every process start.
func (s *Store) Bootstrap() error {
	if err := os.MkdirAll(s.Dir(0), 0755); err != nil {
		return fmt.Errorf("creating storage root: %w", err)
	}

	headPath := filepath.Join(s.root, headFile)
	if _, err := os.Stat(headPath); os.IsNotExist(err) {
		if err := os.WriteFile(headPath, []byte("0"), 0644); err != nil {
			return fmt.Errorf("initializing HEAD: %w", err)
		}
	}
	return nil
}

// Head returns the current revision id. The read is tolerant: a missing
// or unparsable marker reads as 0 and never fails the caller.
func (s *Store) Head() uint64 {
	data, err := os.ReadFile(filepath.Join(s.root, headFile))
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// List returns HEAD and the dense ascending sequence 0..=HEAD.
// Revisions are never deleted, so the sequence is always gap-free.
func (s *Store) List() (uint64, []uint64) {
	head := s.Head()
	ids := make([]uint64, head+1)
	for i := range ids {
		ids[i] = uint64(i)
	}
	return head, ids
}

// Exists reports whether a revision directory is present.
func (s *Store) Exists(id uint64) bool {
	info, err := os.Stat(s.Dir(id))
	return err == nil && info.IsDir()
}

// Snapshot creates revision HEAD+1 as a full copy of the current tree.
// The directory is created and populated before HEAD is persisted, so a
// crash mid-copy leaves HEAD naming only complete revisions.
func (s *Store) Snapshot() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.Head()
	next := head + 1
	dest := s.Dir(next)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("creating revision %d: %w", next, err)
	}
	if err := copyTree(s.Dir(head), dest); err != nil {
		os.RemoveAll(dest)
		return 0, fmt.Errorf("copying revision %d into %d: %w", head, next, err)
	}
	if err := s.writeHead(next); err != nil {
		os.RemoveAll(dest)
		return 0, err
	}

	s.logger.Info("snapshot created",
		zap.Uint64("revision", next),
		zap.Uint64("parent", head),
	)
	return next, nil
}

// Create allocates revision HEAD+1 and runs populate on its empty
// directory, all under the store lock. HEAD advances before populate
// runs: a failed populate leaves the id allocated and possibly
// partially filled, never rolled back or reused.
func (s *Store) Create(populate func(dir string) error) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Head() + 1
	dest := s.Dir(next)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("creating revision %d: %w", next, err)
	}
	if err := s.writeHead(next); err != nil {
		os.RemoveAll(dest)
		return 0, err
	}

	if err := populate(dest); err != nil {
		s.logger.Error("revision left partially populated",
			zap.Uint64("revision", next),
			zap.Error(err),
		)
		return next, err
	}

	s.logger.Info("revision created", zap.Uint64("revision", next))
	return next, nil
}

func (s *Store) writeHead(n uint64) error {
	path := filepath.Join(s.root, headFile)
	if err := os.WriteFile(path, []byte(strconv.FormatUint(n, 10)), 0644); err != nil {
		return fmt.Errorf("persisting HEAD: %w", err)
	}
	return nil
}
