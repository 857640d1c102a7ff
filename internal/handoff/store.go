// Package handoff carries state between surfaces: a read-once key-value
// store for tab transfer, and a fire-and-forget selection broadcast hub.
package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a same-origin key-value handoff. Each payload is written once by
// the sending surface and read exactly once by the receiver, which erases it.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create handoff directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put stores a payload under key, replacing any previous payload. The write
// is atomic: the payload lands in a temp file first and is renamed into
// place, so a concurrent Take never observes a partial payload.
func (s *Store) Put(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	final := s.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("write handoff payload: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish handoff payload: %w", err)
	}
	return nil
}

// Take reads and erases the payload under key. The second Take for the same
// key reports absence.
func (s *Store) Take(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read handoff payload: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return nil, false, fmt.Errorf("erase handoff payload: %w", err)
	}
	return payload, true, nil
}

// path maps a key to a file name, flattening path separators so keys cannot
// escape the store directory.
func (s *Store) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json")
}
