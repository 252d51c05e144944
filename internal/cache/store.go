package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/metcalfc/rsvp/internal/fsutil"
)

var (
	// ErrNotFound is returned by a Store when a key has no entry.
	ErrNotFound = errors.New("not cached")
	// ErrCacheWrite marks a failure to persist extracted text.
	ErrCacheWrite = errors.New("cache write failed")
)

// Key identifies one extracted text.
type Key struct {
	Title  string
	Format string
}

func (k Key) String() string {
	if k.Format == "" {
		return k.Title
	}
	return k.Title + "." + k.Format
}

// Store persists extracted texts. Implementations must make Put on an existing
// key leave the stored text unchanged.
type Store interface {
	Get(key Key) (string, error)
	Put(key Key, text string) error
	Close() error
}

// DirStore keeps one human readable file per text in a directory.
type DirStore struct {
	dir string
	mu  sync.Mutex
}

// NewDirStore returns a Store rooted at dir. The directory is created on first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the directory the texts are written to.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(key Key) string {
	return filepath.Join(s.dir, fileName(key))
}

// fileName flattens a key to a single path element.
func fileName(key Key) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, key.String())
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name + ".txt"
}

// Get reads the text stored under key.
func (s *DirStore) Get(key Key) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), nil
}

// Put writes text under key unless an entry already exists.
func (s *DirStore) Put(key Key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	ok, err := fsutil.Exists(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}
	if ok {
		return nil
	}
	return fsutil.WriteFileAtomic(path, []byte(text), 0o644)
}

// Close is a no-op for DirStore.
func (s *DirStore) Close() error { return nil }

var _ Store = (*DirStore)(nil)
