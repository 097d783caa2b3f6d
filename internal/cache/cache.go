// Package cache keeps summaries of checked packages on disk, keyed by the
// digest of everything the check read.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/project"
)

// SchemaVersion is bumped whenever the Summary layout changes.
const SchemaVersion uint16 = 1

// DiskCache stores one Summary file per key. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Summary is what a check of one package produced, without spans into
// files that may have changed since.
type Summary struct {
	Schema        uint16
	Package       string
	Kind          string
	Modules       []string
	Entries       []string
	Configurables []string
	LoggedTypes   []TypeRecord
	MessageTypes  []TypeRecord
	StorageSlots  []Slot
	Diagnostics   []Diagnostic
	Errors        int
}

// TypeRecord is a logged or message type with its id.
type TypeRecord struct {
	ID    uint64
	Label string
}

type Slot struct {
	Key   [32]byte
	Value [32]byte
}

// Diagnostic is a rendered diagnostic; Location is `path:line:col`.
type Diagnostic struct {
	Code     uint16
	Severity uint8
	Message  string
	Location string
}

// Open returns a cache rooted at dir, creating it when needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDefault returns the cache for app under the user cache directory.
func OpenDefault(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "pkgs", hex.EncodeToString(key[:])+".mp")
}

// Put writes s under key, replacing any previous entry atomically.
func (c *DiskCache) Put(key project.Digest, s *Summary) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	s.Schema = SchemaVersion
	if err := msgpack.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return os.Rename(tmp, p)
}

// Get reads the summary stored under key. Entries written with another
// schema version are reported as missing.
func (c *DiskCache) Get(key project.Digest) (*Summary, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: %w", err)
	}
	defer f.Close()

	var s Summary
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	if s.Schema != SchemaVersion {
		return nil, false, nil
	}
	return &s, true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return os.MkdirAll(c.dir, 0o755)
}
