// Package cache keeps per-project symbol tables on disk so unchanged
// projects skip the front end on the next run.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"slnlint/internal/extractor"
	"slnlint/internal/solution"
)

// Current schema version - increment when Payload or extractor output changes.
const schemaVersion uint16 = 2

// Digest identifies a project's inputs.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Payload is the on-disk record.
type Payload struct {
	Schema  uint16
	Project string
	Created time.Time
	Table   *extractor.SymbolTable
}

// Cache stores symbol tables keyed by Digest. Safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	dir   string
	group singleflight.Group

	// Logger receives failed writes from Load. Nil discards them.
	Logger *slog.Logger
}

// Open initializes a cache at $XDG_CACHE_HOME/<app>, falling back to ~/.cache.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir initializes a cache in dir.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "tables", key.String()+".mp")
}

// Key hashes everything that influences a project's symbol table: the
// schema version, the project identity and every source file's content.
func Key(p solution.Project, files []string) (Digest, error) {
	h := sha256.New()
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], schemaVersion)
	h.Write(buf[:])
	for _, s := range []string{p.ID, p.Platform, p.Language} {
		io.WriteString(h, s)
		h.Write([]byte{0})
	}
	for _, path := range files {
		io.WriteString(h, path)
		h.Write([]byte{0})
		f, err := os.Open(path)
		if err != nil {
			return Digest{}, err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return Digest{}, err
		}
		h.Write([]byte{0})
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Put serializes and writes a table to the cache.
func (c *Cache) Put(key Digest, table *extractor.SymbolTable) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	payload := &Payload{Schema: schemaVersion, Project: table.Project, Created: time.Now().UTC(), Table: table}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a table. A missing entry or a stale schema is a miss.
func (c *Cache) Get(key Digest) (*extractor.SymbolTable, bool, error) {
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
		return nil, false, err
	}
	defer f.Close()

	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if payload.Schema != schemaVersion || payload.Table == nil {
		return nil, false, nil
	}
	return payload.Table, true, nil
}

// Load returns the cached table for key or computes and stores it.
// Concurrent calls for the same key share one computation. A failed
// read or write is logged and treated as a miss.
func (c *Cache) Load(key Digest, compute func() (*extractor.SymbolTable, error)) (*extractor.SymbolTable, bool, error) {
	if c == nil {
		t, err := compute()
		return t, false, err
	}
	t, ok, err := c.Get(key)
	if ok {
		return t, true, nil
	}
	if err != nil {
		c.logger().Warn("cache read failed", "key", key.String(), "err", err)
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		t, err := compute()
		if err != nil {
			return nil, err
		}
		if err := c.Put(key, t); err != nil {
			c.logger().Warn("cache write failed", "project", t.Project, "err", err)
		}
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*extractor.SymbolTable), false, nil
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "tables"))
}
