// Package cache is a small content-addressed store for compiled output,
// keyed by the xxhash of the source bytes and the compilation mode. It
// changes nothing about compilation semantics: a miss just runs the
// pipeline, a hit returns bytes previously produced by that same pipeline.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Cache reads and writes compiled output under a directory tree keyed by
// content hash.
type Cache struct {
	dir string
}

// Open returns a Cache rooted at dir, creating it if necessary.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns $SYSYC_CACHE_DIR if set, else os.UserCacheDir()/sysyc.
func DefaultDir() (string, error) {
	if d := os.Getenv("SYSYC_CACHE_DIR"); d != "" {
		return d, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache: resolving user cache dir: %w", err)
	}
	return filepath.Join(base, "sysyc"), nil
}

// Key hashes source content and a mode string into a single cache key.
// Mirrors the hashFile xxhash.New()+io.Copy idiom, adapted to hash an
// in-memory buffer plus a mode discriminator instead of just a file.
func Key(source []byte, mode string) string {
	h := xxhash.New()
	h.Write(source)
	h.Write([]byte{0})
	h.Write([]byte(mode))
	return fmt.Sprintf("%016x", h.Sum64())
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key[:2], key+".out")
}

// Lookup returns the cached output for key, or ok=false on a miss.
func (c *Cache) Lookup(key string) (data []byte, ok bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Store writes output under key, creating any needed subdirectories.
func (c *Cache) Store(key string, output []byte) error {
	p := c.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", filepath.Dir(p), err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, output, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("cache: renaming %s: %w", tmp, err)
	}
	return nil
}

// KeyReader hashes an io.Reader the same way hashFile does, for callers
// that already have an open file rather than a loaded buffer.
func KeyReader(r io.Reader, mode string) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	h.Write([]byte{0})
	h.Write([]byte(mode))
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
