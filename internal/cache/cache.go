// Package cache stores downloaded wallpaper files on disk under
// content-addressed names, so the same URL never gets downloaded twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abelbrown/wallfeed/internal/logging"
)

// ErrCacheWrite marks failures while writing image bytes to disk
// (disk full, permissions). Callers match it with errors.Is.
var ErrCacheWrite = errors.New("cache write failed")

// DefaultMaxBytes is the default cache ceiling: 500 MiB.
const DefaultMaxBytes int64 = 500 << 20

// DiskCache is a flat directory of image files named by the SHA-256 of
// their origin URL. The ceiling is advisory: writes always succeed while
// the disk cooperates, and EvictLRU reclaims space on demand.
type DiskCache struct {
	dir      string
	maxBytes int64
}

// New opens (creating if needed) a disk cache rooted at dir.
// A non-positive maxBytes selects DefaultMaxBytes.
func New(dir string, maxBytes int64) (*DiskCache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the cache root directory.
func (c *DiskCache) Dir() string { return c.dir }

// MaxBytes returns the configured ceiling.
func (c *DiskCache) MaxBytes() int64 { return c.maxBytes }

// Path returns the on-disk path a URL's content maps to, whether or not
// the file exists yet.
func (c *DiskCache) Path(url string) string {
	h := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(h[:])+extensionFor(url))
}

// Exists reports whether the URL's content is already cached.
func (c *DiskCache) Exists(url string) bool {
	info, err := os.Stat(c.Path(url))
	return err == nil && info.Mode().IsRegular()
}

// Put streams r into the cache slot for url and returns the final path.
// The write goes through a temp file and rename so readers never see a
// partial image.
func (c *DiskCache) Put(url string, r io.Reader) (string, error) {
	dst := c.Path(url)

	tmp, err := os.CreateTemp(c.dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}
	return dst, nil
}

// Remove deletes the cached file for a URL. Missing files are not an error.
func (c *DiskCache) Remove(url string) error {
	err := os.Remove(c.Path(url))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SizeBytes returns the total size of all cached files.
func (c *DiskCache) SizeBytes() (int64, error) {
	var total int64
	err := c.walk(func(path string, info os.FileInfo) {
		total += info.Size()
	})
	return total, err
}

// Count returns the number of cached files.
func (c *DiskCache) Count() (int, error) {
	n := 0
	err := c.walk(func(path string, info os.FileInfo) { n++ })
	return n, err
}

// IsFull reports whether the cache has reached its ceiling.
func (c *DiskCache) IsFull() (bool, error) {
	size, err := c.SizeBytes()
	if err != nil {
		return false, err
	}
	return size >= c.maxBytes, nil
}

// EvictLRU deletes least-recently-modified files until total size is at
// or below targetBytes. Returns the number of files removed. A negative
// target means "down to the ceiling".
func (c *DiskCache) EvictLRU(targetBytes int64) (int, error) {
	if targetBytes < 0 {
		targetBytes = c.maxBytes
	}

	type entry struct {
		path    string
		size    int64
		modTime int64
	}
	var entries []entry
	var total int64
	err := c.walk(func(path string, info os.FileInfo) {
		entries = append(entries, entry{path, info.Size(), info.ModTime().UnixNano()})
		total += info.Size()
	})
	if err != nil {
		return 0, err
	}
	if total <= targetBytes {
		return 0, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime < entries[j].modTime
	})

	removed := 0
	for _, e := range entries {
		if total <= targetBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			logging.Warn("cache eviction skipped file", "path", e.path, "error", err)
			continue
		}
		total -= e.size
		removed++
	}
	if removed > 0 {
		logging.Info("cache evicted files", "count", removed, "size", total)
	}
	return removed, nil
}

// Clear removes every cached file and returns how many were deleted.
func (c *DiskCache) Clear() (int, error) {
	var paths []string
	if err := c.walk(func(path string, info os.FileInfo) {
		paths = append(paths, path)
	}); err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// walk visits every regular cached file. Temp files from in-flight
// writes are skipped.
func (c *DiskCache) walk(fn func(path string, info os.FileInfo)) error {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, d := range dirents {
		if d.IsDir() || strings.HasPrefix(d.Name(), ".partial-") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		fn(filepath.Join(c.dir, d.Name()), info)
	}
	return nil
}

// extensionFor keeps the origin URL's image extension so desktop tools
// recognize the file type. Unknown extensions default to .jpg.
func extensionFor(url string) string {
	base := url
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	switch ext := strings.ToLower(filepath.Ext(base)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return ext
	default:
		return ".jpg"
	}
}
