// Package cache implements the per-translation-unit result cache: one file
// per TU under the configured cache directory, keyed by a hash of the
// compiler invocation and the source file's mtime/size so any change to
// either invalidates the entry.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
)

// Record is the on-disk shape of one resolved declaration for a translation
// unit: independent of the in-memory pool/handle representation, since
// handles are not stable across runs and must never be persisted.
type Record struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
	Used bool   `json:"used"`
}

// TUDocument is the on-disk cache document for one translation unit: the
// invocation hash it was produced under, when it was written, and the
// declaration records to replay on a hit.
type TUDocument struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Records   []Record  `json:"records"`
}

// TUCache is a file-based cache of per-translation-unit scan results. A
// cache hit skips re-invoking the compiler and re-scanning that TU
// entirely, replaying its cached records straight into aggregation.
type TUCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// New creates a TUCache rooted at dir. A disabled cache always misses and
// every Set is a no-op, so callers don't need to branch on cfg.Cache.Enabled
// themselves.
func New(dir string, ttlHours int, enabled bool) (*TUCache, error) {
	if !enabled {
		return &TUCache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &TUCache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// InvocationHash keys a cache entry by the invocation's argument list, as
// recorded, plus the source file's mtime and size, so a rebuild that touches the
// source or changes any compiler flag invalidates the entry.
func InvocationHash(inv builddb.Invocation, sourcePath string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("cache: stat %s: %w", sourcePath, err)
	}
	var payload []byte
	for _, a := range inv.Args {
		payload = append(payload, []byte(a)...)
		payload = append(payload, 0)
	}
	payload = append(payload, []byte(fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano()))...)
	return HashBytes(payload), nil
}

// Get returns the cached records for tuKey if present, unexpired, and the
// invocation hash still matches, i.e. the TU is unchanged since the last run.
func (c *TUCache) Get(tuKey, hash string) ([]Record, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(tuKey)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var doc TUDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	if doc.Hash != hash {
		return nil, false
	}

	if time.Since(doc.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	return doc.Records, true
}

// Set stores records for tuKey under hash.
func (c *TUCache) Set(tuKey, hash string, records []Record) error {
	if !c.enabled {
		return nil
	}

	doc := TUDocument{Hash: hash, Timestamp: time.Now(), Records: records}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cache: marshal TU document: %w", err)
	}

	return os.WriteFile(c.keyPath(tuKey), data, 0600)
}

// Clear removes every cached TU document.
func (c *TUCache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a TU key to a filesystem path.
func (c *TUCache) keyPath(tuKey string) string {
	// Use a BLAKE3 hash of the key for the filename, since TU keys are
	// absolute source paths and may contain characters a filesystem
	// rejects.
	hash := blake3.Sum256([]byte(tuKey))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats summarizes the cache's on-disk state.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// Stats returns statistics about the cache directory, for the `cache stats`
// subcommand.
func (c *TUCache) Stats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}

	return stats, nil
}
