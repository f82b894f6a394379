// manifest_cache.go: memoizing cache for parsed manifests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// manifestCache memoizes parsed manifests keyed by absolute file path so
// repeated discovery runs do not re-read unchanged files. Entries are
// invalidated when the file's size or modification time changes, and age
// out after the configured TTL.
type manifestCache struct {
	entries *lru.LRU[string, manifestCacheEntry]
}

type manifestCacheEntry struct {
	manifest *Manifest
	size     int64
	modTime  time.Time
}

func newManifestCache(size int, ttl time.Duration) *manifestCache {
	return &manifestCache{
		entries: lru.NewLRU[string, manifestCacheEntry](size, nil, ttl),
	}
}

// read returns the manifest at path, from cache when the file is
// unchanged. The second return value reports a cache hit.
func (c *manifestCache) read(path string) (*Manifest, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, NewManifestNotFoundError(path, err)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return nil, false, NewManifestNotFoundError(abs, err)
	}

	if entry, ok := c.entries.Get(abs); ok {
		if entry.size == st.Size() && entry.modTime.Equal(st.ModTime()) {
			return entry.manifest, true, nil
		}
		c.entries.Remove(abs)
	}

	manifest, err := ReadManifest(abs)
	if err != nil {
		return nil, false, err
	}

	c.entries.Add(abs, manifestCacheEntry{
		manifest: manifest,
		size:     st.Size(),
		modTime:  st.ModTime(),
	})
	return manifest, false, nil
}

// purge drops every cached entry.
func (c *manifestCache) purge() {
	c.entries.Purge()
}

// len reports the number of cached manifests.
func (c *manifestCache) len() int {
	return c.entries.Len()
}
