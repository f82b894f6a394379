// manifest_cache_test.go: tests for the parsed-manifest cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestCache_MissThenHit(t *testing.T) {
	root := t.TempDir()
	path := writePluginFixture(t, root, pluginFixture{Name: "cached"})
	cache := newManifestCache(8, time.Minute)

	first, hit, err := cache.read(path)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, cache.len())

	second, hit, err := cache.read(path)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second, "unchanged file returns the cached manifest")
}

func TestManifestCache_InvalidatesOnChange(t *testing.T) {
	root := t.TempDir()
	path := writePluginFixture(t, root, pluginFixture{Name: "mutable"})
	cache := newManifestCache(8, time.Minute)

	first, _, err := cache.read(path)
	require.NoError(t, err)
	assert.Equal(t, "mutable", first.Name())

	// Rewrite the manifest with a different name and a modTime the
	// cache cannot mistake for the original.
	writePluginFixture(t, root, pluginFixture{Dir: "mutable", Name: "renamed"})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	second, hit, err := cache.read(path)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "renamed", second.Name())
}

func TestManifestCache_ErrorsAreNotCached(t *testing.T) {
	root := t.TempDir()
	cache := newManifestCache(8, time.Minute)
	path := writeScript(t, root, DefaultManifestName, "sys: [broken\n")

	_, _, err := cache.read(path)
	require.Error(t, err)
	assert.Equal(t, 0, cache.len())

	_, _, err = cache.read(path)
	require.Error(t, err, "a broken manifest fails on every read")
}

func TestManifestCache_MissingFile(t *testing.T) {
	cache := newManifestCache(8, time.Minute)
	_, _, err := cache.read(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifestNotFound, ErrorCode(err))
}

func TestManifestCache_Purge(t *testing.T) {
	root := t.TempDir()
	path := writePluginFixture(t, root, pluginFixture{Name: "purged"})
	cache := newManifestCache(8, time.Minute)

	_, _, err := cache.read(path)
	require.NoError(t, err)
	require.Equal(t, 1, cache.len())

	cache.purge()
	assert.Equal(t, 0, cache.len())

	_, hit, err := cache.read(path)
	require.NoError(t, err)
	assert.False(t, hit)
}
