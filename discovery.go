// discovery.go: recursive search-root walk locating plugin manifests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"iter"
	"os"
	"path/filepath"

	"github.com/agilira/go-timecache"
)

// Discover lazily walks the search roots in registration order and
// yields every plugin whose directory holds a valid, compatible
// manifest. The walk visits a root's subdirectories depth-first; a
// manifest directly inside a directory marks it as a plugin root and
// stops the descent there, so a plugin's internal tree can never be
// misread as nested plugins.
//
// Discovery is resilient by contract: a candidate whose manifest fails
// to read, parse or match the host is logged, counted and skipped, never
// fatal. A manifest naming an already-registered plugin yields the known
// instance instead of a duplicate, which makes repeated discovery runs
// idempotent.
//
// The returned sequence registers plugins as a side effect while it is
// drained; breaking early leaves the remaining candidates undiscovered
// until the next run.
func (s *System[F]) Discover() iter.Seq[*Plugin[F]] {
	return func(yield func(*Plugin[F]) bool) {
		for _, root := range s.SearchPaths() {
			entries, err := os.ReadDir(root)
			if err != nil {
				s.logger.Debug("search root not readable, skipping", "root", root, "error", err)
				continue
			}
			for _, entry := range entries {
				if !s.walk(filepath.Join(root, entry.Name()), 0, yield) {
					return
				}
			}
		}
	}
}

// DiscoverAll drains Discover for its registration side effects and
// returns the system for chaining.
func (s *System[F]) DiscoverAll() *System[F] {
	for range s.Discover() {
	}
	return s
}

// walk visits one candidate directory. The return value reports whether
// the caller should keep iterating; only a consumer break stops the
// walk, candidate failures never do.
func (s *System[F]) walk(dir string, depth int, yield func(*Plugin[F]) bool) bool {
	if depth > s.maxDepth {
		s.logger.Debug("max depth reached, pruning walk", "dir", dir, "max_depth", s.maxDepth)
		return true
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return true
	}
	s.stats.DirsScanned.Add(1)

	manifestPath := filepath.Join(dir, s.manifestName)
	if st, err := os.Stat(manifestPath); err == nil && st.Mode().IsRegular() {
		plugin, err := s.candidate(manifestPath)
		if err != nil {
			s.stats.CandidatesSkipped.Add(1)
			s.logger.Debug("plugin candidate skipped", "manifest", manifestPath, "error", err)
			s.emitDiscovery(DiscoveryEvent{
				Type: EventCandidateSkipped,
				Path: manifestPath,
				Err:  err,
				At:   timecache.CachedTime(),
			})
			return true
		}
		return yield(plugin)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug("directory not readable, skipping", "dir", dir, "error", err)
		return true
	}
	for _, entry := range entries {
		if !s.walk(filepath.Join(dir, entry.Name()), depth+1, yield) {
			return false
		}
	}
	return true
}

// candidate turns one manifest file into a registered plugin: parse
// through the manifest cache, check compatibility, then reuse the known
// plugin of that name or register a new one.
func (s *System[F]) candidate(manifestPath string) (*Plugin[F], error) {
	manifest, cached, err := s.cache.read(manifestPath)
	if err != nil {
		return nil, err
	}
	if cached {
		s.stats.CacheHits.Add(1)
	} else {
		s.stats.ManifestsParsed.Add(1)
	}

	if err := s.EnsureCompatible(manifest); err != nil {
		return nil, err
	}
	if existing, ok := s.plugins[manifest.Info.Name]; ok {
		s.logger.Debug("plugin already registered", "plugin", manifest.Info.Name, "manifest", manifestPath)
		s.emitDiscovery(DiscoveryEvent{
			Type: EventPluginFound,
			Name: manifest.Info.Name,
			Path: manifestPath,
			At:   timecache.CachedTime(),
		})
		return existing, nil
	}
	return s.Register(NewPlugin(s, manifest))
}
