// stats.go: operational counters for discovery and loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sync/atomic"
)

// SystemStats tracks a system's operational counters. All fields are
// atomic so reads from monitoring goroutines never race with a discovery
// or load in progress.
type SystemStats struct {
	DirsScanned       atomic.Int64
	ManifestsParsed   atomic.Int64
	CacheHits         atomic.Int64
	PluginsRegistered atomic.Int64
	CandidatesSkipped atomic.Int64
	PluginsLoaded     atomic.Int64
	LoadFailures      atomic.Int64
}

// SystemStatsSnapshot is a point-in-time copy of the counters, suitable
// for logging or serialization.
type SystemStatsSnapshot struct {
	DirsScanned       int64 `json:"dirs_scanned"`
	ManifestsParsed   int64 `json:"manifests_parsed"`
	CacheHits         int64 `json:"cache_hits"`
	PluginsRegistered int64 `json:"plugins_registered"`
	CandidatesSkipped int64 `json:"candidates_skipped"`
	PluginsLoaded     int64 `json:"plugins_loaded"`
	LoadFailures      int64 `json:"load_failures"`
}

// Snapshot copies the counters. The copy is not atomic across fields;
// each field is individually consistent.
func (s *SystemStats) Snapshot() SystemStatsSnapshot {
	return SystemStatsSnapshot{
		DirsScanned:       s.DirsScanned.Load(),
		ManifestsParsed:   s.ManifestsParsed.Load(),
		CacheHits:         s.CacheHits.Load(),
		PluginsRegistered: s.PluginsRegistered.Load(),
		CandidatesSkipped: s.CandidatesSkipped.Load(),
		PluginsLoaded:     s.PluginsLoaded.Load(),
		LoadFailures:      s.LoadFailures.Load(),
	}
}
