// Package pluginhost provides manifest-driven discovery and lazy loading
// of script plugins for Go host applications. Plugins are directories
// holding a declarative manifest and Lua code; the host describes the
// features it expects as a typed schema and receives validated handles
// to the objects plugins export.
//
// Key Features:
//   - Declarative YAML manifests with identity, compatibility and feature declarations
//   - Compatibility gating by host name, minimum version and platform expression
//   - Recursive filesystem discovery with manifest caching and skip-on-failure semantics
//   - Lazy, idempotent loading: plugin code executes on first feature access
//   - Sandboxed embedded Lua runtime with per-module environments and import-once identity
//   - Type-safe feature bundles using Go generics, validated by reflection schemas
//   - Hot-reloading of host configuration with audit trail
//   - Structured logging and atomic operational counters
//
// Basic Usage:
//
//	// Declare the features your host expects plugins to provide
//	type Features struct {
//		Greet pluginhost.Ref `feat:"hello" kind:"function"`
//	}
//
//	// Create the plugin system
//	sys, err := pluginhost.NewSystem[Features](pluginhost.SystemConfig{
//		Name:      "myhost",
//		Version:   "v1.2.0",
//		Namespace: "myhost.plugins",
//		Paths:     []string{"/usr/lib/myhost/plugins"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sys.Close()
//
//	// Discover and load plugins lazily
//	for plugin := range sys.Discover() {
//		feat, err := plugin.Feat()
//		if err != nil {
//			continue
//		}
//		greet, _ := feat.Greet.AsFunction()
//		_ = greet // call through sys.Runtime().State()
//	}
//
// Discovery walks each search root depth-first; a directory containing a
// manifest file is a plugin root and its subtree is never descended
// into. Candidates that fail to read, parse or match the host are
// skipped and counted, never fatal, so one broken plugin cannot take
// down the host's startup.
//
// Isolation:
// Plugin code runs in one embedded interpreter with io, os and debug
// closed by default. Each module executes in its own environment table,
// so plugin globals never collide; a file executes at most once per
// runtime and keeps object identity across module aliases.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package pluginhost
