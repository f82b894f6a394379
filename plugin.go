// plugin.go: per-plugin registration and lazy feature access
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"time"
)

// Plugin pairs a manifest with its owning System and, once loaded, the
// validated feature bundle of type F. Up to Load a plugin is pure
// metadata; nothing of its code has executed.
//
// A plugin has exactly two states, discovered and loaded, and only the
// transition between them runs plugin code. The transition is atomic
// from the caller's point of view: either every declared feature
// resolved and validated and Feat returns the bundle, or the plugin
// stays unloaded with a nil bundle. Identity follows the manifest name;
// the registry holds at most one plugin per name.
type Plugin[F any] struct {
	sys      *System[F]
	manifest *Manifest
	features *F
	loadedAt time.Time
}

// NewPlugin wraps a manifest for registration with the given system.
// Compatibility is not checked here; Register does that.
func NewPlugin[F any](sys *System[F], manifest *Manifest) *Plugin[F] {
	return &Plugin[F]{sys: sys, manifest: manifest}
}

// Manifest returns the plugin's static declaration.
func (p *Plugin[F]) Manifest() *Manifest {
	return p.manifest
}

// Name returns the manifest name, the key the plugin registers under.
func (p *Plugin[F]) Name() string {
	return p.manifest.Info.Name
}

// Info returns the plugin's identity block.
func (p *Plugin[F]) Info() ManifestInfo {
	return p.manifest.Info
}

// System returns the registry the plugin belongs to.
func (p *Plugin[F]) System() *System[F] {
	return p.sys
}

// ModuleName returns the logical module name the plugin's code loads
// under: the system namespace joined with the sanitized plugin name.
// Dots in the plugin name survive sanitization, so a plugin called
// "tools.extra" nests inside the namespace.
func (p *Plugin[F]) ModuleName() string {
	return p.sys.Namespace() + "." + sanitizeModuleName(p.Name())
}

// Loaded reports whether the feature bundle has been populated.
func (p *Plugin[F]) Loaded() bool {
	return p.features != nil
}

// LoadedAt returns when the plugin loaded, or the zero time if it has
// not.
func (p *Plugin[F]) LoadedAt() time.Time {
	return p.loadedAt
}

// Load imports the plugin's entry point and binds its declared features
// against the host schema. Loading is idempotent: once the bundle exists
// the call returns immediately and the plugin's code never re-executes.
//
// A failed load leaves the plugin registered and unloaded. When the
// entry point itself imported fine and only feature binding failed, the
// module stays in the runtime registry, so other plugins may still
// import from it.
func (p *Plugin[F]) Load() error {
	return p.sys.load(p)
}

// Feat returns the feature bundle, loading the plugin on first access.
func (p *Plugin[F]) Feat() (*F, error) {
	if p.features == nil {
		if err := p.Load(); err != nil {
			return nil, err
		}
	}
	return p.features, nil
}

// String implements fmt.Stringer for log-friendly output.
func (p *Plugin[F]) String() string {
	state := "discovered"
	if p.Loaded() {
		state = "loaded"
	}
	return fmt.Sprintf("plugin %s v%s (%s)", p.Name(), p.manifest.Info.Version.String(), state)
}
