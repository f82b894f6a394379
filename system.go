// system.go: the plugin system registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sort"

	"github.com/agilira/go-timecache"
)

// System coordinates plugin discovery and loading for one host
// application. It owns the search paths, the compatibility identity
// (host name, version and platform), the namespace plugin code loads
// under, the feature schema F and the name-keyed table of known plugins.
//
// The plugin table only grows during a session: entries are never
// removed, and incompatible or malformed candidates are simply never
// registered. A System is not safe for concurrent use; discovery and
// loading mutate the table without locking, so hosts that share one
// across goroutines must bring their own synchronization. The embedded
// script runtime carries its own lock either way.
type System[F any] struct {
	name         string
	version      Version
	namespace    string
	platform     string
	manifestName string
	maxDepth     int

	platformAliases map[string]struct{}

	paths   []string
	plugins map[string]*Plugin[F]

	schema   *featureSchema[F]
	runtime  *Runtime
	cache    *manifestCache
	logger   Logger
	stats    SystemStats
	handlers []DiscoveryHandler
}

// NewSystem builds a plugin system from the given configuration. The
// feature schema type F is compiled here, so a malformed schema fails
// construction rather than the first load.
func NewSystem[F any](config SystemConfig) (*System[F], error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	version, err := ParseVersion(config.Version)
	if err != nil {
		return nil, err
	}
	schema, err := compileFeatureSchema[F]()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(config.Logger)
	runtimeOpts := []RuntimeOption{WithRuntimeLogger(logger)}
	if config.FullStdlib {
		runtimeOpts = append(runtimeOpts, WithFullStdlib())
	}

	sys := &System[F]{
		name:            config.Name,
		version:         version,
		namespace:       config.Namespace,
		platform:        config.Platform,
		manifestName:    config.ManifestName,
		maxDepth:        config.MaxDepth,
		platformAliases: platformAliasSet(config.Platform),
		plugins:         make(map[string]*Plugin[F]),
		schema:          schema,
		runtime:         NewRuntime(runtimeOpts...),
		cache:           newManifestCache(config.CacheSize, config.CacheTTL),
		logger:          logger,
	}
	sys.ExtendPath(config.Paths...)

	logger.Debug("plugin system created",
		"name", sys.name,
		"version", sys.version.String(),
		"namespace", sys.namespace,
		"platform", sys.platform,
		"paths", len(sys.paths))
	return sys, nil
}

// Name returns the host name plugins target in their sys specs.
func (s *System[F]) Name() string {
	return s.name
}

// Version returns the host version compatibility is evaluated against.
func (s *System[F]) Version() Version {
	return s.version
}

// Namespace returns the module namespace plugin code loads under.
func (s *System[F]) Namespace() string {
	return s.namespace
}

// Platform returns the host platform identifier.
func (s *System[F]) Platform() string {
	return s.platform
}

// ManifestName returns the manifest filename discovery looks for.
func (s *System[F]) ManifestName() string {
	return s.manifestName
}

// Runtime returns the embedded script runtime. Hosts use it to register
// modules for plugin code to import and to call feature functions.
func (s *System[F]) Runtime() *Runtime {
	return s.runtime
}

// ExtendPath appends search roots for subsequent discovery runs and
// returns the system for chaining. Paths are kept as given, in order;
// missing or unreadable roots are skipped during discovery, not here.
func (s *System[F]) ExtendPath(dirs ...string) *System[F] {
	s.paths = append(s.paths, dirs...)
	return s
}

// ExtendPathPackage appends the directory backing a registered package
// module to the search paths. Only directory-backed packages qualify; a
// name bound to a plain file module fails with a registry error, an
// unknown name with a module-not-found error.
func (s *System[F]) ExtendPathPackage(name string) error {
	module, ok := s.runtime.Lookup(name)
	if !ok {
		return NewModuleNotFoundError(name)
	}
	if !module.IsPackage() {
		return NewNotAPackageError(name)
	}
	s.ExtendPath(module.Dir())
	s.logger.Debug("search path extended from package", "module", name, "dir", module.Dir())
	return nil
}

// SearchPaths returns a copy of the current search roots.
func (s *System[F]) SearchPaths() []string {
	paths := make([]string, len(s.paths))
	copy(paths, s.paths)
	return paths
}

// Register validates a plugin's compatibility spec and inserts it under
// its manifest name. Registering a second plugin under an existing name
// replaces the entry, so hosts can override a discovered plugin with a
// hand-built one.
func (s *System[F]) Register(p *Plugin[F]) (*Plugin[F], error) {
	if err := s.EnsureCompatible(p.Manifest()); err != nil {
		return nil, err
	}
	s.plugins[p.Name()] = p
	s.stats.PluginsRegistered.Add(1)
	s.logger.Info("plugin registered",
		"plugin", p.Name(),
		"version", p.Info().Version.String(),
		"root", p.Manifest().Root)
	s.emitDiscovery(DiscoveryEvent{
		Type: EventPluginRegistered,
		Name: p.Name(),
		Path: p.Manifest().Path,
		At:   timecache.CachedTime(),
	})
	return p, nil
}

// Plugin returns the registered plugin of the given name.
func (s *System[F]) Plugin(name string) (*Plugin[F], bool) {
	p, ok := s.plugins[name]
	return p, ok
}

// Plugins returns a copy of the name-keyed plugin table.
func (s *System[F]) Plugins() map[string]*Plugin[F] {
	plugins := make(map[string]*Plugin[F], len(s.plugins))
	for name, p := range s.plugins {
		plugins[name] = p
	}
	return plugins
}

// PluginNames returns the registered plugin names, sorted.
func (s *System[F]) PluginNames() []string {
	names := make([]string, 0, len(s.plugins))
	for name := range s.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a snapshot of the system's operational counters.
func (s *System[F]) Stats() SystemStatsSnapshot {
	return s.stats.Snapshot()
}

// Close releases the script runtime and drops cached manifests.
// Registered plugins stay readable but can no longer load features.
func (s *System[F]) Close() {
	s.runtime.Close()
	s.cache.purge()
	s.logger.Debug("plugin system closed", "name", s.name)
}
