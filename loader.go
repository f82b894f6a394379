// loader.go: plugin feature loading against the host schema
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"github.com/agilira/go-timecache"
	lua "github.com/yuin/gopher-lua"
)

// load performs the discovered-to-loaded transition for one plugin:
// import the entry point under the plugin's module name, resolve every
// declared feature expression, then bind the resolved values against the
// host schema. The bundle is stored only after all three steps succeed,
// so a failed load leaves the plugin observably unloaded.
//
// Error taxonomy matches the split between host bugs and plugin bugs:
// import failures mean the host pointed the loader at a broken entry
// point and propagate as import errors; a feature expression that does
// not resolve, or resolves to the wrong kind of value, is the plugin
// author's fault and surfaces as a feature validation error. Either way
// the module registry keeps whatever imported successfully, so a plugin
// with a broken feature table can still serve imports to others.
func (s *System[F]) load(p *Plugin[F]) error {
	if p.features != nil {
		return nil
	}

	moduleName := p.ModuleName()
	if _, ok := s.runtime.Lookup(moduleName); !ok {
		if _, err := s.runtime.ImportFrom(p.manifest.LibPath(), moduleName); err != nil {
			s.stats.LoadFailures.Add(1)
			s.logger.Warn("plugin entry point failed to import",
				"plugin", p.Name(),
				"module", moduleName,
				"lib", p.manifest.LibPath(),
				"error", err)
			return err
		}
	}

	resolved := make(map[string]lua.LValue, len(p.manifest.Feat))
	for feature, expr := range p.manifest.Feat {
		value, err := s.runtime.ResolveObject(AbsolutizeObjectPath(expr, moduleName))
		if err != nil {
			s.stats.LoadFailures.Add(1)
			s.logger.Warn("plugin feature did not resolve",
				"plugin", p.Name(),
				"feature", feature,
				"expr", expr,
				"error", err)
			return NewFeatureValidationError(p.Name(), feature, err)
		}
		resolved[feature] = value
	}

	bundle, err := s.schema.bind(p.Name(), resolved)
	if err != nil {
		s.stats.LoadFailures.Add(1)
		s.logger.Warn("plugin feature bundle failed validation",
			"plugin", p.Name(),
			"error", err)
		return err
	}

	p.features = bundle
	p.loadedAt = timecache.CachedTime()
	s.stats.PluginsLoaded.Add(1)
	s.logger.Info("plugin loaded",
		"plugin", p.Name(),
		"module", moduleName,
		"features", len(resolved))
	return nil
}
