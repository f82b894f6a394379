// manifest.go: static plugin manifest parsing and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-timecache"
	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the manifest filename convention: one file with
// this name per plugin root directory.
const DefaultManifestName = ".plugin.yml"

// ManifestInfo is the identity block of a plugin manifest.
//
// It is an immutable value constructed from parsed manifest data; License
// defaults to "<none>" when the manifest omits it.
type ManifestInfo struct {
	Name        string  `json:"name" yaml:"name"`
	Author      string  `json:"author" yaml:"author"`
	Version     Version `json:"version" yaml:"version"`
	Description string  `json:"description" yaml:"description"`
	License     string  `json:"license" yaml:"license"`
}

// Manifest is one plugin's static declaration, read from its manifest
// file and immutable afterward.
//
// Fields:
//   - Root: absolute plugin root directory (the manifest file's parent)
//   - Path: the manifest file the declaration was read from
//   - Sys: compatibility spec string gating registration
//   - Info: plugin identity
//   - Lib: path to the entry-point source, relative to Root
//   - Feat: feature name to object-path expression mapping
type Manifest struct {
	Root string            `json:"root" yaml:"-"`
	Path string            `json:"path" yaml:"-"`
	Sys  string            `json:"sys" yaml:"sys"`
	Info ManifestInfo      `json:"info" yaml:"info"`
	Lib  string            `json:"lib" yaml:"lib"`
	Feat map[string]string `json:"feat" yaml:"feat"`

	// DiscoveredAt records when the manifest was read.
	DiscoveredAt time.Time `json:"discovered_at" yaml:"-"`
}

// manifestDoc mirrors the manifest document with pointer fields so that
// missing required keys are distinguishable from zero values.
type manifestDoc struct {
	Sys  *string           `yaml:"sys"`
	Info *manifestInfoDoc  `yaml:"info"`
	Lib  *string           `yaml:"lib"`
	Feat map[string]string `yaml:"feat"`
}

type manifestInfoDoc struct {
	Name        *string  `yaml:"name"`
	Author      *string  `yaml:"author"`
	Version     *Version `yaml:"version"`
	Description *string  `yaml:"description"`
	License     string   `yaml:"license"`
}

// ReadManifest reads and validates a plugin manifest file.
//
// The manifest must be a YAML document with required keys sys, info
// (name, author, version, description, optional license), lib and feat.
// The plugin root is the manifest file's parent directory, resolved
// absolute; both the root and the lib entry point must exist on disk at
// read time. Violations surface as manifest errors and are never
// silently recovered here; the discovery walk is the layer that treats
// them as "not a plugin".
func ReadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, NewManifestNotFoundError(path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, NewManifestNotFoundError(abs, err)
	}

	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewManifestParseError(abs, err)
	}

	if err := validateManifestDoc(abs, &doc); err != nil {
		return nil, err
	}

	root := filepath.Dir(abs)
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return nil, NewManifestRootError(abs, root)
	}

	lib := filepath.FromSlash(*doc.Lib)
	if err := validateLibPath(abs, root, lib); err != nil {
		return nil, err
	}

	info := ManifestInfo{
		Name:        *doc.Info.Name,
		Author:      *doc.Info.Author,
		Version:     *doc.Info.Version,
		Description: *doc.Info.Description,
		License:     doc.Info.License,
	}
	if info.License == "" {
		info.License = "<none>"
	}

	return &Manifest{
		Root:         root,
		Path:         abs,
		Sys:          *doc.Sys,
		Info:         info,
		Lib:          lib,
		Feat:         doc.Feat,
		DiscoveredAt: timecache.CachedTime(),
	}, nil
}

// validateManifestDoc checks that every required manifest key is present.
func validateManifestDoc(path string, doc *manifestDoc) error {
	switch {
	case doc.Sys == nil:
		return NewManifestValidationError(path, "missing required key \"sys\"")
	case doc.Info == nil:
		return NewManifestValidationError(path, "missing required key \"info\"")
	case doc.Lib == nil:
		return NewManifestValidationError(path, "missing required key \"lib\"")
	case doc.Feat == nil:
		return NewManifestValidationError(path, "missing required key \"feat\"")
	case doc.Info.Name == nil || *doc.Info.Name == "":
		return NewManifestValidationError(path, "missing required key \"info.name\"")
	case doc.Info.Author == nil:
		return NewManifestValidationError(path, "missing required key \"info.author\"")
	case doc.Info.Version == nil:
		return NewManifestValidationError(path, "missing required key \"info.version\"")
	case doc.Info.Description == nil:
		return NewManifestValidationError(path, "missing required key \"info.description\"")
	}
	return nil
}

// validateLibPath ensures the entry point exists and stays inside the
// plugin root. Relative components that escape the root are rejected so a
// manifest cannot point the loader at arbitrary files.
func validateLibPath(manifestPath, root, lib string) error {
	if lib == "" {
		return NewManifestValidationError(manifestPath, "key \"lib\" must not be empty")
	}
	if filepath.IsAbs(lib) {
		return NewManifestValidationError(manifestPath, "key \"lib\" must be a relative path")
	}

	full := filepath.Clean(filepath.Join(root, lib))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return NewManifestValidationError(manifestPath, "key \"lib\" escapes the plugin root")
	}

	if _, err := os.Stat(full); err != nil {
		return NewManifestLibError(manifestPath, lib)
	}
	return nil
}

// LibPath returns the absolute path of the plugin's entry point.
func (m *Manifest) LibPath() string {
	return filepath.Join(m.Root, m.Lib)
}

// Name returns the manifest's plugin name, the identity plugins are
// registered under.
func (m *Manifest) Name() string {
	return m.Info.Name
}
