// config.go: system configuration with file, environment and default sources
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/agilira/argus"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// SystemConfig describes a plugin system before construction: the host
// identity plugins target in their sys specs, the namespace their code
// loads under, the search roots and the discovery tuning knobs.
//
// Configurations load from three sources with identical shapes: Go
// literals, YAML or JSON files (LoadSystemConfigFromFile) and
// PLUGINHOST_* environment variables (SystemConfigFromEnv).
type SystemConfig struct {
	// Name is the host name plugins address, the first token of every
	// compatibility spec.
	Name string `json:"name" yaml:"name" env:"PLUGINHOST_NAME"`

	// Version is the host's semantic version, matched against minimum
	// version requirements in compatibility specs.
	Version string `json:"version" yaml:"version" env:"PLUGINHOST_VERSION"`

	// Namespace is the dotted module prefix plugin code loads under.
	Namespace string `json:"namespace" yaml:"namespace" env:"PLUGINHOST_NAMESPACE"`

	// Platform overrides the host platform identifier used for the
	// platform clause of compatibility specs. Defaults to runtime.GOOS.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty" env:"PLUGINHOST_PLATFORM"`

	// ManifestName overrides the manifest filename discovery looks for.
	ManifestName string `json:"manifest_name,omitempty" yaml:"manifest_name,omitempty" env:"PLUGINHOST_MANIFEST_NAME"`

	// Paths are the initial search roots, in discovery order.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty" env:"PLUGINHOST_PATHS" envSeparator:":"`

	// MaxDepth bounds the discovery walk below each search root.
	MaxDepth int `json:"max_depth,omitempty" yaml:"max_depth,omitempty" env:"PLUGINHOST_MAX_DEPTH"`

	// CacheSize bounds the manifest cache entry count.
	CacheSize int `json:"cache_size,omitempty" yaml:"cache_size,omitempty" env:"PLUGINHOST_CACHE_SIZE"`

	// CacheTTL bounds how long a parsed manifest is served without
	// re-checking the file.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty" env:"PLUGINHOST_CACHE_TTL"`

	// FullStdlib opens the complete Lua standard library in the script
	// runtime instead of the safe subset. Off by default.
	FullStdlib bool `json:"full_stdlib,omitempty" yaml:"full_stdlib,omitempty" env:"PLUGINHOST_FULL_STDLIB"`

	// Logger receives structured diagnostics. Accepts the same values as
	// NewLogger; nil means no logging.
	Logger any `json:"-" yaml:"-" env:"-"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultMaxDepth  = 32
	DefaultCacheSize = 128
	DefaultCacheTTL  = 5 * time.Minute
)

// ApplyDefaults fills unset optional fields with production defaults.
// Required identity fields (Name, Version, Namespace) are never
// defaulted; Validate reports them.
func (c *SystemConfig) ApplyDefaults() {
	if c.Platform == "" {
		c.Platform = runtime.GOOS
	}
	if c.ManifestName == "" {
		c.ManifestName = DefaultManifestName
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// Validate checks the configuration for semantic correctness. Call after
// ApplyDefaults; NewSystem does both.
func (c *SystemConfig) Validate() error {
	if c.Name == "" {
		return NewConfigValidationError("name is required", nil)
	}
	if c.Version == "" {
		return NewConfigValidationError("version is required", nil)
	}
	if _, err := ParseVersion(c.Version); err != nil {
		return NewConfigValidationError("version is not a valid semantic version", err)
	}
	if c.Namespace == "" {
		return NewConfigValidationError("namespace is required", nil)
	}
	if _, err := splitDottedPath(c.Namespace); err != nil {
		return NewConfigValidationError("namespace is not a valid dotted module path", err)
	}
	if filepath.Base(c.ManifestName) != c.ManifestName {
		return NewConfigValidationError("manifest_name must be a bare file name", nil)
	}
	if c.MaxDepth <= 0 {
		return NewConfigValidationError("max_depth must be positive", nil)
	}
	return nil
}

// LoadSystemConfigFromFile reads a system configuration from a YAML or
// JSON file, detecting the format from the extension. Unknown keys are
// rejected so a typo cannot silently disable a setting.
func LoadSystemConfigFromFile(path string) (*SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigNotFoundError(path, err)
	}

	var config SystemConfig
	switch format := argus.DetectFormat(path); format {
	case argus.FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&config); err != nil {
			return nil, NewConfigParseError(path, err)
		}
	case argus.FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return nil, NewConfigParseError(path, err)
		}
	default:
		return nil, NewConfigParseError(path, fmt.Errorf("unsupported config format: %s", format))
	}
	return &config, nil
}

// SystemConfigFromEnv builds a system configuration from PLUGINHOST_*
// environment variables. Unset variables leave fields at their zero
// values for ApplyDefaults to fill.
func SystemConfigFromEnv() (*SystemConfig, error) {
	var config SystemConfig
	if err := env.Parse(&config); err != nil {
		return nil, NewConfigValidationError("failed to parse environment configuration", err)
	}
	return &config, nil
}

// NewSystemFromFile is a convenience constructor combining
// LoadSystemConfigFromFile and NewSystem.
func NewSystemFromFile[F any](path string) (*System[F], error) {
	config, err := LoadSystemConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewSystem[F](*config)
}

// NewSystemFromEnv is a convenience constructor combining
// SystemConfigFromEnv and NewSystem.
func NewSystemFromEnv[F any]() (*System[F], error) {
	config, err := SystemConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSystem[F](*config)
}
