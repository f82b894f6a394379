// version.go: semantic version parsing and comparison for hosts and manifests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version represents a semantic version with comparison capabilities.
//
// It supports semantic versioning (semver) with major, minor and patch
// components plus optional prerelease and build metadata. Version strings
// may carry a leading "v" or "V" and may omit trailing components, so
// "v1", "1.2" and "1.2.3-beta.1+build.5" are all accepted; omitted
// components default to zero.
//
// Example usage:
//
//	v1, _ := ParseVersion("v1.2.3-beta.1")
//	v2, _ := ParseVersion("1.2.4")
//	if v1.Compare(v2) < 0 {
//	    // v1 predates v2
//	}
type Version struct {
	Major      uint64 `json:"major"`
	Minor      uint64 `json:"minor"`
	Patch      uint64 `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
	Build      string `json:"build,omitempty"`
	Original   string `json:"original"`
}

// ParseVersion parses a semantic version string.
func ParseVersion(versionStr string) (Version, error) {
	if versionStr == "" {
		return Version{}, NewInvalidVersionError(versionStr, nil)
	}

	core := strings.TrimPrefix(strings.TrimPrefix(versionStr, "v"), "V")
	if core == "" {
		return Version{}, NewInvalidVersionError(versionStr, nil)
	}

	var build, prerelease string
	if idx := strings.Index(core, "+"); idx >= 0 {
		core, build = core[:idx], core[idx+1:]
	}
	if idx := strings.Index(core, "-"); idx >= 0 {
		core, prerelease = core[:idx], core[idx+1:]
	}

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return Version{}, NewInvalidVersionError(versionStr, nil)
	}

	components := [3]uint64{}
	names := [3]string{"major", "minor", "patch"}
	for i, part := range parts {
		value, err := parseVersionComponent(part, names[i])
		if err != nil {
			return Version{}, NewInvalidVersionError(versionStr, err)
		}
		components[i] = value
	}

	return Version{
		Major:      components[0],
		Minor:      components[1],
		Patch:      components[2],
		Prerelease: prerelease,
		Build:      build,
		Original:   versionStr,
	}, nil
}

// parseVersionComponent parses a single numeric version component.
func parseVersionComponent(component, componentType string) (uint64, error) {
	value, err := strconv.ParseUint(component, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s component %q: %w", componentType, component, err)
	}
	return value, nil
}

// Compare compares two versions. Returns -1, 0, or 1.
//
// Build metadata is ignored, matching semver precedence rules. A release
// version ranks above any prerelease of the same numeric triple.
func (v Version) Compare(other Version) int {
	if result := compareComponent(v.Major, other.Major); result != 0 {
		return result
	}
	if result := compareComponent(v.Minor, other.Minor); result != 0 {
		return result
	}
	if result := compareComponent(v.Patch, other.Patch); result != 0 {
		return result
	}
	return v.comparePrerelease(other)
}

// compareComponent compares two uint64 version components.
func compareComponent(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// comparePrerelease compares prerelease identifiers (simplified).
func (v Version) comparePrerelease(other Version) int {
	if v.Prerelease == "" && other.Prerelease != "" {
		return 1 // Release > prerelease
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1 // Prerelease < release
	}
	return strings.Compare(v.Prerelease, other.Prerelease)
}

// String returns the canonical string form of the version.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// UnmarshalYAML decodes a version from a YAML scalar such as "v1.2.3".
func (v *Version) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseVersion(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the version as its original string when available.
func (v Version) MarshalYAML() (interface{}, error) {
	if v.Original != "" {
		return v.Original, nil
	}
	return v.String(), nil
}
