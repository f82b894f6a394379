// errors.go: structured error definitions for the go-pluginhost system
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"strings"

	"github.com/agilira/go-errors"
)

// Error codes for the go-pluginhost system
const (
	// Manifest errors (1000-1099)
	ErrCodeManifestNotFound   = "MANIFEST_1001"
	ErrCodeManifestParse      = "MANIFEST_1002"
	ErrCodeManifestValidation = "MANIFEST_1003"
	ErrCodeManifestRoot       = "MANIFEST_1004"
	ErrCodeManifestLib        = "MANIFEST_1005"

	// Compatibility errors (1100-1199)
	ErrCodeCompatSyntax       = "COMPAT_1101"
	ErrCodeIncompatiblePlugin = "COMPAT_1102"
	ErrCodeInvalidVersion     = "COMPAT_1103"

	// Import and module errors (1200-1299)
	ErrCodeModuleNotFound = "IMPORT_1201"
	ErrCodeImportFailed   = "IMPORT_1202"
	ErrCodeImportCycle    = "IMPORT_1203"
	ErrCodeObjectPath     = "IMPORT_1204"
	ErrCodeRuntimeClosed  = "IMPORT_1205"

	// Feature errors (1300-1399)
	ErrCodeFeatureValidation = "FEATURE_1301"
	ErrCodeFeatureSchema     = "FEATURE_1302"
	ErrCodeEmptyReference    = "FEATURE_1303"
	ErrCodeRefKind           = "FEATURE_1304"

	// Registry errors (1400-1499)
	ErrCodeRegistryError = "REGISTRY_1401"
	ErrCodeNotAPackage   = "REGISTRY_1402"

	// Configuration errors (1500-1599)
	ErrCodeConfigNotFound   = "CONFIG_1501"
	ErrCodeConfigParse      = "CONFIG_1502"
	ErrCodeConfigValidation = "CONFIG_1503"
	ErrCodeConfigWatcher    = "CONFIG_1504"
)

// Manifest error constructors

func NewManifestNotFoundError(path string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeManifestNotFound, "Manifest not found").
			WithUserMessage("The manifest file does not exist or cannot be read").
			WithContext("manifest_path", path).
			WithSeverity("error")
	}
	return errors.New(ErrCodeManifestNotFound, "Manifest not found").
		WithUserMessage("The manifest file does not exist or cannot be read").
		WithContext("manifest_path", path).
		WithSeverity("error")
}

func NewManifestParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeManifestParse, "Manifest parse error").
		WithUserMessage("The manifest file is not a well-formed document").
		WithContext("manifest_path", path).
		WithSeverity("error")
}

func NewManifestValidationError(path, reason string) *errors.Error {
	return errors.New(ErrCodeManifestValidation, "Manifest validation failed: "+reason).
		WithUserMessage("The manifest is missing required fields or has mistyped values").
		WithContext("manifest_path", path).
		WithSeverity("error")
}

func NewManifestRootError(path, root string) *errors.Error {
	return errors.New(ErrCodeManifestRoot, "Manifest root is not an existing directory").
		WithUserMessage("The plugin root directory does not exist").
		WithContext("manifest_path", path).
		WithContext("root", root).
		WithSeverity("error")
}

func NewManifestLibError(path, lib string) *errors.Error {
	return errors.New(ErrCodeManifestLib, "Manifest lib entry point does not exist").
		WithUserMessage("The plugin entry-point file declared by the manifest was not found").
		WithContext("manifest_path", path).
		WithContext("lib", lib).
		WithSeverity("error")
}

// Compatibility error constructors

func NewCompatSyntaxError(spec, detail string) *errors.Error {
	return errors.New(ErrCodeCompatSyntax, "Malformed compatibility spec: "+detail).
		WithUserMessage("The compatibility spec is not a well-formed expression").
		WithContext("spec", spec).
		WithSeverity("error")
}

func NewIncompatiblePluginError(name, spec, host string) *errors.Error {
	return errors.New(ErrCodeIncompatiblePlugin, "Plugin is not compatible with this host").
		WithUserMessage("The plugin declares a compatibility spec this host does not satisfy").
		WithContext("plugin_name", name).
		WithContext("spec", spec).
		WithContext("host", host).
		WithSeverity("warning")
}

func NewInvalidVersionError(version string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInvalidVersion, "Invalid version string").
			WithUserMessage("The version string is not a valid semantic version").
			WithContext("version", version).
			WithSeverity("error")
	}
	return errors.New(ErrCodeInvalidVersion, "Invalid version string").
		WithUserMessage("The version string is not a valid semantic version").
		WithContext("version", version).
		WithSeverity("error")
}

// Import error constructors

func NewModuleNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeModuleNotFound, "Module not found").
		WithUserMessage("No loaded or importable module matches the requested name").
		WithContext("module", name).
		WithSeverity("error")
}

func NewImportError(name, path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeImportFailed, "Module import failed").
		WithUserMessage("The module source failed to load or execute").
		WithContext("module", name).
		WithContext("path", path).
		WithSeverity("error")
}

func NewImportCycleError(name, path string) *errors.Error {
	return errors.New(ErrCodeImportCycle, "Import cycle detected").
		WithUserMessage("The module is already being imported higher up the call chain").
		WithContext("module", name).
		WithContext("path", path).
		WithSeverity("error")
}

func NewObjectPathError(path, detail string) *errors.Error {
	return errors.New(ErrCodeObjectPath, "Object path resolution failed: "+detail).
		WithUserMessage("The object path does not denote a reachable object").
		WithContext("object_path", path).
		WithSeverity("error")
}

func NewRuntimeClosedError() *errors.Error {
	return errors.New(ErrCodeRuntimeClosed, "Runtime is closed").
		WithUserMessage("The script runtime has been closed and cannot execute code").
		WithSeverity("error")
}

// Feature error constructors

func NewFeatureValidationError(plugin, feature string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeFeatureValidation, "Feature validation failed").
			WithUserMessage("A declared feature did not resolve or type-check against the host schema").
			WithContext("plugin_name", plugin).
			WithContext("feature", feature).
			WithSeverity("error")
	}
	return errors.New(ErrCodeFeatureValidation, "Feature validation failed").
		WithUserMessage("A declared feature did not resolve or type-check against the host schema").
		WithContext("plugin_name", plugin).
		WithContext("feature", feature).
		WithSeverity("error")
}

func NewFeatureSchemaError(typeName, field, reason string) *errors.Error {
	return errors.New(ErrCodeFeatureSchema, "Invalid feature schema: "+reason).
		WithUserMessage("The host feature schema type cannot be compiled").
		WithContext("schema_type", typeName).
		WithContext("field", field).
		WithSeverity("error")
}

func NewEmptyReferenceError() *errors.Error {
	return errors.New(ErrCodeEmptyReference, "Empty reference").
		WithUserMessage("The reference holds no value or its weak referent was collected").
		WithSeverity("error")
}

func NewRefKindError(expected, actual string) *errors.Error {
	return errors.New(ErrCodeRefKind, "Reference holds a different kind of value").
		WithUserMessage("The referent does not have the requested kind").
		WithContext("expected", expected).
		WithContext("actual", actual).
		WithSeverity("error")
}

// Registry error constructors

func NewRegistryError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeRegistryError, "Registry error: "+message).
			WithUserMessage("Plugin registry operation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeRegistryError, "Registry error: "+message).
		WithUserMessage("Plugin registry operation failed").
		WithSeverity("error")
}

func NewNotAPackageError(name string) *errors.Error {
	return errors.New(ErrCodeNotAPackage, "Module is not a directory-backed package").
		WithUserMessage("Search paths can only be extended from packages with directories").
		WithContext("module", name).
		WithSeverity("error")
}

// Configuration error constructors

func NewConfigNotFoundError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("The configuration file does not exist or cannot be read").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Failed to parse the configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidation, message).
			WithUserMessage("Configuration validation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidation, message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigWatcher, "Config watcher error: "+message).
			WithUserMessage("Configuration watching failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigWatcher, "Config watcher error: "+message).
		WithUserMessage("Configuration watching failed").
		WithSeverity("error")
}

// Error classification helpers
//
// Callers branch on error families rather than individual codes; the
// code prefix encodes the family. ErrorCode exposes the exact code for
// logging and tests.

// ErrorCode extracts the structured code from any error produced by this
// package, or "" for foreign errors.
func ErrorCode(err error) string {
	if structured, ok := err.(*errors.Error); ok {
		return string(structured.Code)
	}
	return ""
}

// IsManifestError reports whether err is a manifest read, parse or
// validation failure.
func IsManifestError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "MANIFEST_")
}

// IsCompatibilityError reports whether err is a compatibility spec
// failure: malformed spec or incompatible plugin.
func IsCompatibilityError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "COMPAT_")
}

// IsImportError reports whether err came from module import or object
// path resolution.
func IsImportError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "IMPORT_")
}

// IsModuleNotFound reports whether err is specifically a missing-module
// failure.
func IsModuleNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeModuleNotFound
}

// IsFeatureError reports whether err is a feature schema or validation
// failure.
func IsFeatureError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "FEATURE_")
}

// IsRegistryError reports whether err is a plugin or module registry
// failure.
func IsRegistryError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "REGISTRY_")
}

// IsConfigError reports whether err is a configuration failure.
func IsConfigError(err error) bool {
	return strings.HasPrefix(ErrorCode(err), "CONFIG_")
}
