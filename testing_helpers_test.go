// testing_helpers_test.go: shared fixtures for plugin system tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// helloFeatures is the schema most tests load plugins against: one
// required function feature named "hello".
type helloFeatures struct {
	Hello Ref `feat:"hello" kind:"function"`
}

// newTestSystem builds a system with a fixed identity so compatibility
// results do not depend on the machine running the tests.
func newTestSystem(t *testing.T, paths ...string) *System[helloFeatures] {
	t.Helper()
	sys, err := NewSystem[helloFeatures](SystemConfig{
		Name:      "testhost",
		Version:   "v1.0.0",
		Namespace: "testhost.plugins",
		Platform:  "linux",
		Paths:     paths,
		Logger:    NewTestLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(sys.Close)
	return sys
}

// testSystemLogger returns the TestLogger a newTestSystem system was
// built with.
func testSystemLogger[F any](sys *System[F]) *TestLogger {
	return sys.logger.(*TestLogger)
}

// pluginFixture describes one on-disk plugin for tests. Zero values get
// sensible defaults: sys spec "testhost", version "v1.0.0", entry point
// "lib.lua" defining a hello function, feat {hello: ".lib:hello"}.
type pluginFixture struct {
	Dir     string
	Sys     string
	Name    string
	Version string
	Lib     string
	Feat    map[string]string
	Files   map[string]string

	// RawManifest overrides the generated manifest document entirely.
	RawManifest string
}

const defaultHelloSource = `function hello(name)
  return "Hello, " .. name .. "!"
end
`

// writePluginFixture materializes a plugin directory under root and
// returns the manifest path.
func writePluginFixture(t *testing.T, root string, fx pluginFixture) string {
	t.Helper()

	if fx.Dir == "" {
		fx.Dir = fx.Name
	}
	if fx.Sys == "" {
		fx.Sys = "testhost"
	}
	if fx.Version == "" {
		fx.Version = "v1.0.0"
	}
	if fx.Lib == "" {
		fx.Lib = "lib.lua"
	}
	if fx.Feat == nil {
		fx.Feat = map[string]string{"hello": ".lib:hello"}
	}
	if fx.Files == nil {
		fx.Files = map[string]string{"lib.lua": defaultHelloSource}
	}

	dir := filepath.Join(root, fx.Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, src := range fx.Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}

	manifest := fx.RawManifest
	if manifest == "" {
		doc := map[string]any{
			"sys": fx.Sys,
			"info": map[string]any{
				"name":        fx.Name,
				"author":      "AGILira tests",
				"version":     fx.Version,
				"description": "test plugin " + fx.Name,
			},
			"lib":  fx.Lib,
			"feat": fx.Feat,
		}
		data, err := yaml.Marshal(doc)
		require.NoError(t, err)
		manifest = string(data)
	}

	manifestPath := filepath.Join(dir, DefaultManifestName)
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifest), 0o644))
	return manifestPath
}

// writeScript writes one Lua file and returns its path.
func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// callStringFunc invokes a feature function expected to map one string
// to another.
func callStringFunc(t *testing.T, state *lua.LState, fn *lua.LFunction, arg string) string {
	t.Helper()
	require.NoError(t, state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(arg)))
	ret := state.Get(-1)
	state.Pop(1)
	return lua.LVAsString(ret)
}
