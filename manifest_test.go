// manifest_test.go: tests for manifest parsing and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadManifest_Valid(t *testing.T) {
	root := t.TempDir()
	path := writePluginFixture(t, root, pluginFixture{Name: "greeter"})

	m, err := ReadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "greeter", m.Name())
	assert.Equal(t, "testhost", m.Sys)
	assert.Equal(t, "AGILira tests", m.Info.Author)
	assert.Equal(t, "1.0.0", m.Info.Version.String())
	assert.Equal(t, "test plugin greeter", m.Info.Description)
	assert.Equal(t, "<none>", m.Info.License, "license defaults when omitted")
	assert.Equal(t, "lib.lua", m.Lib)
	assert.Equal(t, map[string]string{"hello": ".lib:hello"}, m.Feat)

	assert.True(t, filepath.IsAbs(m.Root))
	assert.True(t, filepath.IsAbs(m.Path))
	assert.Equal(t, m.Root, filepath.Dir(m.Path))
	assert.Equal(t, filepath.Join(m.Root, "lib.lua"), m.LibPath())
	assert.WithinDuration(t, time.Now(), m.DiscoveredAt, 5*time.Second)
}

func TestReadManifest_ExplicitLicense(t *testing.T) {
	root := t.TempDir()
	path := writePluginFixture(t, root, pluginFixture{
		Name: "licensed",
		RawManifest: `sys: testhost
info:
  name: licensed
  author: AGILira tests
  version: v1.0.0
  description: licensed plugin
  license: MPL-2.0
lib: lib.lua
feat:
  hello: ".lib:hello"
`,
		Files: map[string]string{"lib.lua": defaultHelloSource},
	})

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "MPL-2.0", m.Info.License)
}

func TestReadManifest_MissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "nope", DefaultManifestName))
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifestNotFound, ErrorCode(err))
	assert.True(t, IsManifestError(err))
}

func TestReadManifest_ParseError(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, DefaultManifestName)
	require.NoError(t, os.WriteFile(path, []byte("sys: [unclosed\n"), 0o644))

	_, err := ReadManifest(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifestParse, ErrorCode(err))
}

func TestReadManifest_MissingRequiredKeys(t *testing.T) {
	// Each case drops one key (or one info sub-key) from an otherwise
	// complete document and expects a validation error naming it.
	cases := map[string]string{
		"sys":              "info:\n  name: p\n  author: a\n  version: v1.0.0\n  description: d\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
		"info":             "sys: testhost\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
		"lib":              "sys: testhost\ninfo:\n  name: p\n  author: a\n  version: v1.0.0\n  description: d\nfeat:\n  hello: \".lib:hello\"\n",
		"feat":             "sys: testhost\ninfo:\n  name: p\n  author: a\n  version: v1.0.0\n  description: d\nlib: lib.lua\n",
		"info.name":        "sys: testhost\ninfo:\n  author: a\n  version: v1.0.0\n  description: d\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
		"info.author":      "sys: testhost\ninfo:\n  name: p\n  version: v1.0.0\n  description: d\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
		"info.version":     "sys: testhost\ninfo:\n  name: p\n  author: a\n  description: d\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
		"info.description": "sys: testhost\ninfo:\n  name: p\n  author: a\n  version: v1.0.0\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n",
	}

	for missing, doc := range cases {
		t.Run(missing, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir, "lib.lua", defaultHelloSource)
			path := filepath.Join(dir, DefaultManifestName)
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

			_, err := ReadManifest(path)
			require.Error(t, err)
			assert.Equal(t, ErrCodeManifestValidation, ErrorCode(err))
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestReadManifest_EmptyName(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib.lua", defaultHelloSource)
	path := filepath.Join(dir, DefaultManifestName)
	doc := "sys: testhost\ninfo:\n  name: \"\"\n  author: a\n  version: v1.0.0\n  description: d\nlib: lib.lua\nfeat:\n  hello: \".lib:hello\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := ReadManifest(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeManifestValidation, ErrorCode(err))
}

func TestReadManifest_LibValidation(t *testing.T) {
	t.Run("absolute_path_rejected", func(t *testing.T) {
		root := t.TempDir()
		path := writePluginFixture(t, root, pluginFixture{Name: "abs", Lib: "/etc/passwd"})

		_, err := ReadManifest(path)
		require.Error(t, err)
		assert.Equal(t, ErrCodeManifestValidation, ErrorCode(err))
	})

	t.Run("escaping_path_rejected", func(t *testing.T) {
		root := t.TempDir()
		writeScript(t, root, "outside.lua", defaultHelloSource)
		path := writePluginFixture(t, root, pluginFixture{Name: "escape", Lib: "../outside.lua"})

		_, err := ReadManifest(path)
		require.Error(t, err)
		assert.Equal(t, ErrCodeManifestValidation, ErrorCode(err))
	})

	t.Run("missing_entry_point", func(t *testing.T) {
		root := t.TempDir()
		path := writePluginFixture(t, root, pluginFixture{Name: "ghost", Lib: "missing.lua"})

		_, err := ReadManifest(path)
		require.Error(t, err)
		assert.Equal(t, ErrCodeManifestLib, ErrorCode(err))
	})

	t.Run("dot_lib_is_the_root", func(t *testing.T) {
		root := t.TempDir()
		path := writePluginFixture(t, root, pluginFixture{
			Name:  "pkg",
			Lib:   ".",
			Files: map[string]string{InitFileName: defaultHelloSource},
		})

		m, err := ReadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, m.Root, filepath.Clean(m.LibPath()))
	})
}
