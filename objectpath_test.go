// objectpath_test.go: tests for object-path expressions and name transforms
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already_clean", input: "hello", expected: "hello"},
		{name: "space", input: "a b", expected: "a_b"},
		{name: "hyphen", input: "my-plugin", expected: "my_plugin"},
		{name: "dot_replaced", input: "a.b", expected: "a_b"},
		{name: "symbols", input: "a@b!c", expected: "a_b_c"},
		{name: "unicode", input: "caffè", expected: "caff_"},
		{name: "digits_kept", input: "plugin2", expected: "plugin2"},
		{name: "underscore_kept", input: "a_b", expected: "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestSanitizeModuleName(t *testing.T) {
	// The loader variant keeps dots so plugin names can nest modules.
	assert.Equal(t, "a.b", sanitizeModuleName("a.b"))
	assert.Equal(t, "tools.my_extra", sanitizeModuleName("tools.my-extra"))
	assert.Equal(t, "a_b", sanitizeModuleName("a b"))
}

func TestAbsolutizeObjectPath(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		root     string
		expected string
	}{
		{name: "absolute_unchanged", expr: "a.b:c", root: "root", expected: "a.b:c"},
		{name: "absolute_module_only", expr: "a.b", root: "root", expected: "a.b"},
		{name: "dot_is_root", expr: ".", root: "ns.plug", expected: "ns.plug"},
		{name: "root_attribute", expr: ".:x", root: "ns.plug", expected: "ns.plug:x"},
		{name: "submodule", expr: ".sub", root: "ns.plug", expected: "ns.plug.sub"},
		{name: "submodule_attribute", expr: ".sub:obj", root: "ns.plug", expected: "ns.plug.sub:obj"},
		{name: "nested_attribute", expr: ".lib:a.b", root: "ns.plug", expected: "ns.plug.lib:a.b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AbsolutizeObjectPath(tt.expr, tt.root))
		})
	}
}

func TestSplitObjectPath(t *testing.T) {
	t.Run("module_and_attribute", func(t *testing.T) {
		mod, attr, err := splitObjectPath("a.b:c.d")
		require.NoError(t, err)
		assert.Equal(t, "a.b", mod)
		assert.Equal(t, "c.d", attr)
	})

	t.Run("module_only", func(t *testing.T) {
		mod, attr, err := splitObjectPath("a.b")
		require.NoError(t, err)
		assert.Equal(t, "a.b", mod)
		assert.Empty(t, attr)
	})

	t.Run("empty_path", func(t *testing.T) {
		_, _, err := splitObjectPath("")
		require.Error(t, err)
	})

	t.Run("missing_module_part", func(t *testing.T) {
		_, _, err := splitObjectPath(":x")
		require.Error(t, err)
	})

	t.Run("empty_attribute_part", func(t *testing.T) {
		_, _, err := splitObjectPath("a.b:")
		require.Error(t, err)
	})

	t.Run("double_colon", func(t *testing.T) {
		_, _, err := splitObjectPath("a:b:c")
		require.Error(t, err)
	})
}

func TestSplitDottedPath(t *testing.T) {
	segs, err := splitDottedPath("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, segs)

	_, err = splitDottedPath("a..b")
	require.Error(t, err)

	_, err = splitDottedPath(".a")
	require.Error(t, err)

	_, err = splitDottedPath("a.")
	require.Error(t, err)
}

func TestCutLastDot(t *testing.T) {
	parent, base, ok := cutLastDot("a.b.c")
	assert.True(t, ok)
	assert.Equal(t, "a.b", parent)
	assert.Equal(t, "c", base)

	_, base, ok = cutLastDot("top")
	assert.False(t, ok)
	assert.Equal(t, "top", base)
}
