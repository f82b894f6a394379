// objectpath.go: object-path expressions and module name transforms
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"strings"
)

// Object-path expressions name a value inside a loaded module:
//
//	"a.b:c.d"   attribute d of attribute c of module a.b
//	"a.b"       module a.b itself
//	".sub:obj"  relative to some root module (resolved by absolutize)
//	"."         the root module itself
//	".:obj"     attribute obj of the root module

// SanitizeName converts an arbitrary plugin name into a module path
// segment: every rune outside [A-Za-z0-9_] becomes '_', dots included.
func SanitizeName(name string) string {
	return sanitize(name, false)
}

// sanitizeModuleName is the loader's variant: dots survive so a plugin
// named "tools.extra" maps to a nested module path under the namespace.
func sanitizeModuleName(name string) string {
	return sanitize(name, true)
}

func sanitize(name string, keepDots bool) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case keepDots && r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// AbsolutizeObjectPath resolves an object-path expression against a root
// module name. Expressions starting with "." are relative to the root:
// "." alone denotes the root module, ".:obj" an attribute of it and
// ".sub:obj" an object inside its submodule. Absolute expressions are
// returned unchanged.
func AbsolutizeObjectPath(expr, root string) string {
	if !strings.HasPrefix(expr, ".") {
		return expr
	}
	rest := expr[1:]
	switch {
	case rest == "":
		return root
	case strings.HasPrefix(rest, ":"):
		return root + rest
	default:
		return root + "." + rest
	}
}

// splitObjectPath splits "mod.path:attr.path" at its colon. The colon
// and attribute part are optional; a present colon requires a non-empty
// attribute path and only one colon may appear.
func splitObjectPath(path string) (modPath, attrPath string, err error) {
	if path == "" {
		return "", "", fmt.Errorf("empty object path")
	}
	modPath, attrPath, found := strings.Cut(path, ":")
	if !found {
		return path, "", nil
	}
	if modPath == "" {
		return "", "", fmt.Errorf("object path %q has no module part", path)
	}
	if attrPath == "" {
		return "", "", fmt.Errorf("object path %q has an empty attribute part", path)
	}
	if strings.Contains(attrPath, ":") {
		return "", "", fmt.Errorf("object path %q contains more than one ':'", path)
	}
	return modPath, attrPath, nil
}

// splitDottedPath splits a dotted path into segments, rejecting empty
// ones so "a..b" cannot silently skip a level.
func splitDottedPath(path string) ([]string, error) {
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("dotted path %q has an empty segment", path)
		}
	}
	return segs, nil
}

// cutLastDot splits "a.b.c" into parent "a.b" and base "c". ok is false
// for top-level names without a dot.
func cutLastDot(name string) (parent, base string, ok bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", name, false
	}
	return name[:idx], name[idx+1:], true
}
