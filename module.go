// module.go: loaded code units and their symbol tables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	lua "github.com/yuin/gopher-lua"
)

// Module is one loaded code unit: a logical dotted name bound to a
// symbol table of exported values. Modules come from four places:
//
//   - a script file imported under a logical name
//   - a directory with an init.lua, imported as a package
//   - a host-registered module exposing Go functions to scripts
//   - a fabricated placeholder parent created so that every segment of a
//     dotted module name resolves
//
// A module imported from disk is executed at most once per canonical
// path; importing the same file under a second name yields the same
// Module, so symbols keep their identity across names.
type Module struct {
	name      string
	path      string // canonical file executed; "" for host and synthetic modules
	dir       string // submodule search directory; "" when submodules cannot exist
	pkg       bool   // directory-backed package
	synthetic bool   // fabricated namespace placeholder
	aliases   []string
	exports   *lua.LTable
}

// Name returns the logical dotted name the module was first imported
// under. Later aliases do not change it.
func (m *Module) Name() string {
	return m.name
}

// Path returns the canonical file the module was executed from, or ""
// for host-registered and fabricated modules.
func (m *Module) Path() string {
	return m.path
}

// Dir returns the directory searched for the module's submodules, or ""
// when the module cannot have file-backed submodules.
func (m *Module) Dir() string {
	return m.dir
}

// IsPackage reports whether the module is directory-backed: imported
// from a directory with an init.lua or registered as a package. Only
// packages can extend a system's search path.
func (m *Module) IsPackage() bool {
	return m.pkg
}

// Synthetic reports whether the module is a fabricated placeholder
// parent rather than real loaded code.
func (m *Module) Synthetic() bool {
	return m.synthetic
}

// Exports returns the module's symbol table. For a script module this is
// the table the chunk returned, or its environment when it returned
// nothing.
func (m *Module) Exports() *lua.LTable {
	return m.exports
}

// Symbol looks up an exported symbol by name. The lookup is raw: only
// symbols the module itself defined are visible, not values reachable
// through environment fallbacks.
func (m *Module) Symbol(name string) (lua.LValue, bool) {
	v := m.exports.RawGetString(name)
	if v == lua.LNil {
		return nil, false
	}
	return v, true
}
