// runtime.go: embedded script runtime and module registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// InitFileName is the entry file executed when a directory is imported
// as a package.
const InitFileName = "init.lua"

// Runtime executes plugin code units in one embedded Lua interpreter and
// keeps the registry of loaded modules, keyed both by logical dotted
// name and by canonical file path.
//
// The registry is append-only for the lifetime of the runtime. A file
// executes at most once: importing it again, under the same or another
// name, aliases the Module already built for it, so exported objects
// keep their identity across names. By default only a safe subset of the
// Lua standard library is opened (base, table, string, math); io, os and
// debug stay closed so plugin code has no stdlib route to the filesystem
// or the process.
//
// All interpreter access is serialized with an internal mutex; the Lua
// state itself is not goroutine-safe.
type Runtime struct {
	mu        sync.Mutex
	state     *lua.LState
	logger    Logger
	modules   map[string]*Module
	byPath    map[string]*Module
	importing map[string]struct{}
	closed    bool
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	logger        Logger
	fullStdlib    bool
	registrySize  int
	callStackSize int
}

// WithRuntimeLogger sets the logger used for import diagnostics.
func WithRuntimeLogger(logger Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

// WithFullStdlib opens the complete Lua standard library, io and os
// included. Only suitable for plugin sets the host fully trusts.
func WithFullStdlib() RuntimeOption {
	return func(o *runtimeOptions) {
		o.fullStdlib = true
	}
}

// WithRegistrySize sets the interpreter's initial registry size.
func WithRegistrySize(size int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.registrySize = size
	}
}

// WithCallStackSize sets the interpreter's call stack size.
func WithCallStackSize(size int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.callStackSize = size
	}
}

// NewRuntime creates a script runtime with its own interpreter state.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	options := runtimeOptions{logger: DefaultLogger()}
	for _, opt := range opts {
		opt(&options)
	}

	state := lua.NewState(lua.Options{
		SkipOpenLibs:  !options.fullStdlib,
		RegistrySize:  options.registrySize,
		CallStackSize: options.callStackSize,
	})
	if !options.fullStdlib {
		openSafeLibraries(state)
	}

	return &Runtime{
		state:     state,
		logger:    options.logger,
		modules:   make(map[string]*Module),
		byPath:    make(map[string]*Module),
		importing: make(map[string]struct{}),
	}
}

// openSafeLibraries opens the stdlib subset plugin code may use. io, os,
// debug and coroutine stay closed.
func openSafeLibraries(state *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		state.Push(state.NewFunction(lib.open))
		state.Push(lua.LString(lib.name))
		state.Call(1, 0)
	}
}

// State exposes the underlying interpreter, needed to build argument
// values and call feature functions. Callers must not use it
// concurrently with imports or resolutions on the same runtime.
func (r *Runtime) State() *lua.LState {
	return r.state
}

// ImportFrom loads the script at path under the given logical module
// name. A directory imports through its init.lua. Placeholder parent
// modules are fabricated for namespace segments that do not exist yet,
// and parents list their children as exported symbols.
//
// Each canonical file executes at most once per runtime: importing the
// same file again returns (or aliases) the Module already built for it.
// Import cycles fail with an import-cycle error.
func (r *Runtime) ImportFrom(path, name string) (*Module, error) {
	return r.ImportFromInject(path, name, nil)
}

// ImportFromInject imports like ImportFrom but seeds the module
// environment with the given values first, so the chunk sees them as
// globals. Hosts use it to hand configuration or capabilities to plugin
// code. The seed only applies when the chunk actually executes; a path
// already imported is returned as is.
func (r *Runtime) ImportFromInject(path, name string, inject map[string]lua.LValue) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRuntimeClosedError()
	}
	return r.importLocked(path, name, inject)
}

func (r *Runtime) importLocked(path, name string, inject map[string]lua.LValue) (*Module, error) {
	if _, err := splitDottedPath(name); err != nil {
		return nil, NewImportError(name, path, err)
	}
	if existing, ok := r.modules[name]; ok {
		return existing, nil
	}

	file, dir, pkg, err := resolveModuleFile(name, path)
	if err != nil {
		return nil, err
	}
	if existing, ok := r.byPath[file]; ok {
		return r.aliasLocked(existing, name), nil
	}
	if _, busy := r.importing[file]; busy {
		return nil, NewImportCycleError(name, file)
	}

	r.importing[file] = struct{}{}
	defer delete(r.importing, file)

	module := &Module{name: name, path: file, dir: dir, pkg: pkg}
	exports, err := r.executeChunk(module, inject)
	if err != nil {
		return nil, err
	}
	module.exports = exports

	r.registerLocked(module)
	r.logger.Debug("module imported", "module", name, "path", file, "package", pkg)
	return module, nil
}

// resolveModuleFile canonicalizes an import target. A directory imports
// through its init.lua; the returned dir is the directory searched for
// the module's submodules.
func resolveModuleFile(name, path string) (file, dir string, pkg bool, err error) {
	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		return "", "", false, NewImportError(name, path, aerr)
	}
	st, serr := os.Stat(abs)
	if serr != nil {
		return "", "", false, NewModuleNotFoundError(name).WithContext("path", abs)
	}
	if st.IsDir() {
		init := filepath.Join(abs, InitFileName)
		if fi, ferr := os.Stat(init); ferr != nil || fi.IsDir() {
			return "", "", false, NewModuleNotFoundError(name).WithContext("path", init)
		}
		return init, abs, true, nil
	}
	return abs, filepath.Dir(abs), false, nil
}

// executeChunk compiles and runs a module's file in a fresh environment
// whose reads fall back to the interpreter globals and whose writes stay
// module-local. The chunk's returned table becomes the symbol table; a
// chunk that returns nothing exports its environment.
func (r *Runtime) executeChunk(module *Module, inject map[string]lua.LValue) (exports *lua.LTable, err error) {
	fn, lerr := r.state.LoadFile(module.path)
	if lerr != nil {
		return nil, NewImportError(module.name, module.path, lerr)
	}

	env := r.state.NewTable()
	meta := r.state.NewTable()
	meta.RawSetString("__index", r.state.Get(lua.GlobalsIndex))
	r.state.SetMetatable(env, meta)
	env.RawSetString("_NAME", lua.LString(module.name))
	env.RawSetString("import", r.state.NewFunction(r.importFunc(module)))
	for key, value := range inject {
		env.RawSetString(key, value)
	}
	fn.Env = env

	// The interpreter reports some internal failures by panicking;
	// convert those into import errors instead of crashing the host.
	defer func() {
		if rec := recover(); rec != nil {
			err = NewImportError(module.name, module.path, fmt.Errorf("runtime panic: %v", rec))
		}
	}()

	base := r.state.GetTop()
	r.state.Push(fn)
	if perr := r.state.PCall(0, lua.MultRet, nil); perr != nil {
		r.state.SetTop(base)
		return nil, NewImportError(module.name, module.path, perr)
	}

	var returned *lua.LTable
	if r.state.GetTop() > base {
		returned, _ = r.state.Get(base + 1).(*lua.LTable)
	}
	r.state.SetTop(base)
	if returned != nil {
		return returned, nil
	}
	return env, nil
}

// importFunc builds the import function injected into a module's
// environment. It only ever runs on the interpreter goroutine while the
// runtime lock is already held by the surrounding import or resolution,
// so it uses the locked internals directly.
func (r *Runtime) importFunc(importer *Module) lua.LGFunction {
	return func(L *lua.LState) int {
		target := L.CheckString(1)
		module, err := r.scriptImportLocked(importer, target)
		if err != nil {
			L.RaiseError("import %q: %s", target, err.Error())
			return 0
		}
		L.Push(module.exports)
		return 1
	}
}

// scriptImportLocked resolves an import request made by plugin code:
// either a registered absolute module path or a ".relative" one resolved
// against the importing module's directory. Relative requests bypass the
// name registry because the importer itself is not registered until its
// chunk finishes.
func (r *Runtime) scriptImportLocked(importer *Module, target string) (*Module, error) {
	if strings.Contains(target, ":") {
		return nil, NewObjectPathError(target, "import takes a module path, not an object path")
	}

	module := importer
	if rest, relative := strings.CutPrefix(target, "."); relative {
		if rest != "" {
			segs, err := splitDottedPath(rest)
			if err != nil {
				return nil, NewModuleNotFoundError(target)
			}
			for _, seg := range segs {
				if module, err = r.importSubmoduleLocked(module, seg); err != nil {
					return nil, err
				}
			}
		}
	} else {
		var err error
		if module, err = r.resolveModuleLocked(target); err != nil {
			return nil, err
		}
	}

	if module.exports == nil {
		// Still mid-execution: the only way here is a self-import.
		return nil, NewImportCycleError(module.name, module.path)
	}
	return module, nil
}

// importSubmoduleLocked loads one named submodule from a module's search
// directory. Directories win over same-named files, and a target file
// already executed under another name is aliased instead of re-run.
func (r *Runtime) importSubmoduleLocked(parent *Module, seg string) (*Module, error) {
	childName := parent.name + "." + seg
	if module, ok := r.modules[childName]; ok {
		return module, nil
	}
	if parent.dir == "" {
		return nil, NewModuleNotFoundError(childName)
	}

	for _, candidate := range []string{
		filepath.Join(parent.dir, seg),
		filepath.Join(parent.dir, seg+".lua"),
	} {
		st, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if st.IsDir() {
			if _, ierr := os.Stat(filepath.Join(candidate, InitFileName)); ierr != nil {
				continue
			}
		}
		return r.importLocked(candidate, childName, nil)
	}
	return nil, NewModuleNotFoundError(childName)
}

// resolveModuleLocked walks an absolute dotted module path: the longest
// registered prefix anchors the walk and any remaining segments import
// on demand from the anchored module's directory.
func (r *Runtime) resolveModuleLocked(path string) (*Module, error) {
	segs, err := splitDottedPath(path)
	if err != nil {
		return nil, NewModuleNotFoundError(path)
	}

	var module *Module
	anchor := 0
	for i := len(segs); i >= 1; i-- {
		if m, ok := r.modules[strings.Join(segs[:i], ".")]; ok {
			module, anchor = m, i
			break
		}
	}
	if module == nil {
		return nil, NewModuleNotFoundError(path)
	}

	for _, seg := range segs[anchor:] {
		if module, err = r.importSubmoduleLocked(module, seg); err != nil {
			return nil, err
		}
	}
	return module, nil
}

// aliasLocked binds an already-loaded module under an additional logical
// name, so every name keeps resolving to the same symbols.
func (r *Runtime) aliasLocked(module *Module, name string) *Module {
	if _, ok := r.modules[name]; ok {
		return module
	}
	module.aliases = append(module.aliases, name)
	r.modules[name] = module
	r.ensureParentsLocked(name, module)
	return module
}

// registerLocked inserts a module under its logical name and canonical
// path, fabricating placeholder parents so every dotted prefix of the
// name denotes a module.
func (r *Runtime) registerLocked(module *Module) {
	r.modules[module.name] = module
	if module.path != "" {
		r.byPath[module.path] = module
	}
	r.ensureParentsLocked(module.name, module)
}

func (r *Runtime) ensureParentsLocked(name string, child *Module) {
	parentName, base, ok := cutLastDot(name)
	if !ok {
		return
	}
	parent, exists := r.modules[parentName]
	if !exists {
		parent = &Module{
			name:      parentName,
			synthetic: true,
			exports:   r.state.NewTable(),
		}
		r.modules[parentName] = parent
		r.ensureParentsLocked(parentName, parent)
	}
	// Parents know their children, like a real package would.
	parent.exports.RawSetString(base, child.exports)
}

// Register exposes a host-provided module to plugin code under the given
// logical name. The registry is append-only, so registering a name twice
// is an error.
func (r *Runtime) Register(name string, exports map[string]lua.LValue) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRuntimeClosedError()
	}
	table := r.state.NewTable()
	for key, value := range exports {
		table.RawSetString(key, value)
	}
	return r.registerHostLocked(&Module{name: name, exports: table})
}

// RegisterFuncs exposes Go functions to plugin code as a module of the
// given name.
func (r *Runtime) RegisterFuncs(name string, funcs map[string]lua.LGFunction) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRuntimeClosedError()
	}
	table := r.state.SetFuncs(r.state.NewTable(), funcs)
	return r.registerHostLocked(&Module{name: name, exports: table})
}

// RegisterPackage exposes a directory as a package module: with an
// init.lua inside, the file executes as the package body; without one
// the package is an empty namespace. Either way the directory becomes
// the search root for on-demand submodule imports, and the package can
// back ExtendPathPackage on a System.
func (r *Runtime) RegisterPackage(name, dir string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRuntimeClosedError()
	}
	if _, ok := r.modules[name]; ok {
		return nil, NewRegistryError(fmt.Sprintf("module %q is already registered", name), nil)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, NewRegistryError(fmt.Sprintf("cannot resolve package directory %q", dir), err)
	}
	st, serr := os.Stat(abs)
	if serr != nil || !st.IsDir() {
		return nil, NewModuleNotFoundError(name).WithContext("path", abs)
	}
	if _, ierr := os.Stat(filepath.Join(abs, InitFileName)); ierr == nil {
		return r.importLocked(abs, name, nil)
	}
	return r.registerHostLocked(&Module{name: name, dir: abs, pkg: true, exports: r.state.NewTable()})
}

func (r *Runtime) registerHostLocked(module *Module) (*Module, error) {
	if _, err := splitDottedPath(module.name); err != nil {
		return nil, NewRegistryError(err.Error(), nil)
	}
	if _, ok := r.modules[module.name]; ok {
		return nil, NewRegistryError(fmt.Sprintf("module %q is already registered", module.name), nil)
	}
	r.registerLocked(module)
	r.logger.Debug("module registered", "module", module.name, "package", module.pkg)
	return module, nil
}

// Lookup returns the module registered under a logical name or alias.
func (r *Runtime) Lookup(name string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	module, ok := r.modules[name]
	return module, ok
}

// Modules returns every registered logical name, aliases included,
// sorted.
func (r *Runtime) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveObject resolves an absolute object path, "mod.path:attr.path",
// to the value it denotes. The module part resolves through the
// registry, importing submodules on demand; a path without an attribute
// part denotes the module's symbol table itself. Attribute lookups are
// raw, so only values the module actually exports are reachable.
func (r *Runtime) ResolveObject(path string) (lua.LValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRuntimeClosedError()
	}

	modPath, attrPath, err := splitObjectPath(path)
	if err != nil {
		return nil, NewObjectPathError(path, err.Error())
	}
	module, err := r.resolveModuleLocked(modPath)
	if err != nil {
		return nil, err
	}
	if attrPath == "" {
		return module.exports, nil
	}

	segs, err := splitDottedPath(attrPath)
	if err != nil {
		return nil, NewObjectPathError(path, err.Error())
	}
	value, ok := module.Symbol(segs[0])
	if !ok {
		return nil, NewObjectPathError(path, fmt.Sprintf("module %q does not export %q", module.Name(), segs[0]))
	}
	for _, seg := range segs[1:] {
		table, isTable := value.(*lua.LTable)
		if !isTable {
			return nil, NewObjectPathError(path, fmt.Sprintf("cannot descend into %q: value is not a table", seg))
		}
		if value = table.RawGetString(seg); value == lua.LNil {
			return nil, NewObjectPathError(path, fmt.Sprintf("attribute %q not found", seg))
		}
	}
	return value, nil
}

// Close shuts down the interpreter. Further imports and resolutions fail
// with a runtime-closed error; modules already handed out stay readable.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.state.Close()
}
