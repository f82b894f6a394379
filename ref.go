// ref.go: strong and weak reference handles for loaded feature objects
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"weak"

	lua "github.com/yuin/gopher-lua"
)

// Ref is a reference to a loaded feature object: either a strong handle
// that keeps the referent alive, or a weak handle that may expire once
// nothing else keeps the referent reachable.
//
// A Ref is queried through two accessors with different failure modes:
// Get errors on an empty or expired reference, TryGet reports absence
// through its second return value. The zero Ref is empty.
//
// Example usage:
//
//	hello, err := plugin.Feat()
//	if err != nil {
//	    return err
//	}
//	fn, err := hello.Greet.AsFunction()
type Ref struct {
	strong lua.LValue
	weak   func() lua.LValue
}

// StrongRef wraps a value in a strong reference. Wrapping nil or lua.LNil
// produces an empty reference.
func StrongRef(v lua.LValue) Ref {
	if v == nil || v == lua.LNil {
		return Ref{}
	}
	return Ref{strong: v}
}

// WeakRef wraps a heap-allocated script object (table, function or
// userdata) in a weak reference. The handle expires when the referent is
// no longer strongly reachable, after which Get fails and TryGet reports
// absence.
func WeakRef[T lua.LTable | lua.LFunction | lua.LUserData](target *T) Ref {
	if target == nil {
		return Ref{}
	}
	p := weak.Make(target)
	return Ref{weak: func() lua.LValue {
		t := p.Value()
		if t == nil {
			return lua.LNil
		}
		return any(t).(lua.LValue)
	}}
}

// IsWeak reports whether the reference is a weak handle.
func (r Ref) IsWeak() bool {
	return r.weak != nil
}

// Empty reports whether the reference currently holds no value.
func (r Ref) Empty() bool {
	_, ok := r.TryGet()
	return !ok
}

// Get returns the referent. It fails with an empty-reference error when
// the reference holds no value or its weak referent was collected.
func (r Ref) Get() (lua.LValue, error) {
	if v, ok := r.TryGet(); ok {
		return v, nil
	}
	return nil, NewEmptyReferenceError()
}

// TryGet returns the referent and whether it is present.
func (r Ref) TryGet() (lua.LValue, bool) {
	if r.strong != nil {
		return r.strong, true
	}
	if r.weak != nil {
		if v := r.weak(); v != lua.LNil {
			return v, true
		}
	}
	return nil, false
}

// AsFunction returns the referent as a script function.
func (r Ref) AsFunction() (*lua.LFunction, error) {
	v, err := r.Get()
	if err != nil {
		return nil, err
	}
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil, NewRefKindError("function", v.Type().String())
	}
	return fn, nil
}

// AsTable returns the referent as a script table.
func (r Ref) AsTable() (*lua.LTable, error) {
	v, err := r.Get()
	if err != nil {
		return nil, err
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, NewRefKindError("table", v.Type().String())
	}
	return tbl, nil
}
