// schema.go: host feature schemas compiled by reflection
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// A feature schema is a struct whose exported fields have type Ref, one
// per feature the host expects plugins to provide:
//
//	type Features struct {
//		Greet  pluginhost.Ref `feat:"hello" kind:"function"`
//		Banner pluginhost.Ref `feat:"banner,optional" kind:"string"`
//		Hooks  pluginhost.Ref `feat:"hooks,weak" kind:"table"`
//	}
//
// The feat tag names the manifest feature bound to the field, defaulting
// to the lowercased field name, with optional comma flags: "optional"
// lets the feature be absent (the field stays an empty Ref) and "weak"
// stores a weak handle instead of a strong one. A field tagged feat:"-"
// does not participate. The kind tag constrains the resolved value's
// type: function, table, string, number, boolean, userdata or any (the
// default).

type featureKind uint8

const (
	kindAny featureKind = iota
	kindFunction
	kindTable
	kindString
	kindNumber
	kindBoolean
	kindUserData
)

func parseFeatureKind(s string) (featureKind, bool) {
	switch s {
	case "", "any":
		return kindAny, true
	case "function":
		return kindFunction, true
	case "table":
		return kindTable, true
	case "string":
		return kindString, true
	case "number":
		return kindNumber, true
	case "boolean":
		return kindBoolean, true
	case "userdata":
		return kindUserData, true
	}
	return kindAny, false
}

func (k featureKind) String() string {
	switch k {
	case kindFunction:
		return "function"
	case kindTable:
		return "table"
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBoolean:
		return "boolean"
	case kindUserData:
		return "userdata"
	default:
		return "any"
	}
}

func (k featureKind) matches(v lua.LValue) bool {
	switch k {
	case kindFunction:
		return v.Type() == lua.LTFunction
	case kindTable:
		return v.Type() == lua.LTTable
	case kindString:
		return v.Type() == lua.LTString
	case kindNumber:
		return v.Type() == lua.LTNumber
	case kindBoolean:
		return v.Type() == lua.LTBool
	case kindUserData:
		return v.Type() == lua.LTUserData
	default:
		return true
	}
}

type featureField struct {
	index    int
	name     string
	kind     featureKind
	optional bool
	weak     bool
}

// featureSchema is the compiled form of a host feature struct type.
type featureSchema[F any] struct {
	typ    reflect.Type
	fields []featureField
}

var refType = reflect.TypeOf(Ref{})

// compileFeatureSchema validates a feature struct type once, at system
// construction, so load-time binding is a straight loop over the fields.
func compileFeatureSchema[F any]() (*featureSchema[F], error) {
	typ := reflect.TypeFor[F]()
	if typ.Kind() != reflect.Struct {
		return nil, NewFeatureSchemaError(typ.String(), "", "feature schemas must be struct types")
	}

	schema := &featureSchema[F]{typ: typ}
	seen := make(map[string]string)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("feat")
		if tag == "-" {
			continue
		}
		if field.Type != refType {
			return nil, NewFeatureSchemaError(typ.String(), field.Name, "feature fields must have type Ref")
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		compiled := featureField{index: i, name: name}
		for _, opt := range strings.Split(opts, ",") {
			switch opt {
			case "":
			case "optional":
				compiled.optional = true
			case "weak":
				compiled.weak = true
			default:
				return nil, NewFeatureSchemaError(typ.String(), field.Name, fmt.Sprintf("unknown feat option %q", opt))
			}
		}
		kind, ok := parseFeatureKind(field.Tag.Get("kind"))
		if !ok {
			return nil, NewFeatureSchemaError(typ.String(), field.Name, fmt.Sprintf("unknown kind %q", field.Tag.Get("kind")))
		}
		compiled.kind = kind

		if prev, dup := seen[name]; dup {
			return nil, NewFeatureSchemaError(typ.String(), field.Name, fmt.Sprintf("feature %q already bound to field %s", name, prev))
		}
		seen[name] = field.Name
		schema.fields = append(schema.fields, compiled)
	}
	return schema, nil
}

// bind validates resolved feature values against the schema and builds
// the typed bundle. Binding is all-or-nothing: a missing required
// feature or a kind mismatch fails the whole bundle. Resolved values the
// schema does not declare are ignored.
func (s *featureSchema[F]) bind(plugin string, values map[string]lua.LValue) (*F, error) {
	bundle := new(F)
	elem := reflect.ValueOf(bundle).Elem()
	for _, field := range s.fields {
		value, ok := values[field.name]
		if !ok || value == lua.LNil {
			if field.optional {
				continue
			}
			return nil, NewFeatureValidationError(plugin, field.name, nil).
				WithContext("reason", "required feature is not declared by the plugin")
		}
		if !field.kind.matches(value) {
			return nil, NewFeatureValidationError(plugin, field.name,
				NewRefKindError(field.kind.String(), value.Type().String()))
		}
		ref := StrongRef(value)
		if field.weak {
			weak, can := weakRefTo(value)
			if !can {
				return nil, NewFeatureValidationError(plugin, field.name, nil).
					WithContext("reason", fmt.Sprintf("%s values cannot be weakly referenced", value.Type().String()))
			}
			ref = weak
		}
		elem.Field(field.index).Set(reflect.ValueOf(ref))
	}
	return bundle, nil
}

// weakRefTo wraps heap-allocated script values; scalars have no
// collectible referent to track.
func weakRefTo(v lua.LValue) (Ref, bool) {
	switch target := v.(type) {
	case *lua.LTable:
		return WeakRef(target), true
	case *lua.LFunction:
		return WeakRef(target), true
	case *lua.LUserData:
		return WeakRef(target), true
	}
	return Ref{}, false
}
