package protocol

import (
	"maps"
	"reflect"
	"slices"
	"sync"
)

// TypeMemberer is implemented by Go types that declare type-level members
// such as classmethods, class attributes or properties. TypeMembers is
// called once per type on a zero value and must not depend on state.
type TypeMemberer interface {
	TypeMembers() Members
}

var (
	// typeClasses caches the class of each Go type, keyed by type identity.
	typeClasses sync.Map

	typeMembererType = reflect.TypeFor[TypeMemberer]()
)

// TypeOf returns the class describing a Go type. Pointer types share the
// class of their element type.
//
// The class namespace holds the method set of *T, the exported fields of T
// with their zero values and the result of TypeMembers. Embedded structs
// become bases. Nil funcs, pointers, maps, slices and interfaces are
// stored as nil, so a nil func field that shadows a promoted method
// disables that method.
func TypeOf(t reflect.Type) *Class {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if c, ok := typeClasses.Load(t); ok {
		return c.(*Class)
	}
	c := buildClass(t, map[reflect.Type]bool{})
	actual, _ := typeClasses.LoadOrStore(t, c)
	return actual.(*Class)
}

// ClassOf returns the class of v's dynamic type.
func ClassOf(v any) *Class {
	switch x := v.(type) {
	case nil:
		return nil
	case *Instance:
		return x.class
	}
	return TypeOf(reflect.TypeOf(v))
}

// InstanceOf maps a Go value onto an instance. Exported struct fields,
// including promoted ones, make up the instance namespace.
func InstanceOf(v any) *Instance {
	switch x := v.(type) {
	case nil:
		return nil
	case *Instance:
		return x
	}

	rv := reflect.ValueOf(v)
	cls := TypeOf(rv.Type())
	fields := make(Members)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &Instance{class: cls, dict: fields}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return &Instance{class: cls, dict: fields}
	}

	methods := reflect.PointerTo(rv.Type())
	for _, f := range reflect.VisibleFields(rv.Type()) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		// A promoted field loses to a method of the same name.
		if _, shadowed := methods.MethodByName(f.Name); shadowed {
			continue
		}
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil || !fv.CanInterface() {
			continue
		}
		fields[f.Name] = storedValue(fv)
	}
	return &Instance{class: cls, dict: fields}
}

func typeClass(t reflect.Type, visiting map[reflect.Type]bool) *Class {
	if c, ok := typeClasses.Load(t); ok {
		return c.(*Class)
	}
	c := buildClass(t, visiting)
	actual, _ := typeClasses.LoadOrStore(t, c)
	return actual.(*Class)
}

func buildClass(t reflect.Type, visiting map[reflect.Type]bool) *Class {
	visiting[t] = true
	defer delete(visiting, t)

	var bases []*Class
	dict := make(Members)
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				et := f.Type
				for et.Kind() == reflect.Pointer {
					et = et.Elem()
				}
				if et.Kind() == reflect.Struct && !visiting[et] {
					base := typeClass(et, visiting)
					if !slices.Contains(bases, base) {
						bases = append(bases, base)
					}
				}
				continue
			}
			if !f.IsExported() {
				continue
			}
			dict[f.Name] = storedValue(reflect.Zero(f.Type))
		}
	}

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if m.Name == "TypeMembers" {
			continue
		}
		dict[m.Name] = m.Func.Interface()
	}
	if pt.Implements(typeMembererType) {
		maps.Copy(dict, typeMembers(t))
	}

	name := t.String()
	if c, err := NewClass(name, bases, dict); err == nil {
		return c
	}
	// Go embedding has no notion of a consistent linearization; fall
	// back to depth-first order.
	c := &Class{name: name, bases: bases, dict: dict}
	c.mro = depthFirst(c, nil)
	return c
}

// typeMembers calls TypeMembers on a zero value. A declaration that
// dereferences a nil embedded pointer contributes nothing.
func typeMembers(t reflect.Type) (members Members) {
	defer func() {
		if recover() != nil {
			members = nil
		}
	}()
	if tm, ok := reflect.New(t).Interface().(TypeMemberer); ok {
		return tm.TypeMembers()
	}
	return nil
}

func depthFirst(c *Class, out []*Class) []*Class {
	if slices.Contains(out, c) {
		return out
	}
	out = append(out, c)
	for _, b := range c.bases {
		out = depthFirst(b, out)
	}
	return out
}

// storedValue converts a reflected value into a namespace entry, mapping
// nil references to the disabled sentinel.
func storedValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
