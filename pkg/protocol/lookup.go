package protocol

import "reflect"

// LookupStatic resolves name on a candidate without triggering
// properties, dynamic hooks or method binding.
//
// For classes the MRO namespaces are searched in order. For instances the
// instance namespace wins, except over a property declared on the class.
func LookupStatic(c Candidate, name string) (any, bool) {
	switch c := c.(type) {
	case *Class:
		if c == nil {
			return nil, false
		}
		return c.lookup(name)
	case *Instance:
		if c == nil || c.class == nil {
			return nil, false
		}
		cv, cok := c.class.lookup(name)
		if _, data := cv.(*Property); cok && data {
			return cv, true
		}
		if v, ok := c.dict[name]; ok {
			return v, true
		}
		return cv, cok
	}
	return nil, false
}

// Getattr performs a dynamic attribute lookup on obj. Unlike LookupStatic
// it invokes property getters, unwraps class and static functions, binds
// Go methods and falls back to a class's WithGetattr hook.
//
// obj may be a *Class, an *Instance or any Go value.
func Getattr(obj any, name string) (any, bool) {
	switch x := obj.(type) {
	case nil:
		return nil, false
	case *Class:
		if x == nil {
			return nil, false
		}
		v, ok := x.lookup(name)
		if !ok {
			return hook(x, name)
		}
		return unwrapFunc(v), true
	case *Instance:
		if x == nil || x.class == nil {
			return nil, false
		}
		v, ok := LookupStatic(x, name)
		if !ok {
			return hook(x.class, name)
		}
		if p, isProp := v.(*Property); isProp && p.Get != nil {
			return p.Get(x), true
		}
		return unwrapFunc(v), true
	}

	rv := reflect.ValueOf(obj)
	if m := rv.MethodByName(name); m.IsValid() {
		return m.Interface(), true
	}
	sv := rv
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return nil, false
		}
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Struct {
		if f, ok := sv.Type().FieldByName(name); ok && f.IsExported() {
			fv, err := sv.FieldByIndexErr(f.Index)
			if err == nil && fv.CanInterface() {
				return fv.Interface(), true
			}
		}
	}

	cls := TypeOf(rv.Type())
	v, ok := cls.lookup(name)
	if !ok {
		return hook(cls, name)
	}
	if p, isProp := v.(*Property); isProp && p.Get != nil {
		return p.Get(obj), true
	}
	return unwrapFunc(v), true
}

func hook(c *Class, name string) (any, bool) {
	for _, k := range c.mro {
		if k.getattr != nil {
			return k.getattr(name)
		}
	}
	return nil, false
}

func unwrapFunc(v any) any {
	switch x := v.(type) {
	case ClassFunc:
		return x.Fn
	case *ClassFunc:
		return x.Fn
	case StaticFunc:
		return x.Fn
	case *StaticFunc:
		return x.Fn
	}
	return v
}
