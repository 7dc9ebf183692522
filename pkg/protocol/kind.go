package protocol

import (
	"fmt"
	"reflect"
)

// Kind classifies a protocol member.
type Kind int

const (
	// KindMethod members must be callable on an instance.
	KindMethod Kind = iota
	// KindClassMethod members must be callable on the type itself.
	KindClassMethod
	// KindAttribute members are plain data.
	KindAttribute
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindClassMethod:
		return "classmethod"
	case KindAttribute:
		return "attribute"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Members is a class namespace. A name mapped to nil is present but
// explicitly disabled.
type Members map[string]any

// ClassFunc is a function bound to a type rather than an instance.
type ClassFunc struct {
	Fn any
}

// ClassMethod wraps fn as a type-level member. A nil fn declares an
// abstract classmethod.
func ClassMethod(fn any) ClassFunc {
	return ClassFunc{Fn: fn}
}

// StaticFunc is a function stored on a type that receives neither the
// type nor an instance. It counts as callable.
type StaticFunc struct {
	Fn any
}

// StaticMethod wraps fn as a static member.
func StaticMethod(fn any) StaticFunc {
	return StaticFunc{Fn: fn}
}

// Property is a computed attribute. Static lookups return the Property
// value itself; only Getattr invokes Get.
type Property struct {
	Get func(self any) any
}

// NewProperty creates a property with the given getter.
func NewProperty(get func(self any) any) *Property {
	return &Property{Get: get}
}

// Inspector is implemented by custom member values that report their own
// shape. An error from InspectKind makes the declaring protocol invalid.
type Inspector interface {
	InspectKind() (Kind, error)
}

// kindOf classifies a value found by a static lookup.
func kindOf(v any) (Kind, error) {
	if in, ok := v.(Inspector); ok {
		return in.InspectKind()
	}
	if isClassMethod(v) {
		return KindClassMethod, nil
	}
	if isCallable(v) {
		return KindMethod, nil
	}
	return KindAttribute, nil
}

func isClassMethod(v any) bool {
	switch x := v.(type) {
	case ClassFunc, *ClassFunc:
		return true
	case Inspector:
		k, err := x.InspectKind()
		return err == nil && k == KindClassMethod
	}
	return false
}

func isCallable(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case StaticFunc, *StaticFunc:
		return true
	case Inspector:
		k, err := x.InspectKind()
		return err == nil && k == KindMethod
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// isNone reports whether v is the disabled sentinel. Typed nil funcs,
// pointers and interfaces count as nil.
func isNone(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
