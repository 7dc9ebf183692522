package registry

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"

	"github.com/boristopalov/coi/pkg/protocol"
)

// entryPointPattern matches references of the form pkg.path:Symbol.
var entryPointPattern = regexp.MustCompile(`^[\w./-]+:\w+$`)

var (
	kwargsType = reflect.TypeFor[Kwargs]()
	errorType  = reflect.TypeFor[error]()
)

// checkEntryPoint validates an entry point at registration. References
// are only checked for their shape; they resolve when a problem is made.
func checkEntryPoint(ep any) error {
	switch x := ep.(type) {
	case nil:
		return errors.New("entry point is nil")
	case Creator:
		if x == nil {
			return errors.New("creator is nil")
		}
		return nil
	case func(Kwargs) (any, error):
		if x == nil {
			return errors.New("creator is nil")
		}
		return nil
	case string:
		if !entryPointPattern.MatchString(x) {
			return fmt.Errorf("reference %q: expected pkg.path:Symbol", x)
		}
		return nil
	case reflect.Type, *protocol.Class:
		_, err := classConstructor(x)
		return err
	}
	return checkConstructor(reflect.ValueOf(ep))
}

// asCreator turns a non-reference entry point into a creator.
func asCreator(ep any) (Creator, error) {
	switch x := ep.(type) {
	case Creator:
		return x, nil
	case func(Kwargs) (any, error):
		return x, nil
	case reflect.Type, *protocol.Class:
		fn, err := classConstructor(x)
		if err != nil {
			return nil, err
		}
		return funcCreator(fn), nil
	}
	if err := checkConstructor(reflect.ValueOf(ep)); err != nil {
		return nil, &LookupError{ID: entryPointName(ep), Err: ErrInvalidEntryPoint, Detail: err.Error()}
	}
	return funcCreator(reflect.ValueOf(ep)), nil
}

// classConstructor returns the type-level New of a constructible type.
func classConstructor(ep any) (reflect.Value, error) {
	var cls *protocol.Class
	switch x := ep.(type) {
	case reflect.Type:
		cls = protocol.TypeOf(x)
	case *protocol.Class:
		cls = x
	}
	if cls == nil || !Constructible.IsSubclass(cls) {
		return reflect.Value{}, fmt.Errorf("%s does not declare a type-level New", entryPointName(ep))
	}
	fn, _ := protocol.Getattr(cls, "New")
	rv := reflect.ValueOf(fn)
	if err := checkConstructor(rv); err != nil {
		return reflect.Value{}, fmt.Errorf("%s.New: %w", entryPointName(ep), err)
	}
	return rv, nil
}

// checkConstructor accepts funcs taking nothing or Kwargs and returning a
// value, optionally followed by an error.
func checkConstructor(fn reflect.Value) error {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return errors.New("not a function")
	}
	t := fn.Type()
	switch {
	case t.IsVariadic():
		return errors.New("variadic constructors are not supported")
	case t.NumIn() > 1:
		return fmt.Errorf("constructor takes %d arguments", t.NumIn())
	case t.NumIn() == 1 && !kwargsType.AssignableTo(t.In(0)):
		return fmt.Errorf("constructor argument %s is not Kwargs", t.In(0))
	case t.NumOut() == 0 || t.NumOut() > 2:
		return fmt.Errorf("constructor returns %d values", t.NumOut())
	case t.NumOut() == 2 && t.Out(1) != errorType:
		return fmt.Errorf("second result %s is not error", t.Out(1))
	}
	return nil
}

func funcCreator(fn reflect.Value) Creator {
	return func(kw Kwargs) (any, error) {
		var in []reflect.Value
		if fn.Type().NumIn() == 1 {
			in = append(in, reflect.ValueOf(maps.Clone(kw)).Convert(fn.Type().In(0)))
		}
		out := fn.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		if isNilValue(out[0]) {
			return nil, nil
		}
		return out[0].Interface(), nil
	}
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
