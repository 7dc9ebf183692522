package problem

import (
	"fmt"

	"github.com/boristopalov/coi/pkg/protocol"
)

// Wrapper modifies the behavior of an inner problem. Methods that a
// wrapper does not override are forwarded.
type Wrapper struct {
	Problem
	self Problem
}

// NewWrapper wraps inner. Outer types embedding the wrapper pass
// themselves as self; nil means the wrapper itself.
func NewWrapper(inner Problem, self Problem) *Wrapper {
	w := &Wrapper{Problem: inner, self: self}
	if w.self == nil {
		w.self = w
	}
	return w
}

// Inner returns the wrapped problem.
func (w *Wrapper) Inner() Problem { return w.Problem }

// Unwrapped returns the innermost problem.
func (w *Wrapper) Unwrapped() Problem { return w.Problem.Unwrapped() }

// GetWrapperAttr looks up name on the outermost wrapper first and then
// down the chain.
func (w *Wrapper) GetWrapperAttr(name string) (any, error) {
	if name != "Problem" {
		if v, ok := ownAttr(w.self, name); ok {
			return v, nil
		}
	}
	return w.Problem.GetWrapperAttr(name)
}

// ownAttr finds attributes declared by the wrapper type itself, ignoring
// methods forwarded to the inner problem.
func ownAttr(obj any, name string) (any, bool) {
	if _, forwarded := ProblemProtocol.Kind(name); forwarded {
		return nil, false
	}
	return protocol.Getattr(obj, name)
}

// Unwrap follows Inner through a chain of wrappers.
func Unwrap(p Problem) Problem {
	for {
		w, ok := p.(interface{ Inner() Problem })
		if !ok {
			return p
		}
		p = w.Inner()
	}
}

// String implements fmt.Stringer.
func (w *Wrapper) String() string {
	return fmt.Sprintf("%T<%v>", w.self, w.Problem)
}
