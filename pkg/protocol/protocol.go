package protocol

import (
	"fmt"
	"maps"
	"slices"
)

// Result is the outcome of a structural check.
type Result int

const (
	// NotImplemented means the candidate does not structurally satisfy
	// the protocol. Callers may fall through to another check.
	NotImplemented Result = iota
	// Satisfied means every protocol member was found with a compatible
	// shape.
	Satisfied
)

// String returns the string representation of the result.
func (r Result) String() string {
	if r == Satisfied {
		return "satisfied"
	}
	return "not implemented"
}

// Protocol describes a named structural interface. Its member set and
// member kinds are computed once by NewProtocol and never change, so a
// Protocol is safe for concurrent use.
type Protocol struct {
	class   *Class
	members []string
	kinds   map[string]Kind
}

// NewProtocol declares a protocol. Members of bases are inherited, which
// makes a protocol with several bases the intersection of them.
func NewProtocol(name string, bases []*Protocol, members Members, opts ...ClassOption) (*Protocol, error) {
	classes := make([]*Class, 0, len(bases))
	for _, b := range bases {
		if b == nil {
			return nil, fmt.Errorf("protocol %s: %w", name, ErrNilBase)
		}
		classes = append(classes, b.class)
	}
	opts = append(slices.Clone(opts), AsProtocol())
	cls, err := NewClass(name, classes, members, opts...)
	if err != nil {
		return nil, err
	}
	return FromClass(cls)
}

// MustProtocol is like NewProtocol but panics on error. It is meant for
// package-level declarations, so a malformed protocol aborts startup.
func MustProtocol(name string, bases []*Protocol, members Members, opts ...ClassOption) *Protocol {
	p, err := NewProtocol(name, bases, members, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// FromClass builds the descriptor of a class declared with AsProtocol.
func FromClass(cls *Class) (*Protocol, error) {
	if cls == nil || !cls.protocol {
		return nil, ErrNotProtocol
	}
	kinds, err := ClassifyMembers(cls)
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(kinds))
	for name := range kinds {
		members = append(members, name)
	}
	slices.Sort(members)
	return &Protocol{class: cls, members: members, kinds: kinds}, nil
}

// Name returns the protocol name.
func (p *Protocol) Name() string { return p.class.name }

// String implements fmt.Stringer.
func (p *Protocol) String() string { return p.class.name }

// Class returns the class of the protocol declaration. Protocols are
// classes themselves and can be checked against other protocols.
func (p *Protocol) Class() *Class { return p.class }

// Members returns the sorted member names.
func (p *Protocol) Members() []string { return slices.Clone(p.members) }

// Kind returns the kind of a member.
func (p *Protocol) Kind(name string) (Kind, bool) {
	k, ok := p.kinds[name]
	return k, ok
}

// Kinds returns a copy of the member classification.
func (p *Protocol) Kinds() map[string]Kind { return maps.Clone(p.kinds) }

// Check decides whether candidate structurally satisfies p.
//
// Every member must be found by a static lookup. Classmethod members are
// looked up on the class even when candidate is an instance and must hold
// a classmethod-like value. A member stored as nil counts as disabled and
// fails the check unless p classifies it as an attribute. A member that is
// missing is still satisfied when candidate is a protocol class that
// annotates the name somewhere in its MRO.
//
// Check never panics and has no side effects.
func Check(p *Protocol, candidate Candidate) Result {
	if p == nil || candidate == nil {
		return NotImplemented
	}
	var cls *Class
	inst, isInstance := candidate.(*Instance)
	if isInstance {
		if inst == nil || inst.class == nil {
			return NotImplemented
		}
		cls = inst.class
	} else {
		cls, _ = candidate.(*Class)
		if cls == nil {
			return NotImplemented
		}
	}

	for _, name := range p.members {
		kind := p.kinds[name]
		target := candidate
		if kind == KindClassMethod && isInstance {
			target = cls
		}

		v, ok := LookupStatic(target, name)
		if !ok {
			if !isInstance && cls.protocol && cls.annotates(name) {
				continue
			}
			return NotImplemented
		}

		if kind == KindClassMethod {
			if !isClassMethod(v) {
				return NotImplemented
			}
			continue
		}
		if kind != KindAttribute && isNone(v) {
			return NotImplemented
		}
	}
	return Satisfied
}

// Matches reports whether candidate satisfies p.
func Matches(p *Protocol, candidate Candidate) bool {
	return Check(p, candidate) == Satisfied
}

// Implements reports whether obj is an implementation of p. obj may be an
// *Instance, a *Class or any Go value, which is mapped with InstanceOf.
func (p *Protocol) Implements(obj any) bool {
	switch x := obj.(type) {
	case nil:
		return false
	case *Instance:
		return Matches(p, x)
	case *Class:
		return Matches(p, x)
	}
	return Matches(p, InstanceOf(obj))
}

// IsSubclass reports whether cls is a subtype of p, either nominally
// because p appears in its MRO or structurally.
func (p *Protocol) IsSubclass(cls *Class) bool {
	if cls == nil {
		return false
	}
	if cls.IsSubclassOf(p.class) {
		return true
	}
	return Matches(p, cls)
}
