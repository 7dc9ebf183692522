package protocol

import (
	"fmt"
	"maps"
	"slices"
)

// Class is the metadata table of a type: its name, ordered bases, own
// namespace and bare annotations. Classes are immutable once created.
type Class struct {
	name        string
	bases       []*Class
	dict        Members
	annotations []string
	protocol    bool
	getattr     func(name string) (any, bool)
	mro         []*Class
}

// ClassOption configures a Class at creation.
type ClassOption func(*Class)

// WithAnnotations declares names that are annotated on the class without
// an assigned value.
func WithAnnotations(names ...string) ClassOption {
	return func(c *Class) {
		c.annotations = append(c.annotations, names...)
	}
}

// AsProtocol marks the class as a protocol declaration.
func AsProtocol() ClassOption {
	return func(c *Class) {
		c.protocol = true
	}
}

// WithGetattr installs a fallback consulted by Getattr when normal lookup
// fails. Static lookups never call it.
func WithGetattr(fn func(name string) (any, bool)) ClassOption {
	return func(c *Class) {
		c.getattr = fn
	}
}

// NewClass creates a class and computes its C3 method resolution order.
func NewClass(name string, bases []*Class, members Members, opts ...ClassOption) (*Class, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	seen := make(map[*Class]bool, len(bases))
	for _, b := range bases {
		if b == nil {
			return nil, fmt.Errorf("class %s: %w", name, ErrNilBase)
		}
		if seen[b] {
			return nil, fmt.Errorf("class %s: %w: %s", name, ErrDuplicateBase, b.name)
		}
		seen[b] = true
	}

	c := &Class{
		name:  name,
		bases: slices.Clone(bases),
		dict:  maps.Clone(members),
	}
	if c.dict == nil {
		c.dict = make(Members)
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.protocol {
		for _, b := range c.bases {
			if !b.protocol {
				return nil, fmt.Errorf("class %s: %w: %s", name, ErrProtocolBase, b.name)
			}
		}
	}

	mro, err := linearize(c)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", name, err)
	}
	c.mro = mro
	return c, nil
}

// MustClass is like NewClass but panics on error.
func MustClass(name string, bases []*Class, members Members, opts ...ClassOption) *Class {
	c, err := NewClass(name, bases, members, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// String implements fmt.Stringer.
func (c *Class) String() string { return c.name }

// Bases returns a copy of the direct bases.
func (c *Class) Bases() []*Class { return slices.Clone(c.bases) }

// MRO returns a copy of the method resolution order, starting with c.
func (c *Class) MRO() []*Class { return slices.Clone(c.mro) }

// IsProtocol reports whether the class was declared as a protocol.
func (c *Class) IsProtocol() bool { return c.protocol }

// Annotations returns the names annotated directly on c.
func (c *Class) Annotations() []string { return slices.Clone(c.annotations) }

// Own returns the value stored in c's own namespace.
func (c *Class) Own(name string) (any, bool) {
	v, ok := c.dict[name]
	return v, ok
}

// IsSubclassOf reports nominal subclassing: other appears in c's MRO.
func (c *Class) IsSubclassOf(other *Class) bool {
	return slices.Contains(c.mro, other)
}

// lookup walks the MRO namespaces without invoking descriptors.
func (c *Class) lookup(name string) (any, bool) {
	for _, k := range c.mro {
		if v, ok := k.dict[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// annotates reports whether name is a bare annotation anywhere in the MRO.
func (c *Class) annotates(name string) bool {
	for _, k := range c.mro {
		if slices.Contains(k.annotations, name) {
			return true
		}
	}
	return false
}

func (c *Class) candidate() {}

// linearize computes the C3 linearization of c.
func linearize(c *Class) ([]*Class, error) {
	seqs := make([][]*Class, 0, len(c.bases)+1)
	for _, b := range c.bases {
		seqs = append(seqs, slices.Clone(b.mro))
	}
	seqs = append(seqs, slices.Clone(c.bases))

	out := []*Class{c}
	for {
		live := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				live = append(live, s)
			}
		}
		seqs = live
		if len(seqs) == 0 {
			return out, nil
		}

		var head *Class
		for _, s := range seqs {
			if !inTail(s[0], seqs) {
				head = s[0]
				break
			}
		}
		if head == nil {
			return nil, ErrInconsistentMRO
		}

		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(c *Class, seqs [][]*Class) bool {
	for _, s := range seqs {
		if slices.Contains(s[1:], c) {
			return true
		}
	}
	return false
}

// Instance is an object of a class with its own namespace.
type Instance struct {
	class *Class
	dict  Members
}

// NewInstance creates an instance of cls with the given instance fields.
func NewInstance(cls *Class, fields Members) *Instance {
	dict := maps.Clone(fields)
	if dict == nil {
		dict = make(Members)
	}
	return &Instance{class: cls, dict: dict}
}

// Class returns the class of the instance.
func (i *Instance) Class() *Class { return i.class }

// Field returns the value stored in the instance namespace.
func (i *Instance) Field(name string) (any, bool) {
	v, ok := i.dict[name]
	return v, ok
}

func (i *Instance) candidate() {}

// Candidate is a class or an instance being checked against a protocol.
type Candidate interface {
	candidate()
}
