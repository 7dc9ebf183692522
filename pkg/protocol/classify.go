package protocol

import (
	"slices"
	"strings"
)

// reservedNames are bookkeeping names that never become protocol members.
var reservedNames = map[string]struct{}{
	"__abstractmethods__":            {},
	"__annotations__":                {},
	"__annotate__":                   {},
	"__class_getitem__":              {},
	"__dict__":                       {},
	"__doc__":                        {},
	"__firstlineno__":                {},
	"__init__":                       {},
	"__init_subclass__":              {},
	"__match_args__":                 {},
	"__module__":                     {},
	"__new__":                        {},
	"__non_callable_proto_members__": {},
	"__orig_bases__":                 {},
	"__orig_class__":                 {},
	"__parameters__":                 {},
	"__protocol_attrs__":             {},
	"__qualname__":                   {},
	"__slots__":                      {},
	"__static_attributes__":          {},
	"__subclasshook__":               {},
	"__type_params__":                {},
	"__weakref__":                    {},
	"_is_protocol":                   {},
	"_is_runtime_protocol":           {},
}

// IsReserved reports whether name is excluded from protocol members.
func IsReserved(name string) bool {
	if _, ok := reservedNames[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "_abc_")
}

// protocolAttrs collects, in sorted order, the names declared or
// annotated by the protocol classes in c's MRO.
func protocolAttrs(c *Class) []string {
	seen := make(map[string]struct{})
	for _, k := range c.mro {
		if !k.protocol {
			continue
		}
		for name := range k.dict {
			if !IsReserved(name) {
				seen[name] = struct{}{}
			}
		}
		for _, name := range k.annotations {
			if !IsReserved(name) {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ClassifyMembers classifies every protocol member declared by cls and its
// protocol bases.
//
// The value of each member is found by a static lookup through the MRO.
// Classmethod-like values are KindClassMethod, callables are KindMethod
// and everything else, including names that are only annotated, is
// KindAttribute. A member whose value fails to report its shape yields a
// *ClassificationError.
func ClassifyMembers(cls *Class) (map[string]Kind, error) {
	names := protocolAttrs(cls)
	kinds := make(map[string]Kind, len(names))
	for _, name := range names {
		v, ok := cls.lookup(name)
		if !ok {
			kinds[name] = KindAttribute
			continue
		}
		k, err := kindOf(v)
		if err != nil {
			return nil, &ClassificationError{Protocol: cls.name, Member: name, Err: err}
		}
		kinds[name] = k
	}
	return kinds, nil
}
