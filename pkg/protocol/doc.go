// Package protocol implements runtime structural typing.
//
// A Protocol is a named set of members. Each member is classified once,
// when the protocol is declared, into one of three kinds:
//
//	KindMethod       - must be callable on an instance
//	KindClassMethod  - must be callable on the type itself
//	KindAttribute    - plain data, any value (including nil) is accepted
//
// Candidates are either classes or instances. Classes are described by an
// explicit metadata table (a Class with its bases, namespace and bare
// annotations); Go values are mapped onto that table by the reflect
// adapter (TypeOf, ClassOf, InstanceOf), cached per reflect.Type.
//
// # Declaring a protocol
//
//	var Closer = protocol.MustProtocol("Closer", nil, protocol.Members{
//	    "Close": func() error { return nil },
//	    "New":   protocol.ClassMethod(nil),
//	    "Name":  "",
//	})
//
// # Checking a candidate
//
//	if Closer.Implements(v) {
//	    // v provides Close, a type-level New and a Name
//	}
//
// Lookups done by the matcher are static: they never invoke property
// getters or dynamic attribute hooks. A member stored as nil is treated as
// deliberately disabled unless the protocol classifies it as an attribute.
// Matching never fails with an error; malformed protocol declarations are
// reported by NewProtocol.
package protocol
