package protocol

import "fmt"

// Error is a simple error type for protocol declaration errors.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

var (
	// ErrEmptyName is returned when a class or protocol has no name.
	ErrEmptyName = Error("class name cannot be empty")

	// ErrNilBase is returned when a base class is nil.
	ErrNilBase = Error("base class cannot be nil")

	// ErrDuplicateBase is returned when the same base is listed twice.
	ErrDuplicateBase = Error("duplicate base class")

	// ErrInconsistentMRO is returned when no C3 linearization of the
	// bases exists.
	ErrInconsistentMRO = Error("cannot create a consistent method resolution order")

	// ErrProtocolBase is returned when a protocol inherits from a class
	// that is not itself a protocol.
	ErrProtocolBase = Error("protocols can only inherit from protocols")

	// ErrNotProtocol is returned when a descriptor is requested for a
	// plain class.
	ErrNotProtocol = Error("class is not a protocol")

	// ErrNoAttribute is returned by attribute accessors when a name
	// cannot be resolved.
	ErrNoAttribute = Error("no such attribute")
)

// ClassificationError reports a protocol member whose kind could not be
// determined.
type ClassificationError struct {
	Protocol string
	Member   string
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("protocol %s: failed to determine whether member %q is a method member: %v",
		e.Protocol, e.Member, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
