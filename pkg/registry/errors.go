package registry

import "fmt"

// Error represents a registry error.
type Error string

// Error returns the error message.
func (e Error) Error() string { return string(e) }

// Registry errors.
var (
	// ErrInvalidID is returned when an id does not follow the
	// [namespace/]name[-vN] grammar.
	ErrInvalidID = Error("malformed id")

	// ErrInvalidSpec is returned when a spec fails validation.
	ErrInvalidSpec = Error("invalid spec")

	// ErrInvalidEntryPoint is returned when an entry point is neither a
	// creator function, an entry-point reference nor a constructible type.
	ErrInvalidEntryPoint = Error("invalid entry point")

	// ErrAlreadyRegistered is returned when an id is registered twice.
	ErrAlreadyRegistered = Error("id already registered")

	// ErrVersionedConflict is returned when registering a versioned id
	// while an unversioned id of the same name exists.
	ErrVersionedConflict = Error("cannot register a versioned id when the unversioned id exists")

	// ErrUnversionedConflict is returned when registering an unversioned id
	// while versioned ids of the same name exist.
	ErrUnversionedConflict = Error("cannot register an unversioned id when versioned ids exist")

	// ErrNamespaceNotFound is returned when no id lives in the requested
	// namespace.
	ErrNamespaceNotFound = Error("namespace not found")

	// ErrNameNotFound is returned when the namespace exists but does not
	// contain the requested name.
	ErrNameNotFound = Error("name not found")

	// ErrVersionNotFound is returned when the name exists but not in the
	// requested version.
	ErrVersionNotFound = Error("version not found")

	// ErrDeprecatedVersion is returned when an unregistered version older
	// than the latest registered one is requested.
	ErrDeprecatedVersion = Error("version is deprecated")

	// ErrEntryPointMissing is returned when an entry-point reference has no
	// linked-in target.
	ErrEntryPointMissing = Error("entry point missing")

	// ErrPluginLoad is returned when a plugin fails to load.
	ErrPluginLoad = Error("plugin failed to load")
)

// LookupError describes a failed lookup or registration of a specific id.
type LookupError struct {
	ID         string
	Err        error
	Detail     string
	Suggestion string
}

// Error returns the error message.
func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.ID, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LookupError) Unwrap() error { return e.Err }
