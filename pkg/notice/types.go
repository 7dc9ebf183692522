package notice

import (
	"time"
)

// Kind identifies what a notice is about.
type Kind string

const (
	// Upgraded: an unversioned id resolved to the latest versioned spec.
	Upgraded Kind = "upgraded"
	// OutOfDate: a versioned id is older than the latest registered one.
	OutOfDate Kind = "out_of_date"
	// NamespaceOverride: a registration's namespace was replaced by the
	// active namespace context.
	NamespaceOverride Kind = "namespace_override"
	// PluginError: a lazily loaded plugin failed.
	PluginError Kind = "plugin_error"
	// CheckWarning: a checker found something suspicious but not fatal.
	CheckWarning Kind = "check_warning"
)

// Notice is a non-fatal message about something the caller may want to
// fix.
type Notice struct {
	Kind      Kind      // What happened
	Subject   string    // Usually a registry id
	Message   string    // Human-readable description
	Timestamp time.Time // When the notice was raised
}

// New creates a notice stamped with the current time.
func New(kind Kind, subject, message string) Notice {
	return Notice{
		Kind:      kind,
		Subject:   subject,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// String implements fmt.Stringer.
func (n Notice) String() string {
	if n.Subject == "" {
		return string(n.Kind) + ": " + n.Message
	}
	return string(n.Kind) + " " + n.Subject + ": " + n.Message
}
