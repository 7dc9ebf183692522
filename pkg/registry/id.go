package registry

import (
	"fmt"
	"regexp"
	"strconv"
)

// idPattern matches [namespace/]name[-vN]. The name is lazy so that a
// trailing -vN is read as the version.
var idPattern = regexp.MustCompile(`^(?:([\w:.-]+)/)?([\w:.-]+?)(?:-v(\d+))?$`)

// ID identifies a registered problem.
type ID struct {
	Namespace string
	Name      string
	Version   int
	Versioned bool
}

// ParseID parses an id of the form [namespace/]name[-vN].
func ParseID(s string) (ID, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return ID{}, &LookupError{ID: s, Err: ErrInvalidID, Detail: "expected [namespace/]name[-vN]"}
	}
	id := ID{Namespace: m[1], Name: m[2]}
	if m[3] != "" {
		v, err := strconv.Atoi(m[3])
		if err != nil {
			return ID{}, &LookupError{ID: s, Err: ErrInvalidID, Detail: err.Error()}
		}
		id.Version = v
		id.Versioned = true
	}
	return id, nil
}

// MustParseID is like ParseID but panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String formats the id back into its canonical form.
func (id ID) String() string {
	s := id.Name
	if id.Namespace != "" {
		s = id.Namespace + "/" + s
	}
	if id.Versioned {
		s += fmt.Sprintf("-v%d", id.Version)
	}
	return s
}

// Unversioned returns the id without its version.
func (id ID) Unversioned() ID {
	return ID{Namespace: id.Namespace, Name: id.Name}
}

// WithVersion returns the id with the given version.
func (id ID) WithVersion(v int) ID {
	id.Version = v
	id.Versioned = true
	return id
}

// sameName reports whether both ids share namespace and name.
func (id ID) sameName(other ID) bool {
	return id.Namespace == other.Namespace && id.Name == other.Name
}
