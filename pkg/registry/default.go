package registry

var defaultRegistry = New()

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry { return defaultRegistry }

// Register adds a spec to the default registry.
func Register(id string, entryPoint any, opts ...SpecOption) error {
	return defaultRegistry.Register(id, entryPoint, opts...)
}

// Make creates a problem from the default registry.
func Make(id string, opts ...MakeOption) (any, error) {
	return defaultRegistry.Make(id, opts...)
}

// Lookup returns a spec of the default registry.
func Lookup(id string) (*Spec, error) {
	return defaultRegistry.Spec(id)
}

// AddPlugin adds a plugin to the default registry.
func AddPlugin(p Plugin) error {
	return defaultRegistry.AddPlugin(p)
}

// RegisterEntryPoint links an entry point in the default registry.
func RegisterEntryPoint(ref string, target any) error {
	return defaultRegistry.RegisterEntryPoint(ref, target)
}
