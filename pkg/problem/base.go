package problem

import (
	"fmt"
	"maps"

	"github.com/boristopalov/coi/pkg/protocol"
	"github.com/boristopalov/coi/pkg/registry"
)

// BaseProblem implements the bookkeeping of Problem. Embed it and call
// Init from the constructor with the outer value, so Unwrapped and
// GetWrapperAttr see the full problem rather than the embedded base.
type BaseProblem struct {
	self       Problem
	metadata   Metadata
	renderMode string
	renderers  map[string]Renderer
	spec       *registry.Spec
}

// Option configures a BaseProblem.
type Option func(*BaseProblem)

// WithMetadata sets the metadata. Missing well-known keys get defaults.
func WithMetadata(md Metadata) Option {
	return func(b *BaseProblem) { b.metadata = md.WithDefaults() }
}

// WithRenderMode selects the render mode.
func WithRenderMode(mode string) Option {
	return func(b *BaseProblem) { b.renderMode = mode }
}

// WithRenderer provides the output of a render mode.
func WithRenderer(mode string, r Renderer) Option {
	return func(b *BaseProblem) {
		if b.renderers == nil {
			b.renderers = make(map[string]Renderer)
		}
		b.renderers[mode] = r
	}
}

// Init binds the base to its owner and applies options. It fails if the
// render mode is not declared in the metadata.
func (b *BaseProblem) Init(self Problem, opts ...Option) error {
	b.self = self
	b.metadata = DefaultMetadata()
	for _, opt := range opts {
		opt(b)
	}
	return ValidateRenderMode(b.metadata, b.renderMode)
}

// Metadata returns a copy of the metadata.
func (b *BaseProblem) Metadata() Metadata {
	if b.metadata == nil {
		return DefaultMetadata()
	}
	return maps.Clone(b.metadata)
}

// RenderMode returns the selected render mode.
func (b *BaseProblem) RenderMode() string { return b.renderMode }

// Spec returns the spec set by the registry.
func (b *BaseProblem) Spec() *registry.Spec { return b.spec }

// SetSpec stores the spec the problem was made from.
func (b *BaseProblem) SetSpec(spec *registry.Spec) { b.spec = spec }

// Close does nothing.
func (b *BaseProblem) Close() error { return nil }

// Render dispatches to the renderer of the selected mode. Without a
// render mode it does nothing.
func (b *BaseProblem) Render() (any, error) {
	if b.renderMode == "" {
		return nil, nil
	}
	r, ok := b.renderers[b.renderMode]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no renderer", ErrRenderNotSupported, b.renderMode)
	}
	return r()
}

// GetWrapperAttr looks up name on the owning problem.
func (b *BaseProblem) GetWrapperAttr(name string) (any, error) {
	if v, ok := protocol.Getattr(b.Unwrapped(), name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", protocol.ErrNoAttribute, name)
}

// Unwrapped returns the owning problem.
func (b *BaseProblem) Unwrapped() Problem {
	if b.self != nil {
		return b.self
	}
	return b
}

// OptimizableBase adds the data members of optimizable problems to
// BaseProblem.
type OptimizableBase struct {
	BaseProblem

	// ObjectiveRange bounds the objective. The zero value means unbounded.
	ObjectiveRange [2]float64
	// ParamNames optionally names each parameter.
	ParamNames []string
	// Constraints restrict the feasible parameters.
	Constraints []Constraint
}
