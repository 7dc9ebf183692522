// Package demo provides example problems in the "demo" namespace.
package demo

import (
	"errors"
	"reflect"

	"github.com/boristopalov/coi/pkg/registry"
)

// Namespace is the registry namespace of the demo problems.
const Namespace = "demo"

// Entry-point references of the demo problems.
const (
	ParabolaEntryPoint = "demo.parabola:New"
	SteeringEntryPoint = "demo.steering:New"
)

// Plugin returns the lazily loaded demo namespace.
func Plugin() registry.Plugin {
	return registry.Plugin{Namespace: Namespace, Load: Register}
}

// Register adds the demo problems to r. Ids are relative to the current
// namespace context.
func Register(r *registry.Registry) error {
	return errors.Join(
		r.RegisterEntryPoint(ParabolaEntryPoint, NewParabola),
		r.RegisterEntryPoint(SteeringEntryPoint, NewSteering),
		r.Register("Parabola-v0", ParabolaEntryPoint,
			registry.WithDefaultKwargs(registry.Kwargs{"dim": 2})),
		r.Register("Parabola-v1", reflect.TypeFor[*Parabola](),
			registry.WithDefaultKwargs(registry.Kwargs{"dim": 5})),
		r.Register("Steering-v0", SteeringEntryPoint,
			registry.WithMaxEpisodeSteps(50)),
		r.Register("Ramp-v0", NewRamp),
	)
}
