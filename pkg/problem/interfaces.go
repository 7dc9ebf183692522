// Package problem declares the interfaces of optimization problems and
// reinforcement-learning environments for accelerator control.
//
// Each interface comes in two forms: a Go interface for compile-time
// contracts and a runtime protocol that checks arbitrary values
// structurally. The Is* guards use the runtime protocols.
package problem

import (
	"context"

	"github.com/boristopalov/coi/pkg/registry"
)

// Problem is the root of all problem interfaces.
type Problem interface {
	// Metadata describes capabilities such as render modes and the
	// machine the problem runs on.
	Metadata() Metadata
	// RenderMode is the mode chosen at construction, or "".
	RenderMode() string
	// Spec is the registry spec the problem was made from, if any.
	Spec() *registry.Spec
	// Close releases resources held by the problem.
	Close() error
	// Render visualizes the problem according to RenderMode.
	Render() (any, error)
	// GetWrapperAttr looks up an attribute through the wrapper chain.
	GetWrapperAttr(name string) (any, error)
	// Unwrapped returns the innermost problem of a wrapper chain.
	Unwrapped() Problem
}

// SingleOptimizable is a problem with a fixed parameter space and a
// scalar objective to minimize.
type SingleOptimizable interface {
	Problem
	OptimizationSpace() *Box
	GetInitialParams() ([]float64, error)
	ComputeSingleObjective(ctx context.Context, params []float64) (float64, error)
}

// FunctionOptimizable is a problem whose parameters are functions of time,
// optimized point by point on a skeleton of cycle times.
type FunctionOptimizable interface {
	Problem
	GetOptimizationSpace(cycleTime float64) *Box
	GetInitialParamsAt(cycleTime float64) ([]float64, error)
	ComputeFunctionObjective(ctx context.Context, cycleTime float64, params []float64) (float64, error)
	// OverrideSkeletonPoints returns the cycle times to optimize at, or nil
	// to let the caller choose.
	OverrideSkeletonPoints() []float64
}

// Info carries auxiliary diagnostics of Reset and Step.
type Info map[string]any

// ResetOptions configure an episode reset.
type ResetOptions struct {
	// Seed reseeds the problem's random generator when not nil.
	Seed    *uint64
	Options map[string]any
}

// StepResult is the outcome of a single environment step.
type StepResult struct {
	Observation []float64
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Env is a reinforcement-learning environment.
type Env interface {
	Problem
	Reset(ctx context.Context, opts ResetOptions) ([]float64, Info, error)
	Step(ctx context.Context, action []float64) (StepResult, error)
	ActionSpace() *Box
	ObservationSpace() *Box
}

// OptEnv is both an environment and a single-objective problem.
type OptEnv interface {
	Env
	SingleOptimizable
}
