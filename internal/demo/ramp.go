package demo

import (
	"context"
	"fmt"
	"math"

	"github.com/boristopalov/coi/pkg/problem"
	"github.com/boristopalov/coi/pkg/registry"
)

// Ramp follows a sine-shaped target function over the cycle.
type Ramp struct {
	problem.OptimizableBase
	space  *problem.Box
	points []float64
}

// NewRamp creates a ramp. Kwargs: points (int), the number of skeleton
// points over one second of cycle time.
func NewRamp(kw registry.Kwargs) (any, error) {
	n, err := kw.Int("points", 5)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("points must be positive, got %d", n)
	}
	r := &Ramp{space: problem.MustBox([]float64{-1}, []float64{1})}
	for i := range n {
		r.points = append(r.points, float64(i)/float64(n))
	}
	r.ObjectiveRange = [2]float64{0, 4}
	r.ParamNames = []string{"amplitude"}
	if err := r.Init(r, problem.WithMetadata(problem.Metadata{problem.KeyMachine: problem.SPS})); err != nil {
		return nil, err
	}
	return r, nil
}

// GetOptimizationSpace returns the amplitude bounds.
func (r *Ramp) GetOptimizationSpace(float64) *problem.Box { return r.space }

// GetInitialParamsAt starts every point at zero amplitude.
func (r *Ramp) GetInitialParamsAt(float64) ([]float64, error) {
	return []float64{0}, nil
}

// ComputeFunctionObjective returns the squared distance to the target.
func (r *Ramp) ComputeFunctionObjective(ctx context.Context, t float64, params []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(params) != 1 {
		return 0, fmt.Errorf("expected 1 param, got %d", len(params))
	}
	d := params[0] - target(t)
	return d * d, nil
}

// OverrideSkeletonPoints returns the configured skeleton points.
func (r *Ramp) OverrideSkeletonPoints() []float64 {
	return append([]float64(nil), r.points...)
}

func target(t float64) float64 {
	return math.Sin(2 * math.Pi * t)
}
