package problem

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Box is a closed box in R^n.
type Box struct {
	Low  []float64
	High []float64
}

// NewBox creates a box. The bounds must have equal, non-zero length,
// contain no NaN and satisfy low <= high.
func NewBox(low, high []float64) (*Box, error) {
	if len(low) == 0 || len(low) != len(high) {
		return nil, fmt.Errorf("box bounds have lengths %d and %d", len(low), len(high))
	}
	for i := range low {
		if math.IsNaN(low[i]) || math.IsNaN(high[i]) {
			return nil, fmt.Errorf("box bound %d is NaN", i)
		}
		if low[i] > high[i] {
			return nil, fmt.Errorf("box bound %d: low %g > high %g", i, low[i], high[i])
		}
	}
	return &Box{Low: slices.Clone(low), High: slices.Clone(high)}, nil
}

// UniformBox creates an n-dimensional box with the same bounds on every
// axis.
func UniformBox(n int, low, high float64) (*Box, error) {
	if n <= 0 {
		return nil, errors.New("box dimension must be positive")
	}
	l := make([]float64, n)
	h := make([]float64, n)
	for i := range n {
		l[i], h[i] = low, high
	}
	return NewBox(l, h)
}

// MustBox is like NewBox but panics on error.
func MustBox(low, high []float64) *Box {
	b, err := NewBox(low, high)
	if err != nil {
		panic(err)
	}
	return b
}

// Dim returns the number of dimensions.
func (b *Box) Dim() int { return len(b.Low) }

// Bounded reports whether all bounds are finite.
func (b *Box) Bounded() bool {
	for i := range b.Low {
		if math.IsInf(b.Low[i], 0) || math.IsInf(b.High[i], 0) {
			return false
		}
	}
	return true
}

// Contains reports whether x lies inside the box.
func (b *Box) Contains(x []float64) bool {
	if len(x) != len(b.Low) {
		return false
	}
	for i, v := range x {
		if math.IsNaN(v) || v < b.Low[i] || v > b.High[i] {
			return false
		}
	}
	return true
}

// Clip returns a copy of x moved into the box.
func (b *Box) Clip(x []float64) []float64 {
	out := slices.Clone(x)
	for i := range min(len(out), len(b.Low)) {
		out[i] = math.Max(b.Low[i], math.Min(b.High[i], out[i]))
	}
	return out
}

// Sample draws a uniform point. Unbounded axes are sampled from a
// standard normal distribution, half-bounded ones from an exponential.
func (b *Box) Sample(rng *rand.Rand) []float64 {
	out := make([]float64, len(b.Low))
	for i := range out {
		lo, hi := b.Low[i], b.High[i]
		switch {
		case !math.IsInf(lo, 0) && !math.IsInf(hi, 0):
			out[i] = lo + rng.Float64()*(hi-lo)
		case !math.IsInf(lo, 0):
			out[i] = lo + rng.ExpFloat64()
		case !math.IsInf(hi, 0):
			out[i] = hi - rng.ExpFloat64()
		default:
			out[i] = rng.NormFloat64()
		}
	}
	return out
}

// String implements fmt.Stringer.
func (b *Box) String() string {
	return fmt.Sprintf("Box(%v, %v)", b.Low, b.High)
}

// Constraint restricts parameters to Low <= Fun(params) <= High.
type Constraint struct {
	Name string
	Fun  func(params []float64) float64
	Low  float64
	High float64
}

// Satisfied reports whether params satisfy the constraint.
func (c Constraint) Satisfied(params []float64) bool {
	if c.Fun == nil {
		return true
	}
	v := c.Fun(params)
	return !math.IsNaN(v) && v >= c.Low && v <= c.High
}
