package checkers

import (
	"fmt"
	"math"

	"github.com/boristopalov/coi/pkg/problem"
)

func (c *checker) checkSpace(what string, b *problem.Box) {
	if b.Dim() == 0 || len(b.Low) != len(b.High) {
		c.failf("%s has inconsistent bounds", what)
		return
	}
	if !b.Bounded() {
		c.warnf("%s is unbounded", what)
	}
}

func (c *checker) checkParams(what string, space *problem.Box, x []float64) {
	if len(x) != space.Dim() {
		c.failf("%s have %d entries, the space has %d", what, len(x), space.Dim())
		return
	}
	if !space.Contains(x) {
		c.warnf("%s %v are outside of the optimization space", what, x)
	}
}

// checkOptimizableAttrs checks the data members reachable through the
// problem's wrapper chain.
func (c *checker) checkOptimizableAttrs(p problem.Problem, dim int) {
	if v, err := p.GetWrapperAttr("ObjectiveRange"); err == nil {
		if r, ok := v.([2]float64); ok && r != [2]float64{} && r[0] >= r[1] {
			c.failf("objective range %v must be increasing", r)
		}
	}
	if v, err := p.GetWrapperAttr("ParamNames"); err == nil {
		if names, ok := v.([]string); ok && names != nil && len(names) != dim {
			c.failf("%d param names for %d parameters", len(names), dim)
		}
	}
	if v, err := p.GetWrapperAttr("Constraints"); err == nil {
		if cs, ok := v.([]problem.Constraint); ok {
			for i, con := range cs {
				if con.Fun == nil {
					c.failf("constraint %d (%s) has no function", i, con.Name)
				}
				if con.Low > con.High {
					c.failf("constraint %d (%s) has bounds [%g, %g]", i, con.Name, con.Low, con.High)
				}
			}
		}
	}
}

func (c *checker) checkObjective(p problem.Problem, obj float64) {
	if math.IsNaN(obj) {
		c.failf("objective is NaN")
		return
	}
	if v, err := p.GetWrapperAttr("ObjectiveRange"); err == nil {
		if r, ok := v.([2]float64); ok && r != [2]float64{} && (obj < r[0] || obj > r[1]) {
			c.warnf("objective %g is outside of the objective range %v", obj, r)
		}
	}
}

func toMachine(v any) (problem.Machine, error) {
	switch x := v.(type) {
	case problem.Machine:
		return problem.ParseMachine(string(x))
	case string:
		return problem.ParseMachine(x)
	}
	return "", fmt.Errorf("expected a machine, got %T", v)
}
