package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boristopalov/coi/pkg/config"
	"github.com/boristopalov/coi/pkg/problem"
	"github.com/boristopalov/coi/pkg/protocol"
	"github.com/boristopalov/coi/pkg/registry"
)

// Parabola minimizes scale * |x - center|^2 over a box.
type Parabola struct {
	problem.OptimizableBase
	space  *problem.Box
	scale  float64
	center float64
	last   []float64
}

// NewParabola creates a parabola. Kwargs: dim (int), scale (float),
// center (float) and render_mode.
func NewParabola(kw registry.Kwargs) (*Parabola, error) {
	dim, err := kw.Int("dim", 2)
	if err != nil {
		return nil, err
	}
	if dim < 1 {
		return nil, fmt.Errorf("dim must be positive, got %d", dim)
	}
	scale, err := kw.Float("scale", 1)
	if err != nil {
		return nil, err
	}
	center, err := kw.Float("center", 0)
	if err != nil {
		return nil, err
	}

	space, err := problem.UniformBox(dim, -2, 2)
	if err != nil {
		return nil, err
	}
	p := &Parabola{space: space, scale: scale, center: center}
	// |x - center| <= 3 on every axis and the scale is at most 10.
	p.ObjectiveRange = [2]float64{0, 90 * float64(dim)}
	for i := range dim {
		p.ParamNames = append(p.ParamNames, fmt.Sprintf("x%d", i))
	}

	err = p.Init(p,
		problem.WithMetadata(problem.Metadata{
			problem.KeyRenderModes: []string{problem.RenderANSI},
		}),
		problem.WithRenderMode(kw.String(registry.RenderModeKwarg, "")),
		problem.WithRenderer(problem.RenderANSI, p.renderANSI),
	)
	if err != nil {
		return nil, err
	}
	if _, err := p.config(); err != nil {
		return nil, err
	}
	return p, nil
}

// TypeMembers declares New as a type-level constructor.
func (*Parabola) TypeMembers() protocol.Members {
	return protocol.Members{"New": protocol.ClassMethod(NewParabola)}
}

// OptimizationSpace returns the parameter box.
func (p *Parabola) OptimizationSpace() *problem.Box { return p.space }

// GetInitialParams returns the corner at +1 on every axis.
func (p *Parabola) GetInitialParams() ([]float64, error) {
	x := make([]float64, p.space.Dim())
	for i := range x {
		x[i] = 1
	}
	return x, nil
}

// ComputeSingleObjective evaluates the parabola.
func (p *Parabola) ComputeSingleObjective(_ context.Context, x []float64) (float64, error) {
	if len(x) != p.space.Dim() {
		return 0, fmt.Errorf("expected %d params, got %d", p.space.Dim(), len(x))
	}
	sum := 0.0
	for _, v := range x {
		d := v - p.center
		sum += d * d
	}
	p.last = append(p.last[:0], x...)
	return p.scale * sum, nil
}

// GetConfig implements config.Configurable.
func (p *Parabola) GetConfig() *config.Config {
	c, _ := p.config()
	return c
}

func (p *Parabola) config() (*config.Config, error) {
	c := config.New()
	err := errors.Join(
		c.Add("scale", p.scale, config.WithRange(0.1, 10), config.WithLabel("Scale"),
			config.WithHelp("Steepness of the parabola"), config.WithDefault(1.0)),
		c.Add("center", p.center, config.WithRange(-1, 1), config.WithLabel("Center"),
			config.WithDefault(0.0)),
	)
	return c, err
}

// ApplyConfig implements config.Configurable.
func (p *Parabola) ApplyConfig(values config.Values) error {
	p.scale = values.Float("scale")
	p.center = values.Float("center")
	return nil
}

func (p *Parabola) renderANSI() (any, error) {
	if p.last == nil {
		return "no evaluation yet", nil
	}
	parts := make([]string, len(p.last))
	for i, v := range p.last {
		parts[i] = fmt.Sprintf("%s=%+.3f", p.ParamNames[i], v)
	}
	return strings.Join(parts, " "), nil
}
