package demo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/boristopalov/coi/pkg/cancellation"
	"github.com/boristopalov/coi/pkg/problem"
	"github.com/boristopalov/coi/pkg/registry"
)

// TokenKwarg is the kwarg carrying a *cancellation.Token.
const TokenKwarg = "cancellation_token"

// Steering corrects a beam trajectory with corrector kicks. It can be
// solved step by step as an environment or in one go as an optimization
// problem.
type Steering struct {
	problem.OptimizableBase
	response  [][]float64
	offset    []float64
	kicks     []float64
	steps     int
	threshold float64
	rng       *rand.Rand
	token     *cancellation.Token

	kickSpace   *problem.Box
	actionSpace *problem.Box
	obsSpace    *problem.Box
}

// NewSteering creates a steering problem. Kwargs: dim (int), threshold
// (float), render_mode and cancellation_token.
func NewSteering(kw registry.Kwargs) (any, error) {
	dim, err := kw.Int("dim", 3)
	if err != nil {
		return nil, err
	}
	if dim < 1 {
		return nil, fmt.Errorf("dim must be positive, got %d", dim)
	}
	threshold, err := kw.Float("threshold", 0.05)
	if err != nil {
		return nil, err
	}
	var token *cancellation.Token
	if v, ok := kw.Get(TokenKwarg); ok && v != nil {
		if token, ok = v.(*cancellation.Token); !ok {
			return nil, fmt.Errorf("kwarg %s: expected *cancellation.Token, got %T", TokenKwarg, v)
		}
	}

	s := &Steering{
		response:  make([][]float64, dim),
		offset:    make([]float64, dim),
		kicks:     make([]float64, dim),
		threshold: threshold,
		rng:       rand.New(rand.NewPCG(0, 0)),
		token:     token,
	}
	for i := range dim {
		s.response[i] = make([]float64, dim)
		for j := range dim {
			s.response[i][j] = 1 / (1 + math.Abs(float64(i-j)))
		}
		s.offset[i] = 0.5 * math.Sin(float64(i+1))
		s.ParamNames = append(s.ParamNames, fmt.Sprintf("kick%d", i))
	}
	if s.kickSpace, err = problem.UniformBox(dim, -1, 1); err != nil {
		return nil, err
	}
	if s.actionSpace, err = problem.UniformBox(dim, -0.5, 0.5); err != nil {
		return nil, err
	}
	if s.obsSpace, err = problem.UniformBox(dim, -5, 5); err != nil {
		return nil, err
	}
	s.ObjectiveRange = [2]float64{0, 5}

	err = s.Init(s,
		problem.WithMetadata(problem.Metadata{
			problem.KeyRenderModes: []string{problem.RenderANSI},
			problem.KeyMachine:     problem.Awake,
			problem.KeyCancellable: true,
		}),
		problem.WithRenderMode(kw.String(registry.RenderModeKwarg, "")),
		problem.WithRenderer(problem.RenderANSI, s.renderANSI),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Reset draws random kicks.
func (s *Steering) Reset(_ context.Context, opts problem.ResetOptions) ([]float64, problem.Info, error) {
	if err := s.token.RaiseIfCancellationRequested(); err != nil {
		return nil, nil, err
	}
	if opts.Seed != nil {
		s.rng = rand.New(rand.NewPCG(*opts.Seed, 0))
	}
	s.kicks = s.kickSpace.Sample(s.rng)
	s.steps = 0
	obs := s.positions()
	return obs, problem.Info{"rms": rms(obs)}, nil
}

// Step adds action to the kicks.
func (s *Steering) Step(ctx context.Context, action []float64) (problem.StepResult, error) {
	if err := s.check(ctx); err != nil {
		return problem.StepResult{}, err
	}
	if len(action) != len(s.kicks) {
		return problem.StepResult{}, fmt.Errorf("expected %d actions, got %d", len(s.kicks), len(action))
	}
	action = s.actionSpace.Clip(action)
	for i := range s.kicks {
		s.kicks[i] += action[i]
	}
	s.kicks = s.kickSpace.Clip(s.kicks)
	s.steps++

	obs := s.positions()
	dist := rms(obs)
	res := problem.StepResult{
		Observation: obs,
		Reward:      -dist,
		Terminated:  dist < s.threshold,
		Info:        problem.Info{"rms": dist},
	}
	if spec := s.Spec(); spec != nil && spec.MaxEpisodeSteps > 0 && s.steps >= spec.MaxEpisodeSteps {
		res.Truncated = true
	}
	return res, nil
}

// ActionSpace returns the bounds of a single kick change.
func (s *Steering) ActionSpace() *problem.Box { return s.actionSpace }

// ObservationSpace returns the bounds of the beam positions.
func (s *Steering) ObservationSpace() *problem.Box { return s.obsSpace }

// OptimizationSpace returns the bounds of the kicks.
func (s *Steering) OptimizationSpace() *problem.Box { return s.kickSpace }

// GetInitialParams returns the current kicks.
func (s *Steering) GetInitialParams() ([]float64, error) {
	return append([]float64(nil), s.kicks...), nil
}

// ComputeSingleObjective sets the kicks and returns the RMS position.
func (s *Steering) ComputeSingleObjective(ctx context.Context, params []float64) (float64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if len(params) != len(s.kicks) {
		return 0, fmt.Errorf("expected %d params, got %d", len(s.kicks), len(params))
	}
	s.kicks = s.kickSpace.Clip(params)
	return rms(s.positions()), nil
}

func (s *Steering) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.token.RaiseIfCancellationRequested()
}

// positions computes response * kicks + offset.
func (s *Steering) positions() []float64 {
	obs := make([]float64, len(s.kicks))
	for i, row := range s.response {
		obs[i] = s.offset[i]
		for j, r := range row {
			obs[i] += r * s.kicks[j]
		}
	}
	return s.obsSpace.Clip(obs)
}

func (s *Steering) renderANSI() (any, error) {
	var b strings.Builder
	for i, x := range s.positions() {
		bar := int(math.Round(math.Abs(x) * 10))
		fmt.Fprintf(&b, "BPM%d %+.3f %s\n", i, x, strings.Repeat("#", bar))
	}
	return b.String(), nil
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
