package checkers

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/coi/pkg/config"
	"github.com/boristopalov/coi/pkg/notice"
	"github.com/boristopalov/coi/pkg/problem"
	"github.com/boristopalov/coi/pkg/registry"
)

type quadratic struct {
	problem.OptimizableBase
	space     *problem.Box
	initial   []float64
	objective float64
	gain      float64
	applyErr  error
	noConfig  bool
}

func newQuadratic(t *testing.T, opts ...problem.Option) *quadratic {
	t.Helper()
	q := &quadratic{
		space:   problem.MustBox([]float64{-1, -1}, []float64{1, 1}),
		initial: []float64{0.5, 0.5},
		gain:    1,
	}
	q.ObjectiveRange = [2]float64{0, 10}
	q.ParamNames = []string{"x", "y"}
	require.NoError(t, q.Init(q, opts...))
	return q
}

func (q *quadratic) OptimizationSpace() *problem.Box { return q.space }

func (q *quadratic) GetInitialParams() ([]float64, error) { return q.initial, nil }

func (q *quadratic) ComputeSingleObjective(_ context.Context, x []float64) (float64, error) {
	if q.objective != 0 {
		return q.objective, nil
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return q.gain * sum, nil
}

func (q *quadratic) GetConfig() *config.Config {
	if q.noConfig {
		return nil
	}
	c := config.New()
	_ = c.Add("gain", q.gain, config.WithRange(0, 10))
	return c
}

func (q *quadratic) ApplyConfig(values config.Values) error {
	if q.applyErr != nil {
		return q.applyErr
	}
	q.gain = values.Float("gain")
	return nil
}

type walker struct {
	quadratic
	rng    *rand.Rand
	pos    float64
	resets int
	random bool
}

func newWalker(t *testing.T) *walker {
	t.Helper()
	w := &walker{quadratic: quadratic{
		space:   problem.MustBox([]float64{-1}, []float64{1}),
		initial: []float64{0},
		gain:    1,
	}}
	require.NoError(t, w.Init(w))
	return w
}

func (w *walker) Reset(_ context.Context, opts problem.ResetOptions) ([]float64, problem.Info, error) {
	w.resets++
	if opts.Seed != nil && !w.random {
		w.rng = rand.New(rand.NewPCG(*opts.Seed, 0))
	} else {
		w.rng = rand.New(rand.NewPCG(uint64(w.resets), 1))
	}
	w.pos = w.rng.Float64()*2 - 1
	return []float64{w.pos}, problem.Info{}, nil
}

func (w *walker) Step(_ context.Context, action []float64) (problem.StepResult, error) {
	w.pos = math.Max(-1, math.Min(1, w.pos+action[0]))
	return problem.StepResult{Observation: []float64{w.pos}, Reward: -math.Abs(w.pos)}, nil
}

func (w *walker) ActionSpace() *problem.Box      { return w.space }
func (w *walker) ObservationSpace() *problem.Box { return w.space }

type ramp struct {
	problem.OptimizableBase
	points  []float64
	badTime float64
}

func newRamp(t *testing.T, points []float64) *ramp {
	t.Helper()
	r := &ramp{points: points, badTime: -1}
	require.NoError(t, r.Init(r))
	return r
}

func (r *ramp) GetOptimizationSpace(float64) *problem.Box {
	return problem.MustBox([]float64{0}, []float64{1})
}

func (r *ramp) GetInitialParamsAt(t float64) ([]float64, error) {
	if t == r.badTime {
		return nil, errors.New("no data")
	}
	return []float64{0.5}, nil
}

func (r *ramp) ComputeFunctionObjective(_ context.Context, t float64, x []float64) (float64, error) {
	return t * x[0], nil
}

func (r *ramp) OverrideSkeletonPoints() []float64 { return r.points }

func failures(t *testing.T, err error) []*Failure {
	t.Helper()
	var out []*Failure
	var walk func(error)
	walk = func(err error) {
		if f, ok := err.(*Failure); ok {
			out = append(out, f)
			return
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				walk(e)
			}
		}
	}
	walk(err)
	return out
}

func TestCheck_Passes(t *testing.T) {
	ctx := context.Background()
	broker := notice.NewBroker()
	t.Cleanup(broker.Reset)

	assert.NoError(t, Check(ctx, newQuadratic(t), WithBroker(broker)))
	assert.NoError(t, Check(ctx, newWalker(t), WithSeed(7)))
	assert.NoError(t, Check(ctx, newRamp(t, []float64{0, 1, 2})))
	assert.NoError(t, Check(ctx, newRamp(t, nil), WithCycleTimes(0, 0.5)))
	assert.Empty(t, broker.History())
}

func TestCheck_NotAProblem(t *testing.T) {
	err := Check(context.Background(), "parabola")
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Contains(t, f.Message, "does not implement Problem")
}

func TestCheckSingleOptimizable_Failures(t *testing.T) {
	ctx := context.Background()

	q := newQuadratic(t)
	q.initial = []float64{0}
	fs := failures(t, CheckSingleOptimizable(ctx, q))
	require.Len(t, fs, 1)
	assert.Equal(t, "check_single_optimizable", fs[0].Check)
	assert.Contains(t, fs[0].Message, "1 entries")

	q = newQuadratic(t)
	q.objective = math.NaN()
	q.ObjectiveRange = [2]float64{1, 0}
	q.ParamNames = []string{"x"}
	fs = failures(t, CheckSingleOptimizable(ctx, q))
	assert.Len(t, fs, 3)

	q = newQuadratic(t)
	q.Constraints = []problem.Constraint{{Name: "broken", Low: 1, High: 0}}
	fs = failures(t, CheckSingleOptimizable(ctx, q))
	assert.Len(t, fs, 2)
}

func TestCheckSingleOptimizable_Warnings(t *testing.T) {
	broker := notice.NewBroker()
	t.Cleanup(broker.Reset)

	q := newQuadratic(t)
	q.initial = []float64{2, 0}
	q.objective = 100
	require.NoError(t, CheckSingleOptimizable(context.Background(), q, WithBroker(broker)))

	history := broker.History()
	require.Len(t, history, 2)
	for _, n := range history {
		assert.Equal(t, notice.CheckWarning, n.Kind)
		assert.Equal(t, "check_single_optimizable", n.Subject)
	}
	assert.Contains(t, history[0].Message, "outside of the optimization space")
	assert.Contains(t, history[1].Message, "outside of the objective range")
}

func TestCheckProblem(t *testing.T) {
	md := problem.Metadata{
		problem.KeyRenderModes: []string{problem.RenderANSI, problem.RenderHuman, "hologram"},
		problem.KeyJapc:        "yes",
		problem.KeyMachine:     "tevatron",
	}
	q := newQuadratic(t, problem.WithMetadata(md), problem.WithRenderMode(problem.RenderHuman))
	broker := notice.NewBroker()
	t.Cleanup(broker.Reset)

	fs := failures(t, CheckProblem(q, WithHeadless(false), WithBroker(broker)))
	require.Len(t, fs, 3)
	assert.Contains(t, fs[0].Message, problem.KeyMachine)
	assert.Contains(t, fs[1].Message, problem.KeyJapc)
	assert.Contains(t, fs[2].Message, "render in mode")
	require.Len(t, broker.History(), 1)
	assert.Contains(t, broker.History()[0].Message, "hologram")

	assert.Len(t, failures(t, CheckProblem(q)), 2, "headless checks do not render")
}

func TestCheckEnv(t *testing.T) {
	ctx := context.Background()

	w := newWalker(t)
	w.random = true
	fs := failures(t, CheckEnv(ctx, w))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "not deterministic")

	w.SetSpec(&registry.Spec{ID: "walker-v0", Nondeterministic: true})
	assert.NoError(t, CheckEnv(ctx, w))
}

func TestCheckFunctionOptimizable(t *testing.T) {
	ctx := context.Background()

	r := newRamp(t, []float64{0, 1, 2})
	r.badTime = 1
	fs := failures(t, CheckFunctionOptimizable(ctx, r))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "GetInitialParamsAt(1)")

	fs = failures(t, CheckFunctionOptimizable(ctx, newRamp(t, []float64{})))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "empty")

	broker := notice.NewBroker()
	t.Cleanup(broker.Reset)
	require.NoError(t, CheckFunctionOptimizable(ctx, newRamp(t, []float64{1, 0}), WithBroker(broker)))
	require.Len(t, broker.History(), 1)
	assert.Contains(t, broker.History()[0].Message, "strictly increasing")
}

func TestCheckConfigurable(t *testing.T) {
	q := newQuadratic(t)
	q.gain = 3
	require.NoError(t, CheckConfigurable(q))
	assert.Equal(t, 3.0, q.gain)

	q.noConfig = true
	fs := failures(t, CheckConfigurable(q))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "returned nil")
	q.noConfig = false

	q.gain = 1
	q.applyErr = errors.New("read-only")
	fs = failures(t, CheckConfigurable(q))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Message, "read-only")
}

func TestCheck_Disabled(t *testing.T) {
	q := newQuadratic(t)
	q.initial = nil
	q.SetSpec(&registry.Spec{ID: "quiet-v0", DisableEnvChecker: true})
	assert.NoError(t, Check(context.Background(), q))
}
