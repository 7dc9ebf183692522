// Package checkers validates that problems implement their interfaces
// correctly by exercising them.
//
// Check runs every checker whose guard applies. Violations are returned as
// *Failure errors joined together; suspicious but legal behavior is logged
// as a warning and published as a notice.
package checkers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/boristopalov/coi/pkg/config"
	"github.com/boristopalov/coi/pkg/logging"
	"github.com/boristopalov/coi/pkg/notice"
	"github.com/boristopalov/coi/pkg/problem"
)

// Failure is a violated interface contract.
type Failure struct {
	Check   string
	Message string
}

// Error returns the error message.
func (f *Failure) Error() string {
	return f.Check + ": " + f.Message
}

type options struct {
	headless   bool
	logger     *slog.Logger
	broker     *notice.Broker
	seed       uint64
	cycleTimes []float64
}

// Option configures the checkers.
type Option func(*options)

// WithHeadless controls whether Render may be called. Checks are headless
// by default.
func WithHeadless(headless bool) Option {
	return func(o *options) { o.headless = headless }
}

// WithLogger sets the logger for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = logging.OrNop(l) }
}

// WithBroker publishes warnings as notices.
func WithBroker(b *notice.Broker) Option {
	return func(o *options) { o.broker = b }
}

// WithSeed sets the seed used for resets and sampling.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithCycleTimes sets the cycle times at which function optimizable
// problems are checked when they do not override their skeleton points.
func WithCycleTimes(times ...float64) Option {
	return func(o *options) { o.cycleTimes = times }
}

// checker accumulates the results of one check function.
type checker struct {
	name     string
	opts     *options
	failures []error
}

func newChecker(name string, opts []Option) *checker {
	o := &options{
		headless:   true,
		logger:     logging.Nop(),
		cycleTimes: []float64{0},
	}
	for _, opt := range opts {
		opt(o)
	}
	return &checker{name: name, opts: o}
}

func (c *checker) failf(format string, args ...any) {
	c.failures = append(c.failures, &Failure{Check: c.name, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.opts.logger.Warn(msg, "check", c.name)
	if c.opts.broker != nil {
		_ = c.opts.broker.Publish(notice.New(notice.CheckWarning, c.name, msg))
	}
}

func (c *checker) err() error {
	return errors.Join(c.failures...)
}

func (c *checker) rng() *rand.Rand {
	return rand.New(rand.NewPCG(c.opts.seed, c.opts.seed^0x9e3779b97f4a7c15))
}

// Check runs all checkers that apply to p.
func Check(ctx context.Context, p any, opts ...Option) error {
	if !problem.IsProblem(p) {
		return &Failure{Check: "check", Message: fmt.Sprintf("%T does not implement Problem", p)}
	}
	prob, ok := p.(problem.Problem)
	if !ok {
		return &Failure{Check: "check", Message: fmt.Sprintf("%T matches Problem structurally but not its Go interface", p)}
	}
	if spec := prob.Spec(); spec != nil && spec.DisableEnvChecker {
		newChecker("check", opts).warnf("checks are disabled for %s", spec.ID)
		return nil
	}

	errs := []error{CheckProblem(prob, opts...)}
	if so, ok := p.(problem.SingleOptimizable); ok && problem.IsSingleOptimizable(p) {
		errs = append(errs, CheckSingleOptimizable(ctx, so, opts...))
	}
	if fo, ok := p.(problem.FunctionOptimizable); ok && problem.IsFunctionOptimizable(p) {
		errs = append(errs, CheckFunctionOptimizable(ctx, fo, opts...))
	}
	if env, ok := p.(problem.Env); ok && problem.IsEnv(p) {
		errs = append(errs, CheckEnv(ctx, env, opts...))
	}
	if cfg, ok := p.(config.Configurable); ok && config.IsConfigurable(p) {
		errs = append(errs, CheckConfigurable(cfg, opts...))
	}
	return errors.Join(errs...)
}

// CheckProblem checks the metadata, render mode and wrapper chain.
func CheckProblem(p problem.Problem, opts ...Option) error {
	c := newChecker("check_problem", opts)

	md := p.Metadata()
	if md == nil {
		c.failf("metadata is nil")
		md = problem.DefaultMetadata()
	}
	modes := md.RenderModes()
	if v, ok := md[problem.KeyRenderModes]; ok && modes == nil {
		c.failf("metadata %q must be a list of strings, not %T", problem.KeyRenderModes, v)
	}
	known := []string{problem.RenderHuman, problem.RenderANSI, problem.RenderRGBArray, problem.RenderMatplotlibFigures}
	for _, mode := range modes {
		if !slices.Contains(known, mode) {
			c.warnf("non-standard render mode %q", mode)
		}
	}
	if v, ok := md[problem.KeyMachine]; ok {
		if _, err := toMachine(v); err != nil {
			c.failf("metadata %q: %v", problem.KeyMachine, err)
		}
	}
	for _, key := range []string{problem.KeyJapc, problem.KeyCancellable} {
		if v, ok := md[key]; ok {
			if _, isBool := v.(bool); !isBool {
				c.failf("metadata %q must be a bool, not %T", key, v)
			}
		}
	}

	if err := problem.ValidateRenderMode(md, p.RenderMode()); err != nil {
		c.failf("%v", err)
	}
	if !c.opts.headless && p.RenderMode() != "" {
		if _, err := p.Render(); err != nil {
			c.failf("render in mode %q: %v", p.RenderMode(), err)
		}
	}

	if u := p.Unwrapped(); u == nil {
		c.failf("Unwrapped returned nil")
	} else if !problem.IsProblem(u) {
		c.failf("Unwrapped returned %T, which is not a Problem", u)
	}
	return c.err()
}

// CheckSingleOptimizable checks the optimization space, the initial
// parameters and the objective.
func CheckSingleOptimizable(ctx context.Context, p problem.SingleOptimizable, opts ...Option) error {
	c := newChecker("check_single_optimizable", opts)

	space := p.OptimizationSpace()
	if space == nil {
		c.failf("optimization space is nil")
		return c.err()
	}
	c.checkSpace("optimization space", space)
	c.checkOptimizableAttrs(p, space.Dim())

	x, err := p.GetInitialParams()
	if err != nil {
		c.failf("GetInitialParams: %v", err)
		return c.err()
	}
	c.checkParams("initial params", space, x)

	obj, err := p.ComputeSingleObjective(ctx, x)
	if err != nil {
		c.failf("ComputeSingleObjective: %v", err)
		return c.err()
	}
	c.checkObjective(p, obj)
	return c.err()
}

// CheckFunctionOptimizable checks every skeleton point.
func CheckFunctionOptimizable(ctx context.Context, p problem.FunctionOptimizable, opts ...Option) error {
	c := newChecker("check_function_optimizable", opts)

	times := p.OverrideSkeletonPoints()
	if times == nil {
		times = c.opts.cycleTimes
	} else if len(times) == 0 {
		c.failf("OverrideSkeletonPoints returned an empty, non-nil list")
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			c.warnf("skeleton points are not strictly increasing at index %d", i)
			break
		}
	}

	for _, t := range times {
		space := p.GetOptimizationSpace(t)
		if space == nil {
			c.failf("optimization space at t=%g is nil", t)
			continue
		}
		c.checkSpace(fmt.Sprintf("optimization space at t=%g", t), space)
		c.checkOptimizableAttrs(p, space.Dim())

		x, err := p.GetInitialParamsAt(t)
		if err != nil {
			c.failf("GetInitialParamsAt(%g): %v", t, err)
			continue
		}
		c.checkParams(fmt.Sprintf("initial params at t=%g", t), space, x)

		obj, err := p.ComputeFunctionObjective(ctx, t, x)
		if err != nil {
			c.failf("ComputeFunctionObjective(%g): %v", t, err)
			continue
		}
		c.checkObjective(p, obj)
	}
	return c.err()
}

// CheckEnv checks the spaces, seeding and a single step.
func CheckEnv(ctx context.Context, env problem.Env, opts ...Option) error {
	c := newChecker("check_env", opts)

	actions, observations := env.ActionSpace(), env.ObservationSpace()
	if actions == nil || observations == nil {
		c.failf("action and observation space must not be nil")
		return c.err()
	}
	c.checkSpace("action space", actions)
	c.checkSpace("observation space", observations)

	seed := c.opts.seed
	obs1, info, err := env.Reset(ctx, problem.ResetOptions{Seed: &seed})
	if err != nil {
		c.failf("Reset: %v", err)
		return c.err()
	}
	if info == nil {
		c.warnf("Reset returned a nil info map")
	}
	if !observations.Contains(obs1) {
		c.failf("reset observation %v is not in the observation space", obs1)
	}
	obs2, _, err := env.Reset(ctx, problem.ResetOptions{Seed: &seed})
	if err != nil {
		c.failf("second Reset: %v", err)
		return c.err()
	}
	nondeterministic := env.Spec() != nil && env.Spec().Nondeterministic
	if !nondeterministic && !slices.Equal(obs1, obs2) {
		c.failf("Reset with the same seed is not deterministic: %v != %v", obs1, obs2)
	}

	res, err := env.Step(ctx, actions.Sample(c.rng()))
	if err != nil {
		c.failf("Step: %v", err)
		return c.err()
	}
	if !observations.Contains(res.Observation) {
		c.failf("step observation %v is not in the observation space", res.Observation)
	}
	if math.IsNaN(res.Reward) || math.IsInf(res.Reward, 0) {
		c.failf("reward %g is not finite", res.Reward)
	}
	return c.err()
}

// CheckConfigurable checks that the current config validates and can be
// applied.
func CheckConfigurable(p config.Configurable, opts ...Option) error {
	c := newChecker("check_configurable", opts)

	cfg := p.GetConfig()
	if cfg == nil {
		c.failf("GetConfig returned nil")
		return c.err()
	}
	fields := cfg.Fields()
	if len(fields) == 0 {
		c.warnf("config declares no fields")
	}
	texts := make(map[string]string, len(fields))
	for _, f := range fields {
		texts[f.Dest] = fmt.Sprint(f.Value)
	}
	values, err := cfg.ValidateAll(texts)
	if err != nil {
		c.failf("current values do not validate: %v", err)
		return c.err()
	}
	if err := p.ApplyConfig(values); err != nil {
		c.failf("ApplyConfig with the current values: %v", err)
	}
	return c.err()
}
