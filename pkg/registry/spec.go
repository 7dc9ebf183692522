package registry

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/boristopalov/coi/pkg/protocol"
)

// Kwargs are keyword arguments passed to a creator.
type Kwargs map[string]any

// Creator constructs a problem from keyword arguments.
type Creator func(kwargs Kwargs) (any, error)

// Get returns the value stored under key.
func (kw Kwargs) Get(key string) (any, bool) {
	v, ok := kw[key]
	return v, ok
}

// String returns the string stored under key, or def.
func (kw Kwargs) String(key, def string) string {
	v, ok := kw[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the number stored under key, or def. Strings are parsed.
func (kw Kwargs) Float(key string, def float64) (float64, error) {
	v, ok := kw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("kwarg %s: %w", key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("kwarg %s: expected a number, got %T", key, v)
}

// Int returns the integer stored under key, or def. Strings are parsed.
func (kw Kwargs) Int(key string, def int) (int, error) {
	v, ok := kw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("kwarg %s: %v is not an integer", key, x)
		}
		return int(x), nil
	case string:
		i, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("kwarg %s: %w", key, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("kwarg %s: expected an integer, got %T", key, v)
}

// Bool returns the boolean stored under key, or def. Strings are parsed.
func (kw Kwargs) Bool(key string, def bool) (bool, error) {
	v, ok := kw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("kwarg %s: %w", key, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("kwarg %s: expected a boolean, got %T", key, v)
}

// Spec describes how to create a registered problem.
type Spec struct {
	ID string `yaml:"id" validate:"required,problemid"`

	// EntryPoint is a Creator, a "pkg.path:Symbol" reference or a
	// constructible type. It is never serialized.
	EntryPoint any `yaml:"-" validate:"-"`

	// EntryPointName is a readable name of the entry point.
	EntryPointName string `yaml:"entry_point"`

	MaxEpisodeSteps   int    `yaml:"max_episode_steps,omitempty" validate:"gte=0"`
	Nondeterministic  bool   `yaml:"nondeterministic,omitempty"`
	OrderEnforce      bool   `yaml:"order_enforce"`
	DisableEnvChecker bool   `yaml:"disable_env_checker,omitempty"`
	Kwargs            Kwargs `yaml:"kwargs,omitempty"`

	id ID
}

// ParsedID returns the structured id of the spec.
func (s *Spec) ParsedID() ID { return s.id }

// Copy returns a shallow copy with its own kwargs map.
func (s *Spec) Copy() *Spec {
	c := *s
	c.Kwargs = maps.Clone(s.Kwargs)
	return &c
}

// SpecOption configures a spec at registration.
type SpecOption func(*Spec)

// WithMaxEpisodeSteps sets the episode step limit. Zero means unlimited.
func WithMaxEpisodeSteps(n int) SpecOption {
	return func(s *Spec) { s.MaxEpisodeSteps = n }
}

// WithNondeterministic marks the problem as not reproducible from a seed.
func WithNondeterministic() SpecOption {
	return func(s *Spec) { s.Nondeterministic = true }
}

// WithOrderEnforce sets whether reset must be called before step.
func WithOrderEnforce(enforce bool) SpecOption {
	return func(s *Spec) { s.OrderEnforce = enforce }
}

// WithEnvCheckerDisabled skips the checkers for this problem.
func WithEnvCheckerDisabled() SpecOption {
	return func(s *Spec) { s.DisableEnvChecker = true }
}

// WithDefaultKwargs sets the kwargs passed to every creation.
func WithDefaultKwargs(kw Kwargs) SpecOption {
	return func(s *Spec) { s.Kwargs = maps.Clone(kw) }
}

// SpecSetter is implemented by created values that want to know the spec
// they were made from.
type SpecSetter interface {
	SetSpec(spec *Spec)
}

// Constructible is satisfied by types declaring a type-level New.
var Constructible = protocol.MustProtocol("Constructible", nil, protocol.Members{
	"New": protocol.ClassMethod(nil),
})

var specValidate = newSpecValidator()

func newSpecValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("problemid", func(fl validator.FieldLevel) bool {
		_, err := ParseID(fl.Field().String())
		return err == nil
	})
	return v
}

func validateSpec(s *Spec) error {
	if err := specValidate.Struct(s); err != nil {
		return &LookupError{ID: s.ID, Err: ErrInvalidSpec, Detail: err.Error()}
	}
	return nil
}

// entryPointName describes an entry point for display.
func entryPointName(ep any) string {
	switch x := ep.(type) {
	case string:
		return x
	case reflect.Type:
		return x.String()
	case *protocol.Class:
		return x.Name()
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", ep)
}
