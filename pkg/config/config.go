// Package config declares the configurable parameters of a problem and
// validates user input against them.
package config

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Type is the type of a config value.
type Type string

// Supported value types.
const (
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeString Type = "string"
)

// Range is an inclusive numeric interval.
type Range struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high" validate:"gtefield=Low"`
}

// Field is a single configurable value.
type Field struct {
	Dest    string `yaml:"dest" validate:"required,dest"`
	Value   any    `yaml:"value"`
	Label   string `yaml:"label"`
	Help    string `yaml:"help,omitempty"`
	Type    Type   `yaml:"type" validate:"oneof=int float bool string"`
	Range   *Range `yaml:"range,omitempty"`
	Choices []any  `yaml:"choices,omitempty"`
	Default any    `yaml:"default,omitempty"`
}

// FieldOption configures a field declared with Add.
type FieldOption func(*Field)

// WithLabel sets the display label. It defaults to the dest.
func WithLabel(label string) FieldOption {
	return func(f *Field) { f.Label = label }
}

// WithHelp sets a help text.
func WithHelp(help string) FieldOption {
	return func(f *Field) { f.Help = help }
}

// WithType overrides the type inferred from the value.
func WithType(t Type) FieldOption {
	return func(f *Field) { f.Type = t }
}

// WithRange restricts a numeric field to [low, high].
func WithRange(low, high float64) FieldOption {
	return func(f *Field) { f.Range = &Range{Low: low, High: high} }
}

// WithChoices restricts a field to the given values.
func WithChoices(choices ...any) FieldOption {
	return func(f *Field) { f.Choices = slices.Clone(choices) }
}

// WithDefault sets the value a user interface resets the field to.
func WithDefault(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// Config is an ordered set of fields.
type Config struct {
	fields []Field
}

// New creates an empty config.
func New() *Config {
	return &Config{}
}

var (
	destPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	fieldValidate = newFieldValidator()
)

func newFieldValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dest", func(fl validator.FieldLevel) bool {
		return destPattern.MatchString(fl.Field().String())
	})
	return v
}

// Add declares a field. The type is inferred from value unless WithType
// is given. The value, the default and all choices must be valid for the
// field.
func (c *Config) Add(dest string, value any, opts ...FieldOption) error {
	f := Field{Dest: dest, Value: value, Label: dest}
	for _, opt := range opts {
		opt(&f)
	}
	if f.Type == "" {
		t, err := inferType(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", dest, err)
		}
		f.Type = t
	}
	if err := fieldValidate.Struct(f); err != nil {
		return fmt.Errorf("field %s: %w", dest, err)
	}
	if f.Range != nil && f.Type != TypeInt && f.Type != TypeFloat {
		return fmt.Errorf("field %s: range requires a numeric type, not %s", dest, f.Type)
	}
	if f.Range != nil && len(f.Choices) > 0 {
		return fmt.Errorf("field %s: range and choices are mutually exclusive", dest)
	}
	if slices.ContainsFunc(c.fields, func(o Field) bool { return o.Dest == dest }) {
		return fmt.Errorf("field %s: duplicate dest", dest)
	}

	for i, choice := range f.Choices {
		v, err := f.convert(fmt.Sprint(choice))
		if err != nil {
			return fmt.Errorf("field %s: choice %v: %w", dest, choice, err)
		}
		f.Choices[i] = v
	}
	v, err := f.check(fmt.Sprint(value))
	if err != nil {
		return fmt.Errorf("field %s: initial value: %w", dest, err)
	}
	f.Value = v
	if f.Default != nil {
		if f.Default, err = f.check(fmt.Sprint(f.Default)); err != nil {
			return fmt.Errorf("field %s: default: %w", dest, err)
		}
	}

	c.fields = append(c.fields, f)
	return nil
}

// Fields returns the declared fields in order.
func (c *Config) Fields() []Field {
	return slices.Clone(c.fields)
}

// Field returns the field with the given dest.
func (c *Config) Field(dest string) (Field, bool) {
	i := slices.IndexFunc(c.fields, func(f Field) bool { return f.Dest == dest })
	if i < 0 {
		return Field{}, false
	}
	return c.fields[i], true
}

// FieldValues returns the current value of every field.
func (c *Config) FieldValues() Values {
	values := make(Values, len(c.fields))
	for _, f := range c.fields {
		values[f.Dest] = f.Value
	}
	return values
}

// Validate converts the text representation of a value for the field
// dest and checks its range and choices.
func (c *Config) Validate(dest, text string) (any, error) {
	f, ok := c.Field(dest)
	if !ok {
		return nil, &BadConfigError{Dest: dest, Value: text, Err: ErrUnknownField}
	}
	v, err := f.check(text)
	if err != nil {
		return nil, &BadConfigError{Dest: dest, Value: text, Err: err}
	}
	return v, nil
}

// ValidateAll validates texts for a subset of fields. Fields missing from
// texts keep their current value. All failures are reported together.
func (c *Config) ValidateAll(texts map[string]string) (Values, error) {
	values := c.FieldValues()
	var errs []error
	for _, dest := range slices.Sorted(maps.Keys(texts)) {
		v, err := c.Validate(dest, texts[dest])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[dest] = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return values, nil
}

func (f *Field) check(text string) (any, error) {
	v, err := f.convert(text)
	if err != nil {
		return nil, err
	}
	if f.Range != nil {
		x := toFloat(v)
		if !(x >= f.Range.Low && x <= f.Range.High) {
			return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, v, f.Range.Low, f.Range.High)
		}
	}
	if len(f.Choices) > 0 && !slices.Contains(f.Choices, v) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrNotAChoice, v, f.Choices)
	}
	return v, nil
}

func (f *Field) convert(text string) (any, error) {
	if f.Type != TypeString {
		text = strings.TrimSpace(text)
	}
	switch f.Type {
	case TypeInt:
		i, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an int", ErrBadValue, text)
		}
		return i, nil
	case TypeFloat:
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrBadValue, text)
		}
		return x, nil
	case TypeBool:
		return parseBool(text)
	case TypeString:
		return text, nil
	}
	return nil, fmt.Errorf("%w: unknown type %s", ErrBadValue, f.Type)
}

// parseBool accepts the spellings of true and false a user is likely to
// type.
func parseBool(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "true", "yes", "on", "1", "checked":
		return true, nil
	case "false", "no", "off", "0", "unchecked", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a bool", ErrBadValue, text)
}

func inferType(v any) (Type, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return TypeInt, nil
	case float32, float64:
		return TypeFloat, nil
	case bool:
		return TypeBool, nil
	case string:
		return TypeString, nil
	}
	return "", fmt.Errorf("cannot infer a config type from %T", v)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		return x
	}
	return 0
}
