package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Values maps field dests to validated values.
type Values map[string]any

// Int returns the int stored under dest, or 0.
func (v Values) Int(dest string) int {
	i, _ := v[dest].(int)
	return i
}

// Float returns the float stored under dest, or 0. Ints are converted.
func (v Values) Float(dest string) float64 {
	return toFloat(v[dest])
}

// Bool returns the bool stored under dest, or false.
func (v Values) Bool(dest string) bool {
	b, _ := v[dest].(bool)
	return b
}

// String returns the string stored under dest, or "".
func (v Values) String(dest string) string {
	s, _ := v[dest].(string)
	return s
}

// LoadValues reads a flat YAML mapping of dest to value and returns the
// text of each value, ready for ValidateAll.
func LoadValues(r io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("decoding config values: %w", err)
	}
	texts := make(map[string]string, len(raw))
	for dest, value := range raw {
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config value %s: expected a scalar, got %T", dest, value)
		case nil:
			texts[dest] = ""
		default:
			texts[dest] = fmt.Sprint(value)
		}
	}
	return texts, nil
}
