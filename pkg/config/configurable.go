package config

import "github.com/boristopalov/coi/pkg/protocol"

// Configurable is implemented by problems whose parameters can be changed
// by the user.
type Configurable interface {
	// GetConfig declares the configurable fields with their current
	// values.
	GetConfig() *Config
	// ApplyConfig applies values validated against GetConfig.
	ApplyConfig(values Values) error
}

func abstract() {}

// ConfigurableProtocol is the runtime form of Configurable.
var ConfigurableProtocol = protocol.MustProtocol("Configurable", nil, protocol.Members{
	"GetConfig":   abstract,
	"ApplyConfig": abstract,
})

// IsConfigurable reports whether obj structurally implements Configurable.
func IsConfigurable(obj any) bool { return ConfigurableProtocol.Implements(obj) }

// Apply validates texts against the config of c and applies the result.
func Apply(c Configurable, texts map[string]string) (Values, error) {
	values, err := c.GetConfig().ValidateAll(texts)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyConfig(values); err != nil {
		return nil, err
	}
	return values, nil
}
