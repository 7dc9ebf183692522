package problem

import (
	"fmt"
	"maps"
	"strings"
)

// Well-known metadata keys.
const (
	KeyRenderModes = "render_modes"
	KeyMachine     = "cern.machine"
	KeyJapc        = "cern.japc"
	KeyCancellable = "cern.cancellable"
)

// Metadata describes the capabilities of a problem.
type Metadata map[string]any

// DefaultMetadata returns the metadata of a problem that declares nothing.
func DefaultMetadata() Metadata {
	return Metadata{
		KeyRenderModes: []string{},
		KeyMachine:     NoMachine,
		KeyJapc:        false,
		KeyCancellable: false,
	}
}

// WithDefaults returns a copy of m with missing well-known keys filled in.
func (m Metadata) WithDefaults() Metadata {
	out := DefaultMetadata()
	maps.Copy(out, m)
	return out
}

// RenderModes returns the declared render modes.
func (m Metadata) RenderModes() []string {
	switch v := m[KeyRenderModes].(type) {
	case []string:
		return v
	case []any:
		modes := make([]string, 0, len(v))
		for _, x := range v {
			modes = append(modes, fmt.Sprint(x))
		}
		return modes
	}
	return nil
}

// Machine returns the accelerator the problem runs on.
func (m Metadata) Machine() Machine {
	switch v := m[KeyMachine].(type) {
	case Machine:
		return v
	case string:
		if machine, err := ParseMachine(v); err == nil {
			return machine
		}
	}
	return NoMachine
}

// NeedsJapc reports whether the problem talks to the control system.
func (m Metadata) NeedsJapc() bool {
	b, _ := m[KeyJapc].(bool)
	return b
}

// Cancellable reports whether the problem accepts a cancellation token.
func (m Metadata) Cancellable() bool {
	b, _ := m[KeyCancellable].(bool)
	return b
}

// Machine is a CERN accelerator.
type Machine string

// Known machines.
const (
	NoMachine Machine = "no machine"
	Linac2    Machine = "Linac2"
	Linac3    Machine = "Linac3"
	Linac4    Machine = "Linac4"
	Leir      Machine = "LEIR"
	PS        Machine = "PS"
	PSB       Machine = "PSB"
	SPS       Machine = "SPS"
	Awake     Machine = "AWAKE"
	LHC       Machine = "LHC"
	Isolde    Machine = "ISOLDE"
	AD        Machine = "AD"
	Elena     Machine = "ELENA"
)

// Machines lists all known machines.
var Machines = []Machine{NoMachine, Linac2, Linac3, Linac4, Leir, PS, PSB, SPS, Awake, LHC, Isolde, AD, Elena}

// ParseMachine finds a machine by name, ignoring case.
func ParseMachine(s string) (Machine, error) {
	for _, m := range Machines {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown machine %q", s)
}
