package problem

import (
	"errors"
	"fmt"
	"slices"
)

// Standard render modes.
const (
	RenderHuman             = "human"
	RenderANSI              = "ansi"
	RenderRGBArray          = "rgb_array"
	RenderMatplotlibFigures = "matplotlib_figures"
)

// ErrRenderNotSupported is returned for render modes a problem does not
// declare in its metadata.
var ErrRenderNotSupported = errors.New("render mode not supported")

// Renderer produces the output of one render mode.
type Renderer func() (any, error)

// ValidateRenderMode checks that mode is empty or declared in md.
func ValidateRenderMode(md Metadata, mode string) error {
	if mode == "" || slices.Contains(md.RenderModes(), mode) {
		return nil
	}
	return fmt.Errorf("%w: %q, expected one of %v", ErrRenderNotSupported, mode, md.RenderModes())
}
