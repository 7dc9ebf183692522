package registry

import "maps"

type makeOptions struct {
	kwargs     Kwargs
	renderMode string
}

// MakeOption configures a single Make call.
type MakeOption func(*makeOptions)

// WithKwargs adds kwargs, overriding those of the spec.
func WithKwargs(kw Kwargs) MakeOption {
	return func(o *makeOptions) {
		if o.kwargs == nil {
			o.kwargs = make(Kwargs, len(kw))
		}
		maps.Copy(o.kwargs, kw)
	}
}

// WithKwarg adds a single kwarg.
func WithKwarg(key string, value any) MakeOption {
	return func(o *makeOptions) {
		if o.kwargs == nil {
			o.kwargs = make(Kwargs)
		}
		o.kwargs[key] = value
	}
}

// WithRenderMode requests a render mode. It is passed to the entry point
// as the render_mode kwarg.
func WithRenderMode(mode string) MakeOption {
	return func(o *makeOptions) { o.renderMode = mode }
}
