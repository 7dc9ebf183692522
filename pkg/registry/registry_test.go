package registry

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/coi/pkg/notice"
	"github.com/boristopalov/coi/pkg/protocol"
)

type thing struct {
	tag    string
	kwargs Kwargs
	spec   *Spec
}

func (t *thing) SetSpec(spec *Spec) { t.spec = spec }

func newThing(tag string) Creator {
	return func(kw Kwargs) (any, error) {
		return &thing{tag: tag, kwargs: kw}, nil
	}
}

func lastNotice(t *testing.T, r *Registry) notice.Notice {
	t.Helper()
	history := r.Notices().History()
	require.NotEmpty(t, history)
	return history[len(history)-1]
}

func requireLookupError(t *testing.T, err error, target error) *LookupError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, target), "got %v, want %v", err, target)
	var lerr *LookupError
	require.True(t, errors.As(err, &lerr))
	return lerr
}

func TestMake_VersionResolution(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("name-v1", newThing("v1")))

	obj, err := r.Make("name")
	require.NoError(t, err)
	assert.Equal(t, "v1", obj.(*thing).tag)
	n := lastNotice(t, r)
	assert.Equal(t, notice.Upgraded, n.Kind)
	assert.Contains(t, n.Message, "name-v1")

	require.NoError(t, r.Register("name-v2", newThing("v2")))

	obj, err = r.Make("name-v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", obj.(*thing).tag, "out of date ids still resolve as requested")
	n = lastNotice(t, r)
	assert.Equal(t, notice.OutOfDate, n.Kind)
	assert.Equal(t, "name-v1", n.Subject)

	obj, err = r.Make("name")
	require.NoError(t, err)
	assert.Equal(t, "v2", obj.(*thing).tag)

	before := len(r.Notices().History())
	_, err = r.Make("name-v2")
	require.NoError(t, err)
	assert.Len(t, r.Notices().History(), before, "latest version raises no notice")
}

func TestMake_NamespaceNotFound(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("fooo/bar-v1", newThing("")))

	_, err := r.Make("foo/bar-v1")
	lerr := requireLookupError(t, err, ErrNamespaceNotFound)
	assert.Equal(t, "fooo", lerr.Suggestion)
	assert.Contains(t, err.Error(), `did you mean "fooo"`)

	_, err = r.Make("zzzzzzzz/bar-v1")
	lerr = requireLookupError(t, err, ErrNamespaceNotFound)
	assert.Empty(t, lerr.Suggestion)
}

func TestSpec_LookupErrors(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("demo/Parabola-v0", newThing("")))
	require.NoError(t, r.Register("a/Ramp-v0", newThing("")))
	require.NoError(t, r.Register("b/Other-v0", newThing("")))
	require.NoError(t, r.Register("x-v1", newThing("")))
	require.NoError(t, r.Register("x-v2", newThing("")))
	require.NoError(t, r.Register("y", newThing("")))

	tests := []struct {
		id         string
		err        error
		suggestion string
	}{
		{id: "demo/Parabla-v0", err: ErrNameNotFound, suggestion: "demo/Parabola"},
		{id: "b/Ramp-v0", err: ErrNameNotFound, suggestion: "a/Ramp"},
		{id: "x-v3", err: ErrVersionNotFound, suggestion: "x-v2"},
		{id: "x-v0", err: ErrDeprecatedVersion, suggestion: "x-v2"},
		{id: "y-v1", err: ErrVersionNotFound, suggestion: "y"},
		{id: "a/b/c", err: ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := r.Spec(tt.id)
			lerr := requireLookupError(t, err, tt.err)
			assert.Equal(t, tt.suggestion, lerr.Suggestion)
		})
	}
}

func TestRegister_Errors(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dup-v0", newThing("")))
	require.NoError(t, r.Register("plain", newThing("")))

	tests := []struct {
		name  string
		id    string
		entry any
		opts  []SpecOption
		err   error
	}{
		{name: "duplicate", id: "dup-v0", entry: newThing(""), err: ErrAlreadyRegistered},
		{name: "unversioned after versioned", id: "dup", entry: newThing(""), err: ErrUnversionedConflict},
		{name: "versioned after unversioned", id: "plain-v1", entry: newThing(""), err: ErrVersionedConflict},
		{name: "malformed id", id: "", entry: newThing(""), err: ErrInvalidID},
		{name: "nil entry point", id: "nil-v0", entry: nil, err: ErrInvalidEntryPoint},
		{name: "nil creator", id: "nilfn-v0", entry: Creator(nil), err: ErrInvalidEntryPoint},
		{name: "not a function", id: "int-v0", entry: 3, err: ErrInvalidEntryPoint},
		{name: "wrong signature", id: "sig-v0", entry: func(int) any { return nil }, err: ErrInvalidEntryPoint},
		{name: "bad reference", id: "ref-v0", entry: "no-colon", err: ErrInvalidEntryPoint},
		{name: "type without New", id: "type-v0", entry: reflect.TypeFor[thing](), err: ErrInvalidEntryPoint},
		{name: "negative steps", id: "steps-v0", entry: newThing(""), opts: []SpecOption{WithMaxEpisodeSteps(-1)}, err: ErrInvalidSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.id, tt.entry, tt.opts...)
			requireLookupError(t, err, tt.err)
		})
	}
}

func TestMake_Kwargs(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("kw-v0", newThing(""),
		WithDefaultKwargs(Kwargs{"a": 1, "b": 2}),
		WithMaxEpisodeSteps(50),
	))

	obj, err := r.Make("kw-v0", WithKwarg("b", 3), WithKwargs(Kwargs{"c": 4}), WithRenderMode("human"))
	require.NoError(t, err)
	th := obj.(*thing)
	want := Kwargs{"a": 1, "b": 3, "c": 4, RenderModeKwarg: "human"}
	assert.Equal(t, want, th.kwargs)

	require.NotNil(t, th.spec)
	assert.Equal(t, "kw-v0", th.spec.ID)
	assert.Equal(t, 50, th.spec.MaxEpisodeSteps)
	assert.Equal(t, want, th.spec.Kwargs)

	spec, err := r.Spec("kw-v0")
	require.NoError(t, err)
	assert.Equal(t, Kwargs{"a": 1, "b": 2}, spec.Kwargs, "registered kwargs are not modified")
	assert.True(t, spec.OrderEnforce)
}

func TestMake_CreatorFailures(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("fails-v0", func(Kwargs) (any, error) { return nil, errors.New("no beam") }))
	require.NoError(t, r.Register("empty-v0", func(Kwargs) (any, error) { return nil, nil }))

	_, err := r.Make("fails-v0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no beam")

	_, err = r.Make("empty-v0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned nil")
}

func TestWithNamespace(t *testing.T) {
	r := New()
	err := r.WithNamespace("ctx", func() error {
		if err := r.Register("other/x-v0", newThing("")); err != nil {
			return err
		}
		return r.WithNamespace("inner", func() error {
			return r.Register("y-v0", newThing(""))
		})
	})
	require.NoError(t, err)
	require.NoError(t, r.Register("z-v0", newThing("")))

	_, err = r.Spec("ctx/x-v0")
	assert.NoError(t, err)
	_, err = r.Spec("inner/y-v0")
	assert.NoError(t, err)
	_, err = r.Spec("z-v0")
	assert.NoError(t, err, "namespace context is restored")

	var overrides []notice.Notice
	for _, n := range r.Notices().History() {
		if n.Kind == notice.NamespaceOverride {
			overrides = append(overrides, n)
		}
	}
	require.Len(t, overrides, 1)
	assert.Equal(t, "other/x-v0", overrides[0].Subject)
}

func TestPlugins(t *testing.T) {
	t.Run("loaded lazily once", func(t *testing.T) {
		r := New()
		calls := 0
		require.NoError(t, r.AddPlugin(Plugin{
			Namespace: "lazy",
			Load: func(r *Registry) error {
				calls++
				return r.Register("Thing-v0", newThing("lazy"))
			},
		}))
		assert.Equal(t, []string{"lazy"}, r.Namespaces())
		assert.Equal(t, 0, calls)

		_, err := r.Spec("other/Thing-v0")
		requireLookupError(t, err, ErrNamespaceNotFound)
		assert.Equal(t, 0, calls, "other namespaces do not trigger loading")

		obj, err := r.Make("lazy/Thing-v0")
		require.NoError(t, err)
		assert.Equal(t, "lazy", obj.(*thing).tag)
		_, err = r.Spec("lazy/Thing-v0")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		require.NoError(t, r.LoadPlugins())
		assert.Equal(t, 1, calls)
	})

	t.Run("failures are reported", func(t *testing.T) {
		r := New()
		require.NoError(t, r.AddPlugin(Plugin{
			Namespace: "broken",
			Load:      func(*Registry) error { return errors.New("missing hardware") },
		}))
		require.NoError(t, r.AddPlugin(Plugin{
			Namespace: "panicky",
			Load:      func(*Registry) error { panic("oops") },
		}))

		_, err := r.Spec("broken/x-v0")
		requireLookupError(t, err, ErrPluginLoad)
		assert.Contains(t, err.Error(), "missing hardware")
		assert.Equal(t, notice.PluginError, lastNotice(t, r).Kind)

		_, err = r.Spec("panicky/x-v0")
		requireLookupError(t, err, ErrPluginLoad)
		assert.Contains(t, err.Error(), "oops")

		err = r.LoadPlugins()
		assert.True(t, errors.Is(err, ErrPluginLoad))
		assert.Empty(t, r.All())
	})

	t.Run("load may look up its own namespace", func(t *testing.T) {
		r := New()
		require.NoError(t, r.AddPlugin(Plugin{
			Namespace: "self",
			Load: func(r *Registry) error {
				if err := r.Register("Base-v0", newThing("base")); err != nil {
					return err
				}
				if _, err := r.Spec("self/Base-v0"); err != nil {
					return err
				}
				_, err := r.Make("self/Base-v0")
				return err
			},
		}))
		require.NoError(t, r.Register("ref-v0", "pkg.unknown:New"))

		_, err := r.Spec("self/Base-v0")
		require.NoError(t, err)

		_, err = r.Make("ref-v0")
		requireLookupError(t, err, ErrEntryPointMissing)
	})

	t.Run("missing entry point of a broken plugin", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register("x-v0", "ext.mod:New"))
		require.NoError(t, r.AddPlugin(Plugin{
			Namespace: "ext",
			Load:      func(*Registry) error { return errors.New("driver not installed") },
		}))

		_, err := r.Make("x-v0")
		requireLookupError(t, err, ErrEntryPointMissing)
		assert.True(t, errors.Is(err, ErrPluginLoad))
		assert.Contains(t, err.Error(), "driver not installed")
	})

	t.Run("rejects bad plugins", func(t *testing.T) {
		r := New()
		assert.Error(t, r.AddPlugin(Plugin{Namespace: "x"}))
		assert.Error(t, r.AddPlugin(Plugin{Load: func(*Registry) error { return nil }}))
		require.NoError(t, r.AddPlugin(Plugin{Namespace: "x", Load: func(*Registry) error { return nil }}))
		requireLookupError(t, r.AddPlugin(Plugin{Namespace: "x", Load: func(*Registry) error { return nil }}), ErrAlreadyRegistered)
	})
}

func TestEntryPoints(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterEntryPoint("pkg.thing:New", newThing("ref")))
	require.NoError(t, r.Register("ref-v0", "pkg.thing:New"))
	require.NoError(t, r.Register("missing-v0", "pkg.nothing:New"))
	require.NoError(t, r.AddPlugin(Plugin{
		Namespace: "late",
		Load: func(r *Registry) error {
			return r.RegisterEntryPoint("pkg.late:New", newThing("late"))
		},
	}))
	require.NoError(t, r.Register("late-v0", "pkg.late:New"))

	obj, err := r.Make("ref-v0")
	require.NoError(t, err)
	assert.Equal(t, "ref", obj.(*thing).tag)

	spec, err := r.Spec("ref-v0")
	require.NoError(t, err)
	assert.Equal(t, "pkg.thing:New", spec.EntryPointName)

	_, err = r.Make("missing-v0")
	lerr := requireLookupError(t, err, ErrEntryPointMissing)
	assert.Equal(t, "pkg.thing:New", lerr.Suggestion)

	obj, err = r.Make("late-v0")
	require.NoError(t, err, "plugins are loaded before a reference is reported missing")
	assert.Equal(t, "late", obj.(*thing).tag)

	requireLookupError(t, r.RegisterEntryPoint("pkg.thing:New", newThing("")), ErrAlreadyRegistered)
	requireLookupError(t, r.RegisterEntryPoint("bad", newThing("")), ErrInvalidEntryPoint)
	requireLookupError(t, r.RegisterEntryPoint("pkg.a:B", "pkg.thing:New"), ErrInvalidEntryPoint)
}

type widget struct {
	Size int
}

func newWidget(kw Kwargs) (*widget, error) {
	size, err := kw.Int("size", 1)
	if err != nil {
		return nil, err
	}
	return &widget{Size: size}, nil
}

func (*widget) TypeMembers() protocol.Members {
	return protocol.Members{"New": protocol.ClassMethod(newWidget)}
}

func TestMake_ConstructibleTypes(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("widget-v0", reflect.TypeFor[*widget]()))
	require.NoError(t, r.Register("plain-v0", func() *widget { return &widget{Size: 9} }))

	gadget := protocol.MustClass("Gadget", nil, protocol.Members{
		"New": protocol.ClassMethod(func() any { return "gadget" }),
	})
	require.NoError(t, r.Register("gadget-v0", gadget))

	notCtor := protocol.MustClass("NotCtor", nil, protocol.Members{
		"New": func() any { return nil },
	})
	requireLookupError(t, r.Register("notctor-v0", notCtor), ErrInvalidEntryPoint)

	obj, err := r.Make("widget-v0", WithKwarg("size", "4"))
	require.NoError(t, err)
	assert.Equal(t, &widget{Size: 4}, obj)

	_, err = r.Make("widget-v0", WithKwarg("size", "four"))
	assert.Error(t, err)

	obj, err = r.Make("plain-v0")
	require.NoError(t, err)
	assert.Equal(t, 9, obj.(*widget).Size)

	obj, err = r.Make("gadget-v0")
	require.NoError(t, err)
	assert.Equal(t, "gadget", obj)

	spec, err := r.Spec("widget-v0")
	require.NoError(t, err)
	assert.Equal(t, "*registry.widget", spec.EntryPointName)
}

func TestDeregisterAndAll(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("b/Two-v0", newThing("")))
	require.NoError(t, r.Register("a/One-v0", newThing("")))

	var ids []string
	for _, s := range r.All() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a/One-v0", "b/Two-v0"}, ids)
	assert.Equal(t, []string{"a", "b"}, r.Namespaces())

	require.NoError(t, r.Deregister("a/One-v0"))
	requireLookupError(t, r.Deregister("a/One-v0"), ErrNameNotFound)
	assert.Len(t, r.All(), 1)
}

func TestPretty(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("demo/A-v0", newThing("")))
	require.NoError(t, r.Register("demo/B-v0", newThing("")))
	require.NoError(t, r.Register("C-v0", newThing("")))

	var buf bytes.Buffer
	require.NoError(t, r.Pretty(&buf, ""))
	assert.Equal(t, "===== (default) =====\nC-v0\n\n===== demo =====\ndemo/A-v0 demo/B-v0\n", buf.String())

	buf.Reset()
	require.NoError(t, r.Pretty(&buf, "demo"))
	assert.Equal(t, "===== demo =====\ndemo/A-v0 demo/B-v0\n", buf.String())

	err := r.Pretty(&buf, "dem")
	lerr := requireLookupError(t, err, ErrNamespaceNotFound)
	assert.Equal(t, "demo", lerr.Suggestion)
}

func TestDefaultRegistry(t *testing.T) {
	require.NoError(t, Register("default-test/Thing-v0", newThing("default")))
	t.Cleanup(func() { _ = Default().Deregister("default-test/Thing-v0") })

	spec, err := Lookup("default-test/Thing-v0")
	require.NoError(t, err)
	assert.Equal(t, "default-test/Thing-v0", spec.ID)

	obj, err := Make("default-test/Thing-v0")
	require.NoError(t, err)
	assert.Equal(t, "default", obj.(*thing).tag)
}
