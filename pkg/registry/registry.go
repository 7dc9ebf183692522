// Package registry maps problem ids to constructors.
//
// Ids follow the grammar [namespace/]name[-vN]. Namespaces can be provided
// by plugins that are linked into the binary and loaded on first use.
// Lookups that miss report typed errors with a close-match suggestion.
package registry

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/boristopalov/coi/pkg/logging"
	"github.com/boristopalov/coi/pkg/notice"
)

// RenderModeKwarg is the kwarg that carries the render mode requested with
// WithRenderMode.
const RenderModeKwarg = "render_mode"

// maxSuggestionDistance bounds the edit distance of close-match
// suggestions.
const maxSuggestionDistance = 3

// Plugin provides the ids of one namespace. Load runs at most once, the
// first time a lookup touches the namespace, inside that namespace's
// context. Lookups made while Load is still running do not load the
// plugin again and see only the ids it has registered so far.
type Plugin struct {
	Namespace string
	Load      func(r *Registry) error
}

type pluginState struct {
	Plugin
	mu      sync.Mutex
	loading bool
	loaded  bool
	err     error
}

// Registry holds specs, plugins and entry points.
//
// Registration is expected to happen at startup. The namespace context set
// by WithNamespace is shared by all goroutines.
type Registry struct {
	specs       map[string]*Spec
	plugins     map[string]*pluginState
	entryPoints map[string]any
	namespace   string
	logger      *slog.Logger
	broker      *notice.Broker
	mu          sync.RWMutex
}

// Option configures a registry.
type Option func(*Registry)

// WithLogger sets the logger used for notices and debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = logging.OrNop(l) }
}

// WithBroker sets the broker that receives notices.
func WithBroker(b *notice.Broker) Option {
	return func(r *Registry) {
		if b != nil {
			r.broker = b
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		specs:       make(map[string]*Spec),
		plugins:     make(map[string]*pluginState),
		entryPoints: make(map[string]any),
		logger:      logging.Nop(),
		broker:      notice.NewBroker(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notices returns the broker that receives the registry's notices.
func (r *Registry) Notices() *notice.Broker { return r.broker }

// Register adds a spec for id.
//
// Inside WithNamespace the id is moved into the context namespace; an id
// that names a different namespace is overridden with a notice. A name is
// either unversioned or versioned, never both.
func (r *Registry) Register(id string, entryPoint any, opts ...SpecOption) error {
	parsed, err := ParseID(id)
	if err != nil {
		return err
	}

	r.mu.RLock()
	ctx := r.namespace
	r.mu.RUnlock()
	if ctx != "" && parsed.Namespace != ctx {
		if parsed.Namespace != "" {
			r.notify(notice.NamespaceOverride, parsed.String(),
				fmt.Sprintf("custom namespace %q is being overridden by namespace %q", parsed.Namespace, ctx))
		}
		parsed.Namespace = ctx
	}

	spec := &Spec{
		ID:             parsed.String(),
		EntryPoint:     entryPoint,
		EntryPointName: entryPointName(entryPoint),
		OrderEnforce:   true,
		id:             parsed,
	}
	for _, opt := range opts {
		opt(spec)
	}
	if err := validateSpec(spec); err != nil {
		return err
	}
	if err := checkEntryPoint(entryPoint); err != nil {
		return &LookupError{ID: spec.ID, Err: ErrInvalidEntryPoint, Detail: err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.ID]; exists {
		return &LookupError{ID: spec.ID, Err: ErrAlreadyRegistered}
	}
	for _, s := range r.specs {
		if !s.id.sameName(parsed) {
			continue
		}
		if parsed.Versioned && !s.id.Versioned {
			return &LookupError{ID: spec.ID, Err: ErrVersionedConflict, Suggestion: s.ID}
		}
		if !parsed.Versioned && s.id.Versioned {
			return &LookupError{ID: spec.ID, Err: ErrUnversionedConflict, Suggestion: s.ID}
		}
	}
	r.specs[spec.ID] = spec
	r.logger.Debug("registered problem", "id", spec.ID, "entry_point", spec.EntryPointName)
	return nil
}

// WithNamespace runs fn with ns as the namespace of all registrations.
// Calls may nest; the previous namespace is restored afterwards.
func (r *Registry) WithNamespace(ns string, fn func() error) error {
	r.mu.Lock()
	prev := r.namespace
	r.namespace = ns
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.namespace = prev
		r.mu.Unlock()
	}()
	return fn()
}

// AddPlugin adds a lazily loaded namespace.
func (r *Registry) AddPlugin(p Plugin) error {
	if p.Namespace == "" || p.Load == nil {
		return fmt.Errorf("plugin %q: namespace and load function are required", p.Namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.Namespace]; exists {
		return &LookupError{ID: p.Namespace, Err: ErrAlreadyRegistered, Detail: "plugin namespace"}
	}
	r.plugins[p.Namespace] = &pluginState{Plugin: p}
	return nil
}

// LoadPlugins loads every plugin that has not been loaded yet.
func (r *Registry) LoadPlugins() error {
	r.mu.RLock()
	namespaces := slices.Sorted(maps.Keys(r.plugins))
	r.mu.RUnlock()

	var errs []error
	for _, ns := range namespaces {
		if err := r.loadPlugin(ns); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) loadPlugin(ns string) error {
	r.mu.RLock()
	p := r.plugins[ns]
	r.mu.RUnlock()
	if p == nil {
		return nil
	}

	p.mu.Lock()
	if p.loaded || p.loading {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.loading = true
	p.mu.Unlock()

	r.logger.Debug("loading plugin", "namespace", ns)
	err := r.WithNamespace(ns, func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return p.Load(r)
	})
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrPluginLoad, ns, err)
		r.notify(notice.PluginError, ns, err.Error())
	}

	p.mu.Lock()
	p.loading, p.loaded, p.err = false, true, err
	p.mu.Unlock()
	return err
}

// RegisterEntryPoint links a "pkg.path:Symbol" reference to a creator or
// constructible type.
func (r *Registry) RegisterEntryPoint(ref string, target any) error {
	if !entryPointPattern.MatchString(ref) {
		return &LookupError{ID: ref, Err: ErrInvalidEntryPoint, Detail: "expected pkg.path:Symbol"}
	}
	if _, isRef := target.(string); isRef {
		return &LookupError{ID: ref, Err: ErrInvalidEntryPoint, Detail: "target cannot be another reference"}
	}
	if err := checkEntryPoint(target); err != nil {
		return &LookupError{ID: ref, Err: ErrInvalidEntryPoint, Detail: err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entryPoints[ref]; exists {
		return &LookupError{ID: ref, Err: ErrAlreadyRegistered, Detail: "entry point"}
	}
	r.entryPoints[ref] = target
	return nil
}

// Spec returns the spec registered for id.
//
// An unversioned id that is only registered in versioned form resolves to
// the highest version with an upgraded notice. A versioned id older than
// the latest registered version resolves as requested with an out-of-date
// notice.
func (r *Registry) Spec(id string) (*Spec, error) {
	parsed, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.find(parsed)
}

func (r *Registry) find(id ID) (*Spec, error) {
	if id.Namespace != "" {
		if err := r.loadPlugin(id.Namespace); err != nil {
			return nil, &LookupError{ID: id.String(), Err: err}
		}
	}

	r.mu.RLock()
	spec, found := r.specs[id.String()]
	var versions []*Spec
	for _, s := range r.specs {
		if s.id.sameName(id) && s.id.Versioned {
			versions = append(versions, s)
		}
	}
	r.mu.RUnlock()

	latest := highest(versions)
	if found {
		if id.Versioned && latest != nil && latest.id.Version > id.Version {
			r.notify(notice.OutOfDate, spec.ID,
				fmt.Sprintf("%s is out of date, the latest version is %s", spec.ID, latest.ID))
		}
		return spec, nil
	}
	if !id.Versioned && latest != nil {
		r.notify(notice.Upgraded, id.String(),
			fmt.Sprintf("using the latest versioned id %s instead of the unversioned %s", latest.ID, id))
		return latest, nil
	}
	return nil, r.missing(id, latest)
}

// missing explains why id is not registered.
func (r *Registry) missing(id ID, latest *Spec) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespaces := r.namespacesLocked()
	if id.Namespace != "" && !slices.Contains(namespaces, id.Namespace) {
		return &LookupError{
			ID:         id.String(),
			Err:        ErrNamespaceNotFound,
			Detail:     fmt.Sprintf("namespace %q", id.Namespace),
			Suggestion: closest(id.Namespace, namespaces),
		}
	}

	var names []string
	var unversioned *Spec
	for _, s := range r.specs {
		if s.id.Namespace == id.Namespace && !slices.Contains(names, s.id.Name) {
			names = append(names, s.id.Name)
		}
		if s.id.sameName(id) && !s.id.Versioned {
			unversioned = s
		}
	}
	if latest == nil && unversioned == nil {
		err := &LookupError{ID: id.String(), Err: ErrNameNotFound}
		if name := closest(id.Name, names); name != "" {
			err.Suggestion = ID{Namespace: id.Namespace, Name: name}.String()
		} else {
			err.Suggestion = r.otherNamespaceLocked(id)
		}
		return err
	}

	switch {
	case latest == nil:
		return &LookupError{
			ID:         id.String(),
			Err:        ErrVersionNotFound,
			Detail:     "only the unversioned id is registered",
			Suggestion: unversioned.ID,
		}
	case id.Version > latest.id.Version:
		return &LookupError{
			ID:         id.String(),
			Err:        ErrVersionNotFound,
			Detail:     fmt.Sprintf("the latest version is v%d", latest.id.Version),
			Suggestion: latest.ID,
		}
	default:
		return &LookupError{
			ID:         id.String(),
			Err:        ErrDeprecatedVersion,
			Suggestion: latest.ID,
		}
	}
}

// otherNamespaceLocked finds the same name registered in another namespace.
func (r *Registry) otherNamespaceLocked(id ID) string {
	var found []string
	for _, s := range r.specs {
		if s.id.Name == id.Name && s.id.Namespace != id.Namespace {
			found = append(found, s.id.Unversioned().String())
		}
	}
	if len(found) == 0 {
		return ""
	}
	slices.Sort(found)
	return found[0]
}

// Make creates a problem from the spec registered for id. The spec kwargs
// are merged with the kwargs given in opts, which take precedence.
func (r *Registry) Make(id string, opts ...MakeOption) (any, error) {
	spec, err := r.Spec(id)
	if err != nil {
		return nil, err
	}

	var o makeOptions
	for _, opt := range opts {
		opt(&o)
	}
	kwargs := make(Kwargs, len(spec.Kwargs)+len(o.kwargs)+1)
	maps.Copy(kwargs, spec.Kwargs)
	maps.Copy(kwargs, o.kwargs)
	if o.renderMode != "" {
		kwargs[RenderModeKwarg] = o.renderMode
	}

	create, err := r.creator(spec.ID, spec.EntryPoint)
	if err != nil {
		return nil, err
	}
	obj, err := create(kwargs)
	if err != nil {
		return nil, fmt.Errorf("make %s: %w", spec.ID, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("make %s: entry point returned nil", spec.ID)
	}

	if s, ok := obj.(SpecSetter); ok {
		made := spec.Copy()
		made.Kwargs = kwargs
		s.SetSpec(made)
	}
	r.logger.Debug("made problem", "id", spec.ID, "type", fmt.Sprintf("%T", obj))
	return obj, nil
}

// creator resolves an entry point, following references through the
// entry-point table. Plugins are loaded before a reference is reported
// missing.
func (r *Registry) creator(id string, ep any) (Creator, error) {
	ref, isRef := ep.(string)
	if !isRef {
		return asCreator(ep)
	}

	r.mu.RLock()
	target, ok := r.entryPoints[ref]
	r.mu.RUnlock()
	var loadErr error
	if !ok {
		loadErr = r.LoadPlugins()
		r.mu.RLock()
		target, ok = r.entryPoints[ref]
		r.mu.RUnlock()
	}
	if !ok {
		r.mu.RLock()
		refs := slices.Collect(maps.Keys(r.entryPoints))
		r.mu.RUnlock()
		missing := &LookupError{ID: id, Err: ErrEntryPointMissing, Detail: ref, Suggestion: closest(ref, refs)}
		if loadErr != nil {
			// A plugin that failed to load may have provided ref.
			return nil, errors.Join(missing, loadErr)
		}
		return nil, missing
	}
	return asCreator(target)
}

// Deregister removes the spec registered under exactly id.
func (r *Registry) Deregister(id string) error {
	parsed, err := ParseID(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.specs[parsed.String()]; !ok {
		return &LookupError{ID: parsed.String(), Err: ErrNameNotFound}
	}
	delete(r.specs, parsed.String())
	return nil
}

// All loads every plugin and returns all specs sorted by id.
func (r *Registry) All() []*Spec {
	if err := r.LoadPlugins(); err != nil {
		r.logger.Warn("some plugins failed to load", "error", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := slices.Collect(maps.Values(r.specs))
	slices.SortFunc(specs, func(a, b *Spec) int { return cmp.Compare(a.ID, b.ID) })
	return specs
}

// Namespaces returns the sorted namespaces of registered specs and plugins.
// The default namespace is not included.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namespacesLocked()
}

func (r *Registry) namespacesLocked() []string {
	var namespaces []string
	for _, s := range r.specs {
		if s.id.Namespace != "" && !slices.Contains(namespaces, s.id.Namespace) {
			namespaces = append(namespaces, s.id.Namespace)
		}
	}
	for ns := range r.plugins {
		if !slices.Contains(namespaces, ns) {
			namespaces = append(namespaces, ns)
		}
	}
	slices.Sort(namespaces)
	return namespaces
}

func (r *Registry) notify(kind notice.Kind, subject, msg string) {
	r.logger.Warn(msg, "notice", string(kind), "id", subject)
	if err := r.broker.Publish(notice.New(kind, subject, msg)); err != nil {
		r.logger.Debug("notice not delivered", "error", err)
	}
}

// highest returns the spec with the highest version.
func highest(specs []*Spec) *Spec {
	if len(specs) == 0 {
		return nil
	}
	return slices.MaxFunc(specs, func(a, b *Spec) int { return cmp.Compare(a.id.Version, b.id.Version) })
}

// closest returns the candidate with the smallest edit distance to target,
// or "" if none is close enough.
func closest(target string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, c := range slices.Sorted(slices.Values(candidates)) {
		d := levenshtein.ComputeDistance(target, c)
		if d < bestDistance && d < max(len(target), len(c)) {
			best, bestDistance = c, d
		}
	}
	return best
}
