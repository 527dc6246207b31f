// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package discovery finds, loads and indexes manifest-driven plugins.
//
// Discovery is initialized once. After that its index never changes, so
// lookups need no locking.
package discovery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/internal/plugin/capability"
	"github.com/holomush/intentd/internal/plugin/goplugin"
	pluginlua "github.com/holomush/intentd/internal/plugin/lua"
	"github.com/holomush/intentd/internal/plugin/native"
	"github.com/holomush/intentd/internal/resolve"
	"github.com/holomush/intentd/pkg/intent"
)

// Discovery wraps the loader and resolver behind the Enabled flag.
type Discovery struct {
	cfg    Config
	logger *slog.Logger
	loader *plugin.Loader

	mu          sync.Mutex
	initialized bool
	state       atomic.Pointer[state]
}

// state is published once by Initialize.
type state struct {
	resolver *resolve.Resolver
	regs     map[string]*plugin.Registration
}

type options struct {
	logger     *slog.Logger
	enforcer   *capability.Enforcer
	apiVersion *semver.Version
	hosts      map[plugin.Runtime]plugin.Host
}

// Option configures a Discovery.
type Option func(*options)

// WithRuntime sets the host for a runtime, replacing the default.
func WithRuntime(rt plugin.Runtime, h plugin.Host) Option {
	return func(o *options) {
		o.hosts[rt] = h
	}
}

// WithBuiltins registers the factories builtin manifests may name.
func WithBuiltins(factories map[string]intent.Factory) Option {
	return WithRuntime(plugin.RuntimeBuiltin, plugin.NewBuiltinHost(factories))
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEnforcer sets the capability enforcer shared with the loader.
func WithEnforcer(e *capability.Enforcer) Option {
	return func(o *options) {
		o.enforcer = e
	}
}

// WithHostAPIVersion overrides the API version manifests are checked against.
func WithHostAPIVersion(v *semver.Version) Option {
	return func(o *options) {
		o.apiVersion = v
	}
}

// New creates a Discovery. Lua, binary and native runtimes are available
// by default; builtin plugins need WithBuiltins.
func New(cfg Config, opts ...Option) *Discovery {
	o := options{
		logger: slog.Default(),
		hosts: map[plugin.Runtime]plugin.Host{
			plugin.RuntimeLua:    pluginlua.NewHost(),
			plugin.RuntimeNative: native.NewHost(),
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if _, ok := o.hosts[plugin.RuntimeBinary]; !ok {
		o.hosts[plugin.RuntimeBinary] = goplugin.NewHost(goplugin.WithHostLogger(o.logger))
	}

	loaderOpts := []plugin.LoaderOption{
		plugin.WithLogger(o.logger),
		plugin.WithKinds(cfg.LoadSystemPlugins, cfg.LoadUserPlugins),
	}
	for rt, h := range o.hosts {
		loaderOpts = append(loaderOpts, plugin.WithHost(rt, h))
	}
	if o.enforcer != nil {
		loaderOpts = append(loaderOpts, plugin.WithEnforcer(o.enforcer))
	}
	if o.apiVersion != nil {
		loaderOpts = append(loaderOpts, plugin.WithAPIVersion(o.apiVersion))
	}

	return &Discovery{
		cfg:    cfg,
		logger: o.logger,
		loader: plugin.NewLoader(cfg.Directories(), loaderOpts...),
	}
}

// Enabled reports whether discovery is turned on.
func (d *Discovery) Enabled() bool {
	return d.cfg.Enabled
}

// Ready reports whether lookups reflect the final plugin set: discovery
// is disabled, or it has been initialized.
func (d *Discovery) Ready() bool {
	return !d.cfg.Enabled || d.state.Load() != nil
}

// Initialize loads every plugin and builds the index. Plugins receive
// dispatcher so they can raise intents of their own. When discovery is
// disabled it does nothing. A second call fails with ALREADY_INITIALIZED.
func (d *Discovery) Initialize(ctx context.Context, dispatcher intent.Dispatcher) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cfg.Enabled {
		d.logger.Info("plugin discovery disabled")
		return nil
	}
	if d.initialized {
		return ErrAlreadyInitialized()
	}
	d.initialized = true

	results := d.loader.Load(ctx, dispatcher)

	sources := make([]resolve.Source, 0, len(results))
	regs := make(map[string]*plugin.Registration, len(results))
	for _, res := range results {
		sources = append(sources, resolve.Source{
			ID:       res.Registration.ID,
			Handler:  res.Handler,
			Manifest: res.Registration.Manifest,
			System:   res.Registration.System,
		})
		regs[res.Registration.ID] = res.Registration
	}

	ix := resolve.Build(sources, resolve.WithSuppressSubstituted(d.cfg.SuppressSubstituted))
	chain := resolve.LinearChain()
	if d.cfg.UsePriorityResolver {
		chain = resolve.PriorityChain(d.cfg.IntentHandlers)
	}
	d.state.Store(&state{resolver: resolve.New(ix, chain), regs: regs})

	d.logger.Info("plugin discovery complete",
		"plugins", ix.Len(),
		"actions", len(ix.Actions()),
		"strategies", chain.Names())
	return nil
}

// FindPluginForIntent resolves the handler for in. It misses when
// discovery is disabled or not yet initialized.
func (d *Discovery) FindPluginForIntent(in intent.Intent) (resolve.Match, bool) {
	st := d.state.Load()
	if st == nil {
		return resolve.Match{}, false
	}
	m, ok := st.resolver.ResolveIntent(in)
	if d.cfg.Debug {
		if ok {
			d.logger.Info("intent resolved",
				"action", in.Action,
				"plugin", m.ID,
				"strategy", m.Strategy)
		} else {
			d.logger.Info("intent unresolved",
				"action", in.Action,
				"candidates", st.resolver.Index().Candidates(in.Action))
		}
	}
	return m, ok
}

// GetPlugin returns the loaded handler for id.
func (d *Discovery) GetPlugin(id string) (intent.Handler, bool) {
	st := d.state.Load()
	if st == nil {
		return nil, false
	}
	e, ok := st.resolver.Index().Get(id)
	return e.Handler, ok
}

// Registration returns the registration info for a loaded plugin.
func (d *Discovery) Registration(id string) (*plugin.Registration, bool) {
	st := d.state.Load()
	if st == nil {
		return nil, false
	}
	reg, ok := st.regs[id]
	return reg, ok
}

// Plugins returns every loaded handler by id.
func (d *Discovery) Plugins() map[string]intent.Handler {
	out := make(map[string]intent.Handler)
	for _, e := range d.Entries() {
		out[e.ID] = e.Handler
	}
	return out
}

// Entries returns the loaded plugins in load order.
func (d *Discovery) Entries() []resolve.Entry {
	st := d.state.Load()
	if st == nil {
		return nil
	}
	return st.resolver.Index().Entries()
}

// Candidates returns the loaded plugins declaring action, in load order.
func (d *Discovery) Candidates(action string) []string {
	st := d.state.Load()
	if st == nil {
		return nil
	}
	return st.resolver.Index().Candidates(action)
}

// IsPluginSubstituted reports whether a loaded plugin substitutes id.
func (d *Discovery) IsPluginSubstituted(id string) bool {
	st := d.state.Load()
	return st != nil && st.resolver.Index().IsSubstituted(id)
}

// SubstitutingPlugin returns the first loaded plugin substituting id.
func (d *Discovery) SubstitutingPlugin(id string) (string, bool) {
	st := d.state.Load()
	if st == nil {
		return "", false
	}
	return st.resolver.Index().SubstitutingPlugin(id)
}

// Shutdown shuts down every loaded plugin and closes the runtimes.
func (d *Discovery) Shutdown(ctx context.Context) error {
	return d.loader.Close(ctx) //nolint:wrapcheck // loader errors carry the plugin id
}
