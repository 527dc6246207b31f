// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package registry holds handlers registered explicitly at runtime.
//
// A handler's id is the namespace of its first declared intent. Lookups
// try the action's namespace first, then scan registrations in order.
//
// Reads use an immutable snapshot that is replaced on every mutation, so
// lookups never race with Register or Unregister. A handler returned by a
// lookup may still be unregistered before the caller uses it.
package registry

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/intentd/internal/resolve"
	"github.com/holomush/intentd/pkg/errutil"
	"github.com/holomush/intentd/pkg/intent"
)

// Registration is a registered handler and the assets loaded for it.
type Registration struct {
	ID      string
	Handler intent.Handler
	// Config is the handler's loaded config file, if any.
	Config map[string]any
	// Characters are the ids of the handler's loaded character files.
	Characters []string
}

type snapshot struct {
	regs     []*Registration
	resolver *resolve.Resolver
}

// Registry is the explicit-registration plugin store.
type Registry struct {
	logger *slog.Logger
	assets AssetLoader

	// mu serializes writers; readers use snap.
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAssetLoader sets the collaborator that loads config and character
// files. A nil loader disables asset loading.
func WithAssetLoader(a AssetLoader) Option {
	return func(r *Registry) {
		r.assets = a
	}
}

// New creates an empty registry that loads assets from disk.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: slog.Default(),
		assets: FileAssetLoader{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.publish(nil)
	return r
}

func (r *Registry) publish(regs []*Registration) {
	sources := make([]resolve.Source, 0, len(regs))
	for _, reg := range regs {
		sources = append(sources, resolve.Source{ID: reg.ID, Handler: reg.Handler})
	}
	r.snap.Store(&snapshot{
		regs:     regs,
		resolver: resolve.New(resolve.Build(sources), resolve.LegacyChain()),
	})
}

// Register adds h under the namespace of its first intent and returns that
// id. It rejects nil handlers, handlers without intents and ids already in use. The
// handler's Initialize hook runs before it becomes visible; asset loading
// afterwards is best effort.
func (r *Registry) Register(ctx context.Context, h intent.Handler) (string, error) {
	if h == nil {
		return "", ErrNilHandler()
	}
	intents := h.SupportedIntents()
	if len(intents) == 0 {
		return "", ErrNoIntents()
	}
	id := intent.Namespace(intents[0])
	if id == "" {
		return "", ErrInvalidID(intents[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load().regs
	if slices.ContainsFunc(current, func(reg *Registration) bool { return reg.ID == id }) {
		return "", ErrConflict(id)
	}

	if initializer, ok := h.(intent.Initializer); ok {
		if err := initializer.Initialize(ctx); err != nil {
			return "", ErrInitFailed(id, err)
		}
	}

	reg := &Registration{ID: id, Handler: h}
	r.loadAssets(ctx, reg)

	next := make([]*Registration, 0, len(current)+1)
	next = append(next, current...)
	r.publish(append(next, reg))

	r.logger.Info("registered plugin",
		"plugin", id,
		"intents", intents)
	return id, nil
}

// loadAssets loads the config and character files h exposes. Failures are
// logged; registration continues without the asset.
func (r *Registry) loadAssets(ctx context.Context, reg *Registration) {
	if r.assets == nil {
		return
	}
	base := ""
	if dp, ok := reg.Handler.(intent.DirectoryProvider); ok {
		base = dp.PluginDirectory()
	}

	if cp, ok := reg.Handler.(intent.ConfigPathProvider); ok {
		if p := cp.ConfigPath(); p != "" {
			cfg, err := r.assets.LoadConfig(ctx, resolvePath(base, p))
			if err != nil {
				errutil.LogWarn(r.logger.With("plugin", reg.ID), "failed to load plugin config", err)
			} else {
				reg.Config = cfg
			}
		}
	}

	if cp, ok := reg.Handler.(intent.CharacterPathsProvider); ok {
		paths := cp.CharacterPaths()
		if len(paths) == 0 {
			return
		}
		abs := make([]string, len(paths))
		for i, p := range paths {
			abs[i] = resolvePath(base, p)
		}
		ids, err := r.assets.LoadCharacters(ctx, abs)
		if err != nil {
			errutil.LogWarn(r.logger.With("plugin", reg.ID), "failed to load plugin characters", err)
		}
		reg.Characters = ids
	}
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Unregister removes id and runs its Shutdown hook. The handler is removed
// even when the hook fails.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load().regs
	i := slices.IndexFunc(current, func(reg *Registration) bool { return reg.ID == id })
	if i < 0 {
		return ErrNotRegistered(id)
	}
	reg := current[i]

	next := make([]*Registration, 0, len(current)-1)
	next = append(next, current[:i]...)
	r.publish(append(next, current[i+1:]...))

	r.logger.Info("unregistered plugin", "plugin", id)
	return shutdown(ctx, reg)
}

func shutdown(ctx context.Context, reg *Registration) error {
	if s, ok := reg.Handler.(intent.Shutdowner); ok {
		if err := s.Shutdown(ctx); err != nil {
			return oops.In("registry").
				With("plugin_id", reg.ID).
				Wrapf(err, "shutdown plugin %s", reg.ID)
		}
	}
	return nil
}

// FindPluginForIntent resolves in by namespace, then by registration order.
func (r *Registry) FindPluginForIntent(in intent.Intent) (resolve.Match, bool) {
	return r.snap.Load().resolver.ResolveIntent(in)
}

// Get returns the registration for id.
func (r *Registry) Get(id string) (*Registration, bool) {
	for _, reg := range r.snap.Load().regs {
		if reg.ID == id {
			return reg, true
		}
	}
	return nil, false
}

// Entries returns the registrations in registration order.
func (r *Registry) Entries() []*Registration {
	return slices.Clone(r.snap.Load().regs)
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	return len(r.snap.Load().regs)
}

// Shutdown unregisters everything in reverse registration order. Hook
// errors are logged; the first one is returned.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load().regs
	r.publish(nil)

	var first error
	for i := len(current) - 1; i >= 0; i-- {
		if err := shutdown(ctx, current[i]); err != nil {
			r.logger.Warn("plugin shutdown failed",
				"plugin", current[i].ID,
				"error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
