// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package native loads Go plugins built with -buildmode=plugin.
//
// A native plugin exports a symbol named NewHandler of type intent.Factory
// (or a plain func(intent.Env) (intent.Handler, error)).
package native

import (
	"context"
	"fmt"
	stdplugin "plugin"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/pkg/intent"
)

// FactorySymbol is the symbol a native plugin must export.
const FactorySymbol = "NewHandler"

// Compile-time interface check.
var _ plugin.Host = (*Host)(nil)

// Opener opens a shared object. Defaults to plugin.Open.
type Opener func(path string) (Symbols, error)

// Symbols looks up exported symbols of an opened shared object.
type Symbols interface {
	Lookup(name string) (stdplugin.Symbol, error)
}

// Host loads native plugins. Go cannot unload a shared object, so Unload
// and Close only forget what was loaded.
type Host struct {
	open   Opener
	mu     sync.Mutex
	loaded map[string]string
}

// NewHost creates a native plugin host.
func NewHost() *Host {
	return NewHostWithOpener(openShared)
}

// NewHostWithOpener creates a host with a custom opener (for testing).
func NewHostWithOpener(open Opener) *Host {
	return &Host{open: open, loaded: make(map[string]string)}
}

func openShared(path string) (Symbols, error) {
	return stdplugin.Open(path) //nolint:wrapcheck // wrapped by Load
}

// Load opens the entry file and calls its factory.
func (h *Host) Load(_ context.Context, reg *plugin.Registration, env intent.Env) (intent.Handler, error) {
	errb := oops.In("native").With("plugin", reg.ID).With("path", reg.EntryPath())

	so, err := h.open(reg.EntryPath())
	if err != nil {
		return nil, errb.Hint("failed to open shared object").Wrap(err)
	}
	sym, err := so.Lookup(FactorySymbol)
	if err != nil {
		return nil, errb.Hint("plugin does not export " + FactorySymbol).Wrap(err)
	}
	factory, err := asFactory(sym)
	if err != nil {
		return nil, errb.Wrap(err)
	}

	handler, err := factory(env)
	if err != nil {
		return nil, errb.Wrap(err)
	}

	h.mu.Lock()
	h.loaded[reg.ID] = reg.EntryPath()
	h.mu.Unlock()
	return handler, nil
}

func asFactory(sym stdplugin.Symbol) (intent.Factory, error) {
	switch f := sym.(type) {
	case intent.Factory:
		return f, nil
	case func(intent.Env) (intent.Handler, error):
		return f, nil
	case *intent.Factory:
		if f == nil || *f == nil {
			return nil, fmt.Errorf("%s is nil", FactorySymbol)
		}
		return *f, nil
	default:
		return nil, fmt.Errorf("%s has type %T, want intent.Factory", FactorySymbol, sym)
	}
}

// Loaded returns the number of plugins loaded through this host.
func (h *Host) Loaded() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.loaded)
}

// Unload forgets the plugin. The shared object stays mapped.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loaded, id)
	return nil
}

// Close forgets every loaded plugin.
func (h *Host) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.loaded)
	return nil
}
