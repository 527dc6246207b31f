// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/holomush/intentd/pkg/intent"
)

// Compile-time interface check.
var _ Host = (*BuiltinHost)(nil)

// BuiltinHost creates handlers from factories compiled into the binary.
// A builtin manifest's entryPoint names the factory.
type BuiltinHost struct {
	factories map[string]intent.Factory
}

// NewBuiltinHost creates a host with the given factories.
func NewBuiltinHost(factories map[string]intent.Factory) *BuiltinHost {
	h := &BuiltinHost{factories: make(map[string]intent.Factory, len(factories))}
	for name, f := range factories {
		h.factories[name] = f
	}
	return h
}

// Load calls the factory named by the manifest's entry point.
func (h *BuiltinHost) Load(_ context.Context, reg *Registration, env intent.Env) (intent.Handler, error) {
	factory, ok := h.factories[reg.Manifest.EntryPoint]
	if !ok {
		return nil, fmt.Errorf("no builtin factory named %q (have %v)", reg.Manifest.EntryPoint, h.Names())
	}
	return factory(env)
}

// Names returns the registered factory names, sorted.
func (h *BuiltinHost) Names() []string {
	names := make([]string, 0, len(h.factories))
	for name := range h.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unload is a no-op; builtin handlers hold no host resources.
func (h *BuiltinHost) Unload(_ context.Context, _ string) error {
	return nil
}

// Close is a no-op; builtin handlers are shut down by the loader.
func (h *BuiltinHost) Close(_ context.Context) error {
	return nil
}
