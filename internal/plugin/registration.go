// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"path/filepath"

	"github.com/holomush/intentd/pkg/intent"
)

// Directory is a plugin root. System must be supplied by the caller; it is
// never inferred from the path.
type Directory struct {
	Path   string `koanf:"path" yaml:"path"`
	System bool   `koanf:"system" yaml:"system"`
}

// Registration is a manifest that survived scanning. It is immutable once
// created.
type Registration struct {
	ID       string
	Manifest *Manifest
	// Dir is the absolute plugin directory.
	Dir    string
	System bool
}

// EntryPath returns the absolute path of the plugin's entry point.
func (r *Registration) EntryPath() string {
	return filepath.Join(r.Dir, filepath.FromSlash(r.Manifest.EntryPoint))
}

// Kind returns "system" or "user".
func (r *Registration) Kind() string {
	if r.System {
		return "system"
	}
	return "user"
}

// LoadResult is a loaded plugin ready to be indexed.
type LoadResult struct {
	Handler      intent.Handler
	Registration *Registration
}

// Host is a plugin runtime: it turns a registration into a handler.
type Host interface {
	// Load creates the handler described by reg.
	Load(ctx context.Context, reg *Registration, env intent.Env) (intent.Handler, error)

	// Unload releases what Load created for the plugin id. Unloading an id
	// the host does not know is not an error.
	Unload(ctx context.Context, id string) error

	// Close releases everything the host created.
	Close(ctx context.Context) error
}
