// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package intent

import (
	"context"
	"log/slog"
	"slices"
)

// Handler is implemented by every plugin.
type Handler interface {
	// SupportedIntents lists the actions this handler can execute.
	// It must be non-empty.
	SupportedIntents() []string

	// Execute runs the intent. The returned value is the result data;
	// a non-nil error marks the execution as failed.
	Execute(ctx context.Context, in Intent, ec ExecContext) (any, error)
}

// Initializer is implemented by handlers that need a startup hook.
// The owner calls it once, right after the handler is created or registered.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Shutdowner is implemented by handlers that need a teardown hook.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ConfigPathProvider exposes a handler's configuration file.
type ConfigPathProvider interface {
	ConfigPath() string
}

// CharacterPathsProvider exposes a handler's character definition files.
type CharacterPathsProvider interface {
	CharacterPaths() []string
}

// DirectoryProvider exposes the directory a handler was loaded from.
type DirectoryProvider interface {
	PluginDirectory() string
}

// Dispatcher executes intents on behalf of a caller. Plugins receive one in
// their Env so they can raise intents of their own.
type Dispatcher interface {
	ExecuteIntent(ctx context.Context, in Intent, ec ExecContext) Result
}

// Env is passed to a plugin factory.
type Env struct {
	// ID is the manifest id of the plugin being created.
	ID     string
	Logger *slog.Logger
	// Config is the manifest's opaque config section, passed through verbatim.
	Config map[string]any
	// Directory is the absolute plugin directory.
	Directory  string
	Dispatcher Dispatcher
}

// Factory creates a handler. Every loadable plugin module exposes exactly one.
type Factory func(env Env) (Handler, error)

// Supports reports whether h declares action.
func Supports(h Handler, action string) bool {
	return slices.Contains(h.SupportedIntents(), action)
}
