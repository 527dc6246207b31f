// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package pluginsdk provides the SDK for building intentd binary plugins.
//
// Binary plugins run as separate processes and talk to the host over
// net/rpc using the HashiCorp go-plugin framework. A plugin exposes a
// single intent.Factory; the host calls it once with the manifest's config
// and then routes intents to the handler it returns.
//
// Example usage:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/holomush/intentd/pkg/intent"
//		"github.com/holomush/intentd/pkg/pluginsdk"
//	)
//
//	type echo struct{}
//
//	func (echo) SupportedIntents() []string { return []string{"echo:say"} }
//
//	func (echo) Execute(_ context.Context, in intent.Intent, _ intent.ExecContext) (any, error) {
//		return in.Data, nil
//	}
//
//	func main() {
//		pluginsdk.Serve(&pluginsdk.ServeConfig{
//			Factory: func(intent.Env) (intent.Handler, error) { return echo{}, nil },
//		})
//	}
package pluginsdk

import (
	"log/slog"
	"os"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/intentd/pkg/intent"
)

// PluginName is the name the intent plugin is dispensed under.
const PluginName = "intent"

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and plugins must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "INTENTD_PLUGIN",
	MagicCookieValue: "intentd-v1",
}

// ServeConfig configures the plugin server.
type ServeConfig struct {
	// Factory creates the plugin's handler. Required; Serve panics if nil.
	Factory intent.Factory

	// Logger receives plugin logs. Defaults to JSON on stderr, which the
	// host forwards into its own log.
	Logger *slog.Logger
}

// Serve starts the plugin server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("pluginsdk: config cannot be nil")
	}
	if config.Factory == nil {
		panic("pluginsdk: config.Factory cannot be nil")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginSet(config.Factory, logger),
	})
}

// PluginSet returns the go-plugin plugin map for a plugin process. Hosts
// use PluginSet(nil, nil) since they only dispense clients.
func PluginSet(factory intent.Factory, logger *slog.Logger) hashiplug.PluginSet {
	return hashiplug.PluginSet{
		PluginName: &IntentPlugin{Factory: factory, Logger: logger},
	}
}
