// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package goplugin

import (
	"context"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/holomush/intentd/pkg/pluginsdk"
)

// HandshakeConfig is imported from pluginsdk to ensure host and plugins
// use identical configuration. Do not define locally to prevent drift.
var HandshakeConfig = pluginsdk.HandshakeConfig

// PluginMap is the map of plugins the host can dispense.
var PluginMap = pluginsdk.PluginSet(nil, nil)

// Remote is the host-side view of a plugin process.
type Remote interface {
	Setup(ctx context.Context, args pluginsdk.SetupArgs) ([]string, error)
	Initialize(ctx context.Context, id string) error
	Execute(ctx context.Context, args pluginsdk.ExecuteArgs) (pluginsdk.ExecuteReply, error)
	Shutdown(ctx context.Context, id string) error
}

// Compile-time interface check.
var _ Remote = (*pluginsdk.RPCClient)(nil)

// dispense fetches the intent plugin from a connected client.
func dispense(proto goplugin.ClientProtocol) (Remote, bool, error) {
	raw, err := proto.Dispense(pluginsdk.PluginName)
	if err != nil {
		return nil, false, err //nolint:wrapcheck // wrapped by caller
	}
	remote, ok := raw.(Remote)
	return remote, ok, nil
}
