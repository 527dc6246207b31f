// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package builtin

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/intentd/pkg/intent"
)

// EchoFactory is the entry point name builtin manifests use for the echo
// handler.
const EchoFactory = "echo"

// Factories returns the factories builtin-runtime manifests may name.
func Factories() map[string]intent.Factory {
	return map[string]intent.Factory{
		EchoFactory: NewEcho,
	}
}

// Echo returns an intent's data unchanged. Its namespace defaults to the
// plugin id and can be set with the "namespace" config key.
type Echo struct {
	namespace string
	prefix    string
	logger    *slog.Logger
}

// NewEcho is an intent.Factory.
func NewEcho(env intent.Env) (intent.Handler, error) {
	ns := env.ID
	if v, ok := env.Config["namespace"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, oops.In("builtin").With("namespace", v).Errorf("echo namespace must be a non-empty string")
		}
		ns = s
	}
	if ns == "" {
		ns = EchoFactory
	}
	prefix, _ := env.Config["prefix"].(string)

	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Echo{namespace: ns, prefix: prefix, logger: logger}, nil
}

// SupportedIntents implements intent.Handler.
func (e *Echo) SupportedIntents() []string {
	return []string{e.namespace + ":say"}
}

// Execute implements intent.Handler.
func (e *Echo) Execute(ctx context.Context, in intent.Intent, _ intent.ExecContext) (any, error) {
	e.logger.DebugContext(ctx, "echo", "action", in.Action)
	if s, ok := in.Data.(string); ok && e.prefix != "" {
		return e.prefix + s, nil
	}
	return in.Data, nil
}
