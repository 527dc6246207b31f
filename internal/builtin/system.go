// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package builtin holds the handlers compiled into intentd: the system
// handler registered through the legacy registry and the factories
// available to builtin-runtime manifests.
package builtin

import (
	"context"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/intentd/pkg/intent"
)

// System intents.
const (
	ActionPing    = "system:ping"
	ActionIntents = "system:intents"
)

// Catalog lists the handlers currently reachable, keyed by plugin id.
type Catalog interface {
	GetPlugins() map[string]intent.Handler
}

// System answers liveness and introspection intents.
type System struct {
	catalog Catalog
	now     func() time.Time
}

// NewSystem creates the system handler. catalog may be nil, in which case
// system:intents fails.
func NewSystem(catalog Catalog) *System {
	return &System{catalog: catalog, now: time.Now}
}

// SupportedIntents implements intent.Handler.
func (s *System) SupportedIntents() []string {
	return []string{ActionPing, ActionIntents}
}

// Execute implements intent.Handler.
func (s *System) Execute(_ context.Context, in intent.Intent, ec intent.ExecContext) (any, error) {
	switch in.Action {
	case ActionPing:
		return map[string]any{
			"pong":       true,
			"request_id": ec.RequestID.String(),
			"time":       s.now().UTC().Format(time.RFC3339),
			"echo":       in.Data,
		}, nil
	case ActionIntents:
		if s.catalog == nil {
			return nil, oops.In("builtin").Errorf("no plugin catalog available")
		}
		return Intents(s.catalog.GetPlugins()), nil
	default:
		return nil, oops.In("builtin").With("action", in.Action).Errorf("unsupported action %s", in.Action)
	}
}

// Intents maps every declared action to the sorted ids of the plugins
// declaring it.
func Intents(plugins map[string]intent.Handler) map[string][]string {
	out := make(map[string][]string)
	for id, h := range plugins {
		for _, action := range h.SupportedIntents() {
			if !slices.Contains(out[action], id) {
				out[action] = append(out[action], id)
			}
		}
	}
	for action := range out {
		slices.Sort(out[action])
	}
	return out
}
