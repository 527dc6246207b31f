// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package intent defines the contract between the router and the plugins
// that handle namespaced action requests.
package intent

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Intent is a namespaced action request routed to exactly one handler.
// Action is conventionally "<namespace>:<verb>".
type Intent struct {
	Action string `json:"action" yaml:"action"`
	Data   any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// Namespace returns the namespace segment of the intent's action.
func (i Intent) Namespace() string {
	return Namespace(i.Action)
}

// Namespace returns the segment of action before the first ':'.
// Actions without a ':' are their own namespace.
func Namespace(action string) string {
	ns, _, _ := strings.Cut(action, ":")
	return ns
}

// ExecContext carries request-scoped metadata alongside an intent.
type ExecContext struct {
	RequestID ulid.ULID
	// Source identifies who raised the intent, e.g. "cli" or "plugin:echo".
	Source   string
	Metadata map[string]string
}

// Result is the outcome of executing an intent as seen by the orchestrator.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful Result.
func Succeeded(data any) Result {
	return Result{Success: true, Data: data}
}

// Failed builds a failed Result with a user-facing message.
func Failed(msg string) Result {
	return Result{Error: msg}
}
