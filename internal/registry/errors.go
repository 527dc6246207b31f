// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package registry

import "github.com/samber/oops"

// Error codes returned to Register and Unregister callers.
const (
	CodeNilHandler    = "REGISTRATION_NIL_HANDLER"
	CodeNoIntents     = "REGISTRATION_NO_INTENTS"
	CodeInvalidID     = "REGISTRATION_INVALID_ID"
	CodeConflict      = "REGISTRATION_CONFLICT"
	CodeInitFailed    = "REGISTRATION_INIT_FAILED"
	CodeNotRegistered = "NOT_REGISTERED"
)

// ErrNilHandler reports a Register call without a handler.
func ErrNilHandler() error {
	return oops.Code(CodeNilHandler).
		In("registry").
		Errorf("plugin handler is nil")
}

// ErrNoIntents reports a handler that declares no intents.
func ErrNoIntents() error {
	return oops.Code(CodeNoIntents).
		In("registry").
		Errorf("plugin declares no supported intents")
}

// ErrInvalidID reports a first intent without a namespace.
func ErrInvalidID(action string) error {
	return oops.Code(CodeInvalidID).
		In("registry").
		With("action", action).
		Errorf("cannot derive plugin id from intent %q", action)
}

// ErrConflict reports an id that is already registered.
func ErrConflict(id string) error {
	return oops.Code(CodeConflict).
		In("registry").
		With("plugin_id", id).
		Errorf("plugin %s is already registered", id)
}

// ErrInitFailed reports a failing Initialize hook.
func ErrInitFailed(id string, cause error) error {
	return oops.Code(CodeInitFailed).
		In("registry").
		With("plugin_id", id).
		Wrapf(cause, "initialize plugin %s", id)
}

// ErrNotRegistered reports an unknown id.
func ErrNotRegistered(id string) error {
	return oops.Code(CodeNotRegistered).
		In("registry").
		With("plugin_id", id).
		Errorf("plugin %s is not registered", id)
}
