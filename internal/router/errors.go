// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package router

import (
	"github.com/samber/oops"
)

// Error codes for intent execution failures.
const (
	CodeNoHandler     = "NO_HANDLER"
	CodeHandlerPanic  = "HANDLER_PANIC"
	CodeHandlerFailed = "HANDLER_FAILED"
	CodeDispatchDepth = "DISPATCH_DEPTH_EXCEEDED"
)

// ErrNoHandler reports an intent nothing resolves.
func ErrNoHandler(action string) error {
	return oops.Code(CodeNoHandler).
		In("router").
		With("action", action).
		Errorf("no plugin found for intent %s", action)
}

// ErrHandlerPanic reports a handler that panicked.
func ErrHandlerPanic(action, pluginID string, recovered any) error {
	return oops.Code(CodeHandlerPanic).
		In("router").
		With("action", action).
		With("plugin_id", pluginID).
		Errorf("plugin %s panicked: %v", pluginID, recovered)
}

// ErrHandlerFailed wraps an error returned by a handler.
func ErrHandlerFailed(action, pluginID string, cause error) error {
	return oops.Code(CodeHandlerFailed).
		In("router").
		With("action", action).
		With("plugin_id", pluginID).
		With("message", cause.Error()).
		Wrap(cause)
}

// ErrDispatchDepth reports intents nested deeper than the router allows.
func ErrDispatchDepth(action string, depth int) error {
	return oops.Code(CodeDispatchDepth).
		In("router").
		With("action", action).
		With("depth", depth).
		Errorf("intent %s nested too deeply", action)
}

// UserMessage extracts a user-facing message from an execution error.
func UserMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}

	action, _ := oopsErr.Context()["action"].(string)
	switch oopsErr.Code() {
	case CodeNoHandler:
		return "No plugin found for intent: " + action
	case CodeHandlerPanic:
		return "Plugin failed while handling intent: " + action
	case CodeHandlerFailed:
		if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
			return msg
		}
		return "Something went wrong. Try again."
	case CodeDispatchDepth:
		return "Too many nested intents while handling: " + action
	default:
		return "Something went wrong. Try again."
	}
}
