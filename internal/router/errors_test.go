// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package router_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/intentd/internal/router"
	"github.com/holomush/intentd/pkg/errutil"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "Something went wrong. Try again."},
		{"plain error", errors.New("x"), "Something went wrong. Try again."},
		{"no handler", router.ErrNoHandler("report:generate"), "No plugin found for intent: report:generate"},
		{"panic", router.ErrHandlerPanic("dice:roll", "dice", "boom"), "Plugin failed while handling intent: dice:roll"},
		{"handler failed", router.ErrHandlerFailed("dice:roll", "dice", errors.New("no dice")), "no dice"},
		{"depth", router.ErrDispatchDepth("loop:go", 8), "Too many nested intents while handling: loop:go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, router.UserMessage(tt.err))
		})
	}
}

func TestErrorCodes(t *testing.T) {
	errutil.AssertErrorCode(t, router.ErrNoHandler("a:b"), router.CodeNoHandler)
	errutil.AssertErrorContext(t, router.ErrNoHandler("a:b"), "action", "a:b")
	errutil.AssertErrorCode(t, router.ErrHandlerFailed("a:b", "a", errors.New("x")), router.CodeHandlerFailed)
	errutil.AssertErrorContext(t, router.ErrHandlerPanic("a:b", "a", "x"), "plugin_id", "a")
}
