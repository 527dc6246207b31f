// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hostfunc provides host functions to Lua plugins.
//
// Functions are registered as the global "intentd" table:
//
//	intentd.log(level, message)
//	intentd.new_request_id() -> string
//	intentd.dispatch(action [, data]) -> {success=bool, data=any, error=string}
//
//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"log/slog"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/intentd/pkg/intent"
)

// ModuleName is the Lua global holding the host functions.
const ModuleName = "intentd"

// Functions provides host functions to Lua plugins.
type Functions struct {
	logger     *slog.Logger
	dispatcher intent.Dispatcher
}

// New creates host functions. A nil dispatcher makes intentd.dispatch
// report an error instead of routing.
func New(logger *slog.Logger, d intent.Dispatcher) *Functions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Functions{logger: logger, dispatcher: d}
}

// Register installs the host functions into L on behalf of pluginID.
func (f *Functions) Register(L *lua.LState, pluginID string) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(f.logFn(pluginID)))
	L.SetField(mod, "new_request_id", L.NewFunction(newRequestID))
	L.SetField(mod, "dispatch", L.NewFunction(f.dispatchFn(pluginID)))
	L.SetGlobal(ModuleName, mod)
}

func (f *Functions) logFn(pluginID string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		logger := f.logger.With("plugin", pluginID)
		switch level {
		case "debug":
			logger.Debug(message)
		case "warn":
			logger.Warn(message)
		case "error":
			logger.Error(message)
		default:
			logger.Info(message)
		}
		return 0
	}
}

func newRequestID(L *lua.LState) int {
	L.Push(lua.LString(ulid.Make().String()))
	return 1
}

func (f *Functions) dispatchFn(pluginID string) lua.LGFunction {
	return func(L *lua.LState) int {
		action := L.CheckString(1)
		var data any
		if L.GetTop() >= 2 {
			data = FromLua(L.Get(2))
		}

		var res intent.Result
		if f.dispatcher == nil {
			res = intent.Failed("dispatch is not available")
		} else {
			ctx := L.Context()
			if ctx == nil {
				f.logger.Warn("dispatch called without a context", "plugin", pluginID)
				res = intent.Failed("dispatch is not available")
			} else {
				res = f.dispatcher.ExecuteIntent(ctx, intent.Intent{Action: action, Data: data}, intent.ExecContext{
					RequestID: ulid.Make(),
					Source:    "plugin:" + pluginID,
				})
			}
		}

		t := L.NewTable()
		L.SetField(t, "success", lua.LBool(res.Success))
		L.SetField(t, "data", ToLua(L, res.Data))
		if res.Error != "" {
			L.SetField(t, "error", lua.LString(res.Error))
		}
		L.Push(t)
		return 1
	}
}
