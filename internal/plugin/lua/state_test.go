// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	luavm "github.com/yuin/gopher-lua"

	pluginlua "github.com/holomush/intentd/internal/plugin/lua"
)

func newSandbox(t *testing.T) *luavm.LState {
	t.Helper()
	L, err := pluginlua.NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	t.Cleanup(L.Close)
	return L
}

func TestStateFactory_NewState_LoadsSafeLibraries(t *testing.T) {
	L := newSandbox(t)

	for _, lib := range []string{"table", "string", "math"} {
		assert.NotEqual(t, luavm.LTNil, L.GetGlobal(lib).Type(), "library %q not loaded", lib)
	}
}

func TestStateFactory_NewState_BlocksUnsafeLibraries(t *testing.T) {
	L := newSandbox(t)

	for _, lib := range []string{"os", "io", "debug", "package"} {
		assert.Equal(t, luavm.LTNil, L.GetGlobal(lib).Type(), "unsafe library %q should not be loaded", lib)
	}
}

func TestStateFactory_NewState_BlocksUnsafeBaseFunctions(t *testing.T) {
	L := newSandbox(t)

	for _, fn := range []string{"dofile", "loadfile", "loadstring", "load"} {
		assert.Equal(t, luavm.LTNil, L.GetGlobal(fn).Type(), "unsafe function %q should be removed", fn)
	}
}

func TestStateFactory_NewState_BindsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	L, err := pluginlua.NewStateFactory().NewState(ctx)
	require.NoError(t, err)
	defer L.Close()

	cancel()
	err = L.DoString(`while true do end`)
	assert.Error(t, err)
}

func TestCompile_RunsInFreshStates(t *testing.T) {
	proto, err := pluginlua.Compile("main.lua", `counter = (counter or 0) + 1`)
	require.NoError(t, err)

	for range 2 {
		L := newSandbox(t)
		require.NoError(t, pluginlua.Run(L, proto))
		assert.Equal(t, luavm.LNumber(1), L.GetGlobal("counter"))
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := pluginlua.Compile("broken.lua", `function (`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.lua")
}
