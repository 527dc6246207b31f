// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/internal/plugin/hostfunc"
	"github.com/holomush/intentd/pkg/intent"
)

// Compile-time interface check.
var _ plugin.Host = (*Host)(nil)

// Lua globals a plugin script may define.
const (
	fnSupportedIntents = "supported_intents"
	fnExecute          = "execute"
	fnInitialize       = "initialize"
	fnShutdown         = "shutdown"
	globalIntents      = "intents"
	globalConfig       = "config"
)

// Host loads Lua plugins. Each plugin's entry file is compiled once; every
// call then runs in a fresh sandboxed state, so no Lua globals survive
// between calls.
type Host struct {
	factory *StateFactory
	mu      sync.Mutex
	loaded  map[string]*handler
	closed  bool
}

// NewHost creates a Lua plugin host.
func NewHost() *Host {
	return &Host{
		factory: NewStateFactory(),
		loaded:  make(map[string]*handler),
	}
}

// Load compiles the plugin entry file and reads its supported intents.
func (h *Host) Load(ctx context.Context, reg *plugin.Registration, env intent.Env) (intent.Handler, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	errb := oops.In("lua").With("plugin", reg.ID).With("operation", "load")
	if h.closed {
		return nil, errb.New("host is closed")
	}

	entryPath := reg.EntryPath()
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, errb.With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	proto, err := Compile(reg.Manifest.EntryPoint, string(code))
	if err != nil {
		return nil, errb.With("entry", reg.Manifest.EntryPoint).Hint("syntax error").Wrap(err)
	}

	p := &handler{
		id:      reg.ID,
		dir:     reg.Dir,
		proto:   proto,
		factory: h.factory,
		funcs:   hostfunc.New(env.Logger, env.Dispatcher),
		config:  env.Config,
	}

	intents, err := p.readIntents(ctx)
	if err != nil {
		return nil, errb.Hint("failed to read supported intents").Wrap(err)
	}
	p.intents = intents

	h.loaded[reg.ID] = p
	return p, nil
}

// Plugins returns the ids of loaded plugins.
func (h *Host) Plugins() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.loaded))
	for id := range h.loaded {
		ids = append(ids, id)
	}
	return ids
}

// Unload drops the compiled plugin so it is no longer reported as loaded.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loaded, id)
	return nil
}

// Close releases all compiled plugins.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.loaded = nil
	return nil
}

// handler adapts a compiled Lua plugin to intent.Handler.
type handler struct {
	id      string
	dir     string
	proto   *lua.FunctionProto
	factory *StateFactory
	funcs   *hostfunc.Functions
	config  map[string]any
	intents []string
}

var (
	_ intent.Initializer       = (*handler)(nil)
	_ intent.Shutdowner        = (*handler)(nil)
	_ intent.DirectoryProvider = (*handler)(nil)
)

func (p *handler) SupportedIntents() []string {
	return p.intents
}

func (p *handler) PluginDirectory() string {
	return p.dir
}

// Execute calls execute(intent, ctx) in a fresh state. The function returns
// either the result data, or nil plus an error message.
func (p *handler) Execute(ctx context.Context, in intent.Intent, ec intent.ExecContext) (any, error) {
	L, err := p.newState(ctx)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	fn := L.GetGlobal(fnExecute)
	if fn.Type() != lua.LTFunction {
		return nil, oops.In("lua").With("plugin", p.id).With("action", in.Action).
			Errorf("plugin does not define %s()", fnExecute)
	}

	intentTable := L.NewTable()
	L.SetField(intentTable, "action", lua.LString(in.Action))
	L.SetField(intentTable, "data", hostfunc.ToLua(L, in.Data))

	ctxTable := L.NewTable()
	L.SetField(ctxTable, "request_id", lua.LString(ec.RequestID.String()))
	L.SetField(ctxTable, "source", lua.LString(ec.Source))
	L.SetField(ctxTable, "metadata", hostfunc.ToLua(L, ec.Metadata))

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, intentTable, ctxTable); err != nil {
		return nil, oops.In("lua").With("plugin", p.id).With("action", in.Action).With("operation", fnExecute).Wrap(err)
	}

	data, msg := L.Get(-2), L.Get(-1)
	L.Pop(2)
	if msg != lua.LNil {
		return nil, errors.New(msg.String())
	}
	return hostfunc.FromLua(data), nil
}

// Initialize calls initialize(config) when the script defines it.
func (p *handler) Initialize(ctx context.Context) error {
	return p.callHook(ctx, fnInitialize, hostfunc.ToLua)
}

// Shutdown calls shutdown() when the script defines it.
func (p *handler) Shutdown(ctx context.Context) error {
	return p.callHook(ctx, fnShutdown, nil)
}

func (p *handler) callHook(ctx context.Context, name string, withConfig func(*lua.LState, any) lua.LValue) error {
	L, err := p.newState(ctx)
	if err != nil {
		return err
	}
	defer L.Close()

	fn := L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}

	var args []lua.LValue
	if withConfig != nil {
		args = append(args, withConfig(L, p.config))
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, args...); err != nil {
		return oops.In("lua").With("plugin", p.id).With("operation", name).Wrap(err)
	}
	ok, msg := L.Get(-2), L.Get(-1)
	L.Pop(2)
	if ok == lua.LFalse || (ok == lua.LNil && msg != lua.LNil) {
		return oops.In("lua").With("plugin", p.id).With("operation", name).Errorf("%s", msg.String())
	}
	return nil
}

// readIntents asks the script for its intents: supported_intents() when
// defined, otherwise the global intents array.
func (p *handler) readIntents(ctx context.Context) ([]string, error) {
	L, err := p.newState(ctx)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	if fn := L.GetGlobal(fnSupportedIntents); fn.Type() == lua.LTFunction {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)
		return hostfunc.StringSlice(ret), nil
	}
	return hostfunc.StringSlice(L.GetGlobal(globalIntents)), nil
}

func (p *handler) newState(ctx context.Context) (*lua.LState, error) {
	L, err := p.factory.NewState(ctx)
	if err != nil {
		return nil, oops.In("lua").With("plugin", p.id).Hint("failed to create state").Wrap(err)
	}
	p.funcs.Register(L, p.id)
	L.SetGlobal(globalConfig, hostfunc.ToLua(L, p.config))

	if err := Run(L, p.proto); err != nil {
		L.Close()
		return nil, oops.In("lua").With("plugin", p.id).Hint("failed to run plugin chunk").Wrap(err)
	}
	return L, nil
}
