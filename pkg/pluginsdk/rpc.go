// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package pluginsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/rpc"
	"sync"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/intentd/pkg/intent"
)

// rpcService is the net/rpc service name the server registers under.
const rpcService = "Plugin"

// SetupArgs carries the manifest data a plugin process needs to build its
// handler. Config is the manifest config section encoded as JSON.
type SetupArgs struct {
	ID        string
	Directory string
	Config    []byte
}

// SetupReply lists the intents the created handler supports.
type SetupReply struct {
	Intents []string
}

// ExecuteArgs is an intent plus its execution context. Data is JSON.
type ExecuteArgs struct {
	Action    string
	Data      []byte
	RequestID string
	Source    string
	Metadata  map[string]string
}

// ExecuteReply carries the handler's JSON result or its error message.
type ExecuteReply struct {
	Data  []byte
	Error string
}

// HookArgs identifies the plugin a lifecycle hook is called for.
type HookArgs struct {
	ID string
}

// HookReply acknowledges a lifecycle hook.
type HookReply struct {
	OK bool
}

// IntentPlugin implements go-plugin's net/rpc Plugin interface.
type IntentPlugin struct {
	// Factory and Logger are used on the plugin side only.
	Factory intent.Factory
	Logger  *slog.Logger
}

// Server returns the RPC server (called by plugin process).
func (p *IntentPlugin) Server(*hashiplug.MuxBroker) (any, error) {
	if p.Factory == nil {
		return nil, errors.New("pluginsdk: factory is nil")
	}
	return &RPCServer{factory: p.Factory, logger: p.Logger}, nil
}

// Client returns the RPC client (called by host process).
func (p *IntentPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (any, error) {
	return &RPCClient{client: c}, nil
}

// RPCServer adapts an intent.Handler to net/rpc.
type RPCServer struct {
	factory intent.Factory
	logger  *slog.Logger

	mu      sync.RWMutex
	handler intent.Handler
}

func (s *RPCServer) current() intent.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Setup creates the handler from the manifest config.
func (s *RPCServer) Setup(args SetupArgs, reply *SetupReply) error {
	var config map[string]any
	if len(args.Config) > 0 {
		if err := json.Unmarshal(args.Config, &config); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	h, err := s.factory(intent.Env{
		ID:        args.ID,
		Logger:    logger.With("plugin", args.ID),
		Config:    config,
		Directory: args.Directory,
	})
	if err != nil {
		return err
	}
	if h == nil {
		return errors.New("factory returned a nil handler")
	}
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	reply.Intents = h.SupportedIntents()
	return nil
}

// Initialize runs the handler's startup hook, if any.
func (s *RPCServer) Initialize(_ HookArgs, reply *HookReply) error {
	handler := s.current()
	if handler == nil {
		return errors.New("plugin is not set up")
	}
	if h, ok := handler.(intent.Initializer); ok {
		if err := h.Initialize(context.Background()); err != nil {
			return err
		}
	}
	reply.OK = true
	return nil
}

// Execute runs one intent. Handler failures are reported in the reply so
// the host can tell them apart from transport errors.
func (s *RPCServer) Execute(args ExecuteArgs, reply *ExecuteReply) error {
	handler := s.current()
	if handler == nil {
		return errors.New("plugin is not set up")
	}
	defer func() {
		if r := recover(); r != nil {
			reply.Data = nil
			reply.Error = fmt.Sprintf("plugin panicked: %v", r)
		}
	}()

	var data any
	if len(args.Data) > 0 {
		if err := json.Unmarshal(args.Data, &data); err != nil {
			return fmt.Errorf("decode intent data: %w", err)
		}
	}
	ec := intent.ExecContext{Source: args.Source, Metadata: args.Metadata}
	if args.RequestID != "" {
		if id, perr := ulid.Parse(args.RequestID); perr == nil {
			ec.RequestID = id
		}
	}

	out, herr := handler.Execute(context.Background(), intent.Intent{Action: args.Action, Data: data}, ec)
	if herr != nil {
		reply.Error = herr.Error()
		return nil
	}
	if out != nil {
		encoded, merr := json.Marshal(out)
		if merr != nil {
			return fmt.Errorf("encode result: %w", merr)
		}
		reply.Data = encoded
	}
	return nil
}

// Shutdown runs the handler's teardown hook, if any.
func (s *RPCServer) Shutdown(_ HookArgs, reply *HookReply) error {
	if h, ok := s.current().(intent.Shutdowner); ok {
		if err := h.Shutdown(context.Background()); err != nil {
			return err
		}
	}
	reply.OK = true
	return nil
}

// RPCClient is the host-side view of a plugin process.
type RPCClient struct {
	client *rpc.Client
}

// Setup sends the manifest data and returns the supported intents.
func (c *RPCClient) Setup(ctx context.Context, args SetupArgs) ([]string, error) {
	var reply SetupReply
	if err := c.call(ctx, "Setup", args, &reply); err != nil {
		return nil, err
	}
	return reply.Intents, nil
}

// Initialize calls the plugin's startup hook.
func (c *RPCClient) Initialize(ctx context.Context, id string) error {
	return c.call(ctx, "Initialize", HookArgs{ID: id}, &HookReply{})
}

// Execute runs an intent in the plugin process.
func (c *RPCClient) Execute(ctx context.Context, args ExecuteArgs) (ExecuteReply, error) {
	var reply ExecuteReply
	err := c.call(ctx, "Execute", args, &reply)
	return reply, err
}

// Shutdown calls the plugin's teardown hook.
func (c *RPCClient) Shutdown(ctx context.Context, id string) error {
	return c.call(ctx, "Shutdown", HookArgs{ID: id}, &HookReply{})
}

func (c *RPCClient) call(ctx context.Context, method string, args, reply any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("plugin %s: %w", method, err)
	}
	call := c.client.Go(rpcService+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return fmt.Errorf("plugin %s: %w", method, ctx.Err())
	case done := <-call.Done:
		return done.Error
	}
}
