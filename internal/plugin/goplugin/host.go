// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package goplugin provides a Host implementation for binary plugins
// using HashiCorp's go-plugin system over net/rpc.
package goplugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/pkg/intent"
	"github.com/holomush/intentd/pkg/pluginsdk"
)

// DefaultCallTimeout bounds a single call into a plugin process.
const DefaultCallTimeout = 5 * time.Second

// Ping retry policy while a freshly started plugin settles.
const (
	pingAttempts = 3
	pingInterval = 100 * time.Millisecond
)

// Sentinel errors for programmatic error checking.
var (
	// ErrHostClosed is returned when operations are attempted on a closed host.
	ErrHostClosed = errors.New("host is closed")
	// ErrPluginAlreadyLoaded is returned when loading a plugin that's already loaded.
	ErrPluginAlreadyLoaded = errors.New("plugin already loaded")
)

// Compile-time interface check.
var _ plugin.Host = (*Host)(nil)

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the plugin process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable path.
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct{}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		Plugins:          PluginMap,
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath resolved from a validated manifest
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
	})
}

// Host manages binary plugins via HashiCorp go-plugin.
type Host struct {
	clientFactory ClientFactory
	timeout       time.Duration
	logger        *slog.Logger
	plugins       map[string]*handler
	mu            sync.Mutex
	closed        bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithClientFactory replaces the go-plugin client factory (for testing).
func WithClientFactory(f ClientFactory) HostOption {
	return func(h *Host) {
		if f != nil {
			h.clientFactory = f
		}
	}
}

// WithCallTimeout bounds each call into a plugin process.
func WithCallTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHostLogger sets the host's logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHost creates a new binary plugin host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		clientFactory: &DefaultClientFactory{},
		timeout:       DefaultCallTimeout,
		logger:        slog.Default(),
		plugins:       make(map[string]*handler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load starts the plugin process, hands it the manifest config and reads
// its supported intents.
func (h *Host) Load(ctx context.Context, reg *plugin.Registration, env intent.Env) (intent.Handler, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if _, ok := h.plugins[reg.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginAlreadyLoaded, reg.ID)
	}

	execPath := reg.EntryPath()
	if _, err := os.Stat(execPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin executable not found: %s: %w", execPath, err)
		}
		return nil, fmt.Errorf("cannot access plugin executable %s: %w", execPath, err)
	}

	config, err := json.Marshal(env.Config)
	if err != nil {
		return nil, fmt.Errorf("encode config for plugin %s: %w", reg.ID, err)
	}

	client := h.clientFactory.NewClient(execPath)

	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", reg.ID, err)
	}

	if err := ping(ctx, proto); err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin %s is not responding: %w", reg.ID, err)
	}

	remote, ok, err := dispense(proto)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", reg.ID, err)
	}
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not implement the intent protocol", reg.ID)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	intents, err := remote.Setup(callCtx, pluginsdk.SetupArgs{
		ID:        reg.ID,
		Directory: reg.Dir,
		Config:    config,
	})
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin %s setup failed: %w", reg.ID, err)
	}

	p := &handler{
		id:      reg.ID,
		dir:     reg.Dir,
		intents: intents,
		client:  client,
		remote:  remote,
		timeout: h.timeout,
	}
	h.plugins[reg.ID] = p
	return p, nil
}

// ping waits for the plugin's control connection, retrying briefly.
func ping(ctx context.Context, proto hashiplug.ClientProtocol) error {
	backoff := retry.WithMaxRetries(pingAttempts, retry.NewConstant(pingInterval))
	//nolint:wrapcheck // retry returns the last ping error
	return retry.Do(ctx, backoff, func(_ context.Context) error {
		if err := proto.Ping(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Plugins returns ids of all loaded plugins.
func (h *Host) Plugins() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	ids := make([]string, 0, len(h.plugins))
	for id := range h.plugins {
		ids = append(ids, id)
	}
	return ids
}

// Unload kills the plugin process and forgets the plugin. Unknown ids and a
// closed host are not errors.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.plugins[id]
	if !ok {
		return nil
	}
	h.logger.Debug("unloading binary plugin", "plugin", id)
	p.kill()
	delete(h.plugins, id)
	return nil
}

// Close kills every plugin process.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.plugins {
		h.logger.Debug("stopping binary plugin", "plugin", id)
		p.kill()
	}

	h.closed = true
	clear(h.plugins)
	return nil
}

// handler forwards intents to a plugin process.
type handler struct {
	id      string
	dir     string
	intents []string
	client  PluginClient
	remote  Remote
	timeout time.Duration

	once sync.Once
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

// Execute sends the intent to the plugin process. Intent data crosses the
// process boundary as JSON.
func (p *handler) Execute(ctx context.Context, in intent.Intent, ec intent.ExecContext) (any, error) {
	data, err := json.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("encode intent data: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.remote.Execute(callCtx, pluginsdk.ExecuteArgs{
		Action:    in.Action,
		Data:      data,
		RequestID: ec.RequestID.String(),
		Source:    ec.Source,
		Metadata:  ec.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("plugin %s Execute failed: %w", p.id, err)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	if len(reply.Data) == 0 {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return nil, fmt.Errorf("decode result from plugin %s: %w", p.id, err)
	}
	return out, nil
}

func (p *handler) Initialize(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.remote.Initialize(callCtx, p.id) //nolint:wrapcheck // loader adds plugin context
}

// Shutdown calls the plugin's teardown hook and stops the process.
func (p *handler) Shutdown(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.remote.Shutdown(callCtx, p.id)
	p.kill()
	return err //nolint:wrapcheck // loader adds plugin context
}

func (p *handler) kill() {
	p.once.Do(p.client.Kill)
}
