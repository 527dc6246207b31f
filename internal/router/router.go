// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package router turns intents into handler executions.
//
// The router asks discovery first and falls back to the legacy registry
// only when discovery finds nothing. Execution never panics and never
// returns an error: every outcome is an intent.Result.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/intentd/internal/registry"
	"github.com/holomush/intentd/internal/resolve"
	"github.com/holomush/intentd/pkg/errutil"
	"github.com/holomush/intentd/pkg/intent"
)

var tracer = otel.Tracer("intentd/router")

// DefaultMaxDepth bounds how deeply plugins may dispatch intents from
// inside their own execution.
const DefaultMaxDepth = 8

// Discovery is the manifest-driven plugin source.
type Discovery interface {
	Initialize(ctx context.Context, d intent.Dispatcher) error
	Ready() bool
	FindPluginForIntent(in intent.Intent) (resolve.Match, bool)
	GetPlugin(id string) (intent.Handler, bool)
	Plugins() map[string]intent.Handler
	IsPluginSubstituted(id string) bool
	SubstitutingPlugin(id string) (string, bool)
	Shutdown(ctx context.Context) error
}

// Legacy is the explicit-registration plugin source.
type Legacy interface {
	FindPluginForIntent(in intent.Intent) (resolve.Match, bool)
	Get(id string) (*registry.Registration, bool)
	Entries() []*registry.Registration
	Shutdown(ctx context.Context) error
}

// Resolution is a found handler and where it came from.
type Resolution struct {
	resolve.Match
	Source string
}

// Router composes discovery and the legacy registry.
type Router struct {
	discovery Discovery
	legacy    Legacy
	logger    *slog.Logger
	maxDepth  int
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxDepth bounds nested dispatch.
func WithMaxDepth(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// New creates a router. Either source may be nil.
func New(d Discovery, legacy Legacy, opts ...Option) *Router {
	r := &Router{
		discovery: d,
		legacy:    legacy,
		logger:    slog.Default(),
		maxDepth:  DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ intent.Dispatcher = (*Router)(nil)

// Initialize initializes discovery with the router as the plugins'
// dispatcher.
func (r *Router) Initialize(ctx context.Context) error {
	if r.discovery == nil {
		return nil
	}
	return r.discovery.Initialize(ctx, r) //nolint:wrapcheck // discovery errors carry codes
}

// Ready reports whether discovery has finished loading.
func (r *Router) Ready() bool {
	return r.discovery == nil || r.discovery.Ready()
}

// FindPluginForIntent resolves in through discovery, then the legacy
// registry.
func (r *Router) FindPluginForIntent(in intent.Intent) (Resolution, bool) {
	if r.discovery != nil {
		if m, ok := r.discovery.FindPluginForIntent(in); ok {
			return Resolution{Match: m, Source: SourceDiscovery}, true
		}
	}
	if r.legacy != nil {
		if m, ok := r.legacy.FindPluginForIntent(in); ok {
			return Resolution{Match: m, Source: SourceLegacy}, true
		}
	}
	return Resolution{Source: SourceNone}, false
}

type depthKey struct{}

func depth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// ExecuteIntent resolves and runs in. A missing request id is filled in.
func (r *Router) ExecuteIntent(ctx context.Context, in intent.Intent, ec intent.ExecContext) (res intent.Result) {
	if ec.RequestID.IsZero() {
		ec.RequestID = ulid.Make()
	}
	start := time.Now()
	logger := r.logger.With(
		"request_id", ec.RequestID.String(),
		"action", in.Action)

	ctx, span := tracer.Start(ctx, "intent.execute",
		trace.WithAttributes(
			attribute.String("intent.action", in.Action),
			attribute.String("intent.request_id", ec.RequestID.String()),
			attribute.String("intent.source", ec.Source),
		))
	status := StatusSuccess
	var pluginID string
	defer func() {
		if rec := recover(); rec != nil {
			status = StatusPanic
			err := ErrHandlerPanic(in.Action, pluginID, rec)
			errutil.LogError(logger, "plugin panicked", err)
			res = intent.Failed(UserMessage(err))
		}
		if !res.Success {
			span.SetStatus(codes.Error, res.Error)
		}
		span.SetAttributes(attribute.String("intent.status", status))
		span.End()
		recordExecution(status, time.Since(start))
	}()

	level := depth(ctx)
	if level >= r.maxDepth {
		status = StatusError
		err := ErrDispatchDepth(in.Action, level)
		errutil.LogWarn(logger, "intent rejected", err)
		return intent.Failed(UserMessage(err))
	}
	ctx = context.WithValue(ctx, depthKey{}, level+1)

	found, ok := r.FindPluginForIntent(in)
	recordResolution(found.Source, found.Strategy)
	if !ok {
		status = StatusNotFound
		logger.Debug("no plugin for intent")
		span.SetAttributes(attribute.String("intent.resolution", SourceNone))
		return intent.Failed(UserMessage(ErrNoHandler(in.Action)))
	}
	pluginID = found.ID
	span.SetAttributes(
		attribute.String("intent.plugin", found.ID),
		attribute.String("intent.resolution", found.Source),
		attribute.String("intent.strategy", found.Strategy),
	)

	data, err := found.Handler.Execute(ctx, in, ec)
	if err != nil {
		status = StatusError
		span.RecordError(err)
		logger.Debug("intent failed",
			"plugin", found.ID,
			"error", err)
		return intent.Failed(UserMessage(ErrHandlerFailed(in.Action, found.ID, err)))
	}

	logger.Debug("intent executed",
		"plugin", found.ID,
		"source", found.Source,
		"strategy", found.Strategy,
		"duration", time.Since(start))
	return intent.Succeeded(data)
}

// GetPlugin returns a handler by id, discovery first.
func (r *Router) GetPlugin(id string) (intent.Handler, bool) {
	if r.discovery != nil {
		if h, ok := r.discovery.GetPlugin(id); ok {
			return h, true
		}
	}
	if r.legacy != nil {
		if reg, ok := r.legacy.Get(id); ok {
			return reg.Handler, true
		}
	}
	return nil, false
}

// GetPlugins lists every reachable handler by id. Legacy handlers replaced
// by a loaded discovery plugin are left out, and discovery handlers win id
// collisions.
func (r *Router) GetPlugins() map[string]intent.Handler {
	out := make(map[string]intent.Handler)
	if r.legacy != nil {
		for _, reg := range r.legacy.Entries() {
			if r.replaced(reg.ID) {
				continue
			}
			out[reg.ID] = reg.Handler
		}
	}
	if r.discovery != nil {
		for id, h := range r.discovery.Plugins() {
			out[id] = h
		}
	}
	return out
}

// replaced reports whether id is substituted by a plugin discovery can
// actually return.
func (r *Router) replaced(id string) bool {
	if r.discovery == nil || !r.discovery.IsPluginSubstituted(id) {
		return false
	}
	by, ok := r.discovery.SubstitutingPlugin(id)
	if !ok {
		return false
	}
	_, loaded := r.discovery.GetPlugin(by)
	return loaded
}

// IsPluginSubstituted reports whether a discovered plugin substitutes id.
func (r *Router) IsPluginSubstituted(id string) bool {
	return r.discovery != nil && r.discovery.IsPluginSubstituted(id)
}

// GetSubstitutingPlugin returns the id and handler of the plugin that
// substitutes id.
func (r *Router) GetSubstitutingPlugin(id string) (string, intent.Handler, bool) {
	if r.discovery == nil {
		return "", nil, false
	}
	by, ok := r.discovery.SubstitutingPlugin(id)
	if !ok {
		return "", nil, false
	}
	h, _ := r.discovery.GetPlugin(by)
	return by, h, true
}

// Shutdown shuts down discovery, then the legacy registry.
func (r *Router) Shutdown(ctx context.Context) error {
	var errs []error
	if r.discovery != nil {
		if err := r.discovery.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("discovery: %w", err))
		}
	}
	if r.legacy != nil {
		if err := r.legacy.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("legacy registry: %w", err))
		}
	}
	return errors.Join(errs...)
}
