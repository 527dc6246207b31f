// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/intentd/internal/builtin"
	"github.com/holomush/intentd/internal/config"
	"github.com/holomush/intentd/internal/discovery"
	"github.com/holomush/intentd/internal/logging"
	"github.com/holomush/intentd/internal/registry"
	"github.com/holomush/intentd/internal/router"
)

// app is a fully wired router with its plugin sources.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	discovery *discovery.Discovery
	registry  *registry.Registry
	router    *router.Router
}

// loadConfig reads configuration using the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to the command's stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.Setup(logging.Options{
		Service: "intentd",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.LogLevel(),
	}, cmd.ErrOrStderr())
}

// newApp wires discovery, the legacy registry and the router, registers the
// system handler and runs discovery.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	d := discovery.New(cfg.Discovery,
		discovery.WithLogger(logger),
		discovery.WithBuiltins(builtin.Factories()),
	)
	reg := registry.New(registry.WithLogger(logger))
	rtr := router.New(d, reg, router.WithLogger(logger))

	if _, err := reg.Register(ctx, builtin.NewSystem(rtr)); err != nil {
		return nil, oops.In("cli").Wrapf(err, "register system handler")
	}
	if err := rtr.Initialize(ctx); err != nil {
		return nil, oops.In("cli").Wrapf(err, "initialize plugins")
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		discovery: d,
		registry:  reg,
		router:    rtr,
	}, nil
}

// Close shuts every plugin down.
func (a *app) Close(ctx context.Context) {
	if err := a.router.Shutdown(ctx); err != nil {
		a.logger.Warn("plugin shutdown failed", "error", err)
	}
}
