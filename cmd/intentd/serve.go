// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/intentd/internal/observability"
	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/internal/router"
)

// DefaultMetricsAddr is used by serve when no metrics address is configured.
const DefaultMetricsAddr = "127.0.0.1:9100"

// shutdownTimeout bounds plugin and HTTP shutdown.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load plugins and serve metrics and health probes until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.Close(shutdownCtx)
	}()

	addr := a.cfg.Metrics.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	srv := observability.NewServer(addr, a.router.Ready,
		router.RegisterMetrics,
		plugin.RegisterMetrics,
	)
	srv.Metrics().BuildInfo.WithLabelValues(version).Set(1)
	srv.Metrics().PluginsActive.WithLabelValues(router.SourceDiscovery).Set(float64(len(a.discovery.Entries())))
	srv.Metrics().PluginsActive.WithLabelValues(router.SourceLegacy).Set(float64(a.registry.Len()))

	errCh, err := srv.Start()
	if err != nil {
		return err //nolint:wrapcheck // observability errors carry context
	}
	a.logger.Info("intentd serving",
		"addr", srv.Addr(),
		"plugins", len(a.router.GetPlugins()))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err //nolint:wrapcheck // serve errors pass through
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx) //nolint:wrapcheck // observability errors carry context
}
