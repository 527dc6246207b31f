// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Load outcome labels.
const (
	StatusLoaded  = "loaded"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// PluginLoads counts load attempts by runtime, kind and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var PluginLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "intentd_plugin_loads_total",
		Help: "Total number of plugin load attempts by runtime, kind and status",
	},
	[]string{"runtime", "kind", "status"},
)

// ManifestErrors counts manifests rejected during scanning.
var ManifestErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "intentd_manifest_errors_total",
		Help: "Total number of manifests skipped during scanning by reason",
	},
	[]string{"reason"},
)

// RegisterMetrics registers plugin package metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(PluginLoads)
	reg.MustRegister(ManifestErrors)
}

func recordLoad(reg *Registration, status string) {
	PluginLoads.WithLabelValues(string(reg.Manifest.EffectiveRuntime()), reg.Kind(), status).Inc()
}
