// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for intent execution metrics.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusPanic    = "panic"
)

// Resolution sources.
const (
	SourceDiscovery = "discovery"
	SourceLegacy    = "legacy"
	SourceNone      = "none"
)

// IntentResolutions counts lookups by where the handler came from.
// Use RegisterMetrics to register this with a Prometheus registry.
var IntentResolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "intentd_intent_resolutions_total",
		Help: "Total number of intent resolutions by source and strategy",
	},
	[]string{"source", "strategy"},
)

// IntentExecutions counts executions by outcome.
var IntentExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "intentd_intent_executions_total",
		Help: "Total number of intent executions",
	},
	[]string{"status"},
)

// IntentDuration observes execution time, resolution included.
var IntentDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "intentd_intent_duration_seconds",
		Help:    "Intent execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// RegisterMetrics registers router metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(IntentResolutions)
	reg.MustRegister(IntentExecutions)
	reg.MustRegister(IntentDuration)
}

func recordResolution(source, strategy string) {
	IntentResolutions.WithLabelValues(source, strategy).Inc()
}

func recordExecution(status string, d time.Duration) {
	IntentExecutions.WithLabelValues(status).Inc()
	IntentDuration.Observe(d.Seconds())
}
