// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for relay requests.
const (
	OutcomeOK            = "ok"
	OutcomeBadRequest    = "bad_request"
	OutcomeNoCredential  = "no_credential"
	OutcomeUpstreamError = "upstream_error"
	OutcomeAborted       = "aborted"
)

// OtherModelLabel replaces model names outside the configured set so
// caller-chosen identifiers cannot create new series.
const OtherModelLabel = "other"

// Metrics holds the relay's Prometheus collectors. Each Server has its own
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	streamedBytes *prometheus.CounterVec
	upstreamTime  *prometheus.HistogramVec
	inFlight      prometheus.Gauge

	models map[string]bool
}

// NewMetrics creates and registers the relay collectors. Only the names in
// models are used as model label values; anything else is recorded as
// OtherModelLabel.
func NewMetrics(models ...string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	known := make(map[string]bool, len(models))
	for _, name := range models {
		if name != "" {
			known[name] = true
		}
	}

	return &Metrics{
		registry: reg,
		models:   known,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatrelay",
			Name:      "chat_requests_total",
			Help:      "Chat relay requests by outcome.",
		}, []string{"outcome"}),
		streamedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatrelay",
			Name:      "streamed_bytes_total",
			Help:      "Bytes of completion text streamed to callers, by model.",
		}, []string{"model"}),
		upstreamTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatrelay",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of upstream streaming completions.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"model"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Name:      "chat_in_flight",
			Help:      "Chat relay requests currently streaming.",
		}),
	}
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordOutcome(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// modelLabel maps a model name to its label value.
func (m *Metrics) modelLabel(model string) string {
	if m.models[model] {
		return model
	}
	return OtherModelLabel
}

func (m *Metrics) recordBytes(model string, n int) {
	m.streamedBytes.WithLabelValues(m.modelLabel(model)).Add(float64(n))
}

func (m *Metrics) observeUpstream(model string, d time.Duration) {
	m.upstreamTime.WithLabelValues(m.modelLabel(model)).Observe(d.Seconds())
}
