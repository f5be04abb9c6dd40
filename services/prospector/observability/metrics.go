// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for search runs.
//
// Metrics are exposed via the status server's /metrics endpoint. A
// search over a few hundred passes can run for days at ten minutes
// per trial, so trial counters and oracle latency histograms are the
// practical way to watch one from the outside.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "prospector"

// Subsystem for search metrics.
const searchSubsystem = "search"

// SearchMetrics holds all Prometheus metrics for a search run.
//
// Initialize once per process via NewSearchMetrics; registering the
// same metrics twice on one registry panics inside promauto.
type SearchMetrics struct {
	// TrialsTotal counts oracle trials by outcome.
	// Labels: outcome (ok, failed, timed_out, error)
	TrialsTotal *prometheus.CounterVec

	// OracleDurationSeconds measures wall-clock time per oracle trial.
	// Labels: outcome
	OracleDurationSeconds *prometheus.HistogramVec

	// AcceptedPasses tracks the current size of the good set.
	AcceptedPasses prometheus.Gauge

	// CandidatePoolSize tracks the size of the pool most recently
	// handed to a trial.
	CandidatePoolSize prometheus.Gauge

	// CacheHitsTotal counts trials answered from the verdict cache.
	CacheHitsTotal prometheus.Counter

	// AbandonedPassesTotal counts passes dropped unclassified by
	// cancellation or budget exhaustion.
	AbandonedPassesTotal prometheus.Counter

	// SearchDurationSeconds measures whole-run duration.
	SearchDurationSeconds prometheus.Histogram
}

// NewSearchMetrics creates and registers all search metrics on reg.
// Pass prometheus.DefaultRegisterer in production; tests use a
// private registry.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	factory := promauto.With(reg)

	return &SearchMetrics{
		TrialsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "trials_total",
				Help:      "Total number of oracle trials by outcome",
			},
			[]string{"outcome"},
		),
		OracleDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "oracle_duration_seconds",
				Help:      "Wall-clock duration of oracle trials",
				// Trials run from sub-second (cache hits) to the
				// 600 second timeout.
				Buckets: []float64{0.1, 1, 5, 15, 60, 120, 300, 450, 600},
			},
			[]string{"outcome"},
		),
		AcceptedPasses: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "accepted_passes",
				Help:      "Current number of passes in the good set",
			},
		),
		CandidatePoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "candidate_pool_size",
				Help:      "Size of the pool in the most recent trial",
			},
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "cache_hits_total",
				Help:      "Trials answered from the verdict cache",
			},
		),
		AbandonedPassesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "abandoned_passes_total",
				Help:      "Passes left unclassified by cancellation or budget exhaustion",
			},
		),
		SearchDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: searchSubsystem,
				Name:      "search_duration_seconds",
				Help:      "Duration of complete search runs",
				Buckets:   prometheus.ExponentialBuckets(60, 4, 8),
			},
		),
	}
}

// RecordTrial updates the trial counter and latency histogram for one
// verdict.
func (m *SearchMetrics) RecordTrial(outcome string, duration time.Duration, cached bool) {
	m.TrialsTotal.WithLabelValues(outcome).Inc()
	m.OracleDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	if cached {
		m.CacheHitsTotal.Inc()
	}
}
