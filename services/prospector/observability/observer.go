// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
	"github.com/AleutianAI/PassProspector/services/prospector/search"
)

// MetricsObserver feeds search events into SearchMetrics. Attach it
// to a Searcher through a MultiObserver alongside the transcript
// recorder.
type MetricsObserver struct {
	metrics *SearchMetrics
	started time.Time
}

// NewMetricsObserver creates an observer over metrics. The run clock
// starts now; create one observer per run.
func NewMetricsObserver(metrics *SearchMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics, started: time.Now()}
}

// PartitionStep implements search.Observer.
func (o *MetricsObserver) PartitionStep(good, trying []pipeline.Pass) {
	o.metrics.AcceptedPasses.Set(float64(len(good)))
	o.metrics.CandidatePoolSize.Set(float64(len(trying)))
}

// TrialStarted implements search.Observer.
func (o *MetricsObserver) TrialStarted(cfg pipeline.Config) {}

// TrialFinished implements search.Observer.
func (o *MetricsObserver) TrialFinished(cfg pipeline.Config, v oracle.Verdict) {
	o.metrics.RecordTrial(v.Status.String(), v.Duration, v.Cached)
}

// PoolAbandoned implements search.Observer.
func (o *MetricsObserver) PoolAbandoned(pool []pipeline.Pass, reason string) {
	o.metrics.AbandonedPassesTotal.Add(float64(len(pool)))
}

// SearchFinished implements search.Observer.
func (o *MetricsObserver) SearchFinished(good []pipeline.Pass) {
	o.metrics.AcceptedPasses.Set(float64(len(good)))
	o.metrics.SearchDurationSeconds.Observe(time.Since(o.started).Seconds())
}

var _ search.Observer = (*MetricsObserver)(nil)
