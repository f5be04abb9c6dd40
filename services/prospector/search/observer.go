// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// Observer receives search lifecycle events: the transcript recorder,
// metrics, and the status feed all hang off this interface.
//
// Events fire inline on the search goroutine between oracle trials,
// so implementations must return quickly and must not call back into
// the Searcher. Slices passed to an observer are the caller's copies
// and must not be retained or mutated.
type Observer interface {
	// PartitionStep fires before each pool trial with the accepted
	// set and the subset about to be tried.
	PartitionStep(good, trying []pipeline.Pass)

	// TrialStarted fires immediately before the oracle is invoked.
	TrialStarted(cfg pipeline.Config)

	// TrialFinished fires with the oracle's verdict for the trial.
	TrialFinished(cfg pipeline.Config, verdict oracle.Verdict)

	// PoolAbandoned fires when cancellation or budget exhaustion
	// drops a pool without classifying its passes.
	PoolAbandoned(pool []pipeline.Pass, reason string)

	// SearchFinished fires once per run with the final accepted
	// sequence, including runs cut short.
	SearchFinished(good []pipeline.Pass)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) PartitionStep(good, trying []pipeline.Pass)                {}
func (NopObserver) TrialStarted(cfg pipeline.Config)                          {}
func (NopObserver) TrialFinished(cfg pipeline.Config, verdict oracle.Verdict) {}
func (NopObserver) PoolAbandoned(pool []pipeline.Pass, reason string)         {}
func (NopObserver) SearchFinished(good []pipeline.Pass)                       {}

// MultiObserver fans each event out to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) PartitionStep(good, trying []pipeline.Pass) {
	for _, o := range m {
		o.PartitionStep(good, trying)
	}
}

func (m MultiObserver) TrialStarted(cfg pipeline.Config) {
	for _, o := range m {
		o.TrialStarted(cfg)
	}
}

func (m MultiObserver) TrialFinished(cfg pipeline.Config, verdict oracle.Verdict) {
	for _, o := range m {
		o.TrialFinished(cfg, verdict)
	}
}

func (m MultiObserver) PoolAbandoned(pool []pipeline.Pass, reason string) {
	for _, o := range m {
		o.PoolAbandoned(pool, reason)
	}
}

func (m MultiObserver) SearchFinished(good []pipeline.Pass) {
	for _, o := range m {
		o.SearchFinished(good)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = MultiObserver{}
)
