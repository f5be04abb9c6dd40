// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the recursive partition search that grows
// a set of jointly-compatible passes.
//
// The strategy is greedy divide and conquer: test the whole pool on
// top of everything accepted so far, take it all on success, and on
// failure shuffle, halve, and recurse left then right. The right half
// runs with the left half's accepts already in place, so rejection is
// always relative to the good set at trial time. The final set is
// therefore order-dependent and not guaranteed maximal, and merged
// halves are never re-validated as a whole; both are accepted
// properties of the strategy, not defects.
package search

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// Searcher drives the partition search against an oracle.
//
// Thread Safety: not safe for concurrent use. One Run at a time; the
// algorithm is strictly sequential by design (see partition).
type Searcher struct {
	oracle   oracle.Oracle
	builder  pipeline.Builder
	rng      *rand.Rand
	observer Observer
	budget   *Budget
	tracer   *SearchTracer
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithBuilder sets the pipeline construction policy.
func WithBuilder(b pipeline.Builder) Option {
	return func(s *Searcher) {
		s.builder = b
	}
}

// WithSeed makes shuffles deterministic so a search can be replayed.
func WithSeed(seed int64) Option {
	return func(s *Searcher) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithObserver sets the event observer. Use a MultiObserver to attach
// several.
func WithObserver(obs Observer) Option {
	return func(s *Searcher) {
		s.observer = obs
	}
}

// WithBudget caps the run by trial count or wall clock.
func WithBudget(budget *Budget) Option {
	return func(s *Searcher) {
		s.budget = budget
	}
}

// WithTracer sets the tracer for observability.
func WithTracer(tracer *SearchTracer) Option {
	return func(s *Searcher) {
		s.tracer = tracer
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// NewSearcher creates a Searcher around the given oracle. Defaults:
// UniformBuilder, clock-seeded shuffles, no observer, unlimited
// budget, tracing disabled.
func NewSearcher(o oracle.Oracle, opts ...Option) *Searcher {
	s := &Searcher{
		oracle:   o,
		builder:  pipeline.UniformBuilder{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		observer: NopObserver{},
		budget:   NewBudget(BudgetConfig{}),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tracer == nil {
		s.tracer = NewSearchTracer(s.logger, ObservabilityConfig{})
	}

	return s
}

// Run searches candidates for a large jointly-compatible subset.
//
// The candidate list is copied and shuffled once up front so the
// enumerator's systematic ordering cannot bias the split points. Run
// has no failure mode: oracle failures are data, and cancellation or
// budget exhaustion abandons the remaining pools after recording
// them in the transcript. The budget clock restarts at the top of
// each Run.
//
// Outputs:
//   - *GoodSet: Every pass accepted during the run, in acceptance order.
func (s *Searcher) Run(ctx context.Context, candidates []pipeline.Pass) *GoodSet {
	if ctx == nil {
		ctx = context.Background()
	}
	s.budget.Reset()

	ctx, span := s.tracer.StartRun(ctx, len(candidates), s.budget)

	pool := make([]pipeline.Pass, len(candidates))
	copy(pool, candidates)
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	good := NewGoodSet()
	s.partition(ctx, good, pool)
	s.observer.SearchFinished(good.Passes())

	s.tracer.EndRun(span, good, s.budget)
	s.logger.Info("Search complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("accepted", good.Len()),
		slog.Int64("trials", s.budget.Trials()),
		slog.Duration("elapsed", s.budget.Elapsed()),
	)

	return good
}

// partition grows good by testing pool as one block and splitting on
// failure. It mutates good in place and never fails; every oracle
// outcome is data.
//
// Sibling order is load-bearing: the second half's trials include
// whatever the first half accepted, so a pass that fails in one
// combination can still be accepted later alongside different peers.
// Running siblings concurrently would change which combinations get
// tested and is deliberately unsupported.
func (s *Searcher) partition(ctx context.Context, good *GoodSet, pool []pipeline.Pass) {
	if len(pool) == 0 {
		return
	}

	if reason, stopped := s.stopReason(ctx); stopped {
		s.observer.PoolAbandoned(pool, reason)
		s.tracer.TraceAbandonment(ctx, len(pool), reason)
		return
	}

	s.observer.PartitionStep(good.Passes(), pool)

	verdict := s.trial(ctx, s.builder.Build(good.Passes(), pool), len(pool))

	// A verdict produced under a dying context says nothing about the
	// passes themselves; abandon instead of classifying.
	if verdict.Status == oracle.StatusError && ctx.Err() != nil {
		s.observer.PoolAbandoned(pool, "run cancelled")
		s.tracer.TraceAbandonment(ctx, len(pool), "run cancelled")
		return
	}

	if verdict.Accepted() {
		good.Append(pool...)
		return
	}

	if len(pool) == 1 {
		// Confirmed incompatible with the good set as it stands now.
		s.logger.Debug("Pass rejected",
			slog.String("pass", string(pool[0])),
			slog.Int("good_size", good.Len()),
		)
		return
	}

	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	half := len(pool) / 2
	s.partition(ctx, good, pool[:half])
	s.partition(ctx, good, pool[half:])
}

// trial runs one oracle evaluation with tracing, budget accounting,
// and observer notification around it.
func (s *Searcher) trial(ctx context.Context, cfg pipeline.Config, poolSize int) oracle.Verdict {
	s.observer.TrialStarted(cfg)

	trialCtx, span := s.tracer.StartTrial(ctx, cfg, poolSize)
	verdict := s.oracle.Evaluate(trialCtx, cfg)
	s.tracer.EndTrial(span, verdict)

	if err := s.budget.RecordTrial(); err != nil {
		s.logger.Info("Search budget exhausted",
			slog.String("limit", s.budget.ExhaustedBy()),
			slog.Int64("trials", s.budget.Trials()),
		)
	}

	s.observer.TrialFinished(cfg, verdict)
	return verdict
}

// stopReason reports whether the run should stop before the next
// trial, and why.
func (s *Searcher) stopReason(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "run cancelled", true
	}
	if s.budget.Exhausted() {
		return "budget exhausted: " + s.budget.ExhaustedBy(), true
	}
	return "", false
}
