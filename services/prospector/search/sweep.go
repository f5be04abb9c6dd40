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
	"context"
	"log/slog"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// SweepResult holds the isolation outcome for one stage.
type SweepResult struct {
	Stage  pipeline.Stage  `json:"stage"`
	OK     []pipeline.Pass `json:"ok"`
	Failed []pipeline.Pass `json:"failed"`
}

// Sweep tests every candidate on its own, one stage at a time: first
// each pass alone in the pre-link pipeline, then each alone at link
// time. Unlike Run it accepts nothing; it just classifies, which
// makes it a useful survey before committing to a long partition
// search.
//
// Expensive: one oracle trial per candidate per stage. With hundreds
// of passes and a slow validation script this runs for hours, so the
// budget and cancellation rules from Run apply here too; a stopped
// sweep returns the stages and passes classified so far.
func (s *Searcher) Sweep(ctx context.Context, candidates []pipeline.Pass) []SweepResult {
	if ctx == nil {
		ctx = context.Background()
	}
	s.budget.Reset()

	results := make([]SweepResult, 0, len(pipeline.Stages()))
	for _, stage := range pipeline.Stages() {
		result := SweepResult{Stage: stage}
		builder := pipeline.SingleStageBuilder{Stage: stage}

		for i, p := range candidates {
			if reason, stopped := s.stopReason(ctx); stopped {
				s.observer.PoolAbandoned(candidates[i:], reason)
				s.tracer.TraceAbandonment(ctx, len(candidates)-i, reason)
				return append(results, result)
			}

			verdict := s.trial(ctx, builder.Build(nil, []pipeline.Pass{p}), 1)
			if verdict.Status == oracle.StatusError && ctx.Err() != nil {
				s.observer.PoolAbandoned(candidates[i:], "run cancelled")
				s.tracer.TraceAbandonment(ctx, len(candidates)-i, "run cancelled")
				return append(results, result)
			}

			if verdict.Accepted() {
				result.OK = append(result.OK, p)
			} else {
				result.Failed = append(result.Failed, p)
			}
		}

		results = append(results, result)
		s.logger.Info("Sweep stage complete",
			slog.String("stage", string(stage)),
			slog.Int("ok", len(result.OK)),
			slog.Int("failed", len(result.Failed)),
		)
	}

	return results
}
