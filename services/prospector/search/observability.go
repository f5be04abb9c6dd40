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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

const searchTracerName = "prospector.search"

// ObservabilityConfig controls tracing for search runs.
type ObservabilityConfig struct {
	TracingEnabled bool
}

// SearchTracer provides OpenTelemetry tracing for search operations.
//
// Thread Safety: Safe for concurrent use.
type SearchTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewSearchTracer creates a new tracer.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for the default).
//   - config: Observability configuration.
//
// Outputs:
//   - *SearchTracer: Tracer instance; a no-op unless tracing is enabled.
func NewSearchTracer(logger *slog.Logger, config ObservabilityConfig) *SearchTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTracer{
		tracer:  otel.Tracer(searchTracerName),
		logger:  logger,
		enabled: config.TracingEnabled,
	}
}

// StartRun starts a span covering an entire search run.
func (t *SearchTracer) StartRun(ctx context.Context, candidates int, budget *Budget) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	config := budget.Config()
	ctx, span := t.tracer.Start(ctx, "search.run",
		trace.WithAttributes(
			attribute.Int("search.candidates", candidates),
			attribute.Int("search.budget.max_trials", config.MaxTrials),
			attribute.String("search.budget.time_limit", config.TimeLimit.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.InfoContext(ctx, "Search run started",
		slog.Int("candidates", candidates),
		slog.Int("budget_trials", config.MaxTrials),
		slog.Duration("budget_time", config.TimeLimit),
	)

	return ctx, span
}

// EndRun completes the run span.
func (t *SearchTracer) EndRun(span trace.Span, good *GoodSet, budget *Budget) {
	if span == nil {
		return
	}

	span.SetAttributes(
		attribute.Int("search.result.accepted", good.Len()),
		attribute.Int64("search.result.trials", budget.Trials()),
		attribute.String("search.result.elapsed", budget.Elapsed().String()),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// StartTrial traces a single oracle trial.
func (t *SearchTracer) StartTrial(ctx context.Context, cfg pipeline.Config, poolSize int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "search.trial",
		trace.WithAttributes(
			attribute.Int("search.trial.pool_size", poolSize),
			attribute.Int("search.trial.config_size", cfg.Len()),
		),
	)
}

// EndTrial completes a trial span. A FAILED verdict is a successful
// measurement, not a span error; only oracle breakage marks the span
// as errored.
func (t *SearchTracer) EndTrial(span trace.Span, verdict oracle.Verdict) {
	if span == nil {
		return
	}

	span.SetAttributes(
		attribute.String("search.trial.status", verdict.Status.String()),
		attribute.Int("search.trial.exit_code", verdict.ExitCode),
		attribute.String("search.trial.duration", verdict.Duration.String()),
		attribute.Bool("search.trial.cached", verdict.Cached),
	)

	if verdict.Status == oracle.StatusError {
		span.SetStatus(codes.Error, verdict.Status.String())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// TraceAbandonment records a pool dropped by cancellation or budget
// exhaustion.
func (t *SearchTracer) TraceAbandonment(ctx context.Context, poolSize int, reason string) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("pool_abandoned",
			trace.WithAttributes(
				attribute.Int("pool_size", poolSize),
				attribute.String("reason", reason),
			),
		)
	}

	t.logger.Info("Search pool abandoned",
		slog.Int("pool_size", poolSize),
		slog.String("reason", reason),
	)
}
