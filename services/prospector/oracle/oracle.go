// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle evaluates pipeline configurations against the external
// workload and reports pass/fail verdicts.
//
// The oracle is deliberately total: Evaluate never returns a Go error.
// Build breakage, test failures, timeouts, and even an unspawnable
// evaluation script are all data in the Verdict, because the search
// treats every non-success identically for decisions while the
// transcript records them distinctly. Nothing that happens inside one
// trial may abort the run.
package oracle

import (
	"context"
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// Status classifies a single trial outcome.
type Status int

const (
	// StatusOK means the workload built and its validation suite passed.
	StatusOK Status = iota

	// StatusFailed means the evaluation script exited nonzero.
	StatusFailed

	// StatusTimedOut means the trial exceeded its wall-clock budget.
	// A decision-level failure, recorded distinctly.
	StatusTimedOut

	// StatusError means the evaluation script could not be started or
	// was cancelled mid-run. A decision-level failure, recorded
	// distinctly.
	StatusError
)

// String returns the transcript-facing name of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Verdict is the complete outcome of one trial evaluation.
type Verdict struct {
	// Status classifies the outcome.
	Status Status `json:"status"`

	// ExitCode is the script's exit code; -1 when the script never
	// exited normally (timeout, spawn failure).
	ExitCode int `json:"exit_code"`

	// Output is the combined stdout+stderr of the evaluation script,
	// possibly truncated.
	Output string `json:"output"`

	// Truncated reports whether Output hit the capture limit.
	Truncated bool `json:"truncated"`

	// Duration is the wall-clock time the evaluation took.
	Duration time.Duration `json:"duration"`

	// Cached reports whether this verdict was served from the verdict
	// store rather than a fresh evaluation.
	Cached bool `json:"cached"`
}

// Accepted reports whether the trial succeeded. Everything that is not
// StatusOK counts as rejection for search decisions.
func (v Verdict) Accepted() bool {
	return v.Status == StatusOK
}

// Oracle judges pipeline configurations.
//
// Evaluate is synchronous and performs exactly one evaluation per call
// (a caching wrapper may substitute a stored verdict). It must be safe
// to call repeatedly with different configurations; no cleanup between
// calls is required of the caller. The search layer is single-threaded,
// so implementations are not required to support concurrent calls.
type Oracle interface {
	Evaluate(ctx context.Context, cfg pipeline.Config) Verdict
}
