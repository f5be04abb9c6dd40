// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// Defaults for the script-backed oracle.
const (
	// DefaultCommand builds the workload and runs its validation suite.
	DefaultCommand = "sh test.sh"

	// DefaultTimeout is the per-trial wall-clock budget. A pipeline that
	// makes the workload this slow is as unusable as one that breaks it.
	DefaultTimeout = 10 * time.Minute

	// DefaultMaxOutput caps captured build/test output per trial.
	DefaultMaxOutput = 4 << 20 // 4 MiB

	// waitDelay bounds how long we wait for output pipes after the
	// process is killed. Grandchildren inheriting the pipe would
	// otherwise hold Wait open past a timeout.
	waitDelay = 5 * time.Second
)

// Config configures a ScriptOracle.
type Config struct {
	// Command is the shell command line that evaluates one
	// configuration. It observes the stage environment variables and
	// exits zero on success.
	Command string

	// Dir is the working directory for the command. Empty means the
	// prospector process's own working directory.
	Dir string

	// Timeout is the per-trial wall-clock budget.
	Timeout time.Duration

	// MaxOutput caps the captured combined output in bytes.
	MaxOutput int
}

// DefaultConfig returns the standard script oracle configuration.
func DefaultConfig() Config {
	return Config{
		Command:   DefaultCommand,
		Timeout:   DefaultTimeout,
		MaxOutput: DefaultMaxOutput,
	}
}

// ScriptOracle evaluates configurations by running an external shell
// command with the pipeline encoded in environment variables.
//
// Per trial, the command receives the process environment plus one
// variable per stage (PRELINK_PASSES, LINKTIME_PASSES) holding that
// stage's comma-joined pass sequence. Stdout and stderr are captured
// combined, size-limited. On timeout the whole process group is killed.
//
// Thread Safety: safe for concurrent use; each evaluation spawns its
// own process. The search calls it sequentially regardless.
type ScriptOracle struct {
	config Config
	logger *slog.Logger
}

// NewScriptOracle creates a ScriptOracle.
//
// Inputs:
//   - config: evaluation command, directory, and limits; zero fields
//     take the Default* values
//   - logger: structured logger; nil means slog.Default()
//
// Outputs:
//   - *ScriptOracle: ready to use
func NewScriptOracle(config Config, logger *slog.Logger) *ScriptOracle {
	if config.Command == "" {
		config.Command = DefaultCommand
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxOutput <= 0 {
		config.MaxOutput = DefaultMaxOutput
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptOracle{config: config, logger: logger}
}

// Evaluate runs one trial.
//
// Description:
//
//	Spawns the evaluation command under `sh -c` in its own process
//	group, with the configuration's stage variables appended to the
//	inherited environment. Exit code zero yields StatusOK; nonzero
//	yields StatusFailed; exceeding the budget yields StatusTimedOut;
//	a spawn failure or caller cancellation yields StatusError. All
//	four are verdicts, never Go errors.
//
// Inputs:
//
//	ctx - Caller context; cancellation kills the trial
//	cfg - The pipeline configuration under test
//
// Outputs:
//
//	Verdict - Complete trial outcome
func (o *ScriptOracle) Evaluate(ctx context.Context, cfg pipeline.Config) Verdict {
	if ctx == nil {
		ctx = context.Background()
	}

	trialCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(trialCtx, "sh", "-c", o.config.Command)
	if o.config.Dir != "" {
		cmd.Dir = o.config.Dir
	}
	cmd.Env = append(os.Environ(), cfg.Env()...)

	// Combined capture: stdout and stderr interleave into one stream,
	// the same view a developer gets from `sh test.sh 2>&1`.
	var out bytes.Buffer
	limited := &limitedWriter{w: &out, limit: o.config.MaxOutput}
	cmd.Stdout = limited
	cmd.Stderr = limited

	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = waitDelay

	o.logger.Debug("Evaluating configuration",
		slog.String("config", cfg.String()),
		slog.Duration("timeout", o.config.Timeout),
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	verdict := Verdict{
		Output:    out.String(),
		Truncated: limited.truncated,
		Duration:  duration,
	}

	switch {
	case trialCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		verdict.Status = StatusTimedOut
		verdict.ExitCode = -1
		o.logger.Warn("Trial timed out",
			slog.String("config", cfg.String()),
			slog.Duration("timeout", o.config.Timeout),
		)
	case ctx.Err() != nil:
		// The run itself was cancelled, not the trial budget.
		verdict.Status = StatusError
		verdict.ExitCode = -1
		o.logger.Warn("Trial cancelled",
			slog.String("config", cfg.String()),
			slog.Duration("elapsed", duration),
		)
	case err == nil:
		verdict.Status = StatusOK
		verdict.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			verdict.Status = StatusFailed
			verdict.ExitCode = exitErr.ExitCode()
		} else {
			// Could not even start the script. The original tooling died
			// here; we record it and let the search continue.
			verdict.Status = StatusError
			verdict.ExitCode = -1
			if verdict.Output == "" {
				verdict.Output = err.Error()
			}
			o.logger.Error("Evaluation script failed to start",
				slog.String("command", o.config.Command),
				slog.String("error", err.Error()),
			)
		}
	}

	o.logger.Info("Trial completed",
		slog.String("outcome", verdict.Status.String()),
		slog.Int("exit_code", verdict.ExitCode),
		slog.Duration("duration", duration),
		slog.Int("output_bytes", len(verdict.Output)),
	)

	return verdict
}

var _ Oracle = (*ScriptOracle)(nil)

// =============================================================================
// LIMITED WRITER
// =============================================================================

// limitedWriter wraps a writer with a size limit.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	if lw.written >= lw.limit {
		lw.truncated = true
		return len(p), nil // Silently discard
	}

	remaining := lw.limit - lw.written
	if len(p) > remaining {
		p = p[:remaining]
		lw.truncated = true
	}

	n, err = lw.w.Write(p)
	lw.written += n
	return len(p), err // Return original length to avoid breaking callers
}
