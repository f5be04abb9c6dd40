// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package enumerate discovers the candidate optimization passes for a
// search run.
//
// The default source is the toolchain's own pass listing command
// (`opt --print-passes`), whose output is parsed into bare pass names:
// section headers are dropped, parameter suffixes are stripped, and
// duplicates are collapsed. Enumeration failure is fatal to a run; unlike
// trial evaluation there is no meaningful way to continue without a
// candidate list.
package enumerate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/AleutianAI/PassProspector/pkg/validation"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// Default behavior for the command-backed enumerator.
const (
	// DefaultListCommand prints one pass descriptor per line.
	DefaultListCommand = "opt --print-passes"

	// DefaultListTimeout bounds the listing command. Listing is cheap;
	// anything that takes this long is wedged.
	DefaultListTimeout = 60 * time.Second

	// DefaultMaxListOutput caps captured listing output.
	DefaultMaxListOutput = 1 << 20 // 1 MiB
)

// Enumerator yields the candidate pass identifiers for a search run.
//
// Implementations must return each candidate at most once and must not
// reorder between calls with the same underlying source: the search owns
// all shuffling.
type Enumerator interface {
	// Enumerate returns the candidate passes, or an error if the source
	// is unavailable. An empty result is an error, never a silent
	// zero-candidate run.
	Enumerate(ctx context.Context) ([]pipeline.Pass, error)
}

// =============================================================================
// Command Enumerator
// =============================================================================

// CommandEnumerator discovers passes by running an external listing
// command through the shell and parsing its stdout.
//
// Thread Safety: safe for concurrent use; each call spawns its own
// process.
type CommandEnumerator struct {
	command   string
	timeout   time.Duration
	maxOutput int
	logger    *slog.Logger
}

// NewCommandEnumerator creates a CommandEnumerator.
//
// Inputs:
//   - command: shell command line to run; empty means DefaultListCommand
//   - timeout: listing time budget; zero means DefaultListTimeout
//   - logger: structured logger; nil means slog.Default()
//
// Outputs:
//   - *CommandEnumerator: ready to use
func NewCommandEnumerator(command string, timeout time.Duration, logger *slog.Logger) *CommandEnumerator {
	if command == "" {
		command = DefaultListCommand
	}
	if timeout <= 0 {
		timeout = DefaultListTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandEnumerator{
		command:   command,
		timeout:   timeout,
		maxOutput: DefaultMaxListOutput,
		logger:    logger,
	}
}

// Enumerate runs the listing command and parses candidates from stdout.
//
// Description:
//
//	Runs the configured command under `sh -c`, bounded by the configured
//	timeout. Stdout is parsed with ParsePassList; every resulting name is
//	validated before it can reach an environment variable later in the
//	run. Any failure (spawn, nonzero exit, empty result, unsafe name) is
//	returned as an error wrapping one of this package's sentinels.
//
// Inputs:
//
//	ctx - Context for cancellation
//
// Outputs:
//
//	[]pipeline.Pass - Candidates in listing order, deduplicated
//	error - Non-nil on any enumeration failure (fatal to the run)
func (e *CommandEnumerator) Enumerate(ctx context.Context) ([]pipeline.Pass, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", e.command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: e.maxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: e.maxOutput}

	e.logger.Debug("Running pass listing command",
		slog.String("command", e.command),
		slog.Duration("timeout", e.timeout),
	)

	start := time.Now()
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: timed out after %v", ErrListFailed, e.timeout)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%w: exit code %d: %s",
				ErrListFailed, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	names := ParsePassList(stdout.Bytes())
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: command %q", ErrNoPasses, e.command)
	}
	if err := validation.ValidatePassNames(names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassName, err)
	}

	e.logger.Info("Pass listing completed",
		slog.Int("passes", len(names)),
		slog.Duration("duration", time.Since(start)),
	)

	return pipeline.FromNames(names), nil
}

// ParsePassList extracts bare pass names from listing output.
//
// Rules, matching the upstream listing format:
//   - blank lines are skipped
//   - section header lines ending in ':' are skipped
//   - everything from the first '<' onward (pass parameters) is dropped
//   - names are trimmed and deduplicated preserving first occurrence
//
// Deduplication matters because parameterized variants of one pass
// ("loop-unroll<O1>", "loop-unroll<O2>") collapse to the same base name.
func ParsePassList(out []byte) []string {
	lines := strings.Split(string(out), "\n")

	seen := make(map[string]struct{}, len(lines))
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		name, _, _ := strings.Cut(line, "<")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// =============================================================================
// Static and File Enumerators
// =============================================================================

// StaticEnumerator yields a fixed candidate list. Used by tests and by
// callers that already hold a pass list.
type StaticEnumerator struct {
	Passes []pipeline.Pass
}

// Enumerate returns a copy of the fixed list.
func (e *StaticEnumerator) Enumerate(ctx context.Context) ([]pipeline.Pass, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(e.Passes) == 0 {
		return nil, ErrNoPasses
	}
	out := make([]pipeline.Pass, len(e.Passes))
	copy(out, e.Passes)
	return out, nil
}

// FileEnumerator reads candidates from a text file, one pass name per
// line. Blank lines and '#' comments are skipped. This backs rerunning a
// search over a hand-curated subset.
type FileEnumerator struct {
	Path string
}

// Enumerate reads and validates the file's pass names.
func (e *FileEnumerator) Enumerate(ctx context.Context) ([]pipeline.Pass, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		names = append(names, line)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: file %q", ErrNoPasses, e.Path)
	}
	if err := validation.ValidatePassNames(names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassName, err)
	}
	return pipeline.FromNames(names), nil
}

var (
	_ Enumerator = (*CommandEnumerator)(nil)
	_ Enumerator = (*StaticEnumerator)(nil)
	_ Enumerator = (*FileEnumerator)(nil)
)

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
