// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transcript

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// ruleWidth is the width of the ===== / ----- separator lines in
// reports.
const ruleWidth = 72

// Recorder renders search events into the transcript format and
// writes them to a Sink, echoing one-line trial progress to an
// optional console writer.
//
// Sink write failures are logged and swallowed: a broken transcript
// must never abort a multi-hour search.
//
// Thread Safety: not safe for concurrent use. The search core is
// single-threaded and the recorder relies on that; the sinks
// themselves carry their own locking.
type Recorder struct {
	sink    Sink
	console io.Writer
	logger  *slog.Logger
}

// NewRecorder creates a Recorder writing to sink and console. A nil
// sink discards transcript entries, a nil console suppresses progress
// output, and a nil logger falls back to slog.Default().
func NewRecorder(sink Sink, console io.Writer, logger *slog.Logger) *Recorder {
	if sink == nil {
		sink = Discard{}
	}
	if console == nil {
		console = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, console: console, logger: logger}
}

// PartitionStep records the accepted set and the subset about to be
// tried. Written to the sink only; the console shows trial lines.
func (r *Recorder) PartitionStep(good, trying []pipeline.Pass) {
	r.append("\n>>> OK passes so far:\n" + pipeline.Join(good) + "\n")
	r.append(">>> Trying to add:\n" + pipeline.Join(trying) + "\n\n")
}

// TrialStarted opens a trial block in the transcript and prints the
// configuration to the console without a trailing newline; the
// verdict suffix lands on the same line when the trial finishes.
func (r *Recorder) TrialStarted(cfg pipeline.Config) {
	fmt.Fprintf(r.console, "%s...", cfg)
	r.append("\n\n" + cfg.String() + "\n")
}

// TrialFinished completes a trial block: the oracle's combined output
// (or a marker when there is none), then the result line. Timeouts
// and oracle errors are distinguishable in the transcript even though
// the search treats both as failures.
func (r *Recorder) TrialFinished(cfg pipeline.Config, v oracle.Verdict) {
	switch v.Status {
	case oracle.StatusTimedOut:
		r.append("!!! TIMED OUT !!!\n")
	case oracle.StatusError:
		// A cancelled trial carries no output; fall back to the status
		// name so the marker never renders blank.
		msg := firstLine(v.Output)
		if msg == "" {
			msg = v.Status.String()
		}
		r.append("!!! ORACLE ERROR: " + msg + " !!!\n")
	default:
		r.append(v.Output)
	}

	if v.Accepted() {
		fmt.Fprintln(r.console, " [OK]")
		r.append(cfg.String() + ": OK\n")
	} else {
		r.append(cfg.String() + " : FAILED\n")
		fmt.Fprintln(r.console, " [FAIL]")
	}
}

// PoolAbandoned records passes that were never classified because the
// run was cancelled or ran out of budget.
func (r *Recorder) PoolAbandoned(pool []pipeline.Pass, reason string) {
	entry := fmt.Sprintf("\n>>> Abandoning %d untested passes (%s):\n%s\n", len(pool), reason, pipeline.Join(pool))
	r.append(entry)
	fmt.Fprintf(r.console, "abandoning %d untested passes (%s)\n", len(pool), reason)
}

// SearchFinished emits the final report to both the console and the
// sink.
func (r *Recorder) SearchFinished(good []pipeline.Pass) {
	report := "\n\nFinal OK passes\n" + rule('=') + "\n" + pipeline.Join(good) + "\n"
	fmt.Fprint(r.console, report)
	r.append(report)
}

// SweepReport emits the per-stage isolation results in the report
// format shared with the final report.
func (r *Recorder) SweepReport(stage pipeline.Stage, ok, fail []pipeline.Pass) {
	report := fmt.Sprintf("\n\nResults for passes in isolation for stage: %s\n", stage) +
		rule('=') + "\n" +
		"\nOK: \n" +
		rule('-') + "\n" +
		pipeline.Join(ok) + "\n" +
		"\nFAIL: \n" +
		rule('-') + "\n" +
		pipeline.Join(fail) + "\n"
	fmt.Fprint(r.console, report)
	r.append(report)
}

// Close closes the underlying sink.
func (r *Recorder) Close() error {
	return r.sink.Close()
}

func (r *Recorder) append(text string) {
	if err := r.sink.Append(text); err != nil {
		r.logger.Error("Transcript write failed", "error", err)
	}
}

func firstLine(s string) string {
	if line, _, found := strings.Cut(s, "\n"); found {
		return line
	}
	return s
}

func rule(c byte) string {
	b := make([]byte, ruleWidth)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
