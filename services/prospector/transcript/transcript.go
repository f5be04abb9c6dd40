// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transcript records the search's append-only trial log.
//
// The transcript format is stable and treated as an external
// interface: each trial writes a blank-line separated block holding
// the configuration description, the oracle's combined output (or a
// timeout marker), and a one-line verdict. Tools that parse the log
// depend on the exact byte layout, including the space before the
// colon on FAILED result lines, so changes here are format changes
// rather than cleanups.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultPath is the transcript location when none is configured.
const DefaultPath = "passes.log"

// ErrSinkClosed is returned by Append after the sink has been closed.
var ErrSinkClosed = errors.New("transcript: sink closed")

// Sink is an append-only text destination for the search transcript.
//
// Implementations must tolerate Append from the search goroutine
// interleaved with Close from the driver; Append after Close may
// return an error but must not panic.
type Sink interface {
	Append(text string) error
	Close() error
}

// =============================================================================
// FileSink
// =============================================================================

// FileSink writes transcript text to a single file. Writes go
// straight to the descriptor with no userspace buffering, so a crash
// mid-search loses at most the entry in flight.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewFileSink creates or truncates the transcript file at path. A new
// run's entries replace any previous transcript. An empty path uses
// DefaultPath in the current directory.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", path, err)
	}
	return &FileSink{file: f}, nil
}

// Append implements Sink.
func (s *FileSink) Append(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.file.WriteString(text); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Close implements Sink. Closing twice is safe.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Path returns the location of the transcript file.
func (s *FileSink) Path() string {
	return s.file.Name()
}

// =============================================================================
// MemorySink
// =============================================================================

// MemorySink accumulates transcript text in memory. Used by tests and
// by callers that surface the transcript without touching disk.
type MemorySink struct {
	mu  sync.Mutex
	buf strings.Builder
}

// Append implements Sink.
func (s *MemorySink) Append(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.WriteString(text)
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	return nil
}

// String returns everything appended so far.
func (s *MemorySink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.String()
}

// =============================================================================
// Discard
// =============================================================================

// Discard drops every entry. Used when transcript recording is
// disabled.
type Discard struct{}

// Append implements Sink.
func (Discard) Append(string) error { return nil }

// Close implements Sink.
func (Discard) Close() error { return nil }

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = Discard{}
)
