// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lock guards a workload directory against concurrent search
// runs.
//
// Two prospector processes sharing one workload directory would race
// on the same build tree and transcript, so each run takes an
// advisory exclusive lock on a well-known lockfile before touching
// anything. The lock is flock(2) on Unix and LockFileEx on Windows;
// either way the kernel drops it when the process dies, so a crashed
// run never wedges the directory. Holder metadata (PID, host, run ID)
// is written into the lockfile purely so a refused run can say who is
// in the way.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultName is the lockfile created inside the workload directory.
const DefaultName = ".prospector.lock"

// ErrLocked means another live run holds the lock.
var ErrLocked = errors.New("workload directory is locked by another run")

// Info describes the holder of a run lock. Serialized as JSON into
// the lockfile for diagnostics only; the kernel lock is what actually
// excludes other runs.
type Info struct {
	PID     int       `json:"pid"`
	Host    string    `json:"host"`
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
}

// HeldError wraps ErrLocked with whatever holder metadata could be
// read from the lockfile.
type HeldError struct {
	Path   string
	Holder *Info
}

// Error implements error.
func (e *HeldError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("%s: %v", e.Path, ErrLocked)
	}
	return fmt.Sprintf("%s: %v (pid %d on %s, run %s, started %s)",
		e.Path, ErrLocked, e.Holder.PID, e.Holder.Host, e.Holder.RunID,
		e.Holder.Started.Format(time.RFC3339))
}

// Unwrap lets errors.Is(err, ErrLocked) work through a HeldError.
func (e *HeldError) Unwrap() error {
	return ErrLocked
}

// RunLock is an acquired exclusive lock on a workload directory.
//
// Thread Safety: not safe for concurrent use; a run acquires it once
// at startup and releases it once at exit.
type RunLock struct {
	path   string
	file   *os.File
	logger *slog.Logger
}

// Acquire takes the run lock for dir, creating the lockfile if
// needed. Non-blocking: if another live process holds it, Acquire
// returns a HeldError wrapping ErrLocked. A nil logger falls back to
// slog.Default().
func Acquire(dir, runID string, logger *slog.Logger) (*RunLock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path := filepath.Join(dir, DefaultName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lockfile %s: %w", path, err)
	}

	if err := flockExclusive(f); err != nil {
		holder := readInfo(f)
		_ = f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, &HeldError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// The kernel lock is ours. Any info left in the file belongs to a
	// previous run that exited without cleaning up.
	if stale := readInfo(f); stale != nil && stale.PID != os.Getpid() {
		logger.Info("Replacing stale lock info",
			slog.String("path", path),
			slog.Int("old_pid", stale.PID),
			slog.Bool("old_pid_alive", processAlive(stale.PID)),
		)
	}

	host, _ := os.Hostname()
	info := Info{
		PID:     os.Getpid(),
		Host:    host,
		RunID:   runID,
		Started: time.Now().UTC(),
	}
	if err := writeInfo(f, info); err != nil {
		_ = flockRelease(f)
		_ = f.Close()
		return nil, fmt.Errorf("writing lock info to %s: %w", path, err)
	}

	logger.Debug("Run lock acquired",
		slog.String("path", path),
		slog.String("run_id", runID),
	)
	return &RunLock{path: path, file: f, logger: logger}, nil
}

// Release drops the lock. Safe to call once; the RunLock is unusable
// afterwards.
//
// The lockfile itself is left in place. Unlinking it would race a
// concurrent acquirer that already opened the path: that acquirer
// would flock the orphaned inode while a later one recreates the path
// and locks a fresh file, letting two runs hold "the" lock at once.
// Every acquirer must lock the same inode, so the path is never
// removed; stale holder info is handled on the next Acquire.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}
	unlockErr := flockRelease(l.file)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}
	return closeErr
}

// Path returns the lockfile path.
func (l *RunLock) Path() string {
	return l.path
}

func readInfo(f *os.File) *Info {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(f, 4096))
	if err != nil || len(data) == 0 {
		return nil
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

func writeInfo(f *os.File, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
