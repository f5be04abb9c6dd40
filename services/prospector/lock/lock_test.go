// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAcquire_WritesHolderInfo verifies the lockfile records who holds
// the lock.
func TestAcquire_WritesHolderInfo(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)
	defer l.Release()

	data, err := os.ReadFile(filepath.Join(dir, DefaultName))
	require.NoError(t, err)

	var info Info
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "run-1", info.RunID)
	assert.False(t, info.Started.IsZero())
}

// TestAcquire_SecondAcquirerRefused verifies the lock excludes a
// second acquirer and reports the holder.
func TestAcquire_SecondAcquirerRefused(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(dir, "run-2", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	var held *HeldError
	require.True(t, errors.As(err, &held))
	require.NotNil(t, held.Holder)
	assert.Equal(t, "run-1", held.Holder.RunID)
	assert.Contains(t, held.Error(), "run-1")
}

// TestRelease_AllowsReacquire verifies release frees the directory for
// the next run.
func TestRelease_AllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	_, statErr := os.Stat(filepath.Join(dir, DefaultName))
	assert.NoError(t, statErr, "release must leave the lockfile in place")

	second, err := Acquire(dir, "run-2", nil)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

// TestRelease_KeepsSingleLockInode verifies mutual exclusion survives a
// release while another acquirer has the lockfile open. If Release
// unlinked the path, the early opener would lock an orphaned inode
// while a fresh Acquire locks a recreated file, and both would believe
// they hold the lock.
func TestRelease_KeepsSingleLockInode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultName)

	first, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)

	// A second run opens the lockfile before the first releases.
	early, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer early.Close()

	require.NoError(t, first.Release())

	// The early opener now takes the lock on its pre-opened handle.
	require.NoError(t, flockExclusive(early))
	defer flockRelease(early)

	// A third run on the same directory must still be excluded.
	_, err = Acquire(dir, "run-3", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

// TestAcquire_IgnoresStaleLockfile verifies leftover info from a dead
// run does not block acquisition: the kernel lock died with the
// process, only the file remains.
func TestAcquire_IgnoresStaleLockfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultName)

	stale := Info{PID: 1 << 28, Host: "gone", RunID: "crashed", Started: time.Now().Add(-time.Hour)}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l, err := Acquire(dir, "run-2", nil)
	require.NoError(t, err)
	defer l.Release()

	fresh, err := os.ReadFile(path)
	require.NoError(t, err)
	var info Info
	require.NoError(t, json.Unmarshal(fresh, &info))
	assert.Equal(t, "run-2", info.RunID)
}

// TestRelease_Idempotent verifies calling Release twice is harmless.
func TestRelease_Idempotent(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

// TestAcquire_CorruptLockfile verifies unparseable holder info does
// not prevent acquisition.
func TestAcquire_CorruptLockfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultName), []byte("not json"), 0o644))

	l, err := Acquire(dir, "run-1", nil)
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}
