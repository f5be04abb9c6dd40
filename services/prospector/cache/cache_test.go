// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

func memStore(t *testing.T) *VerdictStore {
	t.Helper()
	store, err := NewVerdictStore(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testConfig(passes ...pipeline.Pass) pipeline.Config {
	return pipeline.UniformBuilder{}.Build(nil, passes)
}

// TestVerdictStore_RoundTrip verifies a stored verdict comes back intact.
func TestVerdictStore_RoundTrip(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()
	cfg := testConfig("adce", "licm")

	want := oracle.Verdict{
		Status:   oracle.StatusFailed,
		ExitCode: 2,
		Output:   "link error\n",
		Duration: 3 * time.Second,
	}
	require.NoError(t, store.Put(ctx, cfg, want))

	got, ok, err := store.Get(ctx, cfg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.ExitCode, got.ExitCode)
	assert.Equal(t, want.Output, got.Output)
	assert.Equal(t, want.Duration, got.Duration)
	assert.False(t, got.Cached, "stored copy must not carry the Cached flag")
}

// TestVerdictStore_Miss verifies an unseen configuration is a clean miss.
func TestVerdictStore_Miss(t *testing.T) {
	store := memStore(t)

	_, ok, err := store.Get(context.Background(), testConfig("never-seen"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestVerdictStore_RejectsTransientVerdicts verifies the cacheability policy.
func TestVerdictStore_RejectsTransientVerdicts(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()
	cfg := testConfig("adce")

	for _, status := range []oracle.Status{oracle.StatusTimedOut, oracle.StatusError} {
		err := store.Put(ctx, cfg, oracle.Verdict{Status: status})
		assert.ErrorIs(t, err, ErrUncacheableStatus, "status %v", status)
	}

	_, ok, err := store.Get(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, ok, "rejected verdicts must not be stored")
}

// TestVerdictStore_KeyedByConfiguration verifies different configurations
// do not collide.
func TestVerdictStore_KeyedByConfiguration(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testConfig("adce"), oracle.Verdict{Status: oracle.StatusOK}))
	require.NoError(t, store.Put(ctx, testConfig("licm"), oracle.Verdict{Status: oracle.StatusFailed, ExitCode: 1}))

	first, ok, err := store.Get(ctx, testConfig("adce"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, oracle.StatusOK, first.Status)

	second, ok, err := store.Get(ctx, testConfig("licm"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, oracle.StatusFailed, second.Status)

	// Order matters: the same passes in a different sequence are a
	// different configuration.
	_, ok, err = store.Get(ctx, testConfig("licm", "adce"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestVerdictStore_WorkloadNamespaces verifies two workloads sharing a
// database do not see each other's verdicts.
func TestVerdictStore_WorkloadNamespaces(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := testConfig("adce")

	first, err := NewVerdictStore(Config{Path: dir, Workload: "workload-a"})
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, cfg, oracle.Verdict{Status: oracle.StatusOK}))
	require.NoError(t, first.Close())

	second, err := NewVerdictStore(Config{Path: dir, Workload: "workload-b"})
	require.NoError(t, err)
	defer second.Close()

	_, ok, err := second.Get(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, ok, "workload-b must not see workload-a's verdicts")
}

// TestVerdictStore_PersistsAcrossReopen verifies verdicts survive a
// close and reopen, the whole point of the cache.
func TestVerdictStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := testConfig("adce", "gvn")

	store, err := NewVerdictStore(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, cfg, oracle.Verdict{Status: oracle.StatusOK}))
	require.NoError(t, store.Close())

	reopened, err := NewVerdictStore(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, cfg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, oracle.StatusOK, got.Status)
}

// TestVerdictStore_RequiresPath verifies persistent mode needs a path.
func TestVerdictStore_RequiresPath(t *testing.T) {
	_, err := NewVerdictStore(Config{})
	assert.ErrorIs(t, err, ErrPathRequired)
}

// TestVerdictStore_Len verifies namespace-scoped counting.
func TestVerdictStore_Len(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, store.Put(ctx, testConfig("a"), oracle.Verdict{Status: oracle.StatusOK}))
	require.NoError(t, store.Put(ctx, testConfig("b"), oracle.Verdict{Status: oracle.StatusOK}))
	// Overwrites do not add entries.
	require.NoError(t, store.Put(ctx, testConfig("a"), oracle.Verdict{Status: oracle.StatusFailed, ExitCode: 1}))

	n, err = store.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestFingerprint verifies the workload fingerprint is stable and
// collision-resistant across part boundaries.
func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("sh test.sh", "/work"), Fingerprint("sh test.sh", "/work"))
	assert.NotEqual(t, Fingerprint("sh test.sh", "/work"), Fingerprint("sh test.sh", "/other"))
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.Len(t, Fingerprint("x"), 64)
}

// =============================================================================
// CachingOracle Tests
// =============================================================================

// countingOracle returns a fixed verdict and counts evaluations.
type countingOracle struct {
	verdict oracle.Verdict
	calls   int
}

func (c *countingOracle) Evaluate(context.Context, pipeline.Config) oracle.Verdict {
	c.calls++
	return c.verdict
}

func TestCachingOracle_HitSkipsInnerOracle(t *testing.T) {
	store := memStore(t)
	inner := &countingOracle{verdict: oracle.Verdict{Status: oracle.StatusOK, Output: "built\n"}}
	caching := NewCachingOracle(inner, store, nil)

	ctx := context.Background()
	cfg := testConfig("adce")

	first := caching.Evaluate(ctx, cfg)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, inner.calls)

	second := caching.Evaluate(ctx, cfg)
	assert.True(t, second.Cached)
	assert.Equal(t, oracle.StatusOK, second.Status)
	assert.Equal(t, "built\n", second.Output)
	assert.Equal(t, 1, inner.calls, "hit must not re-run the oracle")

	stats := caching.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Stores)
}

func TestCachingOracle_TransientVerdictsAreRetried(t *testing.T) {
	store := memStore(t)
	inner := &countingOracle{verdict: oracle.Verdict{Status: oracle.StatusTimedOut, ExitCode: -1}}
	caching := NewCachingOracle(inner, store, nil)

	ctx := context.Background()
	cfg := testConfig("adce")

	caching.Evaluate(ctx, cfg)
	caching.Evaluate(ctx, cfg)

	assert.Equal(t, 2, inner.calls, "timeouts must be re-evaluated, not cached")
	assert.Equal(t, int64(0), caching.Stats().Stores)
}

func TestCachingOracle_FailedVerdictsAreCached(t *testing.T) {
	store := memStore(t)
	inner := &countingOracle{verdict: oracle.Verdict{Status: oracle.StatusFailed, ExitCode: 1}}
	caching := NewCachingOracle(inner, store, nil)

	ctx := context.Background()
	cfg := testConfig("adce")

	caching.Evaluate(ctx, cfg)
	second := caching.Evaluate(ctx, cfg)

	assert.Equal(t, 1, inner.calls)
	assert.True(t, second.Cached)
	assert.Equal(t, oracle.StatusFailed, second.Status)
	assert.Equal(t, 1, second.ExitCode)
}
