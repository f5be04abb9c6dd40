// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

// Package e2e runs whole searches against real shell oracles: actual
// subprocesses, environment variables, transcripts, and lockfiles,
// with only the toolchain faked by small scripts.
package e2e

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/PassProspector/services/prospector"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// workload creates a directory with a passes file and a test.sh built
// from the given script body.
func workload(t *testing.T, passes []string, script string) (dir, passesFile string) {
	t.Helper()
	dir = t.TempDir()

	var content string
	for _, p := range passes {
		content += p + "\n"
	}
	passesFile = filepath.Join(dir, "passes.txt")
	require.NoError(t, os.WriteFile(passesFile, []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.sh"), []byte(script), 0o755))
	return dir, passesFile
}

func newService(dir, passesFile string, seed int64) *prospector.Service {
	return prospector.NewService(prospector.Config{
		Script:         "sh test.sh",
		Workdir:        dir,
		Timeout:        30 * time.Second,
		PassesFile:     passesFile,
		Seed:           seed,
		CacheDisabled:  true,
		TranscriptPath: filepath.Join(dir, "passes.log"),
	})
}

// TestSearch_RejectsPoisonPassOnly verifies the search isolates a
// single always-failing pass and keeps everything else.
func TestSearch_RejectsPoisonPassOnly(t *testing.T) {
	passes := []string{"adce", "sroa", "licm", "gvn", "instcombine", "poison", "mem2reg", "sccp"}
	script := `case ",$PRELINK_PASSES," in *,poison,*) exit 1;; esac
exit 0
`
	dir, passesFile := workload(t, passes, script)

	result, err := newService(dir, passesFile, 3).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Accepted, len(passes)-1)
	assert.NotContains(t, result.Accepted, pipeline.Pass("poison"))
}

// TestSearch_FinalSetPassesValidation verifies the search's result is
// self-consistent: running the workload script once more with the
// accepted set applied must succeed.
func TestSearch_FinalSetPassesValidation(t *testing.T) {
	passes := []string{"adce", "sroa", "bad1", "licm", "bad2", "gvn"}
	script := `case ",$PRELINK_PASSES," in *,bad1,*|*,bad2,*) exit 1;; esac
exit 0
`
	dir, passesFile := workload(t, passes, script)

	result, err := newService(dir, passesFile, 11).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.Accepted)

	names := make([]string, len(result.Accepted))
	for i, p := range result.Accepted {
		names[i] = string(p)
	}
	joined := strings.Join(names, ",")

	cmd := exec.Command("sh", "test.sh")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"PRELINK_PASSES="+joined,
		"LINKTIME_PASSES="+joined,
	)
	require.NoError(t, cmd.Run(), "the accepted set must keep the workload passing")
}

// TestSearch_TimeoutIsRejectionWithDistinctMarker verifies a hanging
// trial is killed, rejected, and recorded with the timeout marker.
func TestSearch_TimeoutIsRejectionWithDistinctMarker(t *testing.T) {
	script := `case ",$PRELINK_PASSES," in *,hang,*) sleep 60;; esac
exit 0
`
	dir, passesFile := workload(t, []string{"fast", "hang"}, script)

	svc := prospector.NewService(prospector.Config{
		Script:         "sh test.sh",
		Workdir:        dir,
		Timeout:        2 * time.Second,
		PassesFile:     passesFile,
		Seed:           1,
		CacheDisabled:  true,
		TranscriptPath: filepath.Join(dir, "passes.log"),
	})

	start := time.Now()
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []pipeline.Pass{"fast"}, result.Accepted)
	assert.Less(t, time.Since(start), 30*time.Second, "timeouts must actually kill the script")

	log, err := os.ReadFile(filepath.Join(dir, "passes.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "!!! TIMED OUT !!!")
}

// TestSearch_DeterministicUnderSeed verifies two runs with the same
// seed over the same workload accept the same passes in the same
// order.
func TestSearch_DeterministicUnderSeed(t *testing.T) {
	passes := []string{"P1", "P2", "P3", "P4", "P5", "poison"}
	script := `case ",$PRELINK_PASSES," in *,poison,*) exit 1;; esac
exit 0
`

	dirA, fileA := workload(t, passes, script)
	first, err := newService(dirA, fileA, 99).Run(context.Background())
	require.NoError(t, err)

	dirB, fileB := workload(t, passes, script)
	second, err := newService(dirB, fileB, 99).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Accepted, second.Accepted)
	assert.Equal(t, first.Usage.Trials, second.Usage.Trials)
}

// TestSearch_CancellationReportsPartialSet verifies interrupting a run
// abandons the untested passes but still returns the accepted ones.
func TestSearch_CancellationReportsPartialSet(t *testing.T) {
	passes := []string{"P1", "P2", "P3", "P4"}
	// Every trial takes about a second, so the run is mid-flight when
	// the context dies.
	script := `sleep 1
case ",$PRELINK_PASSES," in *,P2,*) exit 1;; esac
exit 0
`
	dir, passesFile := workload(t, passes, script)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	result, err := newService(dir, passesFile, 1).Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Less(t, len(result.Accepted), len(passes),
		"a cancelled run cannot have classified everything")
}
