// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/PassProspector/cmd/prospector/config"
)

// TestServiceConfig_FileValuesFlowThrough checks the YAML config maps
// onto the service config when no flags were set.
func TestServiceConfig_FileValuesFlowThrough(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workload.Script = "sh check.sh"
	cfg.Workload.Dir = "/work/yklua"
	cfg.Workload.TimeoutSeconds = 300
	cfg.Search.Seed = 9
	cfg.Search.MaxTrials = 50
	cfg.Cache.Dir = "/tmp/verdicts"
	cfg.Status.Addr = "127.0.0.1:9911"

	out := serviceConfig(&cfg, func(string) bool { return false })

	assert.Equal(t, "sh check.sh", out.Script)
	assert.Equal(t, "/work/yklua", out.Workdir)
	assert.Equal(t, 5*time.Minute, out.Timeout)
	assert.Equal(t, int64(9), out.Seed)
	assert.Equal(t, 50, out.MaxTrials)
	assert.Equal(t, "/tmp/verdicts", out.CacheDir)
	assert.Equal(t, "127.0.0.1:9911", out.StatusAddr)
}

// TestServiceConfig_ChangedFlagsWin checks a flag set on the command
// line overrides the file value.
func TestServiceConfig_ChangedFlagsWin(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workload.Script = "sh check.sh"
	cfg.Search.Seed = 9
	cfg.Cache.Disabled = false

	flagScript = "sh other.sh"
	flagSeed = 42
	flagNoCache = true
	t.Cleanup(func() {
		flagScript = ""
		flagSeed = 0
		flagNoCache = false
	})

	changed := map[string]bool{"script": true, "seed": true, "no-cache": true}
	out := serviceConfig(&cfg, func(name string) bool { return changed[name] })

	assert.Equal(t, "sh other.sh", out.Script)
	assert.Equal(t, int64(42), out.Seed)
	assert.True(t, out.CacheDisabled)
	// Untouched fields keep the file values.
	assert.Equal(t, 600*time.Second, out.Timeout)
}

// TestColorWriter_MarksVerdicts checks only the verdict markers are
// wrapped in color codes.
func TestColorWriter_MarksVerdicts(t *testing.T) {
	var buf bytes.Buffer
	w := &colorWriter{out: &buf}

	n, err := w.Write([]byte(" [OK]\n"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n, "reports the caller's byte count")
	assert.Equal(t, " "+ansiGreen+"[OK]"+ansiReset+"\n", buf.String())

	buf.Reset()
	_, err = w.Write([]byte(" [FAIL]\n"))
	assert.NoError(t, err)
	assert.Equal(t, " "+ansiRed+"[FAIL]"+ansiReset+"\n", buf.String())

	buf.Reset()
	_, err = w.Write([]byte("Found 12 passes\n"))
	assert.NoError(t, err)
	assert.Equal(t, "Found 12 passes\n", buf.String())
}
