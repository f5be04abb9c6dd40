// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prospector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_FileOverridesDefaults checks file values land on top of the
// defaults.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workload:
  script: "sh check.sh"
  dir: "/tmp/yklua"
  timeout_seconds: 120
search:
  seed: 42
  max_trials: 500
  sanity_check: true
status:
  addr: "127.0.0.1:9911"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sh check.sh", cfg.Workload.Script)
	assert.Equal(t, "/tmp/yklua", cfg.Workload.Dir)
	assert.Equal(t, 2*time.Minute, cfg.Workload.Timeout())
	assert.Equal(t, int64(42), cfg.Search.Seed)
	assert.Equal(t, 500, cfg.Search.MaxTrials)
	assert.True(t, cfg.Search.SanityCheck)
	assert.Equal(t, "127.0.0.1:9911", cfg.Status.Addr)

	// Untouched fields keep their defaults.
	assert.Equal(t, "opt --print-passes", cfg.Enumerate.Command)
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestLoad_MissingExplicitPathFails checks a typo in --config is an
// error instead of a silent default run.
func TestLoad_MissingExplicitPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestLoad_RejectsMalformedYAML checks parse failures are surfaced.
func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "workload: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

// TestValidate_Constraints exercises the validator tags.
func TestValidate_Constraints(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProspectorConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *ProspectorConfig) {},
		},
		{
			name:    "empty script",
			mutate:  func(c *ProspectorConfig) { c.Workload.Script = "" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *ProspectorConfig) { c.Workload.TimeoutSeconds = -1 },
			wantErr: true,
		},
		{
			name:    "negative trial cap",
			mutate:  func(c *ProspectorConfig) { c.Search.MaxTrials = -5 },
			wantErr: true,
		},
		{
			name:    "bad status address",
			mutate:  func(c *ProspectorConfig) { c.Status.Addr = "not an address" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *ProspectorConfig) { c.Logging.Level = "loud" },
			wantErr: true,
		},
		{
			name:   "valid status address",
			mutate: func(c *ProspectorConfig) { c.Status.Addr = "localhost:9911" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestLoad_ValidatesFileContents checks Load applies validation too.
func TestLoad_ValidatesFileContents(t *testing.T) {
	path := writeConfig(t, `
workload:
  script: ""
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
