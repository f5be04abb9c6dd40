// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config defines the prospector YAML configuration. A config
// file supplies the durable per-workload settings; command-line flags
// override individual fields per run.
package config

import (
	"time"
)

// ProspectorConfig is the root of prospector.yaml.
type ProspectorConfig struct {
	// Workload: the build-and-validate script under test.
	Workload WorkloadConfig `yaml:"workload"`

	// Enumerate: where candidate passes come from.
	Enumerate EnumerateConfig `yaml:"enumerate"`

	// Search: partition search knobs.
	Search SearchConfig `yaml:"search"`

	// Cache: verdict cache location.
	Cache CacheConfig `yaml:"cache"`

	// Status: optional HTTP status server.
	Status StatusConfig `yaml:"status"`

	// Logging: structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// WorkloadConfig locates and bounds the evaluation script.
type WorkloadConfig struct {
	// Script is the shell command that builds the workload and runs
	// its validation suite, exiting zero on success.
	Script string `yaml:"script" validate:"required"`

	// Dir is the directory the script runs in. Empty means the
	// current directory.
	Dir string `yaml:"dir"`

	// TimeoutSeconds is the per-trial wall-clock budget. Zero means
	// the default 600 seconds.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the trial budget as a duration.
func (w WorkloadConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// EnumerateConfig selects the candidate source.
type EnumerateConfig struct {
	// Command lists one pass descriptor per line on stdout. Empty
	// means the default (opt --print-passes).
	Command string `yaml:"command"`

	// PassesFile reads candidates from a file instead of running
	// Command. One pass name per line, '#' comments allowed.
	PassesFile string `yaml:"passes_file"`
}

// SearchConfig holds partition search knobs.
type SearchConfig struct {
	// Seed makes shuffles reproducible. Zero means clock-seeded.
	Seed int64 `yaml:"seed"`

	// MaxTrials caps oracle trials per run. Zero means unlimited.
	MaxTrials int `yaml:"max_trials" validate:"gte=0"`

	// TimeLimitMinutes caps whole-run wall clock. Zero means
	// unlimited.
	TimeLimitMinutes int `yaml:"time_limit_minutes" validate:"gte=0"`

	// SanityCheck evaluates the empty pipeline before searching.
	SanityCheck bool `yaml:"sanity_check"`

	// Transcript is the trial log path. Empty means passes.log in the
	// workload directory; "-" disables the transcript.
	Transcript string `yaml:"transcript"`

	// Tracing enables OpenTelemetry spans per run and trial.
	Tracing bool `yaml:"tracing"`
}

// TimeLimit returns the run budget as a duration.
func (s SearchConfig) TimeLimit() time.Duration {
	return time.Duration(s.TimeLimitMinutes) * time.Minute
}

// CacheConfig holds verdict cache settings.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Empty keeps verdicts in memory
	// for the run only. Supports ~ expansion.
	Dir string `yaml:"dir"`

	// Disabled turns verdict caching off entirely.
	Disabled bool `yaml:"disabled"`
}

// StatusConfig holds status server settings.
type StatusConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9911". Empty
	// disables the server.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables JSON file logging in the given directory. Supports
	// ~ expansion.
	Dir string `yaml:"dir"`

	// Quiet suppresses stderr logs, leaving the console to the search
	// transcript output.
	Quiet bool `yaml:"quiet"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ProspectorConfig {
	return ProspectorConfig{
		Workload: WorkloadConfig{
			Script:         "sh test.sh",
			TimeoutSeconds: 600,
		},
		Enumerate: EnumerateConfig{
			Command: "opt --print-passes",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
