// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline defines the data model for two-stage LTO optimization
// pipelines: opaque pass identifiers, the fixed stage set, and immutable
// pipeline configurations handed to the evaluation oracle.
//
// A pass is atomic. Parameterized pass descriptors are reduced to their
// base name at enumeration time, so equality here is plain string equality
// and a pass is either wholly present in a configuration or wholly absent.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// =============================================================================
// Passes
// =============================================================================

// Pass is an opaque optimization pass identifier.
//
// The search layers never inspect the name beyond equality and ordering;
// only the oracle's external tooling interprets it.
type Pass string

// String returns the pass name.
func (p Pass) String() string {
	return string(p)
}

// Names converts a pass slice to its plain string names, preserving order.
func Names(passes []Pass) []string {
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = string(p)
	}
	return names
}

// FromNames converts plain string names to passes, preserving order.
func FromNames(names []string) []Pass {
	passes := make([]Pass, len(names))
	for i, n := range names {
		passes[i] = Pass(n)
	}
	return passes
}

// Join renders a pass sequence as a comma-joined string in sequence order.
// This is the wire format consumed by the evaluation script.
func Join(passes []Pass) string {
	return strings.Join(Names(passes), ",")
}

// =============================================================================
// Stages
// =============================================================================

// Stage identifies a point in the LTO pipeline where optimization passes
// can be applied.
//
// The stage set is closed: adding a stage is a code change, not
// configuration. Everything that iterates stages uses Stages() so the
// ordering is fixed in one place.
type Stage string

const (
	// StagePreLink is the per-module optimization stage before linking.
	StagePreLink Stage = "pre_link"

	// StageLinkTime is the combined-module optimization stage at link time.
	StageLinkTime Stage = "link_time"
)

// Stages returns the fixed, ordered set of pipeline stages.
func Stages() []Stage {
	return []Stage{StagePreLink, StageLinkTime}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StagePreLink, StageLinkTime:
		return true
	}
	return false
}

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}

// EnvVar returns the environment variable that carries this stage's pass
// sequence into the evaluation script.
func (s Stage) EnvVar() string {
	switch s {
	case StagePreLink:
		return "PRELINK_PASSES"
	case StageLinkTime:
		return "LINKTIME_PASSES"
	default:
		return ""
	}
}

// =============================================================================
// Pipeline Configurations
// =============================================================================

// Config is an immutable assignment of an ordered pass sequence to each
// pipeline stage. Order within a stage is significant: passes are applied
// in sequence order.
//
// Construct with NewConfig or a Builder; the zero value is a valid empty
// configuration (no extra passes at any stage).
type Config struct {
	perStage map[Stage][]Pass
}

// NewConfig creates a Config from per-stage sequences.
//
// The input slices are copied, so callers may keep mutating their own
// slices afterwards without affecting the configuration.
//
// Inputs:
//   - perStage: pass sequences keyed by stage; missing stages mean empty
//
// Outputs:
//   - Config: immutable configuration
func NewConfig(perStage map[Stage][]Pass) Config {
	copied := make(map[Stage][]Pass, len(Stages()))
	for _, stage := range Stages() {
		seq := perStage[stage]
		if len(seq) == 0 {
			continue
		}
		cp := make([]Pass, len(seq))
		copy(cp, seq)
		copied[stage] = cp
	}
	return Config{perStage: copied}
}

// Empty returns the configuration with no passes at any stage. This is
// the baseline the workload must already survive.
func Empty() Config {
	return Config{}
}

// Passes returns a copy of the pass sequence for the given stage.
func (c Config) Passes(stage Stage) []Pass {
	seq := c.perStage[stage]
	if len(seq) == 0 {
		return nil
	}
	cp := make([]Pass, len(seq))
	copy(cp, seq)
	return cp
}

// Len returns the total number of pass slots across all stages.
func (c Config) Len() int {
	n := 0
	for _, stage := range Stages() {
		n += len(c.perStage[stage])
	}
	return n
}

// EnvValue returns the comma-joined pass names for a stage, the exact
// value placed in the stage's environment variable.
func (c Config) EnvValue(stage Stage) string {
	return Join(c.perStage[stage])
}

// Env returns the environment variable assignments for all stages in
// stage order, in the KEY=value form accepted by exec.Cmd.
func (c Config) Env() []string {
	env := make([]string, 0, len(Stages()))
	for _, stage := range Stages() {
		env = append(env, stage.EnvVar()+"="+c.EnvValue(stage))
	}
	return env
}

// String renders the configuration in the canonical transcript form:
//
//	PipelineConfig(pre_link=[a,b], link_time=[a,b])
//
// Pass names within a stage are comma-joined without spaces. Transcript
// consumers and the verdict cache both key off this exact format, so it
// must stay stable.
func (c Config) String() string {
	segments := make([]string, 0, len(Stages()))
	for _, stage := range Stages() {
		segments = append(segments, fmt.Sprintf("%s=[%s]", stage, Join(c.perStage[stage])))
	}
	return "PipelineConfig(" + strings.Join(segments, ", ") + ")"
}

// Fingerprint returns a stable hex digest of the configuration, suitable
// as a cache key component. Two configurations with the same per-stage
// sequences in the same order share a fingerprint.
func (c Config) Fingerprint() string {
	h := sha256.New()
	for _, stage := range Stages() {
		h.Write([]byte(stage))
		h.Write([]byte{'='})
		h.Write([]byte(Join(c.perStage[stage])))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
