// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

// Builder turns an accepted sequence plus a trial subset into a concrete
// pipeline configuration for the oracle.
//
// Builders must be pure: no side effects, no retained references to the
// input slices, and identical inputs produce identical configurations.
// The search core treats the builder as the single place where "which
// stage gets which passes" policy lives.
type Builder interface {
	// Build combines the already-accepted sequence and the trial subset
	// into a configuration. Relative order inside each input is preserved
	// and accepted passes always precede trial passes.
	Build(good, trial []Pass) Config
}

// UniformBuilder assigns the same concatenated sequence (accepted passes
// followed by trial passes) to every stage. This is the default policy:
// per-stage divergence is expressible in Config but not yet explored by
// the search.
type UniformBuilder struct{}

// Build implements Builder.
func (UniformBuilder) Build(good, trial []Pass) Config {
	seq := make([]Pass, 0, len(good)+len(trial))
	seq = append(seq, good...)
	seq = append(seq, trial...)

	perStage := make(map[Stage][]Pass, len(Stages()))
	for _, stage := range Stages() {
		perStage[stage] = seq
	}
	return NewConfig(perStage)
}

// SingleStageBuilder assigns the concatenated sequence to exactly one
// stage and leaves every other stage empty. Used by the isolation sweep
// to probe a pass's effect at one stage at a time.
type SingleStageBuilder struct {
	// Stage receives the pass sequence; all others stay empty.
	Stage Stage
}

// Build implements Builder.
func (b SingleStageBuilder) Build(good, trial []Pass) Config {
	seq := make([]Pass, 0, len(good)+len(trial))
	seq = append(seq, good...)
	seq = append(seq, trial...)

	return NewConfig(map[Stage][]Pass{b.Stage: seq})
}

var (
	_ Builder = UniformBuilder{}
	_ Builder = SingleStageBuilder{}
)
