// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"sync"

	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// GoodSet is the accumulated sequence of passes proven jointly
// compatible by at least one successful trial.
//
// It only ever grows. Existing elements are never removed or
// reordered: every accepted block was validated together with the
// good set as it stood at acceptance time, and that history is the
// only compatibility argument the search carries. Two blocks
// accepted in different branches are never re-validated as a merged
// whole.
//
// Thread Safety: Safe for concurrent use. The search mutates it from
// a single goroutine; status readers may snapshot it concurrently.
type GoodSet struct {
	mu     sync.RWMutex
	passes []pipeline.Pass
}

// NewGoodSet creates an empty GoodSet.
func NewGoodSet() *GoodSet {
	return &GoodSet{}
}

// Append adds passes to the end of the set, preserving their order.
func (g *GoodSet) Append(passes ...pipeline.Pass) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.passes = append(g.passes, passes...)
}

// Passes returns a copy of the accepted sequence.
func (g *GoodSet) Passes() []pipeline.Pass {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]pipeline.Pass, len(g.passes))
	copy(out, g.passes)
	return out
}

// Len returns the number of accepted passes.
func (g *GoodSet) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.passes)
}

// Contains reports whether p has been accepted.
func (g *GoodSet) Contains(p pipeline.Pass) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, have := range g.passes {
		if have == p {
			return true
		}
	}
	return false
}

// Join returns the accepted sequence as a comma-joined string, the
// form used by the final report.
func (g *GoodSet) Join() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return pipeline.Join(g.passes)
}
