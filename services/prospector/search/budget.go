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
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BudgetConfig contains limits for one search run. Zero values mean
// unlimited, which is the default: a full search runs until the
// candidate pool is exhausted.
type BudgetConfig struct {
	MaxTrials int           // Maximum oracle trials
	TimeLimit time.Duration // Wall clock limit for the whole run
}

// DefaultBudgetConfig returns an unlimited budget.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{}
}

// Budget tracks trial consumption during a search run.
//
// Thread Safety: Safe for concurrent use.
type Budget struct {
	config    BudgetConfig
	startTime time.Time

	trials int64

	mu          sync.RWMutex
	exhausted   bool
	exhaustedBy string // Which limit was hit
}

// NewBudget creates a new budget tracker with its clock started.
func NewBudget(config BudgetConfig) *Budget {
	return &Budget{
		config:    config,
		startTime: time.Now(),
	}
}

// Config returns the budget configuration.
func (b *Budget) Config() BudgetConfig {
	return b.config
}

// Trials returns the number of oracle trials recorded.
func (b *Budget) Trials() int64 {
	return atomic.LoadInt64(&b.trials)
}

// RecordTrial records one oracle trial.
//
// Outputs:
//   - error: Non-nil if this trial exhausted the budget.
func (b *Budget) RecordTrial() error {
	atomic.AddInt64(&b.trials, 1)
	return b.checkLimits()
}

// Elapsed returns time elapsed since the budget clock started.
func (b *Budget) Elapsed() time.Duration {
	b.mu.RLock()
	start := b.startTime
	b.mu.RUnlock()
	return time.Since(start)
}

// Exhausted returns whether any limit has been hit.
func (b *Budget) Exhausted() bool {
	b.mu.RLock()
	if b.exhausted {
		b.mu.RUnlock()
		return true
	}
	b.mu.RUnlock()

	return b.checkLimits() != nil
}

// ExhaustedBy returns which limit caused exhaustion (empty if not
// exhausted).
func (b *Budget) ExhaustedBy() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exhaustedBy
}

// checkLimits checks all limits and returns an error if any is
// exceeded.
func (b *Budget) checkLimits() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exhausted {
		return ErrBudgetExhausted
	}

	if b.config.TimeLimit > 0 && time.Since(b.startTime) >= b.config.TimeLimit {
		b.exhausted = true
		b.exhaustedBy = "time"
		return ErrTimeLimitExceeded
	}

	if b.config.MaxTrials > 0 && atomic.LoadInt64(&b.trials) >= int64(b.config.MaxTrials) {
		b.exhausted = true
		b.exhaustedBy = "trials"
		return ErrTrialLimitExceeded
	}

	return nil
}

// String returns a human-readable budget status. A zero limit renders
// as 0 and means unlimited.
func (b *Budget) String() string {
	exhaustedStatus := ""
	if b.Exhausted() {
		exhaustedStatus = fmt.Sprintf(" [EXHAUSTED by %s]", b.ExhaustedBy())
	}

	return fmt.Sprintf("Budget{trials=%d/%d, time=%v/%v}%s",
		b.Trials(), b.config.MaxTrials,
		b.Elapsed().Round(time.Second), b.config.TimeLimit,
		exhaustedStatus)
}

// UsageReport contains a point-in-time view of budget consumption.
type UsageReport struct {
	Elapsed     time.Duration `json:"elapsed"`
	Trials      int64         `json:"trials"`
	Exhausted   bool          `json:"exhausted"`
	ExhaustedBy string        `json:"exhausted_by,omitempty"`
}

// Report generates a usage report.
func (b *Budget) Report() UsageReport {
	return UsageReport{
		Elapsed:     b.Elapsed(),
		Trials:      b.Trials(),
		Exhausted:   b.Exhausted(),
		ExhaustedBy: b.ExhaustedBy(),
	}
}

// Reset clears the counters and restarts the clock, keeping the same
// configuration. Run calls this so each search is measured on its
// own.
func (b *Budget) Reset() {
	atomic.StoreInt64(&b.trials, 0)

	b.mu.Lock()
	b.exhausted = false
	b.exhaustedBy = ""
	b.startTime = time.Now()
	b.mu.Unlock()
}
