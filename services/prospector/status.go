// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prospector

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
	"github.com/AleutianAI/PassProspector/services/prospector/search"
)

// RunState describes where a search run currently is.
type RunState string

const (
	StateStarting    RunState = "starting"
	StateEnumerating RunState = "enumerating"
	StateSearching   RunState = "searching"
	StateFinished    RunState = "finished"
)

// Snapshot is the point-in-time view served by the status endpoint.
type Snapshot struct {
	RunID        string           `json:"run_id"`
	State        RunState         `json:"state"`
	StartedAt    time.Time        `json:"started_at"`
	ElapsedMS    int64            `json:"elapsed_ms"`
	Candidates   int              `json:"candidates"`
	Trials       map[string]int64 `json:"trials"`
	CacheHits    int64            `json:"cache_hits"`
	Accepted     []string         `json:"accepted"`
	CurrentTrial []string         `json:"current_trial,omitempty"`
	Abandoned    int              `json:"abandoned"`
}

// Event is one entry on the live trial stream.
type Event struct {
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Config   string    `json:"config,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
	Cached   bool      `json:"cached,omitempty"`
	GoodSize int       `json:"good_size,omitempty"`
	PoolSize int       `json:"pool_size,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Accepted []string  `json:"accepted,omitempty"`
}

// Event types on the websocket stream.
const (
	EventPartition = "partition"
	EventTrial     = "trial"
	EventAbandoned = "abandoned"
	EventFinished  = "finished"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls further behind loses events; the stream is a live view,
// not a replacement for the transcript.
const subscriberBuffer = 64

// StatusFeed aggregates search events into a snapshot for the status
// endpoint and broadcasts them to websocket subscribers.
//
// Implements search.Observer. Broadcasts are rate-limited and lossy
// so a slow or hostile websocket client can never stall the search
// goroutine.
//
// Thread Safety: Safe for concurrent use.
type StatusFeed struct {
	mu sync.RWMutex

	runID      string
	state      RunState
	started    time.Time
	candidates int
	trials     map[string]int64
	cacheHits  int64
	accepted   []string
	current    []string
	abandoned  int

	limiter *rate.Limiter
	nextID  int
	subs    map[int]chan Event
}

// NewStatusFeed creates a feed for one run. Trial events to
// subscribers are capped at eventsPerSecond (0 means uncapped);
// snapshot state is always exact.
func NewStatusFeed(runID string, eventsPerSecond float64) *StatusFeed {
	limit := rate.Inf
	if eventsPerSecond > 0 {
		limit = rate.Limit(eventsPerSecond)
	}
	return &StatusFeed{
		runID:   runID,
		state:   StateStarting,
		started: time.Now(),
		trials:  make(map[string]int64),
		limiter: rate.NewLimiter(limit, 1),
		subs:    make(map[int]chan Event),
	}
}

// SetState records a run phase transition.
func (f *StatusFeed) SetState(state RunState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

// SetCandidates records the enumerated candidate count.
func (f *StatusFeed) SetCandidates(n int) {
	f.mu.Lock()
	f.candidates = n
	f.mu.Unlock()
}

// Snapshot returns the current run view.
func (f *StatusFeed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	trials := make(map[string]int64, len(f.trials))
	for k, v := range f.trials {
		trials[k] = v
	}
	return Snapshot{
		RunID:        f.runID,
		State:        f.state,
		StartedAt:    f.started,
		ElapsedMS:    time.Since(f.started).Milliseconds(),
		Candidates:   f.candidates,
		Trials:       trials,
		CacheHits:    f.cacheHits,
		Accepted:     append([]string(nil), f.accepted...),
		CurrentTrial: append([]string(nil), f.current...),
		Abandoned:    f.abandoned,
	}
}

// Subscribe registers a websocket client. The returned cancel
// function must be called when the client goes away.
func (f *StatusFeed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan Event, subscriberBuffer)
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
}

// PartitionStep implements search.Observer.
func (f *StatusFeed) PartitionStep(good, trying []pipeline.Pass) {
	f.mu.Lock()
	f.state = StateSearching
	f.accepted = pipeline.Names(good)
	f.current = pipeline.Names(trying)
	f.mu.Unlock()

	f.broadcast(Event{
		Type:     EventPartition,
		Time:     time.Now(),
		GoodSize: len(good),
		PoolSize: len(trying),
	}, true)
}

// TrialStarted implements search.Observer.
func (f *StatusFeed) TrialStarted(cfg pipeline.Config) {}

// TrialFinished implements search.Observer.
func (f *StatusFeed) TrialFinished(cfg pipeline.Config, v oracle.Verdict) {
	f.mu.Lock()
	f.trials[v.Status.String()]++
	if v.Cached {
		f.cacheHits++
	}
	f.mu.Unlock()

	f.broadcast(Event{
		Type:    EventTrial,
		Time:    time.Now(),
		Config:  cfg.String(),
		Outcome: v.Status.String(),
		Cached:  v.Cached,
	}, true)
}

// PoolAbandoned implements search.Observer.
func (f *StatusFeed) PoolAbandoned(pool []pipeline.Pass, reason string) {
	f.mu.Lock()
	f.abandoned += len(pool)
	f.mu.Unlock()

	f.broadcast(Event{
		Type:     EventAbandoned,
		Time:     time.Now(),
		PoolSize: len(pool),
		Reason:   reason,
	}, false)
}

// SearchFinished implements search.Observer.
func (f *StatusFeed) SearchFinished(good []pipeline.Pass) {
	f.mu.Lock()
	f.state = StateFinished
	f.accepted = pipeline.Names(good)
	f.current = nil
	f.mu.Unlock()

	f.broadcast(Event{
		Type:     EventFinished,
		Time:     time.Now(),
		GoodSize: len(good),
		Accepted: pipeline.Names(good),
	}, false)
}

// broadcast fans an event out to every subscriber without blocking.
// Rate-limited events are dropped wholesale when over the cap;
// lifecycle events (abandoned, finished) bypass the limiter.
func (f *StatusFeed) broadcast(ev Event, limited bool) {
	if limited && !f.limiter.Allow() {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		select {
		case sub <- ev:
		default:
			// Subscriber is behind; drop rather than stall the search.
		}
	}
}

var _ search.Observer = (*StatusFeed)(nil)
