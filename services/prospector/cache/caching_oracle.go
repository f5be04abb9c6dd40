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
	"log/slog"
	"sync/atomic"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

// CachingOracle wraps an oracle with a VerdictStore. Hits skip the
// inner oracle entirely and return the stored verdict with Cached
// set; misses are evaluated and, when conclusive, stored.
//
// Storage failures degrade to plain evaluation: Evaluate stays total
// no matter what the cache does.
//
// Thread Safety: Safe for concurrent use, though the search calls it
// from one goroutine.
type CachingOracle struct {
	inner  oracle.Oracle
	store  *VerdictStore
	logger *slog.Logger

	hits   int64
	misses int64
	stores int64
}

// NewCachingOracle wraps inner with store. A nil logger falls back to
// slog.Default().
func NewCachingOracle(inner oracle.Oracle, store *VerdictStore, logger *slog.Logger) *CachingOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingOracle{inner: inner, store: store, logger: logger}
}

// Evaluate implements oracle.Oracle.
func (c *CachingOracle) Evaluate(ctx context.Context, cfg pipeline.Config) oracle.Verdict {
	if v, ok, err := c.store.Get(ctx, cfg); err != nil {
		c.logger.Warn("Verdict cache read failed",
			slog.String("error", err.Error()),
		)
	} else if ok {
		atomic.AddInt64(&c.hits, 1)
		v.Cached = true
		c.logger.Debug("Verdict cache hit",
			slog.String("status", v.Status.String()),
			slog.Int("config_size", cfg.Len()),
		)
		return v
	}

	atomic.AddInt64(&c.misses, 1)
	v := c.inner.Evaluate(ctx, cfg)

	if v.Status == oracle.StatusOK || v.Status == oracle.StatusFailed {
		if err := c.store.Put(ctx, cfg, v); err != nil {
			c.logger.Warn("Verdict cache write failed",
				slog.String("error", err.Error()),
			)
		} else {
			atomic.AddInt64(&c.stores, 1)
		}
	}
	return v
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Stores int64 `json:"stores"`
}

// Stats returns a snapshot of the counters.
func (c *CachingOracle) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Stores: atomic.LoadInt64(&c.stores),
	}
}

var _ oracle.Oracle = (*CachingOracle)(nil)
