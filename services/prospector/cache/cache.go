// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache persists trial verdicts in BadgerDB so interrupted or
// repeated searches do not pay for configurations already measured.
//
// Only OK and FAILED verdicts are stored. Timeouts and oracle errors
// are transient (a loaded machine, a missing workdir) and must not
// poison later runs. Keys are namespaced by a workload fingerprint so
// one cache directory can serve different test scripts without
// cross-talk.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

const keyPrefix = "verdict:"

// Sentinel errors for the cache package.
var (
	ErrPathRequired      = errors.New("cache path is required for persistent database")
	ErrUncacheableStatus = errors.New("verdict status is not cacheable")
)

// Config holds configuration for a verdict store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing and for --no-cache style runs that still
	// want within-run deduplication.
	InMemory bool

	// SyncWrites enables synchronous writes. A verdict can take ten
	// minutes to earn, so losing one to a crash is worth avoiding.
	SyncWrites bool

	// Workload namespaces keys, normally a Fingerprint of the oracle
	// command, workdir, and script content. Empty shares one
	// namespace.
	Workload string

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for persistent use.
func DefaultConfig() Config {
	return Config{
		SyncWrites: true,
	}
}

// InMemoryConfig returns configuration for tests and cacheless runs.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// VerdictStore is a BadgerDB-backed map from pipeline configuration
// to oracle verdict.
//
// Thread Safety: Safe for concurrent use.
type VerdictStore struct {
	db       *badger.DB
	workload string
}

// NewVerdictStore opens (creating if needed) the store described by
// cfg.
//
// Outputs:
//   - *VerdictStore: The opened store. Caller must Close() it.
//   - error: Non-nil if the path is missing or BadgerDB cannot open.
func NewVerdictStore(cfg Config) (*VerdictStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, ErrPathRequired
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open verdict cache: %w", err)
	}

	return &VerdictStore{db: db, workload: cfg.Workload}, nil
}

// Get looks up the stored verdict for a configuration.
//
// Outputs:
//   - oracle.Verdict: The stored verdict (zero value on miss).
//   - bool: True on a hit.
//   - error: Non-nil on storage failure; a plain miss is not an error.
func (s *VerdictStore) Get(ctx context.Context, cfg pipeline.Config) (oracle.Verdict, bool, error) {
	var verdict oracle.Verdict
	if err := ctx.Err(); err != nil {
		return verdict, false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(cfg))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &verdict)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return oracle.Verdict{}, false, nil
	}
	if err != nil {
		return oracle.Verdict{}, false, fmt.Errorf("read verdict cache: %w", err)
	}
	return verdict, true, nil
}

// Put stores a verdict. Only OK and FAILED verdicts are accepted;
// anything else returns ErrUncacheableStatus.
func (s *VerdictStore) Put(ctx context.Context, cfg pipeline.Config, v oracle.Verdict) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.Status != oracle.StatusOK && v.Status != oracle.StatusFailed {
		return ErrUncacheableStatus
	}

	// The stored copy is never "cached": that flag describes how the
	// verdict reached the caller, not the verdict itself.
	v.Cached = false

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(cfg), data)
	})
	if err != nil {
		return fmt.Errorf("write verdict cache: %w", err)
	}
	return nil
}

// Len counts stored verdicts in this store's workload namespace.
func (s *VerdictStore) Len() (int, error) {
	count := 0
	prefix := []byte(keyPrefix + s.workload + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count verdict cache: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *VerdictStore) Close() error {
	return s.db.Close()
}

func (s *VerdictStore) key(cfg pipeline.Config) []byte {
	return []byte(keyPrefix + s.workload + ":" + cfg.Fingerprint())
}

// Fingerprint hashes the given parts into a stable hex workload
// identifier. Parts are length-prefixed so ("ab","c") and ("a","bc")
// cannot collide.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
