// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prospector wires the search pipeline together: lock,
// enumeration, oracle, verdict cache, transcript, metrics, status
// server, and the partition search itself. The CLI in cmd/prospector
// is a thin layer over Service.
package prospector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/PassProspector/services/prospector/cache"
	"github.com/AleutianAI/PassProspector/services/prospector/enumerate"
	"github.com/AleutianAI/PassProspector/services/prospector/lock"
	"github.com/AleutianAI/PassProspector/services/prospector/observability"
	"github.com/AleutianAI/PassProspector/services/prospector/oracle"
	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
	"github.com/AleutianAI/PassProspector/services/prospector/search"
	"github.com/AleutianAI/PassProspector/services/prospector/transcript"
)

// ErrSanityCheckFailed means the workload fails with no passes at
// all, so no search outcome could mean anything.
var ErrSanityCheckFailed = errors.New("workload fails with an empty pipeline")

// Config assembles one search run.
type Config struct {
	// Script is the evaluation command line. Empty means the oracle
	// default (sh test.sh).
	Script string

	// Workdir is the workload directory the script runs in and the
	// run lock lives in. Empty means the current directory.
	Workdir string

	// Timeout is the per-trial wall-clock budget. Zero means the
	// oracle default (10 minutes).
	Timeout time.Duration

	// ListCommand enumerates candidates. Empty means the enumerate
	// default (opt --print-passes). Ignored when PassesFile is set.
	ListCommand string

	// PassesFile reads candidates from a file instead of running the
	// listing command.
	PassesFile string

	// Seed seeds the search shuffles for a replayable run. Zero means
	// clock-seeded.
	Seed int64

	// MaxTrials and TimeLimit bound the run. Zero means unlimited.
	MaxTrials int
	TimeLimit time.Duration

	// SanityCheck evaluates the empty pipeline before searching and
	// aborts if even that fails.
	SanityCheck bool

	// TranscriptPath is the trial log. Empty means transcript.DefaultPath
	// inside Workdir; "-" discards the transcript.
	TranscriptPath string

	// CacheDir holds the verdict cache. Empty with CacheDisabled false
	// uses an in-memory store (within-run deduplication only).
	CacheDir      string
	CacheDisabled bool

	// StatusAddr serves status endpoints and /metrics while the run is
	// active. Empty disables the server.
	StatusAddr string

	// Tracing enables otel spans for the run.
	Tracing bool

	// Console receives the original script's progress lines. Nil
	// discards them.
	Console io.Writer

	// Logger receives structured logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Result is the outcome of a completed run.
type Result struct {
	// RunID identifies the run in logs, lockfile, and status API.
	RunID string

	// Candidates is the enumerated candidate count.
	Candidates int

	// Accepted is the final good set, in acceptance order.
	Accepted []pipeline.Pass

	// Usage reports trial count and elapsed time.
	Usage search.UsageReport

	// Cache reports verdict cache effectiveness; nil when the cache
	// was disabled.
	Cache *cache.Stats
}

// Service runs searches and sweeps over one workload.
type Service struct {
	config Config
	logger *slog.Logger
}

// NewService creates a Service. Zero-valued Config fields fall back to
// the component defaults.
func NewService(config Config) *Service {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Console == nil {
		config.Console = io.Discard
	}
	return &Service{config: config, logger: config.Logger}
}

// SweepResultSet is the outcome of an isolation sweep.
type SweepResultSet struct {
	RunID      string
	Candidates int
	Stages     []search.SweepResult
}

// Sweep tests every candidate alone, one stage at a time, without
// accepting anything. A survey, not a search.
func (s *Service) Sweep(ctx context.Context) (*SweepResultSet, error) {
	runID := uuid.New().String()
	s.logger.Info("Starting isolation sweep",
		slog.String("run_id", runID),
		slog.String("workdir", s.config.Workdir),
	)

	runLock, err := lock.Acquire(s.config.Workdir, runID, s.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			s.logger.Warn("Run lock release failed", slog.String("error", err.Error()))
		}
	}()

	recorder, closeRecorder, err := s.newRecorder()
	if err != nil {
		return nil, err
	}
	defer closeRecorder()

	candidates, err := s.enumerate(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.config.Console, "Found %d passes\n", len(candidates))

	budget := search.NewBudget(search.BudgetConfig{
		MaxTrials: s.config.MaxTrials,
		TimeLimit: s.config.TimeLimit,
	})
	searcher := s.newSearcher(s.newOracle(), recorder, budget)
	stages := searcher.Sweep(ctx, candidates)
	for _, st := range stages {
		recorder.SweepReport(st.Stage, st.OK, st.Failed)
	}

	return &SweepResultSet{
		RunID:      runID,
		Candidates: len(candidates),
		Stages:     stages,
	}, nil
}

// Run executes one full search: lock the workload, enumerate, search,
// report. Cancellation via ctx abandons untested passes but still
// reports the partial good set.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	s.logger.Info("Starting pass search",
		slog.String("run_id", runID),
		slog.String("workdir", s.config.Workdir),
		slog.Int64("seed", s.config.Seed),
	)

	runLock, err := lock.Acquire(s.config.Workdir, runID, s.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			s.logger.Warn("Run lock release failed", slog.String("error", err.Error()))
		}
	}()

	recorder, closeRecorder, err := s.newRecorder()
	if err != nil {
		return nil, err
	}
	defer closeRecorder()

	judge := s.newOracle()
	var cachingOracle *cache.CachingOracle
	if !s.config.CacheDisabled {
		store, err := s.newVerdictStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		cachingOracle = cache.NewCachingOracle(judge, store, s.logger)
		judge = cachingOracle
	}

	feed := NewStatusFeed(runID, 10)

	if s.config.SanityCheck {
		if err := s.sanityCheck(ctx, judge); err != nil {
			return nil, err
		}
	}

	feed.SetState(StateEnumerating)
	candidates, err := s.enumerate(ctx)
	if err != nil {
		return nil, err
	}
	feed.SetCandidates(len(candidates))
	fmt.Fprintf(s.config.Console, "Found %d passes\n", len(candidates))
	s.logger.Info("Enumerated candidate passes", slog.Int("count", len(candidates)))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewSearchMetrics(registry)

	budget := search.NewBudget(search.BudgetConfig{
		MaxTrials: s.config.MaxTrials,
		TimeLimit: s.config.TimeLimit,
	})
	searcher := s.newSearcher(judge, search.MultiObserver{
		recorder,
		observability.NewMetricsObserver(metrics),
		feed,
	}, budget)

	var good *search.GoodSet
	runCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	g, gctx := errgroup.WithContext(runCtx)
	if s.config.StatusAddr != "" {
		server := NewStatusServer(s.config.StatusAddr, feed, registry, s.logger)
		if err := server.Listen(); err != nil {
			return nil, err
		}
		// Best-effort once it is up: a serve failure must not cancel
		// the search, so it never propagates through the group.
		g.Go(func() error {
			if err := server.Run(gctx); err != nil {
				s.logger.Warn("Status server exited with error",
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopServer()
		good = searcher.Run(gctx, candidates)
		return nil
	})
	_ = g.Wait()

	result := &Result{
		RunID:      runID,
		Candidates: len(candidates),
		Accepted:   good.Passes(),
		Usage:      budget.Report(),
	}
	if cachingOracle != nil {
		stats := cachingOracle.Stats()
		result.Cache = &stats
	}

	return result, nil
}

// sanityCheck evaluates the empty pipeline. If the workload cannot
// pass with no passes applied, every trial would fail and the search
// would silently reject everything.
func (s *Service) sanityCheck(ctx context.Context, judge oracle.Oracle) error {
	s.logger.Info("Sanity-checking the empty pipeline")
	verdict := judge.Evaluate(ctx, pipeline.Empty())
	if !verdict.Accepted() {
		return fmt.Errorf("%w: %s (exit %d)",
			ErrSanityCheckFailed, verdict.Status, verdict.ExitCode)
	}
	return nil
}

func (s *Service) enumerate(ctx context.Context) ([]pipeline.Pass, error) {
	var enumerator enumerate.Enumerator
	if s.config.PassesFile != "" {
		enumerator = &enumerate.FileEnumerator{Path: s.config.PassesFile}
	} else {
		enumerator = enumerate.NewCommandEnumerator(s.config.ListCommand, 0, s.logger)
	}

	candidates, err := enumerator.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating candidate passes: %w", err)
	}
	return candidates, nil
}

func (s *Service) newOracle() oracle.Oracle {
	return oracle.NewScriptOracle(oracle.Config{
		Command: s.config.Script,
		Dir:     s.config.Workdir,
		Timeout: s.config.Timeout,
	}, s.logger)
}

func (s *Service) newVerdictStore() (*cache.VerdictStore, error) {
	cfg := cache.DefaultConfig()
	cfg.Workload = cache.Fingerprint(s.config.Script, s.config.Workdir)
	cfg.Logger = s.logger
	if s.config.CacheDir == "" {
		cfg = cache.InMemoryConfig()
		cfg.Workload = cache.Fingerprint(s.config.Script, s.config.Workdir)
	} else {
		cfg.Path = s.config.CacheDir
	}

	store, err := cache.NewVerdictStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening verdict cache: %w", err)
	}
	return store, nil
}

func (s *Service) newRecorder() (*transcript.Recorder, func(), error) {
	var sink transcript.Sink
	switch s.config.TranscriptPath {
	case "-":
		sink = transcript.Discard{}
	case "":
		fileSink, err := transcript.NewFileSink(filepath.Join(s.config.Workdir, transcript.DefaultPath))
		if err != nil {
			return nil, nil, fmt.Errorf("opening transcript: %w", err)
		}
		sink = fileSink
	default:
		fileSink, err := transcript.NewFileSink(s.config.TranscriptPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening transcript: %w", err)
		}
		sink = fileSink
	}

	recorder := transcript.NewRecorder(sink, s.config.Console, s.logger)
	closeRecorder := func() {
		if err := recorder.Close(); err != nil {
			s.logger.Warn("Transcript close failed", slog.String("error", err.Error()))
		}
	}
	return recorder, closeRecorder, nil
}

func (s *Service) newSearcher(judge oracle.Oracle, observer search.Observer, budget *search.Budget) *search.Searcher {
	opts := []search.Option{
		search.WithObserver(observer),
		search.WithLogger(s.logger),
		search.WithBudget(budget),
	}
	if s.config.Seed != 0 {
		opts = append(opts, search.WithSeed(s.config.Seed))
	}
	if s.config.Tracing {
		opts = append(opts, search.WithTracer(
			search.NewSearchTracer(s.logger, search.ObservabilityConfig{TracingEnabled: true})))
	}
	return search.NewSearcher(judge, opts...)
}
