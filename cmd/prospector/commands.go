// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/PassProspector/cmd/prospector/config"
	"github.com/AleutianAI/PassProspector/pkg/logging"
	"github.com/AleutianAI/PassProspector/services/prospector"
)

var (
	flagConfig     string
	flagWorkdir    string
	flagScript     string
	flagTimeout    time.Duration
	flagListCmd    string
	flagPassesFile string
	flagSeed       int64
	flagMaxTrials  int
	flagTimeLimit  time.Duration
	flagSanity     bool
	flagTranscript string
	flagCacheDir   string
	flagNoCache    bool
	flagStatusAddr string
	flagTracing    bool
	flagQuiet      bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Search for the largest tolerable optimization pass set",
	Long: `Prospector finds a maximal set of optional optimization passes that a
workload tolerates, by recursive bisection against the workload's own
validation script. Each trial applies a candidate pipeline (via the
PRELINK_PASSES and LINKTIME_PASSES environment variables) and runs the
script; exit zero accepts, anything else rejects and splits.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ~/.prospector/prospector.yaml)")
	pf.StringVar(&flagWorkdir, "workdir", "", "workload directory the validation script runs in")
	pf.StringVar(&flagScript, "script", "", "validation command (default \"sh test.sh\")")
	pf.DurationVar(&flagTimeout, "timeout", 0, "per-trial wall-clock budget (default 10m)")
	pf.StringVar(&flagListCmd, "list-cmd", "", "pass listing command (default \"opt --print-passes\")")
	pf.StringVar(&flagPassesFile, "passes-file", "", "read candidates from a file instead of the listing command")
	pf.StringVar(&flagTranscript, "transcript", "", "trial log path (default passes.log in the workdir, \"-\" to disable)")
	pf.BoolVar(&flagQuiet, "quiet", false, "suppress structured logs on stderr")
	pf.BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	sf := searchCmd.Flags()
	sf.Int64Var(&flagSeed, "seed", 0, "shuffle seed for a replayable search (0 = random)")
	sf.IntVar(&flagMaxTrials, "max-trials", 0, "stop after this many oracle trials (0 = unlimited)")
	sf.DurationVar(&flagTimeLimit, "time-limit", 0, "stop the run after this much wall clock (0 = unlimited)")
	sf.BoolVar(&flagSanity, "sanity-check", false, "verify the workload passes with an empty pipeline first")
	sf.StringVar(&flagCacheDir, "cache-dir", "", "persist trial verdicts in this BadgerDB directory")
	sf.BoolVar(&flagNoCache, "no-cache", false, "disable the verdict cache")
	sf.StringVar(&flagStatusAddr, "status-addr", "", "serve run status and metrics on this address")
	sf.BoolVar(&flagTracing, "tracing", false, "emit OpenTelemetry spans per run and trial")

	wf := sweepCmd.Flags()
	wf.IntVar(&flagMaxTrials, "max-trials", 0, "stop after this many oracle trials (0 = unlimited)")
	wf.DurationVar(&flagTimeLimit, "time-limit", 0, "stop the sweep after this much wall clock (0 = unlimited)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(passesCmd)
	rootCmd.AddCommand(sweepCmd)
}

// loadConfig reads the YAML config named by --config (or the default
// location).
func loadConfig() (*config.ProspectorConfig, error) {
	return config.Load(flagConfig)
}

// newLogger builds the run logger from config plus --quiet/--verbose.
func newLogger(cfg *config.ProspectorConfig) *logging.Logger {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	if flagVerbose {
		level = logging.LevelDebug
	}

	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "prospector",
		Quiet:   flagQuiet || cfg.Logging.Quiet,
	})
}

// serviceConfig merges the YAML config with flag overrides; a flag
// that was set on the command line wins over the file.
func serviceConfig(cfg *config.ProspectorConfig, changed func(string) bool) prospector.Config {
	out := prospector.Config{
		Script:         cfg.Workload.Script,
		Workdir:        cfg.Workload.Dir,
		Timeout:        cfg.Workload.Timeout(),
		ListCommand:    cfg.Enumerate.Command,
		PassesFile:     cfg.Enumerate.PassesFile,
		Seed:           cfg.Search.Seed,
		MaxTrials:      cfg.Search.MaxTrials,
		TimeLimit:      cfg.Search.TimeLimit(),
		SanityCheck:    cfg.Search.SanityCheck,
		TranscriptPath: cfg.Search.Transcript,
		CacheDir:       cfg.Cache.Dir,
		CacheDisabled:  cfg.Cache.Disabled,
		StatusAddr:     cfg.Status.Addr,
		Tracing:        cfg.Search.Tracing,
	}

	if changed("script") {
		out.Script = flagScript
	}
	if changed("workdir") {
		out.Workdir = flagWorkdir
	}
	if changed("timeout") {
		out.Timeout = flagTimeout
	}
	if changed("list-cmd") {
		out.ListCommand = flagListCmd
	}
	if changed("passes-file") {
		out.PassesFile = flagPassesFile
	}
	if changed("seed") {
		out.Seed = flagSeed
	}
	if changed("max-trials") {
		out.MaxTrials = flagMaxTrials
	}
	if changed("time-limit") {
		out.TimeLimit = flagTimeLimit
	}
	if changed("sanity-check") {
		out.SanityCheck = flagSanity
	}
	if changed("transcript") {
		out.TranscriptPath = flagTranscript
	}
	if changed("cache-dir") {
		out.CacheDir = flagCacheDir
	}
	if changed("no-cache") {
		out.CacheDisabled = flagNoCache
	}
	if changed("status-addr") {
		out.StatusAddr = flagStatusAddr
	}
	if changed("tracing") {
		out.Tracing = flagTracing
	}

	return out
}

// newService assembles a Service for a command. The returned cleanup
// flushes tracing (when enabled) and must run after the command.
func newService(cmd *cobra.Command) (*prospector.Service, *logging.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(cfg)
	svcCfg := serviceConfig(cfg, func(name string) bool {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f.Changed
		}
		return false
	})
	svcCfg.Logger = logger.Slog()
	svcCfg.Console = newConsole()

	cleanup := func() { logger.Close() }
	if svcCfg.Tracing {
		shutdown, err := initTracing()
		if err != nil {
			logger.Close()
			return nil, nil, nil, err
		}
		cleanup = func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("trace flush failed", "error", err)
			}
			logger.Close()
		}
	}

	return prospector.NewService(svcCfg), logger, cleanup, nil
}
