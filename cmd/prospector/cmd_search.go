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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the partition search over all enumerated passes",
	Long: `Search enumerates the candidate passes, shuffles them, and grows a set
of jointly-compatible passes by recursive bisection: test the whole
remaining pool on top of everything accepted so far, take it all on
success, split in half and recurse on failure.

Interrupting the run (Ctrl-C) abandons the untested passes and still
reports the passes accepted so far.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, logger, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("search finished",
		"run_id", result.RunID,
		"candidates", result.Candidates,
		"accepted", len(result.Accepted),
		"trials", result.Usage.Trials,
		"elapsed", result.Usage.Elapsed.String(),
	)
	if result.Cache != nil {
		logger.Info("verdict cache",
			"hits", result.Cache.Hits,
			"misses", result.Cache.Misses,
			"stores", result.Cache.Stores,
		)
	}
	return nil
}
