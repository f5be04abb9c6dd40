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

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Test every pass on its own, one stage at a time",
	Long: `Sweep evaluates each candidate pass in isolation, first alone in the
pre-link pipeline and then alone at link time, and reports which
passes the workload tolerates per stage. One oracle trial per pass per
stage: a survey of individual tolerances, not a search for a jointly
compatible set.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	svc, logger, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.Sweep(ctx)
	if err != nil {
		return err
	}

	for _, stage := range result.Stages {
		logger.Info("sweep stage summary",
			"stage", stage.Stage.String(),
			"ok", len(stage.OK),
			"failed", len(stage.Failed),
		)
	}
	return nil
}
