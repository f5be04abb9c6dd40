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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/PassProspector/services/prospector/enumerate"
)

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "Enumerate and print the candidate passes",
	Long: `Passes runs the listing command (or reads --passes-file) and prints the
parsed, deduplicated candidates one per line, without starting a
search. Useful for curating a passes file to search over.`,
	RunE: runPasses,
}

func runPasses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	svcCfg := serviceConfig(cfg, func(name string) bool {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f.Changed
		}
		return false
	})

	var enumerator enumerate.Enumerator
	if svcCfg.PassesFile != "" {
		enumerator = &enumerate.FileEnumerator{Path: svcCfg.PassesFile}
	} else {
		enumerator = enumerate.NewCommandEnumerator(svcCfg.ListCommand, 0, logger.Slog())
	}

	candidates, err := enumerator.Enumerate(cmd.Context())
	if err != nil {
		return err
	}

	for _, p := range candidates {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	logger.Info("enumeration complete", "count", len(candidates))
	return nil
}
