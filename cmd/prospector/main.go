// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command prospector searches for the largest set of optimization
// passes a workload can tolerate.
//
// Given a workload directory with a validation script (build the
// workload, run its test suite, exit zero on success), prospector
// enumerates the toolchain's optional passes and uses recursive
// bisection to grow a set of passes that keep the script passing,
// with far fewer trials than testing subsets exhaustively.
//
// Usage:
//
//	prospector search --workdir /path/to/workload
//	prospector passes
//	prospector sweep --workdir /path/to/workload
//
// Every trial is appended to passes.log in the workload directory;
// the final accepted set is printed comma-joined at the end of the
// run. With --status-addr a read-only HTTP server exposes the run's
// progress and Prometheus metrics while it is active.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
