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

import "errors"

// Sentinel errors for the search package. Oracle failures are never
// errors here: they are data the partition strategy consumes. Only
// budget accounting surfaces as errors, and those stay internal to
// the run.
var (
	ErrBudgetExhausted    = errors.New("search budget exhausted")
	ErrTrialLimitExceeded = errors.New("search trial limit exceeded")
	ErrTimeLimitExceeded  = errors.New("search time limit exceeded")
)
