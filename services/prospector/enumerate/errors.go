// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package enumerate

import "errors"

// Enumeration errors are fatal to a run: without a candidate list there
// is nothing to search, so none of these are retried or absorbed.
var (
	// ErrNilContext indicates a nil context was passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrListFailed indicates the pass listing command could not be run
	// or exited nonzero.
	ErrListFailed = errors.New("pass listing command failed")

	// ErrNoPasses indicates the listing ran but yielded zero candidates.
	ErrNoPasses = errors.New("pass listing produced no passes")

	// ErrInvalidPassName indicates the listing produced a name that is
	// unsafe to forward to the evaluation environment.
	ErrInvalidPassName = errors.New("pass listing produced an invalid pass name")
)
