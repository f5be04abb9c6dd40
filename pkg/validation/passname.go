// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for externally-sourced identifiers that end
// up in environment variables or subprocess calls. Using these validators
// prevents injection attacks (command injection via crafted pass names).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// passNamePattern matches valid optimization pass names as printed by the
// pass listing command after parameter stripping.
// Allows: letters, digits, hyphens (dead-code-elim), underscores, dots.
// Max length: 128 characters (the longest upstream names are well under this).
var passNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidatePassName validates an optimization pass name before it is placed
// in an environment variable consumed by a shell.
//
// Valid names:
//   - 1-128 characters
//   - Letters and digits
//   - Hyphens (-), underscores (_), dots (.)
//   - No whitespace, commas, quotes, or shell metacharacters
//
// Commas are excluded because the pass list is serialized comma-joined;
// a name containing a comma would smuggle extra entries into the pipeline.
//
// Example:
//
//	if err := validation.ValidatePassName(name); err != nil {
//	    return nil, fmt.Errorf("invalid pass name: %w", err)
//	}
//	// Safe to hand to the evaluation script
func ValidatePassName(name string) error {
	if name == "" {
		return fmt.Errorf("pass name cannot be empty")
	}

	if !passNamePattern.MatchString(name) {
		return fmt.Errorf("invalid pass name: %q (must be 1-128 alphanumeric chars, dots, underscores, or hyphens)", name)
	}

	return nil
}

// ValidatePassNames validates multiple pass names.
// Returns an error listing all invalid names if any fail validation.
func ValidatePassNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidatePassName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid pass names: %v", invalid)
	}
	return nil
}

// SanitizePassName trims and validates a pass name.
// Returns the trimmed name if valid, or an error if invalid.
func SanitizePassName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidatePassName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
