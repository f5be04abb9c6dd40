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
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// newConsole returns the writer for search progress output: stdout,
// with trial verdict markers colorized when stdout is a terminal.
func newConsole() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return &colorWriter{out: os.Stdout}
	}
	return os.Stdout
}

// colorWriter colorizes the recorder's verdict markers. The recorder
// writes each marker as its own Write call, so plain byte replacement
// is enough; everything else passes through untouched.
type colorWriter struct {
	out io.Writer
}

func (w *colorWriter) Write(p []byte) (int, error) {
	colored := p
	switch {
	case bytes.Contains(p, []byte("[OK]")):
		colored = bytes.Replace(p, []byte("[OK]"), []byte(ansiGreen+"[OK]"+ansiReset), 1)
	case bytes.Contains(p, []byte("[FAIL]")):
		colored = bytes.Replace(p, []byte("[FAIL]"), []byte(ansiRed+"[FAIL]"+ansiReset), 1)
	}
	if _, err := w.out.Write(colored); err != nil {
		return 0, err
	}
	// Report the caller's byte count, not the expanded one.
	return len(p), nil
}
