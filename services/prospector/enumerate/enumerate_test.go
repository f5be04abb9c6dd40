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

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/AleutianAI/PassProspector/services/prospector/pipeline"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// =============================================================================
// ParsePassList Tests
// =============================================================================

func TestParsePassList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain names",
			in:   "adce\nlicm\ngvn\n",
			want: []string{"adce", "licm", "gvn"},
		},
		{
			name: "section headers dropped",
			in:   "Module passes:\nadce\nFunction passes:\nlicm\n",
			want: []string{"adce", "licm"},
		},
		{
			name: "parameters stripped",
			in:   "loop-unroll<O2>\nsimplifycfg<bonus-inst-threshold=N>\n",
			want: []string{"loop-unroll", "simplifycfg"},
		},
		{
			name: "parameterized variants deduplicated",
			in:   "loop-unroll<O1>\nloop-unroll<O2>\nloop-unroll\n",
			want: []string{"loop-unroll"},
		},
		{
			name: "blank lines and indentation",
			in:   "\n  adce\n\n\tlicm\n  \n",
			want: []string{"adce", "licm"},
		},
		{
			name: "empty input",
			in:   "",
			want: []string{},
		},
		{
			name: "only headers",
			in:   "Module passes:\nFunction passes:\n",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePassList([]byte(tt.in))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePassList() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// CommandEnumerator Tests
// =============================================================================

func TestCommandEnumerator_Enumerate(t *testing.T) {
	requireShell(t)

	e := NewCommandEnumerator(
		`printf 'Module passes:\n  adce\n  loop-unroll<O2>\n  licm\n'`,
		0, nil)

	passes, err := e.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	want := []pipeline.Pass{"adce", "loop-unroll", "licm"}
	if !reflect.DeepEqual(passes, want) {
		t.Errorf("Enumerate() = %v, want %v", passes, want)
	}
}

func TestCommandEnumerator_NilContext(t *testing.T) {
	e := NewCommandEnumerator("true", 0, nil)
	//nolint:staticcheck // deliberately passing nil to exercise the guard
	_, err := e.Enumerate(nil)
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("error = %v, want ErrNilContext", err)
	}
}

func TestCommandEnumerator_CommandFails(t *testing.T) {
	requireShell(t)

	e := NewCommandEnumerator("echo doomed >&2; exit 3", 0, nil)
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrListFailed) {
		t.Fatalf("error = %v, want ErrListFailed", err)
	}
}

func TestCommandEnumerator_EmptyOutput(t *testing.T) {
	requireShell(t)

	e := NewCommandEnumerator("true", 0, nil)
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrNoPasses) {
		t.Fatalf("error = %v, want ErrNoPasses", err)
	}
}

func TestCommandEnumerator_InvalidName(t *testing.T) {
	requireShell(t)

	// A name with an embedded space cannot be forwarded safely.
	e := NewCommandEnumerator(`printf 'adce\nbad name\n'`, 0, nil)
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrInvalidPassName) {
		t.Fatalf("error = %v, want ErrInvalidPassName", err)
	}
}

func TestCommandEnumerator_Timeout(t *testing.T) {
	requireShell(t)

	e := NewCommandEnumerator("sleep 10", 50*time.Millisecond, nil)
	start := time.Now()
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrListFailed) {
		t.Fatalf("error = %v, want ErrListFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v, the command was not killed", elapsed)
	}
}

func TestNewCommandEnumerator_Defaults(t *testing.T) {
	e := NewCommandEnumerator("", 0, nil)
	if e.command != DefaultListCommand {
		t.Errorf("command = %q, want %q", e.command, DefaultListCommand)
	}
	if e.timeout != DefaultListTimeout {
		t.Errorf("timeout = %v, want %v", e.timeout, DefaultListTimeout)
	}
	if e.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

// =============================================================================
// StaticEnumerator Tests
// =============================================================================

func TestStaticEnumerator(t *testing.T) {
	e := &StaticEnumerator{Passes: []pipeline.Pass{"adce", "licm"}}

	got, err := e.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	// Mutating the result must not reach the enumerator's list.
	got[0] = "mutated"
	again, _ := e.Enumerate(context.Background())
	if again[0] != "adce" {
		t.Error("Enumerate() should return a copy")
	}
}

func TestStaticEnumerator_Empty(t *testing.T) {
	e := &StaticEnumerator{}
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrNoPasses) {
		t.Errorf("error = %v, want ErrNoPasses", err)
	}
}

// =============================================================================
// FileEnumerator Tests
// =============================================================================

func TestFileEnumerator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passes.txt")
	content := "# curated subset\nadce\n\nlicm\nadce\n   gvn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	e := &FileEnumerator{Path: path}
	got, err := e.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	want := []pipeline.Pass{"adce", "licm", "gvn"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Enumerate() = %v, want %v", got, want)
	}
}

func TestFileEnumerator_MissingFile(t *testing.T) {
	e := &FileEnumerator{Path: filepath.Join(t.TempDir(), "nope.txt")}
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrListFailed) {
		t.Errorf("error = %v, want ErrListFailed", err)
	}
}

func TestFileEnumerator_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing here\n\n"), 0644); err != nil {
		t.Fatal(err)
	}

	e := &FileEnumerator{Path: path}
	_, err := e.Enumerate(context.Background())
	if !errors.Is(err, ErrNoPasses) {
		t.Errorf("error = %v, want ErrNoPasses", err)
	}
}
