package validation

import (
	"testing"
)

func TestValidatePassName(t *testing.T) {
	tests := []struct {
		name     string
		passName string
		wantErr  bool
	}{
		// Valid names
		{"simple", "adce", false},
		{"single char", "a", false},
		{"hyphenated", "dead-code-elim", false},
		{"with digit", "loop-unroll2", false},
		{"dotted", "msan.module", false},
		{"underscore", "print_drti", false},
		{"mixed", "CrossDSOCFI", false},

		// Invalid names - injection attempts
		{"empty", "", true},
		{"comma smuggling", "adce,licm", true},
		{"shell injection", "adce;rm -rf /", true},
		{"subshell", "$(reboot)", true},
		{"backtick", "`id`", true},
		{"newline injection", "adce\nlicm", true},
		{"spaces", "dead code elim", true},
		{"angle params", "loop-unroll<O2>", true},
		{"quote", `adce"`, true},
		{"starts with dot", ".adce", true},
		{"starts with hyphen", "-adce", true},
		{"too long", strRepeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassName(tt.passName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassName(%q) error = %v, wantErr %v", tt.passName, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassNames(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{"all valid", []string{"adce", "licm", "gvn"}, false},
		{"one invalid", []string{"adce", "bad name", "gvn"}, true},
		{"all invalid", []string{";", "a b"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassNames(tt.names)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassNames(%v) error = %v, wantErr %v", tt.names, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizePassName(t *testing.T) {
	tests := []struct {
		name     string
		passName string
		want     string
		wantErr  bool
	}{
		{"passthrough", "adce", "adce", false},
		{"with spaces trimmed", "  adce  ", "adce", false},
		{"trailing newline trimmed", "adce\n", "adce", false},
		{"invalid rejected", "bad name", "", true},
		{"empty rejected", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePassName(tt.passName)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizePassName(%q) error = %v, wantErr %v", tt.passName, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizePassName(%q) = %q, want %q", tt.passName, got, tt.want)
			}
		})
	}
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
