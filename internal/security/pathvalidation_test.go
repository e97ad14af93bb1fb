package security

import (
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safe := t.TempDir()

	if err := ValidatePathWithinDirectory(filepath.Join(safe, "a.jpg"), safe); err != nil {
		t.Errorf("Path inside safe dir rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(safe, "sub", "a.jpg"), safe); err != nil {
		t.Errorf("Nested path rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(safe, "..", "escape.jpg"), safe); err == nil {
		t.Error("Parent escape accepted")
	}
	if err := ValidatePathWithinDirectory("/etc/passwd", safe); err == nil {
		t.Error("Absolute escape accepted")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABC1234", "ABC1234"},
		{"ABC 12/34", "ABC_12_34"},
		{"../../../etc", "etc"},
		{"", "unknown"},
		{"///", "unknown"},
		{"a..b", "a..b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
