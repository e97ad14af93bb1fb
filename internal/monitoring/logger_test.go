package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var captured []string
	SetLogger(func(format string, v ...interface{}) {
		captured = append(captured, fmt.Sprintf(format, v...))
	})

	Logf("violation logged for plate %s", "ABC123")
	if len(captured) != 1 || captured[0] != "violation logged for plate ABC123" {
		t.Errorf("captured = %v, want one formatted message", captured)
	}

	// Nil installs a no-op logger rather than panicking.
	SetLogger(nil)
	Logf("dropped")
	if len(captured) != 1 {
		t.Errorf("no-op logger should not capture, got %v", captured)
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
