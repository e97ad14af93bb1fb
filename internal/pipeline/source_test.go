package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redgate-data/violation.report/internal/signal"
)

func TestFixtureFrameSource(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("jpeg"))
	contents := fmt.Sprintf(`{"index": 0, "data_base64": %q}
{"index": 1}
`, payload)
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	src, err := OpenFixtureFrameSource(path)
	if err != nil {
		t.Fatalf("OpenFixtureFrameSource failed: %v", err)
	}

	f, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Index != 0 || string(f.Data) != "jpeg" {
		t.Errorf("First frame = %+v", f)
	}

	f, err = src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Index != 1 || f.Data != nil {
		t.Errorf("Second frame = %+v", f)
	}

	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after exhaustion = %v, want io.EOF", err)
	}
}

func TestFixtureFrameSourceUnopenable(t *testing.T) {
	if _, err := OpenFixtureFrameSource("does-not-exist.jsonl"); err == nil {
		t.Error("Expected error for missing frame source")
	}
}

func TestSyntheticFrameSource(t *testing.T) {
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tl := signal.NewTimeline(start, 30.0, false, nil)
	src := NewSyntheticFrameSource(tl, 2)

	f, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Index != 0 || !f.Timestamp.Equal(start) {
		t.Errorf("First frame = %+v", f)
	}

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after count = %v, want io.EOF", err)
	}
}
