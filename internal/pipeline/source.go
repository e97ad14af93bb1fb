package pipeline

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redgate-data/violation.report/internal/evidence"
	"github.com/redgate-data/violation.report/internal/signal"
)

// FixtureFrameSource replays frames recorded as JSON lines:
//
//	{"index": 12, "data_base64": "..."}
//
// Frame payloads are optional; fixtures driving detection-only tests can omit
// them. Timestamps are derived from the timeline, not stored in the fixture.
type FixtureFrameSource struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

type fixtureFrame struct {
	Index      int64  `json:"index"`
	DataBase64 string `json:"data_base64,omitempty"`
}

// OpenFixtureFrameSource opens a frame fixture. An unopenable source is a
// fatal condition: the run must not start.
func OpenFixtureFrameSource(path string) (*FixtureFrameSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame source: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &FixtureFrameSource{f: f, scanner: scanner}, nil
}

func (s *FixtureFrameSource) Next(ctx context.Context) (evidence.Frame, error) {
	for s.scanner.Scan() {
		s.line++
		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ff fixtureFrame
		if err := json.Unmarshal(raw, &ff); err != nil {
			return evidence.Frame{}, fmt.Errorf("frame fixture line %d: %w", s.line, err)
		}
		frame := evidence.Frame{Index: ff.Index}
		if ff.DataBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(ff.DataBase64)
			if err != nil {
				return evidence.Frame{}, fmt.Errorf("frame fixture line %d: %w", s.line, err)
			}
			frame.Data = data
		}
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return evidence.Frame{}, err
	}
	s.f.Close()
	return evidence.Frame{}, io.EOF
}

// SyntheticFrameSource produces count placeholder frames with timeline-derived
// timestamps. Used in dev mode when no recorded footage is available.
type SyntheticFrameSource struct {
	timeline *signal.Timeline
	count    int64
	next     int64
}

// NewSyntheticFrameSource creates a source yielding count frames.
func NewSyntheticFrameSource(timeline *signal.Timeline, count int64) *SyntheticFrameSource {
	return &SyntheticFrameSource{timeline: timeline, count: count}
}

func (s *SyntheticFrameSource) Next(ctx context.Context) (evidence.Frame, error) {
	if s.next >= s.count {
		return evidence.Frame{}, io.EOF
	}
	idx := s.next
	s.next++
	return evidence.Frame{
		Index:     idx,
		Data:      []byte(fmt.Sprintf("synthetic-frame-%d", idx)),
		Timestamp: s.timeline.TimeAt(idx),
	}, nil
}
