// Package signal maps frame indices to wall-clock time and answers whether
// the traffic signal is red at a given frame.
package signal

import (
	"encoding/json"
	"os"
	"time"

	"github.com/redgate-data/violation.report/internal/monitoring"
)

// Interval is a single red-light period.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval, boundaries included.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

type intervalFile struct {
	RedIntervals []Interval `json:"red_intervals"`
}

// LoadIntervals reads red-light intervals from a JSON document of the form
// {"red_intervals": [{"start": ..., "end": ...}, ...]} with ISO-8601
// timestamps. Malformed or missing input degrades to an empty interval set
// rather than failing the run; the pipeline then treats the period as never
// red unless force-red is set.
func LoadIntervals(path string) []Interval {
	data, err := os.ReadFile(path)
	if err != nil {
		monitoring.Logf("signal: cannot read interval file %s: %v", path, err)
		return nil
	}

	var doc intervalFile
	if err := json.Unmarshal(data, &doc); err != nil {
		monitoring.Logf("signal: cannot parse interval file %s: %v", path, err)
		return nil
	}

	// An interval missing either bound, or with end before start, fails
	// validation for the whole document, matching the strict schema check
	// upstream producers rely on.
	for _, iv := range doc.RedIntervals {
		if iv.Start.IsZero() || iv.End.IsZero() || iv.End.Before(iv.Start) {
			monitoring.Logf("signal: interval file %s failed validation", path)
			return nil
		}
	}

	monitoring.Logf("signal: loaded %d red intervals from %s", len(doc.RedIntervals), path)
	return doc.RedIntervals
}

// Timeline maps elapsed frame indices to wall-clock timestamps and resolves
// the red/green state for each frame.
type Timeline struct {
	start     time.Time
	fps       float64
	forceRed  bool
	intervals []Interval
}

// NewTimeline creates a Timeline anchored at start. A non-positive fps falls
// back to 30.
func NewTimeline(start time.Time, fps float64, forceRed bool, intervals []Interval) *Timeline {
	if fps <= 0 {
		fps = 30.0
	}
	return &Timeline{
		start:     start,
		fps:       fps,
		forceRed:  forceRed,
		intervals: intervals,
	}
}

// TimeAt returns the wall-clock timestamp of the given frame index.
func (tl *Timeline) TimeAt(frameIndex int64) time.Time {
	offset := time.Duration(float64(frameIndex) / tl.fps * float64(time.Second))
	return tl.start.Add(offset)
}

// IsRed reports whether the signal is red at the given frame index: either
// force-red is set, or the frame's timestamp falls inside a red interval.
func (tl *Timeline) IsRed(frameIndex int64) bool {
	if tl.forceRed {
		return true
	}
	t := tl.TimeAt(frameIndex)
	for _, iv := range tl.intervals {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

// FPS returns the timeline's frame rate.
func (tl *Timeline) FPS() float64 {
	return tl.fps
}
