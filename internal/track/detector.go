// Package track holds per-track crossing detection over a stop line, plus the
// per-track lifecycle arena that enforces at-most-one violation per track.
package track

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultHistoryDepth is how many recent positions are kept per track.
const DefaultHistoryDepth = 5

// Point is an image-plane position in pixels.
type Point struct {
	X float64
	Y float64
}

// BoundingBox is an axis-aligned detection box in pixel coordinates.
type BoundingBox struct {
	X1, Y1, X2, Y2 int
}

// Centroid returns the bottom-centre of the box. The bottom edge is the part
// of a vehicle closest to the road surface, which is what actually crosses
// the stop line.
func (b BoundingBox) Centroid() Point {
	return Point{
		X: float64(b.X1+b.X2) / 2,
		Y: float64(b.Y2),
	}
}

// Detection is one tracker observation for a frame: a persistent track id and
// its bounding box.
type Detection struct {
	TrackID int64
	Box     BoundingBox
}

// StopLine is the configured stop line, given by its two endpoints.
type StopLine struct {
	X1, Y1, X2, Y2 float64
}

// ThresholdY is the single representative crossing boundary: the average of
// the endpoint y-coordinates. Non-horizontal lines are not geometrically
// modelled; this approximation holds for the roughly horizontal lines of
// typical installs.
func (l StopLine) ThresholdY() float64 {
	return (l.Y1 + l.Y2) / 2
}

// ParseStopLine parses a "x1,y1,x2,y2" coordinate string.
func ParseStopLine(s string) (StopLine, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return StopLine{}, fmt.Errorf("stop line must have 4 coordinates (x1,y1,x2,y2), got %q", s)
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return StopLine{}, fmt.Errorf("invalid stop line coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	return StopLine{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}, nil
}

// Observation is one recorded position of a track.
type Observation struct {
	FrameIndex int64
	Centroid   Point
}

// Detector keeps a short per-track position history and decides whether a
// track has just crossed the stop line. It is stateless with respect to
// whether a track has already been logged; the caller suppresses further
// evaluation after the first positive result.
type Detector struct {
	depth   int
	history map[int64][]Observation
}

// NewDetector creates a Detector keeping at most depth positions per track.
// Depth values below 2 fall back to the default.
func NewDetector(depth int) *Detector {
	if depth < 2 {
		depth = DefaultHistoryDepth
	}
	return &Detector{
		depth:   depth,
		history: make(map[int64][]Observation),
	}
}

// Observe appends the track's position for this frame, evicting the oldest
// entry once the history is full.
func (d *Detector) Observe(trackID, frameIndex int64, centroid Point) {
	h := append(d.history[trackID], Observation{FrameIndex: frameIndex, Centroid: centroid})
	if len(h) > d.depth {
		h = h[1:]
	}
	d.history[trackID] = h
}

// Evaluate reports whether the track has just crossed the stop line: the
// light is red, the track has at least two recorded positions, the previous
// centroid was before or on the threshold, and the current centroid is past
// it. A centroid exactly on the line counts as "before or on" and never as
// "past", so a boundary-exact frame cannot itself trigger a crossing.
func (d *Detector) Evaluate(trackID int64, current Point, line StopLine, isRed bool) bool {
	if !isRed {
		return false
	}

	h := d.history[trackID]
	if len(h) < 2 {
		return false
	}

	thresholdY := line.ThresholdY()
	prev := h[len(h)-2].Centroid

	wasBeforeOrOn := prev.Y <= thresholdY
	isPast := current.Y > thresholdY

	return wasBeforeOrOn && isPast
}

// History returns a copy of the recorded positions for a track.
func (d *Detector) History(trackID int64) []Observation {
	h := d.history[trackID]
	out := make([]Observation, len(h))
	copy(out, h)
	return out
}

// TrackCount returns how many tracks currently have recorded history.
func (d *Detector) TrackCount() int {
	return len(d.history)
}
