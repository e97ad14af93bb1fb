// Package evidence retains a bounded window of recent frames and assembles
// violation artifacts (snapshots and clips) from it.
package evidence

import (
	"sort"
	"time"
)

// Frame is one rendered frame as an opaque encoded payload. The pipeline
// never decodes frame data; it only moves it between the window and the
// artifact store.
type Frame struct {
	Index     int64
	Data      []byte
	Timestamp time.Time
}

// Window is a capacity-bounded retention buffer of frames keyed by frame
// index. Insertion past capacity evicts the entry with the smallest frame
// index, so the buffer is FIFO by index regardless of access order. The
// window never grows beyond its capacity no matter how long the run is.
type Window struct {
	capacity int
	frames   map[int64]Frame
}

// NewWindow creates a window retaining at most capacity frames. Capacities
// below 1 are clamped to 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		frames:   make(map[int64]Frame, capacity),
	}
}

// Push inserts a frame. If the window is over capacity afterwards, the frame
// with the smallest index is evicted.
func (w *Window) Push(f Frame) {
	w.frames[f.Index] = f
	for len(w.frames) > w.capacity {
		oldest := int64(0)
		first := true
		for idx := range w.frames {
			if first || idx < oldest {
				oldest = idx
				first = false
			}
		}
		delete(w.frames, oldest)
	}
}

// ExtractClip returns, in ascending frame-index order, every retained frame
// with index in [center-half, center+half]. Frames already evicted are simply
// absent, so the clip may be shorter than requested.
func (w *Window) ExtractClip(center, half int64) []Frame {
	lo := center - half
	hi := center + half

	var clip []Frame
	for idx, f := range w.frames {
		if idx >= lo && idx <= hi {
			clip = append(clip, f)
		}
	}
	sort.Slice(clip, func(i, j int) bool { return clip[i].Index < clip[j].Index })
	return clip
}

// Frame returns the retained frame at the given index, if present.
func (w *Window) Frame(index int64) (Frame, bool) {
	f, ok := w.frames[index]
	return f, ok
}

// Len returns the number of retained frames.
func (w *Window) Len() int {
	return len(w.frames)
}

// Capacity returns the configured retention capacity.
func (w *Window) Capacity() int {
	return w.capacity
}
