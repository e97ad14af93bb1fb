package track

// Status is the lifecycle state of a track within one pipeline run.
type Status int

const (
	// StatusNotSeen means the tracker has never reported this id.
	StatusNotSeen Status = iota
	// StatusTracking means the track has history but no logged violation.
	StatusTracking
	// StatusLogged means a violation has been emitted for this track.
	// The state is permanent for the rest of the run.
	StatusLogged
)

func (s Status) String() string {
	switch s {
	case StatusNotSeen:
		return "not_seen"
	case StatusTracking:
		return "tracking"
	case StatusLogged:
		return "logged"
	default:
		return "unknown"
	}
}

// Arena records the lifecycle status of every track id seen during a run.
// It is what makes "at most one violation per track" an explicit state
// transition rather than a side effect of the crossing inequality: once a
// track reaches StatusLogged no transition out exists.
type Arena struct {
	states map[int64]Status
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{states: make(map[int64]Status)}
}

// Status returns the current state of a track id.
func (a *Arena) Status(trackID int64) Status {
	return a.states[trackID]
}

// MarkTracking moves a not-seen track to tracking. Logged tracks stay logged.
func (a *Arena) MarkTracking(trackID int64) {
	if a.states[trackID] == StatusNotSeen {
		a.states[trackID] = StatusTracking
	}
}

// MarkLogged permanently marks a track as having produced a violation.
func (a *Arena) MarkLogged(trackID int64) {
	a.states[trackID] = StatusLogged
}

// Logged reports whether the track has already produced a violation.
func (a *Arena) Logged(trackID int64) bool {
	return a.states[trackID] == StatusLogged
}

// LoggedCount returns how many tracks have produced a violation.
func (a *Arena) LoggedCount() int {
	n := 0
	for _, s := range a.states {
		if s == StatusLogged {
			n++
		}
	}
	return n
}
