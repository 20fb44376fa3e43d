// Package debounce turns sampled switch lines into press and release edges.
package debounce

import "time"

// Interval is the minimum time between two accepted transitions of one switch
const Interval = 50 * time.Millisecond

// Edge is the transition a switch made during one scan
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgePress
	EdgeRelease
)

func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	}
	return "none"
}

type line struct {
	state    bool
	changed  time.Time
	accepted bool // a transition has been accepted at least once
}

// Detector filters N switch lines. It is not safe for concurrent use; the
// scan loop owns it.
type Detector struct {
	lines    []line
	interval time.Duration
}

// New creates a detector for n lines, all released
func New(n int) *Detector {
	return &Detector{lines: make([]line, n), interval: Interval}
}

// Update feeds one scan of raw line states (true = pressed) and returns the
// edge each line produced. Entries beyond the detector's size are ignored;
// missing entries read as released.
func (d *Detector) Update(now time.Time, raw []bool) []Edge {
	edges := make([]Edge, len(d.lines))
	for i := range d.lines {
		pressed := i < len(raw) && raw[i]
		l := &d.lines[i]
		if pressed == l.state {
			continue
		}
		if l.accepted && now.Sub(l.changed) < d.interval {
			continue
		}
		l.state = pressed
		l.changed = now
		l.accepted = true
		if pressed {
			edges[i] = EdgePress
		} else {
			edges[i] = EdgeRelease
		}
	}
	return edges
}

// State reports the accepted state of line i
func (d *Detector) State(i int) bool {
	return i >= 0 && i < len(d.lines) && d.lines[i].state
}

// Len returns the number of lines
func (d *Detector) Len() int { return len(d.lines) }
