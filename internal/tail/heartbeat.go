package tail

import "time"

// Heartbeat tracks how long one watched file has produced no new output.
// It is purely observational: Tick never blocks and never affects the
// line path. Owned by a single follower; not safe for concurrent use.
//
// A nil *Heartbeat is valid and inert, which is how followers run with
// heartbeats disabled.
type Heartbeat struct {
	interval time.Duration

	lastLine     string
	lastSeen     string
	lastActivity time.Time
	nextDue      time.Time
}

// NewHeartbeat returns a monitor reporting on the given cadence. The idle
// clock starts at now, so a file that never produces output still reports
// growing idleness from attach time.
func NewHeartbeat(interval time.Duration, now time.Time) *Heartbeat {
	return &Heartbeat{
		interval:     interval,
		lastActivity: now,
		nextDue:      now.Add(interval),
	}
}

// Observe records an emitted line and resets the idle clock.
func (h *Heartbeat) Observe(line string, now time.Time) {
	if h == nil {
		return
	}
	h.lastLine = line
	h.lastActivity = now
}

// Tick reports the elapsed idle time when a report is due: the cadence
// has passed and the most recent line is unchanged since the previous
// tick. When the line did change, the new text is recorded and nothing is
// reported.
func (h *Heartbeat) Tick(now time.Time) (time.Duration, bool) {
	if h == nil || now.Before(h.nextDue) {
		return 0, false
	}
	h.nextDue = now.Add(h.interval)
	if h.lastLine != h.lastSeen {
		h.lastSeen = h.lastLine
		return 0, false
	}
	return now.Sub(h.lastActivity), true
}
