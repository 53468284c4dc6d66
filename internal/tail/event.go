package tail

import "time"

// Kind classifies the events a follower emits. Regular file content is
// KindLine; the other kinds are synthetic notices that ride the same
// per-file ordered stream so consumers never have to merge two channels.
type Kind int

const (
	// KindLine is a complete decoded line appended to the file.
	KindLine Kind = iota
	// KindTruncated reports that the file shrank in place. The event text
	// describes the size change; no file content is carried.
	KindTruncated
	// KindHeartbeat reports how long the file has produced no new output.
	KindHeartbeat
	// KindDone is the final event for a file whose follower stopped on its
	// own (typically because the file was removed). It is not emitted on
	// engine-wide cancellation.
	KindDone
)

// String returns the kind name used in logs and test failures.
func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindTruncated:
		return "truncated"
	case KindHeartbeat:
		return "heartbeat"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one item of a follower's output stream. Events for the same
// path are strictly ordered by the order bytes were written to the file;
// events for different paths carry no ordering relationship.
type Event struct {
	Path string
	Kind Kind

	// Text is the decoded, newline-stripped line for KindLine, or a short
	// human-readable note for the synthetic kinds.
	Text string

	// Time is when the event was emitted, not when the bytes were written.
	Time time.Time

	// Backfill marks lines replayed from content that existed before the
	// watch attached. LastMod carries the file's modification time at
	// attach so renderers can flag stale context.
	Backfill bool
	LastMod  time.Time

	// Fallback marks a line that was not valid UTF-8 and was decoded with
	// the byte-preserving Latin-1 fallback instead.
	Fallback bool

	// Idle is the elapsed time since the file last produced output.
	// KindHeartbeat only.
	Idle time.Duration

	// Err is why the follower stopped. KindDone only; nil when the stop
	// was orderly.
	Err error
}
