// Package output provides terminal output for watchlogs.
//
// The Console renderer writes one line per event and adjusts its chrome to
// the destination: heartbeat notices are shown only when writing to a real
// terminal, so piped or redirected output carries log lines and their
// notices, nothing else.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/watchlogs/internal/tail"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Console renders the event stream to a single destination.
// It is safe for use from multiple goroutines.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
	tty    bool
}

// NewConsole creates a console writing to stdout.
func NewConsole() *Console {
	return &Console{
		writer: os.Stdout,
		tty:    writerIsTTY(os.Stdout),
	}
}

// SetWriter sets the output writer (useful for testing). TTY detection is
// re-evaluated for the new destination.
func (c *Console) SetWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer = w
	c.tty = writerIsTTY(w)
}

// Render writes one event in its line format:
//
//	path >>> text
//	[stale log] (Mon Jan  2 15:04:05 2006): path >>> text
//	[truncated] path >>> note
//	[heartbeat] path >>> no new output for 30s
//	[stopped] path >>> reason
//
// Replayed lines from before the watch started carry the stale-log prefix
// with the file's last write time, so old output is not mistaken for new.
// Heartbeats are dropped when the destination is not a TTY.
func (c *Console) Render(ev tail.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case tail.KindLine:
		if ev.Backfill {
			fmt.Fprintf(c.writer, "[stale log] (%s): %s >>> %s\n", ev.LastMod.Format(time.ANSIC), ev.Path, ev.Text)
			return
		}
		fmt.Fprintf(c.writer, "%s >>> %s\n", ev.Path, ev.Text)
	case tail.KindTruncated:
		fmt.Fprintf(c.writer, "[truncated] %s >>> %s\n", ev.Path, ev.Text)
	case tail.KindHeartbeat:
		if c.tty {
			fmt.Fprintf(c.writer, "[heartbeat] %s >>> %s\n", ev.Path, ev.Text)
		}
	case tail.KindDone:
		fmt.Fprintf(c.writer, "[stopped] %s >>> %s\n", ev.Path, ev.Text)
	}
}
