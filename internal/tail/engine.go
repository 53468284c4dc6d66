package tail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrFileRemoved is the terminal condition for a follower whose file
// disappeared from the filesystem. Use errors.Is against Run's error.
var ErrFileRemoved = errors.New("file removed")

// Defaults for the engine's tunable knobs, shared with the config layer.
const (
	DefaultPollInterval      = time.Second
	DefaultBackfillLines     = -1
	DefaultHeartbeatInterval = 30 * time.Second
)

const (
	eventBufferSize   = 64
	readChunkSize     = 64 * 1024
	missingRetries    = 10
	missingRetryDelay = 100 * time.Millisecond
)

// Config carries the engine's recognized options.
type Config struct {
	// PollInterval is the inter-check delay: the polling cadence in poll
	// mode and the lost-notification recheck cadence in notify mode. Zero
	// disables throttling (notify mode becomes purely event-driven; poll
	// mode runs at a 10ms floor).
	PollInterval time.Duration

	// BackfillLines bounds the pre-existing content replayed when a watch
	// attaches: negative replays everything, zero attaches at the end,
	// a positive value replays the last N complete lines.
	BackfillLines int

	// Heartbeat enables per-file idle reports on the event stream.
	Heartbeat bool

	// HeartbeatInterval is the idle-report cadence; zero or below means
	// DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// ForcePoll skips filesystem notifications and always polls.
	ForcePoll bool

	// Halt is an optional cooperative-cancellation predicate, evaluated
	// once per follower loop iteration alongside the run context.
	Halt func() bool

	// Logger receives operational chatter (polling fallbacks, rotation,
	// reopen retries). Nil means discard.
	Logger *slog.Logger
}

// Engine follows a set of files concurrently and multiplexes their events
// onto one channel. Each file is owned by exactly one follower; followers
// share nothing but the event channel.
type Engine struct {
	cfg    Config
	paths  []string
	events chan Event
	log    *slog.Logger
}

// New resolves and registers the given paths. Paths are made absolute and
// symlink-free; a path that does not exist yet is created empty so an
// identity and a watch can be established. Two arguments naming the same
// resolved file are rejected.
func New(cfg Config, paths ...string) (*Engine, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Heartbeat && cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}

	resolved := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		rp, err := resolvePath(p)
		if err != nil {
			return nil, err
		}
		if seen[rp] {
			return nil, fmt.Errorf("duplicate watch path: %s resolves to %s", p, rp)
		}
		seen[rp] = true
		resolved = append(resolved, rp)
	}

	return &Engine{
		cfg:    cfg,
		paths:  resolved,
		events: make(chan Event, eventBufferSize),
		log:    cfg.Logger,
	}, nil
}

// Paths returns the resolved watch set, in registration order.
func (e *Engine) Paths() []string {
	out := make([]string, len(e.paths))
	copy(out, e.paths)
	return out
}

// Events returns the engine's output stream. The channel is closed after
// Run returns; consumers should range over it until then.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run follows every registered path until ctx is cancelled, the Halt
// predicate turns true, or each follower has hit a terminal condition of
// its own. It blocks until all followers have finished, then closes the
// event channel and returns the first follower error (nil after an
// orderly shutdown). One follower failing does not stop the others.
//
// With a single registered path the follower runs inline on the calling
// goroutine. Run must be called at most once; the caller must consume
// Events concurrently or events will stop flowing.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.events)

	if len(e.paths) == 1 {
		return e.follow(ctx, e.paths[0])
	}

	// Plain errgroup rather than WithContext: a failure in one follower
	// must not cancel the rest, only surface from Wait once all finish.
	var g errgroup.Group
	for _, path := range e.paths {
		path := path // per-iteration copy: the go directive is below 1.22
		g.Go(func() error { return e.follow(ctx, path) })
	}
	return g.Wait()
}

// halted reports whether followers should wind down.
func (e *Engine) halted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return e.cfg.Halt != nil && e.cfg.Halt()
}

// follow is one follower: attach, replay backfill, then loop until a
// terminal condition. It returns nil on orderly shutdown and the terminal
// error otherwise, after emitting a KindDone notice for the file.
func (e *Engine) follow(ctx context.Context, path string) error {
	w, err := e.attach(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		e.emit(ctx, Event{Path: path, Kind: KindDone, Text: err.Error(), Err: err, Time: time.Now()})
		return fmt.Errorf("%s: %w", path, err)
	}
	defer w.close()

	for {
		if e.halted(ctx) {
			return nil
		}
		if err := w.drain(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			note := err.Error()
			if errors.Is(err, ErrFileRemoved) {
				note = "file removed, stopped following"
			}
			e.emit(ctx, Event{Path: path, Kind: KindDone, Text: note, Err: err, Time: time.Now()})
			e.log.Warn("follower stopped", "file", path, "error", err)
			return fmt.Errorf("%s: %w", path, err)
		}
		if idle, due := w.hb.Tick(time.Now()); due {
			ev := Event{
				Path: path,
				Kind: KindHeartbeat,
				Text: fmt.Sprintf("no new output for %s", idle.Round(time.Second)),
				Idle: idle,
				Time: time.Now(),
			}
			if err := e.emit(ctx, ev); err != nil {
				return nil
			}
		}
		if err := w.src.Wait(ctx); err != nil {
			return nil
		}
	}
}

// follower is the per-file unit of work. Every field is owned exclusively
// by the goroutine running follow.
type follower struct {
	eng   *Engine
	path  string
	file  *os.File
	state *FileState
	buf   *LineBuffer
	hb    *Heartbeat
	src   Source
	chunk []byte
}

// attach opens the file, establishes its identity, replays backfill per
// the configuration, and selects the wakeup source.
func (e *Engine) attach(ctx context.Context, path string) (*follower, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	buf := &LineBuffer{}
	lines, end, err := backfill(f, buf, e.cfg.BackfillLines)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("backfill: %w", err)
	}
	state := NewFileState(info)
	state.SetOffset(end)

	var hb *Heartbeat
	if e.cfg.Heartbeat {
		hb = NewHeartbeat(e.cfg.HeartbeatInterval, time.Now())
		// Idle time before the first line counts from the file's last
		// write, not from attach time.
		last := ""
		if len(lines) > 0 {
			last = lines[len(lines)-1].Text
		}
		hb.Observe(last, info.ModTime())
	}

	w := &follower{
		eng:   e,
		path:  path,
		file:  f,
		state: state,
		buf:   buf,
		hb:    hb,
		src:   e.newSource(path),
		chunk: make([]byte, readChunkSize),
	}

	for _, line := range lines {
		ev := Event{
			Path:     path,
			Kind:     KindLine,
			Text:     line.Text,
			Fallback: line.Fallback,
			Backfill: true,
			LastMod:  info.ModTime(),
			Time:     time.Now(),
		}
		if err := e.emit(ctx, ev); err != nil {
			w.close()
			return nil, err
		}
	}
	return w, nil
}

// newSource picks notifications when available, polling otherwise. The
// choice is made once per file at attach, not per event.
func (e *Engine) newSource(path string) Source {
	if !e.cfg.ForcePoll {
		src, err := NewNotifySource(path, e.cfg.PollInterval, e.log)
		if err == nil {
			return src
		}
		e.log.Warn("filesystem notifications unavailable, falling back to polling",
			"file", path, "error", err)
	}
	return NewPollSource(e.cfg.PollInterval)
}

// emit delivers one event to the shared channel, giving up when ctx ends
// so an abandoned consumer cannot strand a follower.
func (e *Engine) emit(ctx context.Context, ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain brings the follower up to date with the file: classify the fresh
// stat, recover from rotation or truncation, then read from the stored
// offset to end-of-file and emit every completed line in order.
func (w *follower) drain(ctx context.Context) error {
	info, err := w.statPath(ctx)
	if err != nil {
		return err
	}

	prevOffset := w.state.Offset()
	switch w.state.Refresh(info) {
	case RotationRotated:
		w.buf.Reset()
		if err := w.reopen(ctx); err != nil {
			return err
		}
		w.eng.log.Info("file rotated, following replacement", "file", w.path)
	case RotationTruncated:
		w.buf.Reset()
		ev := Event{
			Path: w.path,
			Kind: KindTruncated,
			Text: fmt.Sprintf("file shrank from %d to %d bytes, resuming from new end", prevOffset, info.Size()),
			Time: time.Now(),
		}
		if err := w.eng.emit(ctx, ev); err != nil {
			return err
		}
	}

	if _, err := w.file.Seek(w.state.Offset(), io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	for {
		n, rerr := w.file.Read(w.chunk)
		if n > 0 {
			w.state.Advance(int64(n))
			now := time.Now()
			for _, line := range w.buf.Feed(w.chunk[:n]) {
				ev := Event{Path: w.path, Kind: KindLine, Text: line.Text, Fallback: line.Fallback, Time: now}
				if err := w.eng.emit(ctx, ev); err != nil {
					return err
				}
				w.hb.Observe(line.Text, now)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read: %w", rerr)
		}
	}
}

// statPath stats the watched path. Rotation schemes rename the old file
// away before the replacement appears, so a missing path is retried for a
// bounded window; only a path that stays gone is treated as removed.
func (w *follower) statPath(ctx context.Context) (os.FileInfo, error) {
	for attempt := 0; ; attempt++ {
		info, err := os.Stat(w.path)
		if err == nil {
			return info, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat: %w", err)
		}
		if attempt >= missingRetries {
			return nil, ErrFileRemoved
		}
		select {
		case <-time.After(missingRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// reopen swaps the handle to the file currently at the path after a
// rotation, with the same bounded retry as statPath for the window where
// the replacement has not appeared yet.
func (w *follower) reopen(ctx context.Context) error {
	w.file.Close()
	for attempt := 0; ; attempt++ {
		f, err := os.Open(w.path)
		if err == nil {
			w.file = f
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("reopen: %w", err)
		}
		if attempt >= missingRetries {
			return ErrFileRemoved
		}
		select {
		case <-time.After(missingRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close releases the follower's handle and wakeup source.
func (w *follower) close() {
	w.file.Close()
	w.src.Close()
}

// resolvePath normalizes a watch path: absolute, symlinks evaluated, and
// created empty when missing so that an identity and a watch exist from
// the start.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", abs, err)
		}
		f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", abs, err)
		}
		f.Close()
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks for %s: %w", abs, err)
	}
	return resolved, nil
}
