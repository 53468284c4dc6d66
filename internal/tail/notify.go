package tail

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultRecheck is the fallback recheck cadence for a NotifySource when
// no poll interval is configured. Notifications can be lost (overflowed
// kernel queues, unwatchable edge cases during rotation), so the source
// always wakes at least this often.
const defaultRecheck = time.Second

// NotifySource wakes on filesystem notifications for one path. It watches
// the parent directory rather than the path itself: a rotation replaces
// the watched file, and a watch on the old inode would go quiet exactly
// when the interesting events (Create, Rename, Remove) happen. Events for
// other entries in the directory are filtered out by name.
type NotifySource struct {
	base    string
	watcher *fsnotify.Watcher
	recheck *time.Ticker
	log     *slog.Logger
}

// NewNotifySource subscribes to change notifications for path, which must
// be absolute and resolved. recheck sets the lost-notification safety
// cadence; at or below zero it defaults to one second. The returned error
// is a capability decision for the caller: on platforms or filesystems
// where fsnotify cannot watch, fall back to polling.
func NewNotifySource(path string, recheck time.Duration, log *slog.Logger) (*NotifySource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if recheck <= 0 {
		recheck = defaultRecheck
	}
	return &NotifySource{
		base:    filepath.Base(path),
		watcher: watcher,
		recheck: time.NewTicker(recheck),
		log:     log,
	}, nil
}

// Wait blocks until a notification for the path arrives, the recheck
// ticker fires, or ctx ends. Notifications for sibling directory entries
// are skipped without waking the follower; watcher errors are logged and
// likewise do not wake it.
func (n *NotifySource) Wait(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				// Watcher closed under us; the recheck ticker still
				// drives the follower.
				return n.waitTick(ctx)
			}
			if filepath.Base(ev.Name) != n.base {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
				ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) ||
				ev.Has(fsnotify.Chmod) {
				return nil
			}
		case err, ok := <-n.watcher.Errors:
			if ok && err != nil {
				n.log.Warn("file watcher error", "file", n.base, "error", err)
			}
		case <-n.recheck.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waitTick blocks on the recheck ticker alone.
func (n *NotifySource) waitTick(ctx context.Context) error {
	select {
	case <-n.recheck.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the recheck ticker and the underlying watcher.
func (n *NotifySource) Close() error {
	n.recheck.Stop()
	return n.watcher.Close()
}
