package tail

import (
	"context"
	"time"
)

// minPollInterval is the floor for polling cadence. An interval of zero
// means "do not throttle", which a poller realizes as this floor rather
// than a busy loop.
const minPollInterval = 10 * time.Millisecond

// Source is a per-file wakeup primitive: Wait blocks until the file may
// have new data, until a periodic recheck fires, or until ctx ends. A
// wakeup is a hint, never a measurement. The follower always stats the
// path and re-reads from its own offset to end-of-file afterwards, so
// coalesced or lost wakeups cannot lose data.
type Source interface {
	// Wait blocks until the file may have changed. It returns ctx.Err()
	// when ctx ends and nil otherwise.
	Wait(ctx context.Context) error
	// Close releases the source's resources. Wait must not be called
	// after Close.
	Close() error
}

// PollSource wakes on a fixed ticker, the strategy of last resort that
// works on every platform and filesystem.
type PollSource struct {
	ticker *time.Ticker
}

// NewPollSource returns a Source that wakes every interval. Intervals at
// or below zero are clamped to a 10ms floor.
func NewPollSource(interval time.Duration) *PollSource {
	if interval <= 0 {
		interval = minPollInterval
	}
	return &PollSource{ticker: time.NewTicker(interval)}
}

// Wait blocks until the next tick or until ctx ends.
func (p *PollSource) Wait(ctx context.Context) error {
	select {
	case <-p.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the ticker.
func (p *PollSource) Close() error {
	p.ticker.Stop()
	return nil
}
