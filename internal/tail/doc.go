// Package tail implements a multi-file tail-follow engine: given a set of
// log paths, it emits every newly appended line as a per-file ordered
// event stream, surviving rotation and truncation along the way.
//
// Each watched file is owned by one follower, which holds the open handle,
// the read offset, the device+inode identity, and the partial-line buffer
// for that file. Followers share nothing except the engine's buffered
// event channel. A follower wakes on filesystem notifications when the
// platform supports them (with a periodic recheck as a safety net against
// lost notifications) and falls back to plain polling otherwise; either
// way it re-reads from its own offset to end-of-file on every wakeup, so
// coalesced notifications never lose data.
//
// Rotation is detected by the identity under the path changing, truncation
// by the size dropping below the read offset. Both clear the partial-line
// buffer; rotation reopens the handle and restarts at offset zero,
// truncation emits a synthetic notice and resumes at the new end. Lines
// that are not valid UTF-8 are decoded with a byte-preserving Latin-1
// fallback rather than dropped.
//
// Key behaviors:
//   - Per-file ordering: events for one file always match write order
//   - Attach backfill: all, none, or the last N pre-existing lines
//   - Idle heartbeats: periodic reports of how long a file has been quiet
//   - Missing files terminate only their own follower, with a final notice
//   - Cooperative shutdown via context plus an optional halt predicate
//
// Example usage:
//
//	eng, err := tail.New(tail.Config{
//		PollInterval:  time.Second,
//		BackfillLines: -1,
//		Heartbeat:     true,
//	}, "/var/log/app.log", "/var/log/worker.log")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	go func() {
//		for ev := range eng.Events() {
//			fmt.Printf("%s >>> %s\n", ev.Path, ev.Text)
//		}
//	}()
//
//	if err := eng.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package tail
