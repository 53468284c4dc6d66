package tail

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// backfill reads the content already present in f when a watch attaches
// and returns the lines to replay plus the offset where following should
// resume. max bounds the replay: negative replays everything, zero
// replays nothing (attach at end), and a positive value replays the last
// max complete lines.
//
// A non-terminated final segment is never replayed as a line; it is left
// in buf as the pending fragment so the first append after attach
// completes it, exactly as if the watch had been running all along.
//
// f must be positioned at the start. In bounded mode individual lines are
// capped at 1MB (the scanner limit); unbounded mode has no per-line cap.
func backfill(f *os.File, buf *LineBuffer, max int) ([]Line, int64, error) {
	if max == 0 {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek to end: %w", err)
		}
		return nil, end, nil
	}

	if max < 0 {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, 0, fmt.Errorf("read existing content: %w", err)
		}
		return buf.Feed(data), int64(len(data)), nil
	}

	// Bounded replay: ring-scan so memory stays proportional to the bound,
	// not to the file. A file of size S holds at most S lines, so the ring
	// is also capped by the current size; an oversized max neither drives
	// the allocation nor overflows max+1. One extra slot holds a possibly
	// non-terminated final segment, which is set aside rather than counted
	// against max.
	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat before scan: %w", err)
	}
	slots := max
	if size := info.Size(); size < int64(slots) {
		slots = int(size)
	}
	ring := make([]string, slots+1)
	count := 0
	idx := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % len(ring)
		if count < len(ring) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan existing content: %w", err)
	}

	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("offset after scan: %w", err)
	}

	// The scanner returns a final segment even without a newline; detect
	// that case from the file's last byte and divert the segment into the
	// pending fragment instead of the replay.
	if count > 0 && end > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, end-1); err != nil {
			return nil, 0, fmt.Errorf("read final byte: %w", err)
		}
		if last[0] != '\n' {
			idx = (idx - 1 + len(ring)) % len(ring)
			buf.Feed([]byte(ring[idx]))
			count--
		}
	}

	if count > max {
		idx = (idx - count + len(ring)) % len(ring) // oldest retained slot
		idx = (idx + (count - max)) % len(ring)     // skip past the excess
		count = max
	} else {
		idx = (idx - count + len(ring)) % len(ring)
	}

	lines := make([]Line, 0, count)
	for i := 0; i < count; i++ {
		lines = append(lines, decodeLine([]byte(ring[(idx+i)%len(ring)])))
	}
	return lines, end, nil
}
