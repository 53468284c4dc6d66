package tail

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Line is one complete line reassembled by a LineBuffer. Fallback is set
// when the raw bytes were not valid UTF-8 and the Latin-1 fallback decoder
// was used instead.
type Line struct {
	Text     string
	Fallback bool
}

// LineBuffer reassembles complete lines from an arbitrary sequence of byte
// chunks. Appends to a log file land in whatever chunks the reader happens
// to see, so a line may arrive split across several reads; the buffer
// retains the unterminated tail of each chunk and prepends it to the next.
//
// The retained fragment never contains a newline, and once it has been
// prepended to a chunk it is consumed: the same fragment is never emitted
// twice.
//
// A LineBuffer is owned by a single follower and is not safe for
// concurrent use.
type LineBuffer struct {
	rest []byte
}

// Feed splits chunk into complete lines, prefixing any fragment retained
// from earlier chunks. A non-terminated final segment is retained for the
// next call and not returned. Feeding an empty chunk is a no-op.
func (b *LineBuffer) Feed(chunk []byte) []Line {
	if len(chunk) == 0 {
		return nil
	}

	data := chunk
	if len(b.rest) > 0 {
		data = append(b.rest, chunk...)
		b.rest = nil
	}

	var lines []Line
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, decodeLine(data[:i]))
		data = data[i+1:]
	}

	if len(data) > 0 {
		// Copy: data may alias the caller's chunk, which the caller is
		// free to reuse for the next read.
		b.rest = append([]byte(nil), data...)
	}
	return lines
}

// Pending returns a copy of the retained fragment, for inspection only.
func (b *LineBuffer) Pending() []byte {
	if len(b.rest) == 0 {
		return nil
	}
	return append([]byte(nil), b.rest...)
}

// Reset discards the retained fragment. Used when the file is rotated or
// truncated and the fragment belongs to content that no longer exists.
func (b *LineBuffer) Reset() {
	b.rest = nil
}

// decodeLine converts one raw line to text. Valid UTF-8 passes through
// unchanged; anything else goes through the ISO 8859-1 decoder, which maps
// every byte to a rune, so no input can fail to decode and no bytes are
// ever dropped. A trailing carriage return is stripped either way.
func decodeLine(raw []byte) Line {
	if n := len(raw); n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	if utf8.Valid(raw) {
		return Line{Text: string(raw)}
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// ISO 8859-1 is total over bytes; this branch exists only to keep
		// the stream alive if that ever changes.
		return Line{Text: string(raw), Fallback: true}
	}
	return Line{Text: string(decoded), Fallback: true}
}
