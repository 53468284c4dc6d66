package tail

import (
	"os"
	"syscall"
)

// Identity is the on-disk identity of a file: the device and inode pair.
// Log rotation replaces the file at a path with a different file, which is
// only observable through the identity changing while the path stays the
// same.
type Identity struct {
	Dev uint64
	Ino uint64
}

// identityOf extracts the identity from a stat result. ok is false when
// the underlying filesystem does not expose Stat_t (rotation detection
// then degrades to size-based truncation detection only).
func identityOf(info os.FileInfo) (Identity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Identity{}, false
	}
	return Identity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}

// RotationStatus classifies what happened to a watched file between two
// stat calls.
type RotationStatus int

const (
	// RotationNone: same file, size grew or held; keep reading from the
	// current offset.
	RotationNone RotationStatus = iota
	// RotationRotated: the path now names a different file. The offset has
	// been reset to 0; the caller must reopen and clear any buffered
	// fragment.
	RotationRotated
	// RotationTruncated: same file, but smaller than the read position.
	// The offset has been reset to the new size; the caller must clear any
	// buffered fragment.
	RotationTruncated
)

// String returns the status name used in logs and test failures.
func (s RotationStatus) String() string {
	switch s {
	case RotationNone:
		return "none"
	case RotationRotated:
		return "rotated"
	case RotationTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// FileState tracks the identity and read offset of one watched file and
// classifies each fresh stat into none/rotated/truncated. It is owned by a
// single follower and is not safe for concurrent use.
type FileState struct {
	identity Identity
	hasIdent bool
	offset   int64
}

// NewFileState records the identity of the file currently at the watched
// path. info must come from a stat of that path.
func NewFileState(info os.FileInfo) *FileState {
	ident, ok := identityOf(info)
	return &FileState{identity: ident, hasIdent: ok}
}

// Offset returns the byte offset of the next unread data.
func (s *FileState) Offset() int64 { return s.offset }

// Advance moves the read offset forward by n bytes.
func (s *FileState) Advance(n int64) { s.offset += n }

// SetOffset positions the read offset, used once at attach after backfill.
func (s *FileState) SetOffset(off int64) { s.offset = off }

// Refresh compares a fresh stat of the path against the stored identity
// and offset. On RotationRotated the new identity is stored and the offset
// reset to 0. On RotationTruncated the offset is reset to the new size.
// info must come from a stat of the path (not of a stale handle), so that
// after an identity match its size refers to the same file the offset
// counts into.
func (s *FileState) Refresh(info os.FileInfo) RotationStatus {
	ident, ok := identityOf(info)
	if s.hasIdent && ok && ident != s.identity {
		s.identity = ident
		s.offset = 0
		return RotationRotated
	}
	if !s.hasIdent && ok {
		// Identity became available (e.g. first stat raced a rotation
		// window). Adopt it without treating the change as a rotation.
		s.identity = ident
		s.hasIdent = true
	}
	if info.Size() < s.offset {
		s.offset = info.Size()
		return RotationTruncated
	}
	return RotationNone
}
