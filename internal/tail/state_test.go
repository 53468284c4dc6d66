package tail

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFile creates path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// statFile stats path, failing the test on error.
func statFile(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info
}

// ── identity ─────────────────────────────────────────────────────────────────

func TestIdentityOfStableAcrossStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "x\n")

	id1, ok := identityOf(statFile(t, path))
	if !ok {
		t.Fatal("identityOf: ok = false on a regular file")
	}
	id2, ok := identityOf(statFile(t, path))
	if !ok {
		t.Fatal("identityOf: ok = false on second stat")
	}
	if id1 != id2 {
		t.Errorf("identity changed between stats: %+v vs %+v", id1, id2)
	}
}

func TestIdentityOfDiffersBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	writeFile(t, a, "x\n")
	writeFile(t, b, "x\n")

	idA, _ := identityOf(statFile(t, a))
	idB, _ := identityOf(statFile(t, b))
	if idA == idB {
		t.Errorf("distinct files share identity %+v", idA)
	}
}

// ── Refresh classification ───────────────────────────────────────────────────

func TestRefreshNoChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "hello\n")

	st := NewFileState(statFile(t, path))
	st.SetOffset(6)

	if got := st.Refresh(statFile(t, path)); got != RotationNone {
		t.Errorf("Refresh = %v, want %v", got, RotationNone)
	}
	if st.Offset() != 6 {
		t.Errorf("offset = %d, want 6 (must not move without a reset)", st.Offset())
	}
}

func TestRefreshGrowthIsNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "one\n")

	st := NewFileState(statFile(t, path))
	st.SetOffset(4)

	writeFile(t, path, "one\ntwo\n")
	if got := st.Refresh(statFile(t, path)); got != RotationNone {
		t.Errorf("Refresh after growth = %v, want %v", got, RotationNone)
	}
	if st.Offset() != 4 {
		t.Errorf("offset = %d, want 4", st.Offset())
	}
}

// TestRefreshDetectsRotation renames the watched file away and creates a
// replacement at the same path; the identity change must reset the offset
// to the start of the new file.
func TestRefreshDetectsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	writeFile(t, path, "old content\n")

	st := NewFileState(statFile(t, path))
	st.SetOffset(12)

	if err := os.Rename(path, filepath.Join(dir, "a.log.1")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	writeFile(t, path, "new\n")

	if got := st.Refresh(statFile(t, path)); got != RotationRotated {
		t.Fatalf("Refresh = %v, want %v", got, RotationRotated)
	}
	if st.Offset() != 0 {
		t.Errorf("offset = %d, want 0 after rotation", st.Offset())
	}

	// The stored identity must now be the new file's: a second Refresh
	// sees no further change.
	if got := st.Refresh(statFile(t, path)); got != RotationNone {
		t.Errorf("second Refresh = %v, want %v", got, RotationNone)
	}
}

func TestRefreshDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "0123456789\n")

	st := NewFileState(statFile(t, path))
	st.SetOffset(11)

	if err := os.Truncate(path, 4); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if got := st.Refresh(statFile(t, path)); got != RotationTruncated {
		t.Fatalf("Refresh = %v, want %v", got, RotationTruncated)
	}
	if st.Offset() != 4 {
		t.Errorf("offset = %d, want 4 (the new size)", st.Offset())
	}
}

func TestRefreshTruncateToOffsetIsNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "0123456789")

	st := NewFileState(statFile(t, path))
	st.SetOffset(4)

	// Shrinking to exactly the read position leaves nothing unread and
	// nothing lost; only a size below the offset is a truncation.
	if err := os.Truncate(path, 4); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if got := st.Refresh(statFile(t, path)); got != RotationNone {
		t.Errorf("Refresh = %v, want %v", got, RotationNone)
	}
}

func TestAdvanceMovesOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeFile(t, path, "abc\n")

	st := NewFileState(statFile(t, path))
	st.Advance(2)
	st.Advance(2)
	if st.Offset() != 4 {
		t.Errorf("offset = %d, want 4", st.Offset())
	}
}

func TestRotationStatusString(t *testing.T) {
	cases := []struct {
		status RotationStatus
		want   string
	}{
		{RotationNone, "none"},
		{RotationRotated, "rotated"},
		{RotationTruncated, "truncated"},
		{RotationStatus(99), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", int(tc.status), got, tc.want)
		}
	}
}
