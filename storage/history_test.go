package storage

import (
	"path/filepath"
	"testing"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(t.TempDir())
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpenHistoryCreatesDirectory(t *testing.T) {
	// A fresh cache location has no per-source directory yet
	dir := filepath.Join(t.TempDir(), "default@eu-frankfurt-1")

	h, err := OpenHistory(dir)
	if err != nil {
		t.Fatalf("OpenHistory() on missing directory error = %v", err)
	}
	defer func() { _ = h.Close() }()

	snap := buildSnapshot(t)
	if _, err := h.Append(snap); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
}

func TestOpenHistoryLockTimeout(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenHistory(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Close() }()

	// The second open must fail after the lock timeout, not wait forever
	if _, err := OpenHistory(dir); err == nil {
		t.Error("second OpenHistory on a locked database should error")
	}
}

func TestHistoryAppendAndGet(t *testing.T) {
	h := openTestHistory(t)
	snap := buildSnapshot(t)

	rev, err := h.Append(snap)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rev != 1 {
		t.Errorf("first revision = %d, want 1", rev)
	}

	stored, err := h.Get(rev)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Len() != snap.Len() {
		t.Errorf("stored %d resources, want %d", stored.Len(), snap.Len())
	}

	if _, err := h.Get(99); err == nil {
		t.Error("missing revision should error")
	}
}

func TestHistoryRevisionsAscend(t *testing.T) {
	h := openTestHistory(t)
	snap := buildSnapshot(t)

	for i := 0; i < 3; i++ {
		if _, err := h.Append(snap); err != nil {
			t.Fatal(err)
		}
	}

	revs, err := h.Revisions()
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 3 {
		t.Fatalf("Revisions() = %v, want 3 entries", revs)
	}
	for i, rev := range revs {
		if rev != int64(i+1) {
			t.Errorf("Revisions()[%d] = %d, want %d", i, rev, i+1)
		}
	}
	if h.CurrentRevision() != 3 {
		t.Errorf("CurrentRevision() = %d, want 3", h.CurrentRevision())
	}
}

func TestHistoryCompact(t *testing.T) {
	h := openTestHistory(t)
	snap := buildSnapshot(t)

	for i := 0; i < 5; i++ {
		if _, err := h.Append(snap); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.Compact(2); err != nil {
		t.Fatalf("Compact() error = %v", err)
	}

	revs, err := h.Revisions()
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("after compaction Revisions() = %v, want 2 entries", revs)
	}
	if revs[0] != 4 || revs[1] != 5 {
		t.Errorf("Revisions() = %v, want [4 5]", revs)
	}
}
