package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/snapshot"
	"github.com/yairfalse/varasto/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), types.Source{Profile: "test", Region: "eu-frankfurt-1"}, zerolog.Nop())
}

func buildSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	compartments := []types.Compartment{
		{ID: "root", Name: "root"},
		{ID: "prod", Name: "Production", ParentID: "root"},
	}
	resources := []types.Resource{
		{ID: "db1", Name: "PRODDB01", Kind: types.KindDatabase, CompartmentID: "prod", Status: "AVAILABLE"},
	}
	return snapshot.NewBuilder(zerolog.Nop()).Build(compartments, resources, types.Source{Profile: "test"})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	original := buildSnapshot(t)

	if err := store.Save(original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != original.Len() {
		t.Errorf("loaded %d resources, want %d", loaded.Len(), original.Len())
	}
	if !loaded.BuiltAt.Equal(original.BuiltAt) {
		t.Errorf("BuiltAt = %v, want %v", loaded.BuiltAt, original.BuiltAt)
	}
	if got := loaded.Search(snapshot.SearchQuery{Text: "proddb"}); len(got) != 1 {
		t.Errorf("indices must be usable after load, Search = %v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	store := testStore(t)

	_, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	store := testStore(t)

	if err := os.MkdirAll(store.Dir(), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt document should read as ErrNotFound, got %v", err)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	store := testStore(t)

	first := buildSnapshot(t)
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}

	// Simulate an interrupted save: a temp file left behind next to the
	// canonical document must not affect what Load returns.
	leftover := filepath.Join(store.Dir(), "snapshot.json.tmp-interrupted")
	if err := os.WriteFile(leftover, []byte("partial garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.BuiltAt.Equal(first.BuiltAt) {
		t.Error("Load() must return the last good snapshot, not partial state")
	}

	// A second save replaces wholesale
	second := buildSnapshot(t)
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}
	loaded, err = store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.BuiltAt.Equal(second.BuiltAt) {
		t.Error("Load() should see the replacement snapshot")
	}
}

func TestStoreIsolationPerSource(t *testing.T) {
	baseDir := t.TempDir()
	storeA := NewStore(baseDir, types.Source{Profile: "teamA", Region: "eu-frankfurt-1"}, zerolog.Nop())
	storeB := NewStore(baseDir, types.Source{Profile: "teamB", Region: "eu-frankfurt-1"}, zerolog.Nop())

	if storeA.Path() == storeB.Path() {
		t.Fatal("different profiles must not share a snapshot location")
	}

	if err := storeA.Save(buildSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := storeB.Load(); !errors.Is(err, ErrNotFound) {
		t.Errorf("storeB should be empty, got %v", err)
	}
}

func TestIsStale(t *testing.T) {
	builtAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"fresh immediately", builtAt, false},
		{"fresh at 23h59m", builtAt.Add(23*time.Hour + 59*time.Minute), false},
		{"fresh at exactly 24h", builtAt.Add(24 * time.Hour), false},
		{"stale past the window", builtAt.Add(24*time.Hour + time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(builtAt, window, tt.now); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}
