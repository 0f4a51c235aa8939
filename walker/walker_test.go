package walker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

func newTestWalker(fake *providers.FakeDirectory) *Walker {
	return New(fake, zerolog.Nop()).WithRetry(3, time.Millisecond)
}

func buildTree(fake *providers.FakeDirectory, edges map[string][]string) {
	seen := make(map[string]bool)
	add := func(id string, parentID string) {
		if !seen[id] {
			seen[id] = true
			fake.AddCompartment(types.Compartment{ID: id, Name: id, ParentID: parentID, State: types.CompartmentActive})
		}
	}
	for parent, children := range edges {
		add(parent, "")
		for _, child := range children {
			add(child, parent)
			fake.AddEdge(parent, child)
		}
	}
}

func ids(compartments []types.Compartment) map[string]bool {
	set := make(map[string]bool)
	for _, c := range compartments {
		set[c.ID] = true
	}
	return set
}

func TestDiscoverFlattensTree(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	buildTree(fake, map[string][]string{
		"root": {"a", "b"},
		"a":    {"a1", "a2"},
	})

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := ids(result.Compartments)
	for _, want := range []string{"root", "a", "b", "a1", "a2"} {
		if !got[want] {
			t.Errorf("missing compartment %s", want)
		}
	}
	if len(got) != 5 {
		t.Errorf("discovered %d compartments, want 5", len(got))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestDiscoverTerminatesOnCycle(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	// Injected back-edge: A -> B -> A
	buildTree(fake, map[string][]string{
		"A": {"B"},
	})
	fake.AddEdge("B", "A")

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"A"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := ids(result.Compartments)
	if len(got) != 2 || !got["A"] || !got["B"] {
		t.Errorf("Discover() = %v, want exactly {A, B}", got)
	}
}

func TestDiscoverDepthBound(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	buildTree(fake, map[string][]string{
		"root":  {"child"},
		"child": {"grandchild"},
	})

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 1)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := ids(result.Compartments)
	if !got["root"] || !got["child"] {
		t.Errorf("depth bound should still include the bounded compartment: %v", got)
	}
	if got["grandchild"] {
		t.Error("grandchild is beyond the depth bound")
	}
	// The child listing for the bounded node must not even be attempted
	if fake.Calls("children:child") != 0 {
		t.Errorf("listed children of bounded compartment %d times", fake.Calls("children:child"))
	}
}

func TestDiscoverSkipsInactive(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.AddCompartment(types.Compartment{ID: "root", Name: "root", State: types.CompartmentActive})
	fake.AddCompartment(types.Compartment{ID: "gone", Name: "gone", ParentID: "root", State: types.CompartmentDeleted})
	fake.AddCompartment(types.Compartment{ID: "kept", Name: "kept", ParentID: "root", State: types.CompartmentActive})
	fake.AddEdge("root", "gone")
	fake.AddEdge("root", "kept")

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := ids(result.Compartments)
	if got["gone"] {
		t.Error("deleted compartment should be skipped")
	}
	if !got["kept"] {
		t.Error("active sibling should survive")
	}
}

func TestDiscoverRetriesTransientFailure(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	buildTree(fake, map[string][]string{
		"root": {"a"},
	})
	// Two failures then success: within the 3-attempt budget
	fake.FailNext("children:root", 2)

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !ids(result.Compartments)["a"] {
		t.Error("child should be discovered after retries")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("transient failure should not leave warnings: %v", result.Warnings)
	}
}

func TestDiscoverPartialBranchContinues(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	buildTree(fake, map[string][]string{
		"root":    {"broken", "healthy"},
		"broken":  {"lost"},
		"healthy": {"found"},
	})
	// Exhaust all retry attempts for the broken branch
	fake.FailNext("children:broken", 10)

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := ids(result.Compartments)
	if !got["broken"] {
		t.Error("the failing compartment itself is still part of the set")
	}
	if got["lost"] {
		t.Error("children behind the failing branch must not appear")
	}
	if !got["found"] {
		t.Error("sibling branches must keep scanning")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].CompartmentID != "broken" {
		t.Errorf("Warnings = %v, want one for 'broken'", result.Warnings)
	}
}

func TestDiscoverNoRootReachable(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	// No compartments registered at all

	_, err := newTestWalker(fake).Discover(context.Background(), []string{"missing"}, 0)
	if err == nil {
		t.Fatal("expected error when no root is reachable")
	}
}

func TestDiscoverPaginatesChildren(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.PageSize = 2
	buildTree(fake, map[string][]string{
		"root": {"c1", "c2", "c3", "c4", "c5"},
	})

	result, err := newTestWalker(fake).Discover(context.Background(), []string{"root"}, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Compartments) != 6 {
		t.Errorf("discovered %d compartments, want 6", len(result.Compartments))
	}
	if fake.Calls("children:root") < 3 {
		t.Errorf("expected at least 3 page calls, got %d", fake.Calls("children:root"))
	}
}
