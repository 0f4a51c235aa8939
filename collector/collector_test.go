package collector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

func newTestCollector(fake *providers.FakeDirectory, opts ...Option) *Collector {
	opts = append([]Option{WithRetry(3, time.Millisecond), WithRateLimit(10000)}, opts...)
	return New(fake, zerolog.Nop(), opts...)
}

func compartments(ids ...string) []types.Compartment {
	out := make([]types.Compartment, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Compartment{ID: id, Name: id})
	}
	return out
}

func TestCollectNormalizesAllPairs(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.AddResource(types.Resource{ID: "db1", Name: "PRODDB01", Kind: types.KindDatabase, CompartmentID: "c1"})
	fake.AddResource(types.Resource{ID: "db2", Name: "PRODDB02", Kind: types.KindDatabase, CompartmentID: "c1"})
	fake.AddResource(types.Resource{ID: "h1", Name: "apphost", Kind: types.KindHost, CompartmentID: "c2"})

	result, err := newTestCollector(fake).Collect(context.Background(), compartments("c1", "c2"), types.AllKinds())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Resources) != 3 {
		t.Errorf("collected %d resources, want 3", len(result.Resources))
	}
	if len(result.Failures) != 0 {
		t.Errorf("unexpected failures: %v", result.Failures)
	}
}

func TestCollectSkipsFailedPair(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.AddResource(types.Resource{ID: "db1", Name: "db1", Kind: types.KindDatabase, CompartmentID: "c1"})
	fake.AddResource(types.Resource{ID: "h1", Name: "h1", Kind: types.KindHost, CompartmentID: "c1"})
	fake.FailNext("resources:c1:host", 10)

	result, err := newTestCollector(fake, WithWorkers(1)).Collect(context.Background(), compartments("c1"), types.AllKinds())
	if err != nil {
		t.Fatalf("a failed pair must not fail the pass: %v", err)
	}
	if len(result.Resources) != 1 || result.Resources[0].ID != "db1" {
		t.Errorf("Resources = %v, want just db1", result.Resources)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want 1", result.Failures)
	}
	if result.Failures[0].Kind != types.KindHost || result.Failures[0].CompartmentID != "c1" {
		t.Errorf("Failure = %+v", result.Failures[0])
	}
}

func TestCollectRetriesTransientFailure(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.AddResource(types.Resource{ID: "db1", Name: "db1", Kind: types.KindDatabase, CompartmentID: "c1"})
	fake.FailNext("resources:c1:database", 2)

	result, err := newTestCollector(fake).Collect(context.Background(), compartments("c1"), []types.ResourceKind{types.KindDatabase})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Resources) != 1 {
		t.Errorf("retry should recover the pair, got %v", result.Resources)
	}
	if len(result.Failures) != 0 {
		t.Errorf("unexpected failures: %v", result.Failures)
	}
}

func TestCollectDeduplicatesByID(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	// Same database visible through two compartment aliases
	fake.AddResource(types.Resource{ID: "db1", Name: "db1", Kind: types.KindDatabase, CompartmentID: "alias-a"})
	fake.AddResource(types.Resource{ID: "db1", Name: "db1", Kind: types.KindDatabase, CompartmentID: "alias-b"})

	result, err := newTestCollector(fake).Collect(context.Background(), compartments("alias-a", "alias-b"), []types.ResourceKind{types.KindDatabase})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Resources) != 1 {
		t.Errorf("collected %d resources, want 1 after dedupe", len(result.Resources))
	}
	// Dedupe survivor is deterministic regardless of scheduling
	if result.Resources[0].CompartmentID != "alias-a" {
		t.Errorf("survivor compartment = %s, want alias-a", result.Resources[0].CompartmentID)
	}
}

func TestCollectPaginates(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.PageSize = 2
	for _, id := range []string{"db1", "db2", "db3", "db4", "db5"} {
		fake.AddResource(types.Resource{ID: id, Name: id, Kind: types.KindDatabase, CompartmentID: "c1"})
	}

	result, err := newTestCollector(fake).Collect(context.Background(), compartments("c1"), []types.ResourceKind{types.KindDatabase})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Resources) != 5 {
		t.Errorf("collected %d resources, want 5", len(result.Resources))
	}
	if fake.Calls("resources:c1:database") < 3 {
		t.Errorf("expected at least 3 page calls, got %d", fake.Calls("resources:c1:database"))
	}
}

func TestCollectCancellation(t *testing.T) {
	fake := providers.NewFakeDirectory(types.Source{})
	fake.AddResource(types.Resource{ID: "db1", Name: "db1", Kind: types.KindDatabase, CompartmentID: "c1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCollector(fake).Collect(ctx, compartments("c1"), []types.ResourceKind{types.KindDatabase})
	if err == nil {
		t.Fatal("cancelled context must abort the pass")
	}
}
