package providers

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/yairfalse/varasto/types"
)

// FakeDirectory is an in-memory DirectoryClient for tests. It supports
// explicit edges (so cycles can be injected), fixed page sizes, and
// per-operation failure injection.
type FakeDirectory struct {
	mu sync.Mutex

	source       types.Source
	compartments map[string]types.Compartment
	children     map[string][]string
	resources    map[string][]types.Resource

	// PageSize caps items per page; zero means everything in one page.
	PageSize int

	failures map[string]int
	calls    map[string]int
}

// NewFakeDirectory creates an empty fake directory.
func NewFakeDirectory(source types.Source) *FakeDirectory {
	return &FakeDirectory{
		source:       source,
		compartments: make(map[string]types.Compartment),
		children:     make(map[string][]string),
		resources:    make(map[string][]types.Resource),
		failures:     make(map[string]int),
		calls:        make(map[string]int),
	}
}

// AddCompartment registers a compartment node.
func (f *FakeDirectory) AddCompartment(c types.Compartment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compartments[c.ID] = c
}

// AddEdge adds a parent→child edge. Edges are explicit so tests can
// inject duplicate edges or cycles.
func (f *FakeDirectory) AddEdge(parentID, childID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parentID] = append(f.children[parentID], childID)
}

// AddResource attaches a resource to its compartment.
func (f *FakeDirectory) AddResource(r types.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[r.CompartmentID] = append(f.resources[r.CompartmentID], r)
}

// FailNext makes the next n calls for the given operation fail.
// Operation keys are "children:<id>" and "resources:<id>:<kind>".
func (f *FakeDirectory) FailNext(opKey string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[opKey] = n
}

// Calls returns how many times an operation was invoked.
func (f *FakeDirectory) Calls(opKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[opKey]
}

func (f *FakeDirectory) checkFailure(opKey string) error {
	f.calls[opKey]++
	if f.failures[opKey] > 0 {
		f.failures[opKey]--
		return fmt.Errorf("injected failure for %s", opKey)
	}
	return nil
}

func (f *FakeDirectory) page(total int, token string) (start, end int, next string, err error) {
	start = 0
	if token != "" {
		start, err = strconv.Atoi(token)
		if err != nil {
			return 0, 0, "", fmt.Errorf("bad page token %q: %w", token, err)
		}
	}
	end = total
	if f.PageSize > 0 && start+f.PageSize < total {
		end = start + f.PageSize
		next = strconv.Itoa(end)
	}
	return start, end, next, nil
}

// ListChildCompartments implements DirectoryClient.
func (f *FakeDirectory) ListChildCompartments(ctx context.Context, parentID, token string) (CompartmentPage, error) {
	if err := ctx.Err(); err != nil {
		return CompartmentPage{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkFailure("children:" + parentID); err != nil {
		return CompartmentPage{}, err
	}

	ids := f.children[parentID]
	start, end, next, err := f.page(len(ids), token)
	if err != nil {
		return CompartmentPage{}, err
	}

	page := CompartmentPage{NextPage: next}
	for _, id := range ids[start:end] {
		if c, ok := f.compartments[id]; ok {
			page.Compartments = append(page.Compartments, c)
		}
	}
	return page, nil
}

// ListResources implements DirectoryClient.
func (f *FakeDirectory) ListResources(ctx context.Context, compartmentID string, kind types.ResourceKind, token string) (ResourcePage, error) {
	if err := ctx.Err(); err != nil {
		return ResourcePage{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkFailure(fmt.Sprintf("resources:%s:%s", compartmentID, kind)); err != nil {
		return ResourcePage{}, err
	}

	var matching []types.Resource
	for _, r := range f.resources[compartmentID] {
		if r.Kind == kind {
			matching = append(matching, r)
		}
	}

	start, end, next, err := f.page(len(matching), token)
	if err != nil {
		return ResourcePage{}, err
	}

	return ResourcePage{Resources: matching[start:end], NextPage: next}, nil
}

// GetCompartment implements DirectoryClient.
func (f *FakeDirectory) GetCompartment(ctx context.Context, id string) (types.Compartment, error) {
	if err := ctx.Err(); err != nil {
		return types.Compartment{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkFailure("get:" + id); err != nil {
		return types.Compartment{}, err
	}

	c, ok := f.compartments[id]
	if !ok {
		return types.Compartment{}, fmt.Errorf("compartment %s not found", id)
	}
	return c, nil
}

// Source implements DirectoryClient.
func (f *FakeDirectory) Source() types.Source {
	return f.source
}

// Ensure FakeDirectory implements DirectoryClient
var _ DirectoryClient = (*FakeDirectory)(nil)
