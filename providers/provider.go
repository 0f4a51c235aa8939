package providers

import (
	"context"
	"fmt"

	"github.com/yairfalse/varasto/types"
)

// CompartmentPage is one page of a child-compartment listing.
// NextPage is the opaque token for the following page; empty means done.
type CompartmentPage struct {
	Compartments []types.Compartment
	NextPage     string
}

// ResourcePage is one page of a resource listing.
type ResourcePage struct {
	Resources []types.Resource
	NextPage  string
}

// DirectoryClient lists the compartment hierarchy and the resources in it.
// Implementations are already authenticated; credentials are opaque here.
// Listings are paginated and may fail transiently.
type DirectoryClient interface {
	ListChildCompartments(ctx context.Context, parentID string, page string) (CompartmentPage, error)
	ListResources(ctx context.Context, compartmentID string, kind types.ResourceKind, page string) (ResourcePage, error)

	// GetCompartment fetches a single compartment by ID, used to resolve
	// the configured roots themselves.
	GetCompartment(ctx context.Context, id string) (types.Compartment, error)

	// Source identifies which (profile, region) this client talks to.
	Source() types.Source
}

// ClientConfig holds provider configuration
type ClientConfig struct {
	Profile string
	Region  string
}

// ClientFactory creates a directory client instance
type ClientFactory func(ctx context.Context, config ClientConfig) (DirectoryClient, error)

// Registry of available providers
var clients = make(map[string]ClientFactory)

// Register registers a new client factory
func Register(name string, factory ClientFactory) {
	clients[name] = factory
}

// Get creates a client instance by name
func Get(ctx context.Context, name string, config ClientConfig) (DirectoryClient, error) {
	factory, exists := clients[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return factory(ctx, config)
}

// List returns available provider names
func List() []string {
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	return names
}
