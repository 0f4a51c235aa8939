package types

import "fmt"

// ResourceKind enumerates the resource kinds the collector knows how to list.
type ResourceKind string

const (
	KindDatabase ResourceKind = "database"
	KindHost     ResourceKind = "host"
)

// AllKinds returns every known resource kind in stable order.
func AllKinds() []ResourceKind {
	return []ResourceKind{KindDatabase, KindHost}
}

// ParseKind converts a user-supplied string into a ResourceKind.
func ParseKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case KindDatabase, KindHost:
		return ResourceKind(s), nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
}

// Resource is the canonical record for a monitored entity (database or host)
// discovered under some compartment. Required fields are typed; anything
// provider-specific the normalizer doesn't recognize lands in Attributes
// instead of being dropped.
type Resource struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Kind          ResourceKind      `json:"kind"`
	CompartmentID string            `json:"compartment_id"`
	Region        string            `json:"region"`
	Status        string            `json:"status"`
	Version       string            `json:"version,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Attr returns a value from the open attribute bag.
func (r *Resource) Attr(key string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[key]
}

// SetAttr stores a value in the open attribute bag.
func (r *Resource) SetAttr(key, value string) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	r.Attributes[key] = value
}

// ResourceFilter narrows query results. Zero-value fields don't filter.
type ResourceFilter struct {
	Kind           ResourceKind `json:"kind,omitempty"`
	CompartmentIDs []string     `json:"compartment_ids,omitempty"`
	Text           string       `json:"text,omitempty"`
}

// Matches checks the non-text filter criteria against a resource.
// Text matching needs the snapshot's token index, so it lives with the
// query engine.
func (r *Resource) Matches(filter ResourceFilter) bool {
	return r.matchesKind(filter) && r.matchesCompartments(filter)
}

func (r *Resource) matchesKind(filter ResourceFilter) bool {
	return filter.Kind == "" || r.Kind == filter.Kind
}

func (r *Resource) matchesCompartments(filter ResourceFilter) bool {
	if len(filter.CompartmentIDs) == 0 {
		return true
	}
	for _, id := range filter.CompartmentIDs {
		if r.CompartmentID == id {
			return true
		}
	}
	return false
}
