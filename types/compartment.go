package types

import "strings"

// Compartment is a node in the tenancy hierarchy. Compartments scope
// ownership of resources and form a tree rooted at the configured roots.
type Compartment struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id,omitempty"`
	State    string   `json:"state,omitempty"`
	Path     []string `json:"path,omitempty"`

	// PathTruncated is set when path materialization hit a parent cycle
	// and had to stop early.
	PathTruncated bool `json:"path_truncated,omitempty"`
}

// Lifecycle states as reported by the directory service
const (
	CompartmentActive   = "ACTIVE"
	CompartmentInactive = "INACTIVE"
	CompartmentDeleted  = "DELETED"
)

// IsActive reports whether the compartment should be traversed.
// An empty state is treated as active for providers that don't report one.
func (c *Compartment) IsActive() bool {
	return c.State == "" || c.State == CompartmentActive
}

// IsRoot reports whether the compartment has no parent in the traversed set.
func (c *Compartment) IsRoot() bool {
	return c.ParentID == ""
}

// PathString renders the materialized path as "root / child / leaf".
func (c *Compartment) PathString() string {
	if len(c.Path) == 0 {
		return c.Name
	}
	return strings.Join(c.Path, " / ")
}
