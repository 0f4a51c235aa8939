package snapshot

import "github.com/yairfalse/varasto/types"

// Summary holds grouped counts derived from one snapshot. Every grouping's
// counts sum exactly to the total.
type Summary struct {
	Total         int                        `json:"total"`
	ByKind        map[types.ResourceKind]int `json:"by_kind"`
	ByCompartment map[string]int             `json:"by_compartment"`
	ByStatus      map[string]int             `json:"by_status"`
}

// Summarize aggregates the resource map on demand. It reads the snapshot's
// existing indices and never recomputes them.
func Summarize(s *Snapshot) *Summary {
	summary := &Summary{
		Total:         len(s.Resources),
		ByKind:        make(map[types.ResourceKind]int),
		ByCompartment: make(map[string]int),
		ByStatus:      make(map[string]int),
	}

	for kind, ids := range s.byKind {
		summary.ByKind[kind] = len(ids)
	}

	for compartmentID, ids := range s.byCompartment {
		summary.ByCompartment[compartmentLabel(s, compartmentID)] += len(ids)
	}

	for _, r := range s.Resources {
		summary.ByStatus[statusLabel(r.Status)]++
	}

	return summary
}

// compartmentLabel prefers the display name; names shared by several
// compartments merge their counts under one label.
func compartmentLabel(s *Snapshot, compartmentID string) string {
	if c, ok := s.Compartments[compartmentID]; ok && c.Name != "" {
		return c.Name
	}
	return compartmentID
}

func statusLabel(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}
