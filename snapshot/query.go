package snapshot

import (
	"sort"
	"strings"

	"github.com/yairfalse/varasto/types"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// Get returns the resource with the given ID.
func (s *Snapshot) Get(id string) (types.Resource, bool) {
	r, ok := s.Resources[id]
	return r, ok
}

// SearchQuery carries the search filters. Zero-value fields don't filter;
// supplied filters AND-combine.
type SearchQuery struct {
	Text            string
	CompartmentName string
	Kind            types.ResourceKind
	Limit           int
}

// Search runs a case-insensitive substring search. Text matches the resource
// display name, any token from the name index, or the display name of the
// resource's compartment. Results are ordered by name then ID so repeated
// queries return identical slices, capped at the limit.
func (s *Snapshot) Search(q SearchQuery) []types.Resource {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidates := s.candidateIDs(q)

	text := strings.ToLower(q.Text)
	var results []types.Resource
	for _, id := range candidates {
		r := s.Resources[id]
		if q.Kind != "" && r.Kind != q.Kind {
			continue
		}
		if text != "" && !s.matchesText(r, text) {
			continue
		}
		results = append(results, r)
	}

	sortResources(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// candidateIDs narrows the scan set by compartment filter when one is given.
func (s *Snapshot) candidateIDs(q SearchQuery) []string {
	if q.CompartmentName == "" {
		return s.sortedResourceIDs()
	}

	var ids []string
	for _, compartmentID := range s.compartmentIDsMatching(q.CompartmentName) {
		ids = append(ids, s.byCompartment[compartmentID]...)
	}
	sort.Strings(ids)
	return ids
}

// compartmentIDsMatching returns every compartment whose display name
// contains the query, case-insensitively. Names are not unique across the
// tree, so all matches are unioned rather than picking one arbitrarily.
func (s *Snapshot) compartmentIDsMatching(name string) []string {
	needle := strings.ToLower(name)
	var ids []string
	for id, c := range s.Compartments {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// matchesText checks the resource's display name and its compartment's
// display name. Every indexed token is a substring of the lower-cased name,
// so the name check subsumes token hits and no index scan is needed here.
func (s *Snapshot) matchesText(r types.Resource, text string) bool {
	if strings.Contains(strings.ToLower(r.Name), text) {
		return true
	}
	if c, ok := s.Compartments[r.CompartmentID]; ok {
		if strings.Contains(strings.ToLower(c.Name), text) {
			return true
		}
	}
	return false
}

// SuggestTokens returns distinct indexed name tokens starting with prefix,
// in ascending order. The token btree is ordered, so one seek reads only
// the matching range.
func (s *Snapshot) SuggestTokens(prefix string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	prefix = strings.ToLower(prefix)

	var tokens []string
	last := ""
	s.tokens.AscendGreaterOrEqual(tokenRef{Token: prefix}, func(ref tokenRef) bool {
		if !strings.HasPrefix(ref.Token, prefix) {
			return false
		}
		if ref.Token != last {
			tokens = append(tokens, ref.Token)
			last = ref.Token
		}
		return len(tokens) < limit
	})
	return tokens
}

// ListByCompartment returns every resource in compartments with the given
// display name (case-insensitive exact match), unioned across all
// compartments sharing it.
func (s *Snapshot) ListByCompartment(name string) []types.Resource {
	needle := strings.ToLower(name)
	var results []types.Resource
	for id, c := range s.Compartments {
		if strings.ToLower(c.Name) != needle {
			continue
		}
		for _, resourceID := range s.byCompartment[id] {
			results = append(results, s.Resources[resourceID])
		}
	}
	sortResources(results)
	return results
}

// ListByKind returns every resource of the given kind, name-ordered.
func (s *Snapshot) ListByKind(kind types.ResourceKind) []types.Resource {
	results := make([]types.Resource, 0, len(s.byKind[kind]))
	for _, id := range s.byKind[kind] {
		results = append(results, s.Resources[id])
	}
	sortResources(results)
	return results
}

// ListCompartments returns every compartment sorted by materialized path.
func (s *Snapshot) ListCompartments() []types.Compartment {
	compartments := make([]types.Compartment, 0, len(s.Compartments))
	for _, c := range s.Compartments {
		compartments = append(compartments, c)
	}
	sort.Slice(compartments, func(i, j int) bool {
		pi, pj := compartments[i].PathString(), compartments[j].PathString()
		if pi != pj {
			return pi < pj
		}
		return compartments[i].ID < compartments[j].ID
	})
	return compartments
}

func sortResources(resources []types.Resource) {
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name != resources[j].Name {
			return resources[i].Name < resources[j].Name
		}
		return resources[i].ID < resources[j].ID
	})
}
