// Package snapshot holds the point-in-time inventory model: the snapshot
// itself, the builder that assembles it, the query engine, and the
// statistics aggregator.
package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/google/btree"

	"github.com/yairfalse/varasto/types"
)

// tokenRef is one entry in the tokenized-name index: a lower-cased token
// pointing at the resource that carries it.
type tokenRef struct {
	Token      string
	ResourceID string
}

func tokenRefLess(a, b tokenRef) bool {
	if a.Token != b.Token {
		return a.Token < b.Token
	}
	return a.ResourceID < b.ResourceID
}

// Snapshot is the complete, immutable result of one inventory build pass.
// The derived indices are always recomputed with the data, never patched,
// so they cannot drift from the resource map.
type Snapshot struct {
	BuiltAt      time.Time
	Source       types.Source
	Compartments map[string]types.Compartment
	Resources    map[string]types.Resource
	Report       Report

	// Derived indices. Resource ID slices are sorted; tokens live in a
	// btree so iteration order is always the same.
	byCompartment map[string][]string
	byKind        map[types.ResourceKind][]string
	tokens        *btree.BTreeG[tokenRef]
}

// Report summarizes what the build pass had to normalize away.
type Report struct {
	OrphanedResources []string `json:"orphaned_resources,omitempty"`
	TruncatedPaths    []string `json:"truncated_paths,omitempty"`
	PartialBranches   []string `json:"partial_branches,omitempty"`
	FailedPairs       []string `json:"failed_pairs,omitempty"`
}

// Age returns how old the snapshot is at the given instant.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.BuiltAt)
}

// Len returns the number of resources in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Resources)
}

// reindex recomputes all derived indices in one deterministic pass.
// Identical resource/compartment contents always yield identical indices,
// regardless of the order records arrived in.
func (s *Snapshot) reindex() {
	s.byCompartment = make(map[string][]string)
	s.byKind = make(map[types.ResourceKind][]string)
	s.tokens = btree.NewG(32, tokenRefLess)

	for _, id := range s.sortedResourceIDs() {
		r := s.Resources[id]
		s.byCompartment[r.CompartmentID] = append(s.byCompartment[r.CompartmentID], id)
		s.byKind[r.Kind] = append(s.byKind[r.Kind], id)
		for _, token := range Tokenize(r.Name) {
			s.tokens.ReplaceOrInsert(tokenRef{Token: token, ResourceID: id})
		}
	}
}

func (s *Snapshot) sortedResourceIDs() []string {
	ids := make([]string, 0, len(s.Resources))
	for id := range s.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tokenize splits a display name into lower-cased tokens for the name index.
// Runs of letters-and-digits are tokens; everything else separates them.
// The whole lower-cased name is included as a token too, so substring
// queries that span separators still hit.
func Tokenize(name string) []string {
	lower := strings.ToLower(name)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]bool, len(fields)+1)
	tokens := make([]string, 0, len(fields)+1)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	add(lower)
	for _, f := range fields {
		add(f)
	}
	return tokens
}

// Document is the persisted form of a snapshot. Slices are sorted by ID so
// identical snapshots serialize to identical bytes.
type Document struct {
	BuiltAt      time.Time           `json:"built_at"`
	Source       types.Source        `json:"source"`
	Compartments []types.Compartment `json:"compartments"`
	Resources    []types.Resource    `json:"resources"`
	Report       Report              `json:"report,omitempty"`
	Stats        *Summary            `json:"stats,omitempty"`
}

// Document converts the snapshot into its persisted form, including
// precomputed statistics.
func (s *Snapshot) Document() *Document {
	doc := &Document{
		BuiltAt: s.BuiltAt,
		Source:  s.Source,
		Report:  s.Report,
		Stats:   Summarize(s),
	}

	compartmentIDs := make([]string, 0, len(s.Compartments))
	for id := range s.Compartments {
		compartmentIDs = append(compartmentIDs, id)
	}
	sort.Strings(compartmentIDs)
	for _, id := range compartmentIDs {
		doc.Compartments = append(doc.Compartments, s.Compartments[id])
	}

	for _, id := range s.sortedResourceIDs() {
		doc.Resources = append(doc.Resources, s.Resources[id])
	}

	return doc
}

// FromDocument reconstitutes a snapshot, recomputing every derived index.
func FromDocument(doc *Document) *Snapshot {
	s := &Snapshot{
		BuiltAt:      doc.BuiltAt,
		Source:       doc.Source,
		Compartments: make(map[string]types.Compartment, len(doc.Compartments)),
		Resources:    make(map[string]types.Resource, len(doc.Resources)),
		Report:       doc.Report,
	}
	for _, c := range doc.Compartments {
		s.Compartments[c.ID] = c
	}
	for _, r := range doc.Resources {
		s.Resources[r.ID] = r
	}
	s.reindex()
	return s
}
