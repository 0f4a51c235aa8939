package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/types"
)

// Builder assembles discovered compartments and collected resources into one
// snapshot. Structural inconsistencies are normalized away, never fatal:
// orphaned resources are dropped and flagged, cyclic parent chains truncate
// the materialized path.
type Builder struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewBuilder creates a builder.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{logger: logger, now: time.Now}
}

// WithClock overrides the build timestamp source, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build assembles a snapshot in a single deterministic pass. Identical
// inputs yield identical snapshot contents regardless of slice order;
// only BuiltAt differs between runs.
func (b *Builder) Build(compartments []types.Compartment, resources []types.Resource, source types.Source) *Snapshot {
	s := &Snapshot{
		BuiltAt:      b.now().UTC(),
		Source:       source,
		Compartments: make(map[string]types.Compartment, len(compartments)),
		Resources:    make(map[string]types.Resource, len(resources)),
	}

	for _, c := range compartments {
		s.Compartments[c.ID] = c
	}

	b.materializePaths(s)

	for _, r := range resources {
		if _, ok := s.Compartments[r.CompartmentID]; !ok {
			b.logger.Warn().
				Str("resource_id", r.ID).
				Str("compartment_id", r.CompartmentID).
				Msg("dropping orphaned resource")
			s.Report.OrphanedResources = append(s.Report.OrphanedResources, r.ID)
			continue
		}
		s.Resources[r.ID] = r
	}
	sort.Strings(s.Report.OrphanedResources)

	s.reindex()

	b.logger.Info().
		Int("compartments", len(s.Compartments)).
		Int("resources", len(s.Resources)).
		Int("orphans_dropped", len(s.Report.OrphanedResources)).
		Msg("snapshot built")

	return s
}

// materializePaths computes each compartment's root→leaf display-name path by
// walking parent links within the snapshot's own compartment set. A detected
// cycle truncates the path and flags the compartment instead of looping.
func (b *Builder) materializePaths(s *Snapshot) {
	for _, id := range sortedCompartmentIDs(s.Compartments) {
		c := s.Compartments[id]
		path, truncated := b.walkPath(s.Compartments, id)
		c.Path = path
		c.PathTruncated = truncated
		if truncated {
			b.logger.Warn().Str("compartment_id", id).Msg("cyclic parent chain, path truncated")
			s.Report.TruncatedPaths = append(s.Report.TruncatedPaths, id)
		}
		s.Compartments[id] = c
	}
}

func (b *Builder) walkPath(compartments map[string]types.Compartment, id string) (path []string, truncated bool) {
	visited := make(map[string]bool)
	var names []string

	current := id
	for current != "" {
		if visited[current] {
			truncated = true
			break
		}
		visited[current] = true

		c, ok := compartments[current]
		if !ok {
			// Parent outside the traversed set, e.g. the tenancy above a
			// configured root. The path just starts here.
			break
		}
		names = append(names, c.Name)
		current = c.ParentID
	}

	// names were collected leaf→root
	path = make([]string, len(names))
	for i, name := range names {
		path[len(names)-1-i] = name
	}
	return path, truncated
}

func sortedCompartmentIDs(compartments map[string]types.Compartment) []string {
	ids := make([]string, 0, len(compartments))
	for id := range compartments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FailedPairKey formats a collector failure for the build report.
func FailedPairKey(compartmentID string, kind types.ResourceKind) string {
	return fmt.Sprintf("%s/%s", compartmentID, kind)
}
