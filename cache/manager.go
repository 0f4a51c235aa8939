// Package cache owns the active inventory snapshot: one manager per
// (profile, region) source, exposing the query surface and the rebuild
// entry point.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yairfalse/varasto/collector"
	"github.com/yairfalse/varasto/config"
	"github.com/yairfalse/varasto/journal"
	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/snapshot"
	"github.com/yairfalse/varasto/storage"
	"github.com/yairfalse/varasto/telemetry"
	"github.com/yairfalse/varasto/types"
	"github.com/yairfalse/varasto/walker"
)

// ErrRebuildInProgress is returned when a rebuild is already in flight.
// At most one rebuild owns writes at a time.
var ErrRebuildInProgress = errors.New("rebuild already in progress")

// ErrNoSnapshot is returned by queries when no snapshot has ever been built.
var ErrNoSnapshot = errors.New("no snapshot available, rebuild first")

// Options bounds one manager's rebuild and freshness behavior.
type Options struct {
	Roots           []string
	Kinds           []types.ResourceKind
	MaxDepth        int
	Budget          time.Duration
	Workers         int
	RatePerSecond   int
	StalenessWindow time.Duration
	HistoryKeep     int
}

// OptionsFromConfig maps the loaded config onto manager options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Roots:           cfg.Roots,
		Kinds:           cfg.ResourceKinds(),
		MaxDepth:        cfg.Build.MaxDepth,
		Budget:          cfg.Build.Budget,
		Workers:         cfg.Build.Workers,
		RatePerSecond:   cfg.Build.RatePerSecond,
		StalenessWindow: cfg.Cache.StalenessWindow,
		HistoryKeep:     cfg.Cache.HistoryKeep,
	}
}

// Manager holds the single active snapshot reference. The atomic pointer
// swap after a successful build is the only mutation point; queries read
// whatever snapshot is current and never block on a rebuild.
type Manager struct {
	client  providers.DirectoryClient
	store   *storage.Store
	journal *journal.Journal
	logger  *telemetry.Logger
	opts    Options
	now     func() time.Time

	// buildMu is the single-flight guard for rebuilds.
	buildMu sync.Mutex
	// building is observable state for TryLock-style rejection.
	building atomic.Bool

	current atomic.Pointer[snapshot.Snapshot]
}

// NewManager creates a cache manager for one source. The store directory
// also receives the history database and the build journal. The history
// database itself is only opened during rebuilds, so query-only processes
// never contend on its file lock.
func NewManager(client providers.DirectoryClient, store *storage.Store, logger *telemetry.Logger, opts Options) (*Manager, error) {
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = config.DefaultStalenessWindow
	}
	if opts.HistoryKeep <= 0 {
		opts.HistoryKeep = config.DefaultHistoryKeep
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = types.AllKinds()
	}

	buildJournal, err := journal.Open(store.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to open build journal: %w", err)
	}

	return &Manager{
		client:  client,
		store:   store,
		journal: buildJournal,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}, nil
}

// WithClock overrides the staleness clock, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Close releases the build journal.
func (m *Manager) Close() error {
	return m.journal.Close()
}

// Rebuild runs one full discovery pass and atomically replaces the active
// snapshot. A second concurrent call is rejected with ErrRebuildInProgress.
// Any failure or budget overrun discards the partial result; the previous
// good snapshot stays authoritative.
func (m *Manager) Rebuild(ctx context.Context) (*snapshot.Snapshot, error) {
	if !m.buildMu.TryLock() {
		return nil, ErrRebuildInProgress
	}
	defer m.buildMu.Unlock()
	m.building.Store(true)
	defer m.building.Store(false)

	ctx, span := telemetry.Tracer.Start(ctx, "cache.rebuild")
	defer span.End()

	if m.opts.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Budget)
		defer cancel()
	}

	start := m.now()
	m.logger.LogBuildStart(ctx, len(m.opts.Roots), len(m.opts.Kinds))
	_ = m.journal.Append(journal.EventBuildStarted, "", map[string]int{
		"roots": len(m.opts.Roots),
		"kinds": len(m.opts.Kinds),
	})

	snap, err := m.runPipeline(ctx)
	if err != nil {
		m.logger.LogBuildAborted(ctx, err)
		_ = m.journal.AppendError(journal.EventBuildAborted, "", nil, err)
		telemetry.RecordBuild(ctx, "failed", m.now().Sub(start).Seconds())
		return nil, err
	}

	if err := m.store.Save(snap); err != nil {
		m.logger.LogBuildAborted(ctx, err)
		_ = m.journal.AppendError(journal.EventBuildAborted, "", nil, err)
		telemetry.RecordBuild(ctx, "failed", m.now().Sub(start).Seconds())
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	if rev, err := m.archiveRevision(snap); err != nil {
		// History is best-effort; the file store already holds the build.
		m.logger.Warn().Err(err).Msg("failed to archive snapshot revision")
	} else {
		m.logger.LogSnapshotPersisted(ctx, m.store.Path(), rev)
	}

	m.current.Store(snap)

	duration := m.now().Sub(start)
	_ = m.journal.Append(journal.EventBuildCompleted, "", map[string]int{
		"compartments": len(snap.Compartments),
		"resources":    snap.Len(),
	})
	telemetry.RecordBuild(ctx, "ok", duration.Seconds())
	telemetry.RecordSnapshot(ctx, len(snap.Compartments), snap.Len(),
		len(snap.Report.PartialBranches)+len(snap.Report.FailedPairs))
	m.logger.LogBuildComplete(ctx, len(snap.Compartments), snap.Len(),
		float64(duration.Milliseconds()))

	return snap, nil
}

// archiveRevision appends the snapshot to the bbolt history archive and
// compacts old revisions. The archive is opened per rebuild and closed right
// after, so no long-lived process pins its file lock between builds.
func (m *Manager) archiveRevision(snap *snapshot.Snapshot) (int64, error) {
	history, err := storage.OpenHistory(m.store.Dir())
	if err != nil {
		return 0, err
	}
	defer func() { _ = history.Close() }()

	rev, err := history.Append(snap)
	if err != nil {
		return 0, err
	}
	if err := history.Compact(int64(m.opts.HistoryKeep)); err != nil {
		m.logger.Warn().Err(err).Msg("failed to compact snapshot history")
	}
	return rev, nil
}

// runPipeline executes walker → collector → builder for one rebuild.
func (m *Manager) runPipeline(ctx context.Context) (*snapshot.Snapshot, error) {
	w := walkerFor(m)
	discovery, err := w.Discover(ctx, m.opts.Roots, m.opts.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("compartment discovery failed: %w", err)
	}
	for _, warning := range discovery.Warnings {
		_ = m.journal.AppendError(journal.EventBranchFailed, warning.CompartmentID, nil,
			errors.New(warning.Reason))
	}

	c := collectorFor(m)
	collected, err := c.Collect(ctx, discovery.Compartments, m.opts.Kinds)
	if err != nil {
		return nil, fmt.Errorf("resource collection failed: %w", err)
	}
	for _, failure := range collected.Failures {
		_ = m.journal.AppendError(journal.EventPairFailed,
			snapshot.FailedPairKey(failure.CompartmentID, failure.Kind), nil,
			errors.New(failure.Reason))
	}

	builder := snapshot.NewBuilder(m.logger.Logger).WithClock(m.now)
	snap := builder.Build(discovery.Compartments, collected.Resources, m.client.Source())

	for _, warning := range discovery.Warnings {
		snap.Report.PartialBranches = append(snap.Report.PartialBranches, warning.CompartmentID)
	}
	for _, failure := range collected.Failures {
		snap.Report.FailedPairs = append(snap.Report.FailedPairs,
			snapshot.FailedPairKey(failure.CompartmentID, failure.Kind))
	}
	for _, orphan := range snap.Report.OrphanedResources {
		_ = m.journal.Append(journal.EventOrphanDropped, orphan, nil)
	}

	return snap, nil
}

// Snapshot returns the active snapshot, lazily loading the persisted one on
// first access. It never blocks on an in-progress rebuild.
func (m *Manager) Snapshot() (*snapshot.Snapshot, error) {
	if s := m.current.Load(); s != nil {
		return s, nil
	}

	s, err := m.store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	// A rebuild may have swapped in a fresher snapshot meanwhile; keep it.
	if !m.current.CompareAndSwap(nil, s) {
		return m.current.Load(), nil
	}
	return s, nil
}

// IsStale reports whether the active snapshot is older than the staleness
// window. A missing snapshot counts as stale: the caller's reaction is the
// same, rebuild.
func (m *Manager) IsStale() bool {
	s, err := m.Snapshot()
	if err != nil {
		return true
	}
	return storage.IsStale(s.BuiltAt, m.opts.StalenessWindow, m.now())
}

// Age returns the age of the active snapshot.
func (m *Manager) Age() (time.Duration, error) {
	s, err := m.Snapshot()
	if err != nil {
		return 0, err
	}
	return s.Age(m.now()), nil
}

// Rebuilding reports whether a rebuild is currently in flight.
func (m *Manager) Rebuilding() bool {
	return m.building.Load()
}

// GetSummary returns grouped counts for the active snapshot.
func (m *Manager) GetSummary() (*snapshot.Summary, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.Summarize(s), nil
}

// Search runs a filtered substring search against the active snapshot.
func (m *Manager) Search(q snapshot.SearchQuery) ([]types.Resource, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.Search(q), nil
}

// GetByID looks up one resource in the active snapshot.
func (m *Manager) GetByID(id string) (types.Resource, error) {
	s, err := m.Snapshot()
	if err != nil {
		return types.Resource{}, err
	}
	r, ok := s.Get(id)
	if !ok {
		return types.Resource{}, fmt.Errorf("resource %s not found in snapshot", id)
	}
	return r, nil
}

// ListCompartments returns the compartment tree of the active snapshot.
func (m *Manager) ListCompartments() ([]types.Compartment, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.ListCompartments(), nil
}

// SuggestTokens returns search-term completions from the active snapshot's
// name-token index.
func (m *Manager) SuggestTokens(prefix string) ([]string, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.SuggestTokens(prefix, snapshot.DefaultSearchLimit), nil
}

// ListByCompartment returns the resources under compartments with the
// given display name.
func (m *Manager) ListByCompartment(name string) ([]types.Resource, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.ListByCompartment(name), nil
}

func walkerFor(m *Manager) *walker.Walker {
	return walker.New(m.client, m.logger.Logger)
}

func collectorFor(m *Manager) *collector.Collector {
	return collector.New(m.client, m.logger.Logger,
		collector.WithWorkers(m.opts.Workers),
		collector.WithRateLimit(m.opts.RatePerSecond),
	)
}
