// Package collector fetches and normalizes resource listings for every
// discovered compartment.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

// Defaults for fan-out and retries
const (
	DefaultWorkers     = 4
	DefaultRate        = 10
	DefaultMaxAttempts = 3
	DefaultBackoff     = 200 * time.Millisecond
)

// Collector lists resources per (compartment, kind) pair. Pairs are
// independent, so they fan out to a bounded worker pool; a strictly
// sequential run (workers=1) produces the same result.
type Collector struct {
	client      providers.DirectoryClient
	logger      zerolog.Logger
	workers     int
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

// Failure records one (compartment, kind) pair that could not be listed.
type Failure struct {
	CompartmentID string             `json:"compartment_id"`
	Kind          types.ResourceKind `json:"kind"`
	Reason        string             `json:"reason"`
}

// Result holds the deduplicated resource list plus per-pair failures.
type Result struct {
	Resources []types.Resource
	Failures  []Failure
}

// Option configures a Collector.
type Option func(*Collector)

// WithWorkers bounds the parallel fan-out.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRateLimit caps remote listing calls per second.
func WithRateLimit(perSecond int) Option {
	return func(c *Collector) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// WithRetry overrides retry behavior, mainly for tests.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *Collector) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// New creates a collector.
func New(client providers.DirectoryClient, logger zerolog.Logger, opts ...Option) *Collector {
	c := &Collector{
		client:      client,
		logger:      logger,
		workers:     DefaultWorkers,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRate), DefaultRate),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect lists every requested kind in every compartment. A failing pair is
// recorded and skipped, never fatal; only context cancellation aborts the
// whole pass. Resources reachable through more than one compartment alias are
// deduplicated by ID.
func (c *Collector) Collect(ctx context.Context, compartments []types.Compartment, kinds []types.ResourceKind) (*Result, error) {
	var mu sync.Mutex
	result := &Result{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, compartment := range compartments {
		for _, kind := range kinds {
			compartment, kind := compartment, kind
			g.Go(func() error {
				resources, err := c.collectPair(ctx, compartment.ID, kind)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					c.logger.Warn().Err(err).
						Str("compartment_id", compartment.ID).
						Str("kind", string(kind)).
						Msg("resource listing failed, skipping pair")
					mu.Lock()
					result.Failures = append(result.Failures, Failure{
						CompartmentID: compartment.ID,
						Kind:          kind,
						Reason:        err.Error(),
					})
					mu.Unlock()
					return nil
				}
				mu.Lock()
				result.Resources = append(result.Resources, resources...)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Resources = dedupe(result.Resources)
	sortFailures(result.Failures)

	c.logger.Info().
		Int("resources", len(result.Resources)).
		Int("failed_pairs", len(result.Failures)).
		Msg("resource collection complete")

	return result, nil
}

// collectPair exhausts the paginated listing for one (compartment, kind) pair.
func (c *Collector) collectPair(ctx context.Context, compartmentID string, kind types.ResourceKind) ([]types.Resource, error) {
	var resources []types.Resource
	page := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var pageResult providers.ResourcePage
		err := c.withRetry(ctx, func() error {
			var err error
			pageResult, err = c.client.ListResources(ctx, compartmentID, kind, page)
			return err
		})
		if err != nil {
			return nil, err
		}

		resources = append(resources, pageResult.Resources...)
		if pageResult.NextPage == "" {
			return resources, nil
		}
		page = pageResult.NextPage
	}
}

func (c *Collector) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", c.maxAttempts, lastErr)
}

// dedupe keeps one record per resource ID. Records are ordered first so the
// survivor does not depend on fan-out scheduling.
func dedupe(resources []types.Resource) []types.Resource {
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].ID != resources[j].ID {
			return resources[i].ID < resources[j].ID
		}
		return resources[i].CompartmentID < resources[j].CompartmentID
	})

	out := resources[:0]
	seen := make(map[string]bool, len(resources))
	for _, r := range resources {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func sortFailures(failures []Failure) {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].CompartmentID != failures[j].CompartmentID {
			return failures[i].CompartmentID < failures[j].CompartmentID
		}
		return failures[i].Kind < failures[j].Kind
	})
}
