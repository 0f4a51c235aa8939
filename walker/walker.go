// Package walker discovers the reachable compartment set by breadth-first
// traversal of the tenancy hierarchy.
package walker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

// Defaults for remote call retries
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 200 * time.Millisecond
)

// Walker traverses the compartment hierarchy from configured roots.
// Traversal is iterative with a visited set, so duplicate edges and cycles
// terminate instead of looping or blowing the stack.
type Walker struct {
	client      providers.DirectoryClient
	logger      zerolog.Logger
	maxAttempts int
	backoff     time.Duration
}

// Warning records a branch that could not be fully scanned.
type Warning struct {
	CompartmentID string `json:"compartment_id"`
	Reason        string `json:"reason"`
}

// Result is the flattened reachable compartment set plus any
// partial-scan warnings.
type Result struct {
	Compartments []types.Compartment
	Warnings     []Warning
}

// New creates a walker with default retry behavior.
func New(client providers.DirectoryClient, logger zerolog.Logger) *Walker {
	return &Walker{
		client:      client,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
}

// WithRetry overrides retry behavior, mainly for tests.
func (w *Walker) WithRetry(maxAttempts int, backoff time.Duration) *Walker {
	w.maxAttempts = maxAttempts
	w.backoff = backoff
	return w
}

type queueItem struct {
	compartment types.Compartment
	depth       int
}

// Discover walks the hierarchy from each root and returns every reachable
// active compartment. maxDepth bounds expansion: a compartment at the bound
// is included but its children are not listed. maxDepth <= 0 means unbounded.
//
// A branch whose child listing keeps failing is recorded as a warning and
// traversal continues on sibling branches. Discover fails only when no root
// is reachable at all.
func (w *Walker) Discover(ctx context.Context, roots []string, maxDepth int) (*Result, error) {
	result := &Result{}
	visited := make(map[string]bool)
	var queue []queueItem

	for _, rootID := range roots {
		root, err := w.resolveRoot(ctx, rootID)
		if err != nil {
			w.logger.Warn().Err(err).Str("compartment_id", rootID).Msg("root compartment unreachable")
			result.Warnings = append(result.Warnings, Warning{CompartmentID: rootID, Reason: err.Error()})
			continue
		}
		if !root.IsActive() {
			w.logger.Debug().Str("compartment_id", rootID).Str("state", root.State).Msg("skipping inactive root")
			continue
		}
		if !visited[root.ID] {
			visited[root.ID] = true
			queue = append(queue, queueItem{compartment: root, depth: 0})
		}
	}

	if len(queue) == 0 {
		return nil, fmt.Errorf("no root compartment reachable out of %d configured", len(roots))
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		result.Compartments = append(result.Compartments, item.compartment)

		if maxDepth > 0 && item.depth >= maxDepth {
			continue
		}

		children, err := w.listChildren(ctx, item.compartment.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.logger.Warn().Err(err).
				Str("compartment_id", item.compartment.ID).
				Msg("branch partially scanned")
			result.Warnings = append(result.Warnings, Warning{
				CompartmentID: item.compartment.ID,
				Reason:        err.Error(),
			})
			continue
		}

		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if !child.IsActive() {
				w.logger.Debug().Str("compartment_id", child.ID).Str("state", child.State).Msg("skipping inactive compartment")
				continue
			}
			queue = append(queue, queueItem{compartment: child, depth: item.depth + 1})
		}
	}

	w.logger.Info().
		Int("compartments", len(result.Compartments)).
		Int("warnings", len(result.Warnings)).
		Msg("compartment discovery complete")

	return result, nil
}

// resolveRoot fetches a configured root by ID with retries.
func (w *Walker) resolveRoot(ctx context.Context, id string) (types.Compartment, error) {
	var compartment types.Compartment
	err := w.withRetry(ctx, func() error {
		var err error
		compartment, err = w.client.GetCompartment(ctx, id)
		return err
	})
	return compartment, err
}

// listChildren exhausts the paginated child listing for one compartment.
func (w *Walker) listChildren(ctx context.Context, parentID string) ([]types.Compartment, error) {
	var children []types.Compartment
	page := ""
	for {
		var result providers.CompartmentPage
		err := w.withRetry(ctx, func() error {
			var err error
			result, err = w.client.ListChildCompartments(ctx, parentID, page)
			return err
		})
		if err != nil {
			return nil, err
		}
		children = append(children, result.Compartments...)
		if result.NextPage == "" {
			return children, nil
		}
		page = result.NextPage
	}
}

// withRetry runs fn up to maxAttempts times with doubling backoff.
func (w *Walker) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := w.backoff
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", w.maxAttempts, lastErr)
}
