package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varasto/cache"
)

var rebuildBudget time.Duration

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Walk the compartment tree and build a fresh snapshot",
	Long: `Run one full discovery pass: resolve the configured roots, walk the
compartment hierarchy, list resources in every compartment, and persist
the assembled snapshot atomically.

Unreachable branches and failing (compartment, kind) listings are
recorded in the snapshot report and skipped; they never abort the build.
A failed build leaves the previous snapshot untouched.`,
	Example: `  varasto rebuild                  # Rebuild with the configured budget
  varasto rebuild --budget 2m      # Abort if the pass exceeds 2 minutes`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().DurationVar(&rebuildBudget, "budget", 0, "Override the build time budget")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manager, cfg, cleanup, err := setupManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if rebuildBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rebuildBudget)
		defer cancel()
	}

	fmt.Printf("Rebuilding snapshot for %s@%s...\n\n", cfg.Profile, cfg.Region)

	start := time.Now()
	snap, err := manager.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrRebuildInProgress) {
			return fmt.Errorf("another rebuild is already running")
		}
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Printf("Snapshot built in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Compartments: %d\n", len(snap.Compartments))
	fmt.Printf("   Resources:    %d\n", snap.Len())

	report := snap.Report
	if len(report.PartialBranches) > 0 {
		fmt.Printf("\nPartial branches (unreachable subtrees):\n")
		for _, id := range report.PartialBranches {
			fmt.Printf("   %s\n", id)
		}
	}
	if len(report.FailedPairs) > 0 {
		fmt.Printf("\nFailed listings (compartment/kind):\n")
		for _, pair := range report.FailedPairs {
			fmt.Printf("   %s\n", pair)
		}
	}
	if len(report.OrphanedResources) > 0 {
		fmt.Printf("\nDropped %d orphaned resources (unknown compartment)\n",
			len(report.OrphanedResources))
	}
	if len(report.TruncatedPaths) > 0 {
		fmt.Printf("Truncated %d compartment paths (parent cycle)\n",
			len(report.TruncatedPaths))
	}

	return nil
}
