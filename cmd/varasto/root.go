package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varasto/cache"
	"github.com/yairfalse/varasto/config"
	"github.com/yairfalse/varasto/providers"
	_ "github.com/yairfalse/varasto/providers/oci" // Register OCI provider
	"github.com/yairfalse/varasto/storage"
	"github.com/yairfalse/varasto/telemetry"
)

var (
	version      = "0.1.0"
	configPath   string
	providerName string

	rootCmd = &cobra.Command{
		Use:   "varasto",
		Short: "Inventory Cache Engine",
		Long: `Varasto - Inventory Cache Engine

Varasto walks your compartment hierarchy, collects the resources in it
and assembles a point-in-time snapshot you can query offline. One remote
pass, then every lookup is local: search, summaries, compartment trees.

Snapshots are persisted atomically per (profile, region) and served even
when stale, with a warning, until the next rebuild replaces them.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Varasto {{.Version}} - Inventory Cache Engine
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "varasto.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "oci", "Directory provider")
}

// setupManager wires config, provider, store and logger into a manager.
// The returned cleanup closes the manager's history and journal.
func setupManager(ctx context.Context) (*cache.Manager, *config.Config, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := providers.Get(ctx, providerName, providers.ClientConfig{
		Profile: cfg.Profile,
		Region:  cfg.Region,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	logger := telemetry.NewLogger("varasto")
	store := storage.NewStore(cfg.Cache.Dir, cfg.Source(), logger.Logger)

	manager, err := cache.NewManager(client, store, logger, cache.OptionsFromConfig(cfg))
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() { _ = manager.Close() }
	return manager, cfg, cleanup, nil
}

// warnIfStale prints a staleness warning for query commands. Stale results
// are still served; the user decides when to rebuild.
func warnIfStale(manager *cache.Manager) {
	age, err := manager.Age()
	if err != nil {
		return
	}
	if manager.IsStale() {
		fmt.Fprintf(os.Stderr, "Warning: snapshot is %.1fh old, run 'varasto rebuild' to refresh\n",
			age.Hours())
	}
}
