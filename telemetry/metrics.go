package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Build pipeline metrics, following OTEL naming conventions
var (
	BuildsTotal         metric.Int64Counter
	BuildDuration       metric.Float64Histogram
	ResourcesDiscovered metric.Int64Gauge
	CompartmentsWalked  metric.Int64Gauge
	PartialScanWarnings metric.Int64Counter
	SnapshotAge         metric.Float64Gauge
	StoreWrites         metric.Int64Counter
)

// initBuildMetrics initializes all metric instruments
func initBuildMetrics() error {
	var err error

	BuildsTotal, err = Meter.Int64Counter("varasto.builds.total",
		metric.WithDescription("Total number of inventory build attempts"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create builds counter: %w", err)
	}

	BuildDuration, err = Meter.Float64Histogram("varasto.build.duration.seconds",
		metric.WithDescription("Duration of inventory build passes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create build_duration histogram: %w", err)
	}

	ResourcesDiscovered, err = Meter.Int64Gauge("varasto.resources.discovered",
		metric.WithDescription("Resources in the most recent snapshot"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resources_discovered gauge: %w", err)
	}

	CompartmentsWalked, err = Meter.Int64Gauge("varasto.compartments.walked",
		metric.WithDescription("Compartments in the most recent snapshot"),
		metric.WithUnit("{compartment}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compartments_walked gauge: %w", err)
	}

	PartialScanWarnings, err = Meter.Int64Counter("varasto.partial_scan.warnings.total",
		metric.WithDescription("Branches and pairs skipped after retries"),
		metric.WithUnit("{warning}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create partial_scan counter: %w", err)
	}

	SnapshotAge, err = Meter.Float64Gauge("varasto.snapshot.age.seconds",
		metric.WithDescription("Age of the active snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_age gauge: %w", err)
	}

	StoreWrites, err = Meter.Int64Counter("varasto.store.writes.total",
		metric.WithDescription("Snapshot store write operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store_writes counter: %w", err)
	}

	return nil
}

// RecordBuild records one build attempt with its outcome
func RecordBuild(ctx context.Context, status string, durationSeconds float64) {
	if BuildsTotal == nil {
		return
	}
	BuildsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	BuildDuration.Record(ctx, durationSeconds, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSnapshot records gauges for the snapshot that just became active
func RecordSnapshot(ctx context.Context, compartments, resources int, warnings int) {
	if ResourcesDiscovered == nil {
		return
	}
	ResourcesDiscovered.Record(ctx, int64(resources))
	CompartmentsWalked.Record(ctx, int64(compartments))
	if warnings > 0 {
		PartialScanWarnings.Add(ctx, int64(warnings))
	}
}
