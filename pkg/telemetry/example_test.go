package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/keystonectl/keystonectl/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "keystonectl"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("sweep starting")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("reconciler")

	// Add context fields
	logger = logger.WithSweepID("sweep-123").WithEntry("nova/compute")

	logger.Debug("looking up service")
	logger.Info("service already present")
	logger.Warn("service type drift detected")

	err := fmt.Errorf("network timeout")
	logger.WithError(err).Error("failed to reach identity service")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "none"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.StartSweepSpan(ctx, "sweep-123", false)
	defer span.End()

	span.SetAttributes(attribute.Int("catalog.entries", 5))
	span.AddEvent("catalog.loaded")

	// Nested per-entry span
	_, childSpan := tel.Tracer.StartEntrySpan(ctx, "nova/compute", "present")
	defer childSpan.End()

	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddress = ":0"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordSweepStarted(false)

	start := time.Now()
	time.Sleep(5 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordReconciliation("present", "changed", duration)
	tel.Metrics.RecordRemoteCall("create_service", 2*time.Millisecond)
	tel.Metrics.RecordError("not_supported")
	tel.Metrics.RecordSweepCompleted("succeeded", duration)

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil)

	tel.Events.PublishSweepStarted("sweep-123", 3, false)
	tel.Events.PublishEntryChanged("sweep-123", "nova/compute", "svc-1", "ep-1")
	tel.Events.PublishSweepCompleted("sweep-123", "succeeded", 25*time.Millisecond)

	// Output varies, no output specified
}

// Example_entryInstrumentation demonstrates instrumenting one catalog entry.
func Example_entryInstrumentation() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartEntryOperation(ctx, "sweep-123", "nova/compute", "present")

	ic.Logger.Info("reconciling entry")
	time.Sleep(5 * time.Millisecond)

	ic.End(nil)

	fmt.Println("Entry instrumentation complete")
	// Output: Entry instrumentation complete
}

// Example_remoteInstrumentation demonstrates instrumenting identity calls.
func Example_remoteInstrumentation() {
	cfg := telemetry.DefaultConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	err := telemetry.RecordRemoteOperation(ctx, nil, "list_services", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("Remote operation completed successfully")
	}

	// Output: Remote operation completed successfully
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Only warnings and errors
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// Only drift events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Drift event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeDriftDetected))

	tel.Events.PublishSweepStarted("sweep-123", 3, false)        // info, filtered out
	tel.Events.PublishDriftDetected("sweep-123", "nova/compute") // warning, passes
	tel.Events.PublishSweepFailed("sweep-123", "policy violation")

	// Output varies, no output specified
}
