// Package telemetry provides observability instrumentation for keystonectl.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring catalog sweeps.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "keystonectl"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx := tel.WithContext(context.Background())
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("reconciler")
//	logger = logger.WithSweepID(sweepID).WithEntry("nova/compute")
//	logger.Info("reconciling entry")
//	logger.WithError(err).Error("reconcile failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Spans cover sweeps, per-entry reconciliations, and individual identity
// service calls:
//
//	ctx, span := tel.Tracer.StartSweepSpan(ctx, sweepID, dryRun)
//	defer span.End()
//
// Supported exporters: OTLP (production), stdout (development), none.
//
// # Metrics
//
// Prometheus metrics track sweep and reconciliation behavior:
//
//	tel.Metrics.RecordSweepStarted(dryRun)
//	tel.Metrics.RecordReconciliation("present", "changed", duration)
//	tel.Metrics.RecordRemoteCall("create_service", duration)
//	tel.Metrics.RecordError("not_supported")
//
// Metrics are exposed via HTTP at /metrics (default :9102).
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishSweepStarted(sweepID, len(entries), dryRun)
//	tel.Events.PublishEntryChanged(sweepID, entry, serviceID, endpointID)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("%s: %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// # Context Helpers
//
// High-level helpers wrap the common instrumentation patterns:
//
//	ic := telemetry.StartEntryOperation(ctx, sweepID, entry.Name, string(entry.State))
//	defer ic.End(err)
//
//	err := telemetry.RecordRemoteOperation(ctx, nil, "list_services", func() error {
//	    return client.ListServices(ctx)
//	})
//
// # Graceful Shutdown
//
// Always shut down telemetry to flush pending traces and events:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("telemetry shutdown: %v", err)
//	}
package telemetry
