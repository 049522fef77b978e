package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/keystonectl/keystonectl/pkg/catalog"
	"github.com/keystonectl/keystonectl/pkg/telemetry"
)

// Reconciler converges desired catalog entries against a remote identity
// service. Each reconciliation is a short, strictly ordered sequence of
// blocking remote calls: lookup service, lookup endpoint, optionally create
// service, optionally create endpoint. The reconciler never retries and never
// updates or deletes remote resources.
type Reconciler struct {
	// client performs the four remote operations.
	client catalog.IdentityClient

	// logger receives per-entry reconciliation logs.
	logger *telemetry.Logger

	// metrics records reconciliation and remote-call metrics. Optional.
	metrics *telemetry.Metrics

	// events publishes entry outcome events. Optional.
	events *telemetry.EventPublisher

	// guard serializes same-name reconciliations when enabled.
	guard *Guard

	// validate checks desired-state requests before any remote call.
	validate *validator.Validate
}

// New creates a reconciler bound to the given identity client.
func New(client catalog.IdentityClient, logger *telemetry.Logger) *Reconciler {
	return &Reconciler{
		client:   client,
		logger:   logger,
		validate: validator.New(),
	}
}

// WithGuard enables per-name serialization of concurrent reconciliations
// inside this process. The guard does not protect against other processes
// racing the same remote catalog; the lookup layer's duplicate detection is
// the only defense there, and it only detects the race after the fact.
func (r *Reconciler) WithGuard() *Reconciler {
	r.guard = NewGuard()
	return r
}

// WithMetrics attaches a metrics recorder.
func (r *Reconciler) WithMetrics(metrics *telemetry.Metrics) *Reconciler {
	r.metrics = metrics
	return r
}

// WithEvents attaches an event publisher.
func (r *Reconciler) WithEvents(events *telemetry.EventPublisher) *Reconciler {
	r.events = events
	return r
}

// lookupService returns the unique service with the given name.
// Zero matches is a not-found error (the normal absent condition), more than
// one is an ambiguous-state error. The remote system's name-uniqueness
// invariant is checked here rather than trusted.
func (r *Reconciler) lookupService(ctx context.Context, name string) (*catalog.Service, error) {
	services, err := r.listServices(ctx)
	if err != nil {
		return nil, err
	}

	var matches []catalog.Service
	for _, svc := range services {
		if svc.Name == name {
			matches = append(matches, svc)
		}
	}

	switch len(matches) {
	case 0:
		return nil, catalog.NewNotFoundError(
			fmt.Sprintf("service %q not found", name), nil).
			WithResource(name).
			WithOperation("lookup_service")
	case 1:
		return &matches[0], nil
	}
	return nil, catalog.NewAmbiguousStateError(
		fmt.Sprintf("%d services named %q exist, cannot choose one", len(matches), name), nil).
		WithResource(name).
		WithOperation("lookup_service")
}

// lookupEndpoint returns the unique endpoint owned by the given service.
// The single-endpoint-per-service model makes a second endpoint under the
// same service an ambiguous state, not a normal condition.
func (r *Reconciler) lookupEndpoint(ctx context.Context, serviceID, name string) (*catalog.Endpoint, error) {
	endpoints, err := r.listEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	var matches []catalog.Endpoint
	for _, ep := range endpoints {
		if ep.ServiceID == serviceID {
			matches = append(matches, ep)
		}
	}

	switch len(matches) {
	case 0:
		return nil, catalog.NewNotFoundError(
			fmt.Sprintf("no endpoint for service %q", name), nil).
			WithResource(name).
			WithOperation("lookup_endpoint")
	case 1:
		return &matches[0], nil
	}
	return nil, catalog.NewAmbiguousStateError(
		fmt.Sprintf("%d endpoints exist for service %q, cannot choose one", len(matches), name), nil).
		WithResource(name).
		WithOperation("lookup_endpoint")
}

// EnsureServicePresent makes sure a service with the desired name, type, and
// description exists. An existing service whose fields differ byte-for-byte
// from the desired values fails with a not-supported error: update in place
// is a deliberate capability limit, never performed implicitly.
//
// The returned id is empty exactly when dry-run reported a would-be creation.
func (r *Reconciler) EnsureServicePresent(ctx context.Context, desired catalog.DesiredState) (bool, string, error) {
	existing, err := r.lookupService(ctx, desired.Name)
	if err == nil {
		if existing.Type != desired.Type {
			return false, "", catalog.NewNotSupportedError(
				fmt.Sprintf("service %q exists with type %q, desired %q; updating a service in place is not supported",
					desired.Name, existing.Type, desired.Type), nil).
				WithResource(desired.Name).
				WithOperation("ensure_service")
		}
		if existing.Description != desired.Description {
			return false, "", catalog.NewNotSupportedError(
				fmt.Sprintf("service %q exists with a different description; updating a service in place is not supported",
					desired.Name), nil).
				WithResource(desired.Name).
				WithOperation("ensure_service")
		}
		return false, existing.ID, nil
	}
	if !catalog.IsNotFound(err) {
		return false, "", err
	}

	// Absent: a change is required.
	if desired.DryRun {
		return true, "", nil
	}

	var created *catalog.Service
	err = r.remoteCall(ctx, "create_service", desired.Name, func() error {
		var callErr error
		created, callErr = r.client.CreateService(ctx, desired.Name, desired.Type, desired.Description)
		return callErr
	})
	if err != nil {
		return false, "", err
	}
	return true, created.ID, nil
}

// EnsureEndpointPresent makes sure the endpoint owned by the named service
// matches the desired region and URLs. The owning service must already exist;
// this operation never creates it implicitly, so an absent service surfaces
// as a hard not-found error.
func (r *Reconciler) EnsureEndpointPresent(ctx context.Context, desired catalog.DesiredState) (bool, string, error) {
	svc, err := r.lookupService(ctx, desired.Name)
	if err != nil {
		return false, "", err
	}

	existing, err := r.lookupEndpoint(ctx, svc.ID, desired.Name)
	if err == nil {
		if drift := endpointDrift(existing, desired); drift != "" {
			return false, "", catalog.NewNotSupportedError(
				fmt.Sprintf("endpoint for service %q exists with a different %s; updating an endpoint in place is not supported",
					desired.Name, drift), nil).
				WithResource(desired.Name).
				WithOperation("ensure_endpoint")
		}
		return false, existing.ID, nil
	}
	if !catalog.IsNotFound(err) {
		return false, "", err
	}

	if desired.DryRun {
		return true, "", nil
	}

	var created *catalog.Endpoint
	err = r.remoteCall(ctx, "create_endpoint", desired.Name, func() error {
		var callErr error
		created, callErr = r.client.CreateEndpoint(ctx, catalog.Endpoint{
			ServiceID:   svc.ID,
			Region:      desired.Region,
			PublicURL:   desired.PublicURL,
			InternalURL: desired.InternalURL,
			AdminURL:    desired.AdminURL,
		})
		return callErr
	})
	if err != nil {
		return false, "", err
	}
	return true, created.ID, nil
}

// Reconcile dispatches one desired-state request. Validation failures and
// invalid dispositions are caught before any remote call. The present path
// evaluates the service and endpoint steps unconditionally, combining their
// results; the absent path fails deterministically because removal is
// unimplemented.
func (r *Reconciler) Reconcile(ctx context.Context, desired catalog.DesiredState) (*catalog.ReconcileResult, error) {
	desired.Normalize()

	if err := desired.State.Validate(); err != nil {
		return nil, withEntryContext(err, desired.Name)
	}
	if err := r.validate.Struct(desired); err != nil {
		return nil, catalog.NewInvalidArgumentError("invalid desired state", err).
			WithResource(desired.Name).
			WithOperation("reconcile")
	}

	if r.guard != nil {
		unlock := r.guard.Acquire(desired.Name)
		defer unlock()
	}

	logger := r.entryLogger(desired)
	timer := telemetry.NewTimer()

	var result *catalog.ReconcileResult
	var err error

	switch desired.State {
	case catalog.StatePresent:
		result, err = r.reconcilePresent(ctx, desired, logger)
	case catalog.StateAbsent:
		err = catalog.NewUnimplementedError(
			"removal of services and endpoints is not implemented", nil).
			WithResource(desired.Name).
			WithOperation("reconcile")
	}

	if err != nil {
		r.metrics.RecordError(string(catalog.KindOf(err)))
		r.metrics.RecordReconciliation(string(desired.State), "failed", timer.Duration())
		logger.WithError(err).Error("reconcile failed")
		return nil, err
	}

	outcome := "unchanged"
	if result.Changed {
		outcome = "changed"
	}
	r.metrics.RecordReconciliation(string(desired.State), outcome, timer.Duration())
	logger.WithField("changed", result.Changed).Info("reconcile complete")
	return result, nil
}

// reconcilePresent runs the service and endpoint steps in order. The service
// step must succeed before the endpoint step makes sense (the endpoint is
// bound to the service id), but a no-change service outcome does not
// short-circuit the endpoint evaluation.
func (r *Reconciler) reconcilePresent(ctx context.Context, desired catalog.DesiredState, logger *telemetry.Logger) (*catalog.ReconcileResult, error) {
	svcChanged, svcID, err := r.EnsureServicePresent(ctx, desired)
	if err != nil {
		return nil, err
	}
	logger.WithField("service_changed", svcChanged).Debug("service step complete")

	// A dry-run that would create the service cannot look the service up
	// for the endpoint step; the endpoint necessarily does not exist either.
	if desired.DryRun && svcChanged {
		return &catalog.ReconcileResult{
			Changed:     true,
			CompletedAt: time.Now(),
		}, nil
	}

	epChanged, epID, err := r.EnsureEndpointPresent(ctx, desired)
	if err != nil {
		return nil, err
	}
	logger.WithField("endpoint_changed", epChanged).Debug("endpoint step complete")

	return &catalog.ReconcileResult{
		Changed:     svcChanged || epChanged,
		ServiceID:   svcID,
		EndpointID:  epID,
		CompletedAt: time.Now(),
	}, nil
}

// Check runs one reconciliation in forced dry-run mode and folds any error
// into a "would change" outcome with a diagnostic. A check run reports state
// it could not determine instead of aborting the surrounding sweep.
func (r *Reconciler) Check(ctx context.Context, desired catalog.DesiredState) *catalog.ReconcileResult {
	desired.DryRun = true
	result, err := r.Reconcile(ctx, desired)
	if err != nil {
		return &catalog.ReconcileResult{
			Changed:     true,
			Diagnostic:  err.Error(),
			CompletedAt: time.Now(),
		}
	}
	return result
}

// remoteCall funnels one identity service call through the shared span,
// timer, and metrics instrumentation, then classifies its failure.
func (r *Reconciler) remoteCall(ctx context.Context, operation, resource string, fn func() error) error {
	if err := telemetry.RecordRemoteOperation(ctx, r.metrics, operation, fn); err != nil {
		return r.asRemote(err, resource, operation)
	}
	return nil
}

func (r *Reconciler) listServices(ctx context.Context) ([]catalog.Service, error) {
	var services []catalog.Service
	err := r.remoteCall(ctx, "list_services", "", func() error {
		var callErr error
		services, callErr = r.client.ListServices(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *Reconciler) listEndpoints(ctx context.Context) ([]catalog.Endpoint, error) {
	var endpoints []catalog.Endpoint
	err := r.remoteCall(ctx, "list_endpoints", "", func() error {
		var callErr error
		endpoints, callErr = r.client.ListEndpoints(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return endpoints, nil
}

// asRemote classifies a client error as a remote failure unless it already
// carries a classification.
func (r *Reconciler) asRemote(err error, resource, operation string) error {
	if catalog.KindOf(err) != "" {
		return err
	}
	e := catalog.NewRemoteError("identity service call failed", err).WithOperation(operation)
	if resource != "" {
		e = e.WithResource(resource)
	}
	return e
}

// withEntryContext attaches the entry name to a classified error that lacks
// resource context.
func withEntryContext(err error, name string) error {
	var e *catalog.ReconcileError
	if errors.As(err, &e) && e.Resource == "" {
		return e.WithResource(name)
	}
	return err
}

func (r *Reconciler) entryLogger(desired catalog.DesiredState) *telemetry.Logger {
	if r.logger == nil {
		return telemetry.FromContext(context.Background())
	}
	return r.logger.WithEntry(desired.Name).WithField("dry_run", desired.DryRun)
}

// endpointDrift reports the first field of an existing endpoint that differs
// from the desired values, or "" when all fields match exactly.
func endpointDrift(existing *catalog.Endpoint, desired catalog.DesiredState) string {
	switch {
	case existing.Region != desired.Region:
		return "region"
	case existing.PublicURL != desired.PublicURL:
		return "public URL"
	case existing.InternalURL != desired.InternalURL:
		return "internal URL"
	case existing.AdminURL != desired.AdminURL:
		return "admin URL"
	}
	return ""
}
