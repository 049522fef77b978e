package catalog

import "context"

// IdentityClient is the capability set a remote identity service handle must
// provide. The reconciler performs exactly four remote operations: two
// read-only lookups and two creations. Deletion and update are deliberately
// absent from the contract.
//
// Implementations must not retry internally; transient failures propagate to
// the caller, who owns retry policy.
type IdentityClient interface {
	// ListServices returns every service registration in the remote
	// catalog. Filtering by name happens in the lookup layer so that
	// duplicate names can be detected rather than masked.
	ListServices(ctx context.Context) ([]Service, error)

	// ListEndpoints returns every endpoint in the remote catalog.
	ListEndpoints(ctx context.Context) ([]Endpoint, error)

	// CreateService registers a new service and returns it with the
	// remote-assigned ID populated.
	CreateService(ctx context.Context, name, serviceType, description string) (*Service, error)

	// CreateEndpoint registers a new endpoint bound to serviceID and
	// returns it with the remote-assigned ID populated.
	CreateEndpoint(ctx context.Context, ep Endpoint) (*Endpoint, error)
}
