package catalog

import "time"

// Service represents a named, typed service registration in the remote
// identity catalog.
type Service struct {
	// ID is the remote-assigned identifier.
	ID string `json:"id"`

	// Name is the unique service name (e.g., "keystone", "nova").
	Name string `json:"name"`

	// Type is the free-form service category (e.g., "identity", "compute").
	Type string `json:"type"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`
}

// Endpoint represents a region-scoped set of URLs bound to one owning Service.
type Endpoint struct {
	// ID is the remote-assigned identifier.
	ID string `json:"id"`

	// ServiceID references the owning Service.
	ServiceID string `json:"service_id"`

	// Region is the region this endpoint serves.
	Region string `json:"region"`

	// PublicURL is the publicly reachable URL.
	PublicURL string `json:"public_url"`

	// InternalURL is the internal network URL. Defaults to PublicURL
	// when not separately given.
	InternalURL string `json:"internal_url"`

	// AdminURL is the administrative URL. Defaults to PublicURL when
	// not separately given.
	AdminURL string `json:"admin_url"`
}

// State is the desired disposition of a catalog entry.
type State string

const (
	// StatePresent requests that the service and its endpoint exist.
	StatePresent State = "present"

	// StateAbsent requests removal. Removal is not implemented and
	// always fails deterministically.
	StateAbsent State = "absent"
)

// Validate checks that the state is one of the supported dispositions.
func (s State) Validate() error {
	switch s {
	case StatePresent, StateAbsent:
		return nil
	}
	return NewInvalidArgumentError("state must be \"present\" or \"absent\"", nil).
		WithOperation("validate")
}

// DesiredState is the caller-supplied description of one catalog entry.
type DesiredState struct {
	// Name is the service name. Required.
	Name string `json:"name" validate:"required"`

	// Type is the service type. Required.
	Type string `json:"type" validate:"required"`

	// Description is the optional service description.
	Description string `json:"description,omitempty"`

	// PublicURL is the endpoint's public URL. Required.
	PublicURL string `json:"public_url" validate:"required,url"`

	// InternalURL is the endpoint's internal URL. Empty means "same as
	// PublicURL".
	InternalURL string `json:"internal_url,omitempty" validate:"omitempty,url"`

	// AdminURL is the endpoint's admin URL. Empty means "same as
	// PublicURL".
	AdminURL string `json:"admin_url,omitempty" validate:"omitempty,url"`

	// Region is the endpoint's region. Required.
	Region string `json:"region" validate:"required"`

	// State is the desired disposition. Defaults to present.
	State State `json:"state,omitempty" validate:"omitempty,oneof=present absent"`

	// DryRun reports intended changes without mutating remote state.
	DryRun bool `json:"dry_run,omitempty"`
}

// Normalize fills in defaulted fields: empty internal/admin URLs take the
// public URL's value, and an empty state becomes present.
func (d *DesiredState) Normalize() {
	if d.InternalURL == "" {
		d.InternalURL = d.PublicURL
	}
	if d.AdminURL == "" {
		d.AdminURL = d.PublicURL
	}
	if d.State == "" {
		d.State = StatePresent
	}
}

// ReconcileResult is the structured outcome of one reconciliation.
// ServiceID and EndpointID are empty exactly when dry-run reported a
// would-be creation (the identifier cannot be known without creating).
type ReconcileResult struct {
	// Changed reports whether any mutation happened or, in dry-run,
	// would happen.
	Changed bool `json:"changed"`

	// ServiceID is the id of the (existing or newly created) service.
	ServiceID string `json:"service_id,omitempty"`

	// EndpointID is the id of the (existing or newly created) endpoint.
	EndpointID string `json:"endpoint_id,omitempty"`

	// Diagnostic carries the folded error message when a dry-run could
	// not determine remote state (check-mode convention: report
	// "would change" instead of aborting).
	Diagnostic string `json:"diagnostic,omitempty"`

	// CompletedAt is when the reconciliation finished.
	CompletedAt time.Time `json:"completed_at"`
}
