// Package keystone implements the catalog.IdentityClient contract against
// the OpenStack Keystone v2.0 admin API.
//
// The client speaks to four resources only:
//
//	GET  /OS-KSADM/services    list service registrations
//	POST /OS-KSADM/services    create a service
//	GET  /endpoints            list endpoints
//	POST /endpoints            create an endpoint
//
// Requests authenticate with a service token in the X-Auth-Token header.
// The client never retries; transient failures propagate to the caller as
// remote-classified errors. HTTP status codes are not mapped onto the
// reconciliation error taxonomy: a 404 from the API is a remote failure,
// while the taxonomy's not-found kind is reserved for "zero lookup matches"
// in the reconciler.
package keystone
