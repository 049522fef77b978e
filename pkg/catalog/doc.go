// Package catalog defines the domain model for the keystonectl service-catalog
// reconciler: the Service and Endpoint resource records, the desired-state
// request and result types, the classified error taxonomy, and the
// IdentityClient capability interface that remote implementations (and test
// fakes) must satisfy.
//
// # Model
//
// A Service is a named, typed registration in the identity service's catalog.
// Service names are unique: zero matches on lookup is the normal "not created
// yet" condition, while more than one match is an integrity violation in the
// remote system and is surfaced as an ambiguous-state error, never resolved by
// picking one.
//
// An Endpoint binds a region and three URLs (public, internal, admin) to
// exactly one owning Service. The model deliberately supports a single
// endpoint per service.
//
// Neither resource is ever updated in place or deleted by this tool: an
// existing record whose fields differ from the desired state fails with a
// not-supported error, and the absent disposition fails with an unimplemented
// error. Both limits are documented capability boundaries, not bugs.
//
// # Errors
//
// All failures carry an ErrorKind so callers can distinguish the create path
// (not found), fatal integrity violations (ambiguous state), capability limits
// (not supported, unimplemented), contract violations (invalid argument), and
// pass-through remote transport failures.
package catalog
