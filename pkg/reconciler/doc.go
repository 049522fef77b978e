// Package reconciler implements idempotent convergence of declared identity
// catalog entries against a remote OpenStack Keystone service.
//
// # Model
//
// A catalog entry declares one service (name, type, description) and the one
// endpoint bound to it (region plus public, internal, and admin URLs). The
// reconciler compares declared state against remote state and applies at most
// one creation per resource kind:
//
//   - resource absent: create it (or report "would create" in dry-run)
//   - resource present and identical: no action
//   - resource present but different: fail with a not-supported error
//
// Update in place and deletion are deliberate capability limits. Drifted
// resources are never silently converged, deleted, or recreated; the error
// tells the operator that manual intervention is needed. An entry declared
// absent always fails with an unimplemented error.
//
// # Lookup contract
//
// Lookups distinguish "zero matches" (not found, the normal absent condition
// that drives creation) from "more than one match" (ambiguous state, an
// integrity violation in the remote catalog that aborts the entry rather
// than guessing which resource is authoritative).
//
// # Concurrency
//
// Each reconciliation is a synchronous sequence of blocking remote calls
// with no internal retries. The lookup-then-create sequence is inherently
// racy across concurrent reconcilers of the same name; WithGuard serializes
// them inside one process, and the ambiguous-state detection is the only
// after-the-fact defense across processes.
//
// # Usage
//
//	client, _ := keystone.NewClient(keystone.Config{AuthURL: authURL, Token: token})
//	rec := reconciler.New(client, logger).WithGuard()
//
//	result, err := rec.Reconcile(ctx, catalog.DesiredState{
//	    Name:      "keystone",
//	    Type:      "identity",
//	    PublicURL: "https://identity.example.org:5000/v2.0",
//	    Region:    "RegionOne",
//	})
//
// Sweep reconciles a whole catalog document in order, recording per-entry
// outcomes and a summary; Check runs a single entry in forced dry-run mode,
// folding errors into a diagnostic "would change" outcome.
package reconciler
