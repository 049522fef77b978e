// Package policy provides Open Policy Agent (OPA) integration for keystonectl.
//
// This package implements policy enforcement for catalog entries and sweep
// plans using the Rego policy language. It includes built-in policies for
// common catalog hygiene requirements and supports custom policy loading.
//
// # Architecture
//
// The policy system consists of four main components:
//
//  1. Engine - Compiles and evaluates Rego policies
//  2. Loader - Loads policies from files, directories, and bundles
//  3. Types - Data structures for policies, violations, and results
//  4. Built-in Policies - Pre-defined policies for common requirements
//
// # Usage
//
// Creating a policy engine:
//
//	logger := zerolog.New(os.Stdout)
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Evaluating a catalog entry:
//
//	entry := &catalog.DesiredState{
//	    Name:      "keystone",
//	    Type:      "identity",
//	    PublicURL: "https://identity.example.org:5000/v2.0",
//	    Region:    "RegionOne",
//	    State:     catalog.StatePresent,
//	}
//
//	result, err := engine.EvaluateEntry(ctx, entry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !result.Allowed {
//	    for _, violation := range result.Violations {
//	        fmt.Printf("Policy %s violated: %s\n", violation.Policy, violation.Message)
//	    }
//	}
//
// Loading custom policies:
//
//	paths := []string{
//	    "/etc/keystonectl/policies",
//	    "/opt/policies/custom.rego",
//	}
//
//	err = engine.LoadPolicies(ctx, paths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Built-in Policies
//
// The following policies are included by default:
//
//  1. service-naming - Enforces service naming conventions
//  2. endpoint-url-scheme - Flags plain-http and rejects non-http(s) URLs
//  3. no-absent-entries - Warns about absent entries, which always fail
//
// # Custom Policies
//
// Custom policies can be written in Rego and loaded from files. The input
// document carries either an "entry" (one catalog entry) or a "sweep" (a
// whole sweep plan), plus a "context":
//
//	package custom.policies.regions
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.entry
//	    entry := input.entry
//
//	    # Only sanctioned regions may appear in the catalog
//	    not entry.region in ["RegionOne", "RegionTwo"]
//
//	    violation := {
//	        "message": sprintf("entry %s uses unknown region %s", [entry.name, entry.region]),
//	        "severity": "error",
//	        "entry": entry.name,
//	    }
//	}
//
// # Policy Evaluation Points
//
// Policies are evaluated before any remote mutation:
//
//  1. Catalog validation - After parsing, before building a sweep
//  2. Sweep evaluation - Before the first reconciliation of a sweep
//  3. Entry evaluation - On demand, for a single catalog entry
//
// # Severity Levels
//
// Violations have four severity levels:
//
//   - info: Informational messages
//   - warning: Issues that should be reviewed but don't block sweeps
//   - error: Issues that block sweeps
//   - critical: Severe issues requiring immediate attention
//
// # Hot Reload
//
// The loader supports watching policy files for changes and reloading automatically:
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, engine.ReplacePolicies)
//
// # Performance
//
// Policies are compiled once and reused for multiple evaluations. The engine
// uses OPA's PreparedEvalQuery for optimal performance. Caching is implemented
// at both the loader and engine levels.
package policy
