// Package config provides CUE catalog-document parsing and Starlark
// evaluation for keystonectl.
//
// # Overview
//
// A catalog document declares the desired state of an identity service
// catalog: a workspace block with defaults, and a catalog block with one
// entry per service. The package parses CUE files, validates entries, applies
// defaults, and optionally runs a Starlark generate hook for procedural
// entries.
//
// # Catalog Document Structure
//
//	workspace: {
//	    name:   "prod-identity"
//	    region: "RegionOne"
//	}
//
//	catalog: {
//	    keystone: {
//	        type:        "identity"
//	        description: "Keystone Identity Service"
//	        public_url:  "https://identity.example.org:5000/v2.0"
//	    }
//	    nova: {
//	        type:       "compute"
//	        public_url: "https://compute.example.org:8774/v2"
//	        region:     "RegionTwo"
//	    }
//	}
//
// The catalog block may also be a list of entries carrying their own names.
// Defaults applied at parse time: internal_url and admin_url take the
// public_url value, region takes the workspace region, and state defaults to
// "present".
//
// # Starlark Generation
//
// A document may carry a generate script that computes entries
// procedurally. The script receives the workspace and must define an
// "entries" global:
//
//	generate: """
//	    entries = [{
//	        "name":       "swift-" + str(i),
//	        "type":       "object-store",
//	        "public_url": "https://swift-" + str(i) + ".example.org/v1",
//	    } for i in range(3)]
//	    """
//
// Generated entries pass through the same defaulting and validation as
// declared entries.
//
// # Error Handling
//
// Parsing and validation errors carry CUE file locations:
//
//	ValidationError{
//	    File: "catalog.cue",
//	    Line: 12,
//	    Path: "catalog.keystone",
//	    Message: "validation failed: ...",
//	    Severity: "error",
//	}
//
// # Tool Settings
//
// Connection, store, and telemetry settings live in a separate YAML file
// (keystonectl.yaml) loaded with LoadSettings; the conventional OS_AUTH_URL
// and OS_SERVICE_TOKEN environment variables fill empty auth fields.
//
// # Security
//
// Starlark execution is sandboxed: no filesystem or network access, print
// suppressed, and a timeout (default 30 seconds).
package config
