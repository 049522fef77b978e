package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		serviceNamingPolicy(),
		endpointURLSchemePolicy(),
		noAbsentEntriesPolicy(),
	}
}

// serviceNamingPolicy enforces service naming conventions.
func serviceNamingPolicy() Policy {
	return Policy{
		Name:        "service-naming",
		Description: "Enforces service naming conventions (lowercase, alphanumeric, hyphens only)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package keystonectl.policies.naming

import rego.v1

deny contains violation if {
	input.entry
	entry := input.entry
	name := entry.name

	# Name must be lowercase
	lower(name) != name
	violation := {
		"message": sprintf("service name '%s' must be lowercase", [name]),
		"severity": "error",
		"entry": name,
	}
}

deny contains violation if {
	input.entry
	entry := input.entry
	name := entry.name

	# Name must match pattern: alphanumeric and hyphens only
	not regex.match("^[a-z0-9-]+$", name)
	violation := {
		"message": sprintf("service name '%s' must contain only lowercase letters, numbers, and hyphens", [name]),
		"severity": "error",
		"entry": name,
	}
}

deny contains violation if {
	input.entry
	entry := input.entry
	name := entry.name

	# Name must not start or end with hyphen
	regex.match("^-.*", name)
	violation := {
		"message": sprintf("service name '%s' must not start with a hyphen", [name]),
		"severity": "error",
		"entry": name,
	}
}

deny contains violation if {
	input.entry
	entry := input.entry
	name := entry.name

	regex.match(".*-$", name)
	violation := {
		"message": sprintf("service name '%s' must not end with a hyphen", [name]),
		"severity": "error",
		"entry": name,
	}
}

deny contains violation if {
	input.entry
	entry := input.entry
	name := entry.name

	count(name) > 63
	violation := {
		"message": sprintf("service name '%s' must not exceed 63 characters", [name]),
		"severity": "error",
		"entry": name,
	}
}

deny contains violation if {
	input.entry
	entry := input.entry

	# Service type follows the same conventions as the name
	not regex.match("^[a-z0-9-]+$", entry.type)
	violation := {
		"message": sprintf("service type '%s' must contain only lowercase letters, numbers, and hyphens", [entry.type]),
		"severity": "error",
		"entry": entry.name,
	}
}`,
	}
}

// endpointURLSchemePolicy flags plain-http and unknown URL schemes.
func endpointURLSchemePolicy() Policy {
	return Policy{
		Name:        "endpoint-url-scheme",
		Description: "Flags plain-http public URLs and rejects non-http(s) endpoint URLs",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"endpoints", "transport"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package keystonectl.policies.urls

import rego.v1

url_fields := ["public_url", "internal_url", "admin_url"]

deny contains violation if {
	input.entry
	entry := input.entry

	# Plain-http public URLs are worth a second look
	startswith(entry.public_url, "http://")
	violation := {
		"message": sprintf("entry %s uses a plain-http public URL: %s", [entry.name, entry.public_url]),
		"severity": "warning",
		"entry": entry.name,
		"remediation": "serve the public endpoint over https",
	}
}

deny contains violation if {
	input.entry
	entry := input.entry
	some field in url_fields
	url := entry[field]
	url != ""

	# Only http and https schemes are valid endpoint URLs
	not startswith(url, "http://")
	not startswith(url, "https://")
	violation := {
		"message": sprintf("entry %s has a non-http(s) %s: %s", [entry.name, field, url]),
		"severity": "error",
		"entry": entry.name,
	}
}`,
	}
}

// noAbsentEntriesPolicy warns about entries that can never reconcile.
func noAbsentEntriesPolicy() Policy {
	return Policy{
		Name:        "no-absent-entries",
		Description: "Warns about absent entries, which always fail because removal is not implemented",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"state", "compliance"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package keystonectl.policies.state

import rego.v1

deny contains violation if {
	input.entry
	entry := input.entry

	entry.state == "absent"
	violation := {
		"message": sprintf("entry %s requests state absent, which cannot be reconciled", [entry.name]),
		"severity": "warning",
		"entry": entry.name,
		"remediation": "remove the entry from the catalog instead of marking it absent",
	}
}

deny contains violation if {
	input.sweep
	some entry in input.sweep.entries

	entry.state == "absent"
	violation := {
		"message": sprintf("sweep contains absent entry %s, which will fail", [entry.name]),
		"severity": "warning",
		"entry": entry.name,
	}
}`,
	}
}
