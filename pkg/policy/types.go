package policy

import (
	"time"

	"github.com/keystonectl/keystonectl/pkg/catalog"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block a sweep.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Entry is the catalog entry name that violated the policy.
	Entry string `json:"entry,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Details contains additional violation details.
	Details map[string]interface{} `json:"details,omitempty"`

	// Remediation provides suggested fixes.
	Remediation string `json:"remediation,omitempty"`

	// DetectedAt is when the violation was detected.
	DetectedAt time.Time `json:"detected_at"`
}

// Result represents the result of policy evaluation. Violations carry
// severities error and critical and block a sweep; Warnings carry info and
// warning and are logged only.
type Result struct {
	// Allowed indicates if the operation is allowed.
	Allowed bool `json:"allowed"`

	// Violations lists blocking policy violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists non-blocking policy violations.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedAt is when the policy was evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input represents the input data for policy evaluation. Exactly one of
// Entry and Sweep is set depending on whether a single entry or a whole
// sweep plan is being evaluated.
type Input struct {
	// Entry is the catalog entry being evaluated.
	Entry *catalog.DesiredState `json:"entry,omitempty"`

	// Sweep is the sweep plan being evaluated.
	Sweep *SweepPlan `json:"sweep,omitempty"`

	// Context provides additional evaluation context.
	Context *Context `json:"context"`
}

// SweepPlan describes a planned sweep for sweep-level policy evaluation.
type SweepPlan struct {
	// ID is the sweep identifier.
	ID string `json:"id"`

	// Source is the catalog document the sweep was built from.
	Source string `json:"source,omitempty"`

	// DryRun indicates if the sweep will run in check mode.
	DryRun bool `json:"dry_run"`

	// Entries are the desired states the sweep will reconcile.
	Entries []catalog.DesiredState `json:"entries"`
}

// Context provides context information for policy evaluation.
type Context struct {
	// Environment is the environment (e.g., "production", "staging").
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Operation is the operation being performed (e.g., "validate", "sweep").
	Operation string `json:"operation,omitempty"`

	// DryRun indicates if this is a dry-run evaluation.
	DryRun bool `json:"dry_run"`

	// Metadata contains additional context metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Bundle represents a collection of related policies.
type Bundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time `json:"created_at"`
}

// Summary provides aggregate statistics for policy evaluation.
type Summary struct {
	// TotalPolicies is the total number of policies evaluated.
	TotalPolicies int `json:"total_policies"`

	// TotalViolations is the total number of blocking violations.
	TotalViolations int `json:"total_violations"`

	// ViolationsBySeverity breaks down violations by severity.
	ViolationsBySeverity map[Severity]int `json:"violations_by_severity"`

	// TotalWarnings is the total number of warnings.
	TotalWarnings int `json:"total_warnings"`

	// EvaluationDuration is the total evaluation time.
	EvaluationDuration time.Duration `json:"evaluation_duration"`
}

// Summarize aggregates one or more evaluation results.
func Summarize(results ...*Result) *Summary {
	s := &Summary{
		ViolationsBySeverity: make(map[Severity]int),
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		s.TotalPolicies += len(r.EvaluatedPolicies)
		s.TotalViolations += len(r.Violations)
		s.TotalWarnings += len(r.Warnings)
		s.EvaluationDuration += r.Duration

		for i := range r.Violations {
			s.ViolationsBySeverity[r.Violations[i].Severity]++
		}
		for i := range r.Warnings {
			s.ViolationsBySeverity[r.Warnings[i].Severity]++
		}
	}

	return s
}
