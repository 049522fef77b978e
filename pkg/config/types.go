package config

import (
	"time"

	"github.com/keystonectl/keystonectl/pkg/catalog"
)

// CatalogEntry represents one catalog entry from a CUE document: a service
// and the single endpoint bound to it.
type CatalogEntry struct {
	// Name is the unique service name. When entries are declared as a CUE
	// struct, the field name becomes the entry name.
	Name string `json:"name" validate:"required"`

	// Type is the service type (e.g., "identity", "compute").
	Type string `json:"type" validate:"required"`

	// Description is the optional service description.
	Description string `json:"description,omitempty"`

	// PublicURL is the endpoint's public URL.
	PublicURL string `json:"public_url" validate:"required,url"`

	// InternalURL defaults to PublicURL when omitted.
	InternalURL string `json:"internal_url,omitempty" validate:"omitempty,url"`

	// AdminURL defaults to PublicURL when omitted.
	AdminURL string `json:"admin_url,omitempty" validate:"omitempty,url"`

	// Region is the endpoint's region. Defaults to the workspace region.
	Region string `json:"region,omitempty"`

	// State is the desired disposition (present or absent, default present).
	State string `json:"state,omitempty" validate:"omitempty,oneof=present absent"`
}

// WorkspaceConfig represents the workspace block of a catalog document.
type WorkspaceConfig struct {
	// Name is the workspace name.
	Name string `json:"name" validate:"required"`

	// Region is the default region applied to entries that omit one.
	Region string `json:"region,omitempty"`

	// Variables are workspace-level variables, also passed to the
	// generate hook.
	Variables map[string]interface{} `json:"variables,omitempty"`

	// Policy configures policy enforcement.
	Policy *PolicyConfig `json:"policy,omitempty"`
}

// PolicyConfig configures policy enforcement for a workspace.
type PolicyConfig struct {
	// Enabled indicates if policy enforcement is enabled.
	Enabled bool `json:"enabled"`

	// Paths lists .rego policy files or directories.
	Paths []string `json:"paths,omitempty"`

	// Mode is the enforcement mode (advisory, enforcing).
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=advisory enforcing"`
}

// ParsedCatalog represents a fully parsed catalog document.
type ParsedCatalog struct {
	// Workspace is the workspace configuration.
	Workspace WorkspaceConfig `json:"workspace"`

	// Entries are the catalog entries in document order.
	Entries []CatalogEntry `json:"entries"`

	// SourceFiles are the CUE files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the document was parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors lists any validation errors.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the CUE path to the error (e.g., "catalog.keystone").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// StarlarkContext provides context for Starlark execution.
type StarlarkContext struct {
	// Input is the input data passed to Starlark.
	Input map[string]interface{} `json:"input,omitempty"`

	// Timeout is the execution timeout.
	Timeout time.Duration `json:"timeout"`
}

// StarlarkResult represents the result of Starlark execution.
type StarlarkResult struct {
	// Output is the output data from Starlark.
	Output map[string]interface{} `json:"output,omitempty"`

	// ExecutionTime is how long the script took to execute.
	ExecutionTime time.Duration `json:"execution_time"`

	// Error is any error that occurred.
	Error string `json:"error,omitempty"`
}

// ToDesiredStates converts the parsed entries into reconciler requests.
// Entry-level defaults (URLs, state, region) have already been applied at
// parse time.
func (pc *ParsedCatalog) ToDesiredStates(dryRun bool) []catalog.DesiredState {
	states := make([]catalog.DesiredState, len(pc.Entries))
	for i, entry := range pc.Entries {
		states[i] = catalog.DesiredState{
			Name:        entry.Name,
			Type:        entry.Type,
			Description: entry.Description,
			PublicURL:   entry.PublicURL,
			InternalURL: entry.InternalURL,
			AdminURL:    entry.AdminURL,
			Region:      entry.Region,
			State:       catalog.State(entry.State),
			DryRun:      dryRun,
		}
	}
	return states
}

// applyDefaults fills in an entry's defaulted fields against the workspace.
func (e *CatalogEntry) applyDefaults(workspace WorkspaceConfig) {
	if e.InternalURL == "" {
		e.InternalURL = e.PublicURL
	}
	if e.AdminURL == "" {
		e.AdminURL = e.PublicURL
	}
	if e.Region == "" {
		e.Region = workspace.Region
	}
	if e.State == "" {
		e.State = string(catalog.StatePresent)
	}
}
