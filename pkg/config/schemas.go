package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("entry", builtinEntrySchema)
	sr.RegisterSchema("workspace", builtinWorkspaceSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	// Unify with schema (validates)
	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// Built-in schema definitions

const builtinEntrySchema = `
// Catalog entry schema: one service and its endpoint
{
	// Name is the unique service name
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Type is the service category
	type: string & =~"^[a-z0-9_-]+$"

	// Description is the optional service description
	description?: string

	// URLs for the endpoint; internal and admin default to public
	public_url:   string & =~"^https?://"
	internal_url?: string & =~"^https?://"
	admin_url?:    string & =~"^https?://"

	// Region the endpoint serves
	region?: string

	// Desired disposition
	state?: "present" | "absent"
}
`

const builtinWorkspaceSchema = `
// Workspace schema for catalog documents
{
	// Name is the workspace name
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Region is the default region for entries
	region?: string

	// Variables are workspace-level variables
	variables?: {[string]: _}

	// Policy configures policy enforcement
	policy?: {
		enabled: bool
		paths?: [...string]
		mode?: "advisory" | "enforcing"
	}
}
`

// ValidateEntry validates a catalog entry against the entry schema.
func (sr *SchemaRegistry) ValidateEntry(ctx context.Context, entry CatalogEntry) error {
	return sr.ValidateAgainstSchema(ctx, "entry", entry)
}

// ValidateWorkspace validates a workspace configuration against the
// workspace schema.
func (sr *SchemaRegistry) ValidateWorkspace(ctx context.Context, workspace WorkspaceConfig) error {
	return sr.ValidateAgainstSchema(ctx, "workspace", workspace)
}
