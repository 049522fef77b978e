package config

import (
	"context"
	"testing"
)

func TestSchemaRegistry_RegisterAndGet(t *testing.T) {
	sr := NewSchemaRegistry()

	customSchema := `
#CustomType: {
	field1: string
	field2: int
}
`

	err := sr.RegisterSchema("custom", customSchema)
	if err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	schema, ok := sr.GetSchema("custom")
	if !ok {
		t.Fatal("expected to find custom schema")
	}

	if schema.Err() != nil {
		t.Errorf("schema has errors: %v", schema.Err())
	}
}

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	builtins := []string{
		"entry",
		"workspace",
	}

	for _, name := range builtins {
		t.Run(name, func(t *testing.T) {
			schema, ok := sr.GetSchema(name)
			if !ok {
				t.Fatalf("built-in schema %s not found", name)
			}

			if schema.Err() != nil {
				t.Errorf("built-in schema %s has errors: %v", name, schema.Err())
			}
		})
	}
}

func TestSchemaRegistry_ValidateEntry(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   CatalogEntry
		wantErr bool
	}{
		{
			name: "valid entry",
			entry: CatalogEntry{
				Name:      "keystone",
				Type:      "identity",
				PublicURL: "http://identity.example.org:5000/v2.0",
				Region:    "RegionOne",
				State:     "present",
			},
			wantErr: false,
		},
		{
			name: "valid entry with all URLs",
			entry: CatalogEntry{
				Name:        "glance",
				Type:        "image",
				Description: "Image Service",
				PublicURL:   "https://image.example.org:9292/v1",
				InternalURL: "https://image.internal:9292/v1",
				AdminURL:    "https://image.admin:9292/v1",
				Region:      "RegionOne",
				State:       "absent",
			},
			wantErr: false,
		},
		{
			name: "invalid entry - bad name",
			entry: CatalogEntry{
				Name:      "bad name with spaces",
				Type:      "identity",
				PublicURL: "http://identity.example.org:5000/v2.0",
			},
			wantErr: true,
		},
		{
			name: "invalid entry - bad type",
			entry: CatalogEntry{
				Name:      "keystone",
				Type:      "Identity Service",
				PublicURL: "http://identity.example.org:5000/v2.0",
			},
			wantErr: true,
		},
		{
			name: "invalid entry - non-http url",
			entry: CatalogEntry{
				Name:      "keystone",
				Type:      "identity",
				PublicURL: "ftp://identity.example.org/v2.0",
			},
			wantErr: true,
		},
		{
			name: "invalid entry - bad state",
			entry: CatalogEntry{
				Name:      "keystone",
				Type:      "identity",
				PublicURL: "http://identity.example.org:5000/v2.0",
				State:     "purged",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateEntry(ctx, tt.entry)

			if tt.wantErr {
				if err == nil {
					t.Error("expected validation error, got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected validation error: %v", err)
				}
			}
		})
	}
}

func TestSchemaRegistry_ValidateWorkspace(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name      string
		workspace WorkspaceConfig
		wantErr   bool
	}{
		{
			name: "valid workspace",
			workspace: WorkspaceConfig{
				Name:   "prod-catalog",
				Region: "RegionOne",
			},
			wantErr: false,
		},
		{
			name: "valid workspace with policy",
			workspace: WorkspaceConfig{
				Name:   "prod-catalog",
				Region: "RegionOne",
				Policy: &PolicyConfig{
					Enabled: true,
					Paths:   []string{"./policies"},
					Mode:    "enforcing",
				},
			},
			wantErr: false,
		},
		{
			name: "invalid workspace - bad name",
			workspace: WorkspaceConfig{
				Name:   "invalid name!",
				Region: "RegionOne",
			},
			wantErr: true,
		},
		{
			name: "invalid workspace - bad policy mode",
			workspace: WorkspaceConfig{
				Name: "prod-catalog",
				Policy: &PolicyConfig{
					Enabled: true,
					Mode:    "blocking",
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateWorkspace(ctx, tt.workspace)

			if tt.wantErr {
				if err == nil {
					t.Error("expected validation error, got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected validation error: %v", err)
				}
			}
		})
	}
}

func TestSchemaRegistry_ListSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	schemas := sr.ListSchemas()

	if len(schemas) < 2 {
		t.Errorf("expected at least 2 schemas, got %d", len(schemas))
	}

	expectedSchemas := map[string]bool{
		"entry":     false,
		"workspace": false,
	}

	for _, schema := range schemas {
		if _, exists := expectedSchemas[schema]; exists {
			expectedSchemas[schema] = true
		}
	}

	for name, found := range expectedSchemas {
		if !found {
			t.Errorf("expected built-in schema %s not found", name)
		}
	}
}

func TestSchemaRegistry_InvalidSchema(t *testing.T) {
	sr := NewSchemaRegistry()

	invalidSchema := `
this is not valid CUE syntax
`

	err := sr.RegisterSchema("invalid", invalidSchema)
	if err == nil {
		t.Error("expected error when registering invalid schema")
	}
}
