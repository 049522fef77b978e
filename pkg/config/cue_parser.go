package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"
)

// CUEParser parses and validates CUE catalog documents.
type CUEParser struct {
	ctx               *cue.Context
	schemaRegistry    *SchemaRegistry
	starlarkEvaluator *StarlarkEvaluator
	validator         *validator.Validate
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	return &CUEParser{
		ctx:               cuecontext.New(),
		schemaRegistry:    NewSchemaRegistry(),
		starlarkEvaluator: NewStarlarkEvaluator(30 * time.Second),
		validator:         validator.New(),
	}
}

// Parse parses a catalog document from the given sources. Sources may be
// single .cue files or directories loaded as a CUE package; multiple sources
// are unified.
func (cp *CUEParser) Parse(ctx context.Context, sources []string) (*ParsedCatalog, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var cueValue cue.Value
	var sourceFiles []string
	var parseErrors []ValidationError

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		if info.IsDir() {
			val, files, errs := cp.loadDirectory(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, files...)
		} else {
			val, errs := cp.loadFile(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, source)
		}
	}

	if len(parseErrors) > 0 {
		return &ParsedCatalog{
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	if err := cueValue.Err(); err != nil {
		parseErrors = append(parseErrors, cp.convertCUEErrors(err)...)
		return &ParsedCatalog{
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	return cp.extractCatalog(ctx, cueValue, sourceFiles)
}

// ParseInline parses an inline CUE catalog document.
func (cp *CUEParser) ParseInline(ctx context.Context, content string) (*ParsedCatalog, error) {
	val := cp.ctx.CompileString(content)
	if err := val.Err(); err != nil {
		return &ParsedCatalog{
			SourceFiles: []string{"inline"},
			ParsedAt:    time.Now(),
			Errors:      cp.convertCUEErrors(err),
		}, nil
	}

	return cp.extractCatalog(ctx, val, []string{"inline"})
}

// loadDirectory loads a directory as a CUE package.
func (cp *CUEParser) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	buildInstances := load.Instances([]string{dir}, nil)
	if len(buildInstances) == 0 {
		return cue.Value{}, nil, []ValidationError{{
			File:     dir,
			Message:  "no CUE files found",
			Severity: "error",
		}}
	}

	inst := buildInstances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(inst.Err)
	}

	val := cp.ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(err)
	}

	var files []string
	for _, file := range inst.Files {
		if file.Filename != "" {
			files = append(files, file.Filename)
		}
	}

	return val, files, nil
}

// loadFile loads a single CUE file.
func (cp *CUEParser) loadFile(path string) (cue.Value, []ValidationError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Severity: "error",
		}}
	}

	val := cp.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, cp.convertCUEErrors(err)
	}

	return val, nil
}

// extractCatalog extracts the workspace, declared entries, and generated
// entries from a CUE value. Entry defaults (URLs, region, state) are applied
// here so downstream consumers always see fully resolved entries.
func (cp *CUEParser) extractCatalog(ctx context.Context, val cue.Value, sourceFiles []string) (*ParsedCatalog, error) {
	parsed := &ParsedCatalog{
		SourceFiles: sourceFiles,
		ParsedAt:    time.Now(),
	}

	workspaceVal := val.LookupPath(cue.ParsePath("workspace"))
	if workspaceVal.Exists() {
		var workspace WorkspaceConfig
		if err := workspaceVal.Decode(&workspace); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "workspace",
				Message:  fmt.Sprintf("failed to decode workspace: %v", err),
				Severity: "error",
			})
		} else {
			parsed.Workspace = workspace
		}
	}

	catalogVal := val.LookupPath(cue.ParsePath("catalog"))
	if catalogVal.Exists() {
		cp.extractEntries(ctx, parsed, catalogVal)
	}

	generateVal := val.LookupPath(cue.ParsePath("generate"))
	if generateVal.Exists() {
		cp.runGenerateHook(ctx, parsed, generateVal)
	}

	// Duplicate names across declared and generated entries are rejected
	// here; the remote ambiguity check cannot see intra-document clashes.
	seen := make(map[string]bool, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		if seen[entry.Name] {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     fmt.Sprintf("catalog.%s", entry.Name),
				Message:  fmt.Sprintf("duplicate catalog entry %q", entry.Name),
				Severity: "error",
			})
		}
		seen[entry.Name] = true
	}

	return parsed, nil
}

// extractEntries decodes the catalog block, which may be a struct keyed by
// entry name or a list of entries carrying their own names.
func (cp *CUEParser) extractEntries(ctx context.Context, parsed *ParsedCatalog, catalogVal cue.Value) {
	switch catalogVal.Kind() {
	case cue.StructKind:
		iter, err := catalogVal.Fields(cue.All())
		if err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "catalog",
				Message:  fmt.Sprintf("failed to iterate catalog: %v", err),
				Severity: "error",
			})
			return
		}
		for iter.Next() {
			name := iter.Selector().String()
			entry, err := cp.extractEntry(ctx, name, iter.Value(), parsed.Workspace)
			if err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     fmt.Sprintf("catalog.%s", name),
					Message:  err.Error(),
					Severity: "error",
				})
				continue
			}
			parsed.Entries = append(parsed.Entries, entry)
		}

	case cue.ListKind:
		list, err := catalogVal.List()
		if err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "catalog",
				Message:  fmt.Sprintf("failed to list catalog: %v", err),
				Severity: "error",
			})
			return
		}
		idx := 0
		for list.Next() {
			entry, err := cp.extractEntry(ctx, "", list.Value(), parsed.Workspace)
			if err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     fmt.Sprintf("catalog[%d]", idx),
					Message:  err.Error(),
					Severity: "error",
				})
			} else {
				parsed.Entries = append(parsed.Entries, entry)
			}
			idx++
		}

	default:
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     "catalog",
			Message:  "catalog must be a struct or a list",
			Severity: "error",
		})
	}
}

// extractEntry decodes one catalog entry, applies defaults, and validates it.
func (cp *CUEParser) extractEntry(ctx context.Context, name string, val cue.Value, workspace WorkspaceConfig) (CatalogEntry, error) {
	var entry CatalogEntry

	if err := val.Decode(&entry); err != nil {
		return entry, fmt.Errorf("failed to decode entry: %w", err)
	}

	// The struct key names the entry unless the value names itself.
	if entry.Name == "" && name != "" {
		entry.Name = name
	}

	entry.applyDefaults(workspace)

	if err := cp.validator.Struct(entry); err != nil {
		return entry, fmt.Errorf("validation failed: %w", err)
	}
	if entry.Region == "" {
		return entry, fmt.Errorf("entry has no region and the workspace declares no default")
	}
	if err := cp.schemaRegistry.ValidateEntry(ctx, entry); err != nil {
		return entry, fmt.Errorf("schema check failed: %w", err)
	}

	return entry, nil
}

// runGenerateHook executes the document's generate script and appends the
// entries it produces. The script receives the workspace (name, region,
// variables) and must define an "entries" global holding a list of entry
// dicts.
func (cp *CUEParser) runGenerateHook(ctx context.Context, parsed *ParsedCatalog, generateVal cue.Value) {
	script, err := generateVal.String()
	if err != nil {
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     "generate",
			Message:  fmt.Sprintf("generate must be a string: %v", err),
			Severity: "error",
		})
		return
	}

	entries, err := cp.starlarkEvaluator.EvaluateEntries(ctx, script, parsed.Workspace)
	if err != nil {
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     "generate",
			Message:  err.Error(),
			Severity: "error",
		})
		return
	}

	for i, entry := range entries {
		entry.applyDefaults(parsed.Workspace)
		if err := cp.validator.Struct(entry); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     fmt.Sprintf("generate.entries[%d]", i),
				Message:  fmt.Sprintf("validation failed: %v", err),
				Severity: "error",
			})
			continue
		}
		if err := cp.schemaRegistry.ValidateEntry(ctx, entry); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     fmt.Sprintf("generate.entries[%d]", i),
				Message:  fmt.Sprintf("schema check failed: %v", err),
				Severity: "error",
			})
			continue
		}
		parsed.Entries = append(parsed.Entries, entry)
	}
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func (cp *CUEParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// ValidateWithSchema validates a value against a named schema.
func (cp *CUEParser) ValidateWithSchema(ctx context.Context, data interface{}, schemaName string) error {
	return cp.schemaRegistry.ValidateAgainstSchema(ctx, schemaName, data)
}

// GetSchemaRegistry returns the schema registry.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}

// EvaluateStarlark executes a Starlark script for procedural catalog logic.
func (cp *CUEParser) EvaluateStarlark(ctx context.Context, script string, input map[string]interface{}) (map[string]interface{}, error) {
	result, err := cp.starlarkEvaluator.Evaluate(ctx, script, input)
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, fmt.Errorf("starlark error: %s", result.Error)
	}

	return result.Output, nil
}

// ExportJSON exports a CUE value to JSON.
func (cp *CUEParser) ExportJSON(val cue.Value) ([]byte, error) {
	var data interface{}
	if err := val.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	return json.MarshalIndent(data, "", "  ")
}

// LoadFromDirectory lists all CUE files under a directory.
func (cp *CUEParser) LoadFromDirectory(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}
