package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// entriesGlobal is the name the generate script must bind its produced
// catalog entries to.
const entriesGlobal = "entries"

// StarlarkEvaluator runs a catalog document's generate hook: a Starlark
// script that computes entries procedurally (one endpoint set per region,
// numbered service shards, and the like). Scripts run sandboxed: no
// filesystem or network access, print suppressed, bounded execution time.
type StarlarkEvaluator struct {
	timeout time.Duration
}

// NewStarlarkEvaluator creates an evaluator. A zero timeout means 30 seconds.
func NewStarlarkEvaluator(timeout time.Duration) *StarlarkEvaluator {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StarlarkEvaluator{timeout: timeout}
}

// EvaluateEntries runs a generate script against the workspace and decodes
// the script's "entries" global into catalog entries. The script sees the
// workspace as a dict under the name "workspace" (keys: name, region,
// variables). Entry-level defaults are NOT applied here; the parser owns
// defaulting and validation.
func (se *StarlarkEvaluator) EvaluateEntries(ctx context.Context, script string, workspace WorkspaceConfig) ([]CatalogEntry, error) {
	input := map[string]interface{}{
		"workspace": map[string]interface{}{
			"name":      workspace.Name,
			"region":    workspace.Region,
			"variables": workspace.Variables,
		},
	}

	result, err := se.Evaluate(ctx, script, input)
	if err != nil {
		return nil, fmt.Errorf("generate script failed: %w", err)
	}

	raw, ok := result.Output[entriesGlobal].([]interface{})
	if !ok {
		return nil, fmt.Errorf("generate script must define an %q list", entriesGlobal)
	}

	entries := make([]CatalogEntry, 0, len(raw))
	for i, item := range raw {
		encoded, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("generated entry %d is not a plain dict: %w", i, err)
		}
		var entry CatalogEntry
		if err := json.Unmarshal(encoded, &entry); err != nil {
			return nil, fmt.Errorf("generated entry %d does not decode as a catalog entry: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Evaluate executes a script with the given input bound as predeclared
// globals and returns the script's exported globals. Names starting with an
// underscore stay private to the script.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, script string, input map[string]interface{}) (*StarlarkResult, error) {
	started := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	type outcome struct {
		result *StarlarkResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := se.execute(script, input)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-evalCtx.Done():
		return &StarlarkResult{
			ExecutionTime: time.Since(started),
			Error:         fmt.Sprintf("execution timeout after %v", se.timeout),
		}, fmt.Errorf("starlark execution timeout")
	case out := <-done:
		if out.err != nil {
			return &StarlarkResult{
				ExecutionTime: time.Since(started),
				Error:         out.err.Error(),
			}, out.err
		}
		out.result.ExecutionTime = time.Since(started)
		return out.result, nil
	}
}

// execute runs the script on a fresh thread. The thread's Print is a no-op
// so scripts cannot write to the tool's output.
func (se *StarlarkEvaluator) execute(script string, input map[string]interface{}) (*StarlarkResult, error) {
	thread := &starlark.Thread{
		Name:  "keystonectl",
		Print: func(_ *starlark.Thread, _ string) {},
	}

	predeclared := starlark.StringDict{
		"struct":    starlarkstruct.Default,
		"range":     starlark.NewBuiltin("range", builtinRange),
		"enumerate": starlark.NewBuiltin("enumerate", builtinEnumerate),
		"zip":       starlark.NewBuiltin("zip", builtinZip),
	}
	for name, val := range input {
		converted, err := goToStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", name, err)
		}
		predeclared[name] = converted
	}

	globals, err := starlark.ExecFile(thread, "generate.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	output := make(map[string]interface{}, len(globals))
	for name, val := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		converted, err := starlarkToGo(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output %s: %w", name, err)
		}
		output[name] = converted
	}

	return &StarlarkResult{Output: output}, nil
}

// goToStarlark converts a Go value from the workspace input into its
// Starlark equivalent. Only JSON-shaped values are supported; catalog
// documents cannot carry anything else.
func goToStarlark(v interface{}) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			converted, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return starlark.NewList(items), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for key, item := range val {
			converted, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported type: %T", v)
}

// starlarkToGo converts a script result back into JSON-shaped Go values.
// Structs flatten to maps keyed by attribute name.
func starlarkToGo(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		items := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			converted, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return items, nil
	case *starlark.Dict:
		out := make(map[string]interface{}, val.Len())
		for _, pair := range val.Items() {
			key, ok := pair[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			converted, err := starlarkToGo(pair[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = converted
		}
		return out, nil
	case *starlarkstruct.Struct:
		out := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			converted, err := starlarkToGo(attr)
			if err != nil {
				return nil, err
			}
			out[name] = converted
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
}

// The builtins below back the helpers generate scripts lean on for
// region/shard iteration. Core Starlark leaves them to the host.

func builtinRange(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop, step int64 = 0, 0, 1

	switch len(args) {
	case 1:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "stop", &stop); err != nil {
			return nil, err
		}
	case 2:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop); err != nil {
			return nil, err
		}
	case 3:
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop, "step", &step); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("range takes 1 to 3 arguments, got %d", len(args))
	}

	if step == 0 {
		return nil, fmt.Errorf("range step cannot be zero")
	}

	var items []starlark.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			items = append(items, starlark.MakeInt64(i))
		}
	} else {
		for i := start; i > stop; i += step {
			items = append(items, starlark.MakeInt64(i))
		}
	}
	return starlark.NewList(items), nil
}

func builtinEnumerate(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var start int64

	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &start); err != nil {
		return nil, err
	}

	iter := iterable.Iterate()
	defer iter.Done()

	var items []starlark.Value
	var x starlark.Value
	for i := start; iter.Next(&x); i++ {
		items = append(items, starlark.Tuple{starlark.MakeInt64(i), x})
	}
	return starlark.NewList(items), nil
}

func builtinZip(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return starlark.NewList(nil), nil
	}

	iters := make([]starlark.Iterator, len(args))
	for i, arg := range args {
		iterable, ok := arg.(starlark.Iterable)
		if !ok {
			return nil, fmt.Errorf("zip argument %d is not iterable", i)
		}
		iters[i] = iterable.Iterate()
		defer iters[i].Done()
	}

	var items []starlark.Value
	for {
		row := make(starlark.Tuple, len(iters))
		for i, iter := range iters {
			if !iter.Next(&row[i]) {
				return starlark.NewList(items), nil
			}
		}
		items = append(items, row)
	}
}
