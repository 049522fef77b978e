package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/keystonectl/keystonectl/pkg/config"
	"github.com/keystonectl/keystonectl/pkg/reconciler"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printValidationErrors writes parse and schema errors in file:line form.
func printValidationErrors(errs []config.ValidationError) {
	for _, e := range errs {
		location := e.File
		if e.Line > 0 {
			location = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
		}
		if location == "" {
			location = e.Path
		}
		if location != "" {
			fmt.Printf("%s: %s: %s\n", e.Severity, location, e.Message)
		} else {
			fmt.Printf("%s: %s\n", e.Severity, e.Message)
		}
	}
}

// printSweepResult writes a human-readable sweep report. Callers pass the
// verb describing what a change means ("changed" or "would change").
func printSweepResult(res *reconciler.SweepResult, changedVerb string) {
	for _, entry := range res.Entries {
		switch {
		case entry.Error != "":
			fmt.Printf("  %-20s failed: %s\n", entry.Name, entry.Error)
		case entry.Result != nil && entry.Result.Changed && entry.Result.Diagnostic != "":
			fmt.Printf("  %-20s %s (%s)\n", entry.Name, changedVerb, entry.Result.Diagnostic)
		case entry.Result != nil && entry.Result.Changed:
			fmt.Printf("  %-20s %s\n", entry.Name, changedVerb)
		default:
			fmt.Printf("  %-20s unchanged\n", entry.Name)
		}
	}

	fmt.Printf("\nSweep %s: %s (%d total, %d %s, %d unchanged, %d failed) in %s\n",
		res.ID, res.Status,
		res.Summary.Total, res.Summary.Changed, changedVerb,
		res.Summary.Unchanged, res.Summary.Failed, res.Duration)
}
