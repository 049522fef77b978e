package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate [path...]",
		Short: "Validate catalog documents",
		Long: `Validate catalog documents against schemas and policies.

This command checks:
  - CUE syntax validity
  - Schema conformance (entry names, types, URLs, state)
  - Policy compliance (OPA/rego)

No connection to the identity service is made.`,
		Example: `  # Validate the catalog in the current directory
  keystonectl validate

  # Validate a specific document
  keystonectl validate catalog.cue

  # Validate multiple sources
  keystonectl validate workspace.cue services/

  # Keep validating as workspace policies change
  keystonectl validate --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown(ctx)

			parsed, err := parseCatalog(ctx, args)
			if err != nil {
				return err
			}

			if errs := catalogErrors(parsed); len(errs) > 0 {
				printValidationErrors(parsed.Errors)
				return fmt.Errorf("catalog has %d validation error(s)", len(errs))
			}

			entries := desiredStates(parsed, true)
			engine, _, err := rt.newPolicyEngine(ctx, parsed)
			if err != nil {
				return err
			}
			result, err := rt.runPolicyChecks(ctx, engine, entries, true, sourceLabel(args))
			if err != nil {
				return err
			}

			if watch {
				printValidationErrors(parsed.Errors)
				fmt.Printf("Catalog checked: %d entries, %d violation(s), %d warning(s)\n",
					len(parsed.Entries), len(result.Violations), len(result.Warnings))
				return rt.watchPolicies(ctx, engine, parsed, entries, sourceLabel(args))
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"workspace": parsed.Workspace.Name,
					"entries":   len(parsed.Entries),
					"policy":    result,
				})
			}

			printValidationErrors(parsed.Errors)
			if len(result.Violations) > 0 {
				return fmt.Errorf("catalog has %d policy violation(s)", len(result.Violations))
			}

			fmt.Printf("Catalog valid: %d entries, %d warning(s)\n", len(parsed.Entries), len(result.Warnings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and revalidate when workspace policy files change")

	return cmd
}

// sourceLabel names the catalog sources for history and policy records.
func sourceLabel(args []string) string {
	if len(args) == 0 {
		return "."
	}
	if len(args) == 1 {
		return args[0]
	}
	return fmt.Sprintf("%s (+%d more)", args[0], len(args)-1)
}
