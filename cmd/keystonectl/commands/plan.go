package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keystonectl/keystonectl/pkg/reconciler"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [path...]",
		Short: "Preview catalog changes without applying them",
		Long: `Preview what a sweep would change, without mutating the catalog.

This command:
  - Parses and validates the catalog document
  - Runs policy checks
  - Sweeps every entry in dry-run mode
  - Reports would-change, unchanged, and failed per entry

Entries whose remote state could not be determined are reported as
would-change with a diagnostic instead of failing the plan.`,
		Example: `  # Plan against the catalog in the current directory
  keystonectl plan

  # Plan a specific document
  keystonectl plan catalog.cue

  # Machine-readable plan
  keystonectl plan --json catalog.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown(ctx)

			res, err := runSweep(cmd, args, rt, true)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				printSweepResult(res, "would change")
			}

			if res.Failed() {
				return fmt.Errorf("plan failed for %d of %d entries", res.Summary.Failed, res.Summary.Total)
			}
			return nil
		},
	}

	return cmd
}

// runSweep is the shared parse-validate-police-sweep pipeline behind the
// plan and apply commands.
func runSweep(cmd *cobra.Command, args []string, rt *runtime, dryRun bool) (*reconciler.SweepResult, error) {
	// Carry the telemetry stack in the context so sweep and entry spans
	// nest under one trace.
	ctx := rt.telemetry.WithContext(cmd.Context())

	parsed, err := parseCatalog(ctx, args)
	if err != nil {
		return nil, err
	}
	if errs := catalogErrors(parsed); len(errs) > 0 {
		printValidationErrors(parsed.Errors)
		return nil, fmt.Errorf("catalog has %d validation error(s)", len(errs))
	}

	source := sourceLabel(args)
	entries := desiredStates(parsed, dryRun)

	policyResult, enforcing, err := rt.evaluatePolicies(ctx, parsed, entries, dryRun, source)
	if err != nil {
		return nil, err
	}
	if !policyResult.Allowed && enforcing {
		return nil, fmt.Errorf("policy check failed with %d violation(s)", len(policyResult.Violations))
	}

	rec, err := rt.newReconciler()
	if err != nil {
		return nil, err
	}

	res, err := rec.Sweep(ctx, entries, reconciler.SweepOptions{
		DryRun: dryRun,
		Source: source,
	})
	if err != nil {
		return nil, err
	}

	rt.recordSweep(ctx, res)
	return res, nil
}
