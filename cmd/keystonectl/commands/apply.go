package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [path...]",
		Short: "Reconcile the catalog against the identity service",
		Long: `Reconcile every catalog entry against the identity service.

This command:
  - Parses and validates the catalog document
  - Runs policy checks (violations block in enforcing mode)
  - Creates missing services and endpoints, touches nothing that matches
  - Records the sweep in the history database when one is configured

Entries are independent: one entry's failure does not stop the sweep.
Field drift on an existing endpoint is not updated in place; it is
reported as an error for the operator to resolve.`,
		Example: `  # Apply the catalog in the current directory
  keystonectl apply

  # Apply a specific document
  keystonectl apply catalog.cue

  # Forced dry-run, same as plan
  keystonectl apply --dry-run catalog.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown(ctx)

			res, err := runSweep(cmd, args, rt, dryRun)
			if err != nil {
				return err
			}

			verb := "changed"
			if dryRun {
				verb = "would change"
			}

			if jsonOutput {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				printSweepResult(res, verb)
			}

			if res.Failed() {
				return fmt.Errorf("sweep failed for %d of %d entries", res.Summary.Failed, res.Summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without applying them")

	return cmd
}
