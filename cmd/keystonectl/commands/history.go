package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history [sweep-id]",
		Short: "Show recorded sweep history",
		Long: `Show sweeps recorded in the history database.

Without arguments, lists recent sweeps most recent first. With a sweep id,
shows the per-entry reconciliations of that sweep.

Requires a history database, configured via the settings file or --store.`,
		Example: `  # List recent sweeps
  keystonectl history --store keystonectl.db

  # Show one sweep in detail
  keystonectl history 4f7c1e02-... --store keystonectl.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown(ctx)

			store, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no history database configured: set store.path or pass --store")
			}
			defer store.Close()

			if len(args) == 1 {
				sweepID := args[0]
				sweep, err := store.GetSweep(ctx, sweepID)
				if err != nil {
					return err
				}
				recs, err := store.ListReconciliationsBySweep(ctx, sweepID)
				if err != nil {
					return err
				}

				if jsonOutput {
					return printJSON(map[string]interface{}{
						"sweep":           sweep,
						"reconciliations": recs,
					})
				}

				fmt.Printf("Sweep %s\n  source: %s\n  status: %s\n  dry run: %v\n  started: %s\n",
					sweep.ID, sweep.Source, sweep.Status, sweep.DryRun, sweep.StartedAt.Format("2006-01-02 15:04:05"))
				if sweep.Error != nil {
					fmt.Printf("  error: %s\n", *sweep.Error)
				}
				fmt.Println()
				for _, rec := range recs {
					status := "unchanged"
					switch {
					case rec.Error != nil:
						status = "failed: " + *rec.Error
					case rec.Changed && rec.Diagnostic != nil:
						status = "changed (" + *rec.Diagnostic + ")"
					case rec.Changed:
						status = "changed"
					}
					fmt.Printf("  %-20s %-8s %s (%dms)\n", rec.EntryName, rec.State, status, rec.DurationMS)
				}
				return nil
			}

			sweeps, err := store.ListSweeps(ctx, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(sweeps)
			}

			if len(sweeps) == 0 {
				fmt.Println("No sweeps recorded")
				return nil
			}
			for _, sweep := range sweeps {
				mode := "apply"
				if sweep.DryRun {
					mode = "dry-run"
				}
				fmt.Printf("%s  %-9s %-7s %-19s %s\n",
					sweep.ID, sweep.Status, mode,
					sweep.StartedAt.Format("2006-01-02 15:04:05"), sweep.Source)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max sweeps to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "sweeps to skip")

	return cmd
}
