package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	authURL    string
	authToken  string
	region     string
	storePath  string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keystonectl",
		Short: "keystonectl - OpenStack service catalog reconciler",
		Long: `keystonectl reconciles an OpenStack Keystone service and endpoint
catalog against a declarative catalog document.

Features:
  - Typed catalog documents via CUE
  - Light procedural generation via Starlark
  - Idempotent reconciliation: create what is missing, touch nothing else
  - Dry-run sweeps with check-mode error folding
  - Policy enforcement via OPA/rego
  - Sweep history in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "keystonectl.yaml", "settings file path")
	rootCmd.PersistentFlags().StringVar(&authURL, "auth-url", "", "Keystone admin endpoint (overrides settings and OS_AUTH_URL)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "service token (overrides settings and OS_SERVICE_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "override the region for every catalog entry")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "history database path (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
