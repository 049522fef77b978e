package commands

import (
	"context"
	"fmt"

	"github.com/keystonectl/keystonectl/pkg/catalog"
	"github.com/keystonectl/keystonectl/pkg/config"
	"github.com/keystonectl/keystonectl/pkg/keystone"
	"github.com/keystonectl/keystonectl/pkg/policy"
	"github.com/keystonectl/keystonectl/pkg/reconciler"
	"github.com/keystonectl/keystonectl/pkg/stores"
	"github.com/keystonectl/keystonectl/pkg/telemetry"
)

// runtime bundles the pieces every command needs: resolved settings and the
// telemetry stack. Flags win over the settings file, which wins over the
// environment.
type runtime struct {
	settings  *config.Settings
	telemetry *telemetry.Telemetry
}

func newRuntime() (*runtime, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}

	if authURL != "" {
		settings.Auth.AuthURL = authURL
	}
	if authToken != "" {
		settings.Auth.Token = authToken
	}
	if storePath != "" {
		settings.Store.Path = storePath
	}

	cfg := settings.ToTelemetryConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &runtime{settings: settings, telemetry: tel}, nil
}

func (rt *runtime) shutdown(ctx context.Context) {
	_ = rt.telemetry.Shutdown(ctx)
}

// newReconciler builds a reconciler against the configured identity service.
func (rt *runtime) newReconciler() (*reconciler.Reconciler, error) {
	client, err := keystone.NewClient(keystone.Config{
		AuthURL: rt.settings.Auth.AuthURL,
		Token:   rt.settings.Auth.Token,
		Timeout: rt.settings.Auth.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	return reconciler.New(client, rt.telemetry.Logger).
		WithGuard().
		WithMetrics(rt.telemetry.Metrics).
		WithEvents(rt.telemetry.Events), nil
}

// openStore opens the history database when one is configured. Returns nil
// without error when history recording is disabled.
func (rt *runtime) openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	if rt.settings.Store.Path == "" {
		return nil, nil
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: rt.settings.Store.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// recordSweep persists a sweep result when a history store is configured.
// Recording failures are logged, not fatal: the sweep itself already
// happened.
func (rt *runtime) recordSweep(ctx context.Context, res *reconciler.SweepResult) {
	store, err := rt.openStore(ctx)
	if err != nil {
		rt.telemetry.Logger.WithError(err).Warn("Failed to open history store")
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	if err := stores.NewRecorder(store, "").RecordSweep(ctx, res); err != nil {
		rt.telemetry.Logger.WithError(err).WithSweepID(res.ID).Warn("Failed to record sweep")
	}
}

// parseCatalog parses the catalog sources given on the command line. With no
// arguments the current directory is parsed as a CUE package.
func parseCatalog(ctx context.Context, args []string) (*config.ParsedCatalog, error) {
	sources := args
	if len(sources) == 0 {
		sources = []string{"."}
	}
	return config.NewCUEParser().Parse(ctx, sources)
}

// catalogErrors returns the blocking validation errors of a parsed catalog.
func catalogErrors(parsed *config.ParsedCatalog) []config.ValidationError {
	var errs []config.ValidationError
	for _, e := range parsed.Errors {
		if e.Severity == "error" {
			errs = append(errs, e)
		}
	}
	return errs
}

// desiredStates projects the parsed entries into reconciler requests,
// applying the --region override when set.
func desiredStates(parsed *config.ParsedCatalog, dryRun bool) []catalog.DesiredState {
	entries := parsed.ToDesiredStates(dryRun)
	if region != "" {
		for i := range entries {
			entries[i].Region = region
		}
	}
	return entries
}

// newPolicyEngine builds the policy engine for a parsed catalog: built-in
// policies plus the workspace policy paths when the workspace enables them.
// The second return value reports whether violations block (enforcing mode)
// or only warn (advisory mode).
func (rt *runtime) newPolicyEngine(ctx context.Context, parsed *config.ParsedCatalog) (*policy.Engine, bool, error) {
	engine, err := policy.NewEngine(rt.telemetry.Logger.Zerolog())
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	enforcing := true
	if pc := parsed.Workspace.Policy; pc != nil {
		if pc.Mode == "advisory" {
			enforcing = false
		}
		if pc.Enabled && len(pc.Paths) > 0 {
			if err := engine.LoadPolicies(ctx, pc.Paths); err != nil {
				return nil, false, fmt.Errorf("failed to load workspace policies: %w", err)
			}
		}
	}

	return engine, enforcing, nil
}

// evaluatePolicies runs the policy engine over the catalog and the sweep
// plan.
func (rt *runtime) evaluatePolicies(ctx context.Context, parsed *config.ParsedCatalog, entries []catalog.DesiredState, dryRun bool, source string) (*policy.Result, bool, error) {
	engine, enforcing, err := rt.newPolicyEngine(ctx, parsed)
	if err != nil {
		return nil, false, err
	}

	result, err := rt.runPolicyChecks(ctx, engine, entries, dryRun, source)
	if err != nil {
		return nil, false, err
	}

	return result, enforcing, nil
}

// runPolicyChecks evaluates the catalog entries and the sweep plan against
// an already loaded engine, recording and logging every violation.
func (rt *runtime) runPolicyChecks(ctx context.Context, engine *policy.Engine, entries []catalog.DesiredState, dryRun bool, source string) (*policy.Result, error) {
	catalogResult, err := engine.EvaluateCatalog(ctx, entries)
	if err != nil {
		return nil, err
	}

	sweepResult, err := engine.EvaluateSweep(ctx, &policy.SweepPlan{
		Source:  source,
		DryRun:  dryRun,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	merged := &policy.Result{
		Allowed:           catalogResult.Allowed && sweepResult.Allowed,
		Violations:        append(catalogResult.Violations, sweepResult.Violations...),
		Warnings:          append(catalogResult.Warnings, sweepResult.Warnings...),
		EvaluatedAt:       catalogResult.EvaluatedAt,
		EvaluatedPolicies: catalogResult.EvaluatedPolicies,
		Duration:          catalogResult.Duration + sweepResult.Duration,
	}

	for _, v := range merged.Violations {
		rt.telemetry.Metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
		_ = rt.telemetry.Events.PublishPolicyViolation(v.Entry, v.Policy, v.Message)
		rt.telemetry.Logger.WithFields(map[string]interface{}{
			"policy": v.Policy,
			"entry":  v.Entry,
		}).Error(v.Message)
	}
	for _, w := range merged.Warnings {
		rt.telemetry.Logger.WithFields(map[string]interface{}{
			"policy": w.Policy,
			"entry":  w.Entry,
		}).Warn(w.Message)
	}

	return merged, nil
}

// watchPolicies blocks until the context is cancelled, re-running the
// policy checks every time a file under the workspace policy paths
// changes.
func (rt *runtime) watchPolicies(ctx context.Context, engine *policy.Engine, parsed *config.ParsedCatalog, entries []catalog.DesiredState, source string) error {
	pc := parsed.Workspace.Policy
	if pc == nil || !pc.Enabled || len(pc.Paths) == 0 {
		return fmt.Errorf("workspace %q does not enable policy paths, nothing to watch", parsed.Workspace.Name)
	}

	loader := policy.NewLoader(rt.telemetry.Logger.Zerolog())
	err := loader.Watch(ctx, pc.Paths, func(ctx context.Context, policies []policy.Policy) error {
		if err := engine.ReplacePolicies(ctx, policies); err != nil {
			return err
		}
		result, err := rt.runPolicyChecks(ctx, engine, entries, true, source)
		if err != nil {
			return err
		}
		fmt.Printf("Policies reloaded: %d violation(s), %d warning(s)\n",
			len(result.Violations), len(result.Warnings))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Watching %d policy path(s), press Ctrl+C to stop\n", len(pc.Paths))
	<-ctx.Done()
	return loader.Close()
}
