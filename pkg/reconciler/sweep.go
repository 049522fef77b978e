package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/keystonectl/keystonectl/pkg/catalog"
	"github.com/keystonectl/keystonectl/pkg/telemetry"
)

// Sweep status values.
const (
	SweepStatusSucceeded = "succeeded"
	SweepStatusPartial   = "partial"
	SweepStatusFailed    = "failed"
)

// SweepOptions controls a sweep over a catalog document.
type SweepOptions struct {
	// DryRun forces every entry into dry-run mode regardless of the
	// per-entry flag. Dry-run sweeps fold per-entry errors into
	// "would change" outcomes instead of failing the entry.
	DryRun bool

	// Source identifies where the catalog document came from, for
	// history records.
	Source string
}

// EntryOutcome is the result of reconciling one catalog entry during a sweep.
type EntryOutcome struct {
	// Name is the entry's service name.
	Name string `json:"name"`

	// State is the entry's desired disposition.
	State catalog.State `json:"state"`

	// Result is the reconciliation result. Nil when the entry failed.
	Result *catalog.ReconcileResult `json:"result,omitempty"`

	// Err is the failure, if any.
	Err error `json:"-"`

	// Error is the failure message for serialized outcomes.
	Error string `json:"error,omitempty"`

	// Duration is how long the entry took to reconcile.
	Duration time.Duration `json:"duration"`
}

// SweepSummary counts per-entry outcomes.
type SweepSummary struct {
	Total     int `json:"total"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// SweepResult is the outcome of one sweep over a catalog document.
type SweepResult struct {
	// ID uniquely identifies this sweep.
	ID string `json:"id"`

	// Source is where the catalog document came from.
	Source string `json:"source,omitempty"`

	// DryRun reports whether the sweep mutated anything.
	DryRun bool `json:"dry_run"`

	// Status is succeeded, partial, or failed.
	Status string `json:"status"`

	// Entries holds per-entry outcomes in catalog order.
	Entries []EntryOutcome `json:"entries"`

	// Summary counts the outcomes.
	Summary SweepSummary `json:"summary"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// Failed reports whether any entry failed.
func (s *SweepResult) Failed() bool {
	return s.Summary.Failed > 0
}

// Sweep reconciles every entry of a catalog document in order. Entries are
// independent: one entry's failure does not stop the sweep, it is recorded
// and the next entry proceeds. In dry-run mode the check-mode fold applies
// per entry, so a dry-run sweep never records failures for entries whose
// remote state could not be determined.
func (r *Reconciler) Sweep(ctx context.Context, entries []catalog.DesiredState, opts SweepOptions) (*SweepResult, error) {
	sweep := &SweepResult{
		ID:        uuid.New().String(),
		Source:    opts.Source,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
		Entries:   make([]EntryOutcome, 0, len(entries)),
		Summary:   SweepSummary{Total: len(entries)},
	}

	op := telemetry.StartSweepOperation(ctx, sweep.ID, opts.DryRun)
	ctx = op.Ctx

	logger := r.sweepLogger(sweep)
	logger.WithField("entries", len(entries)).Info("sweep started")

	r.metrics.RecordSweepStarted(opts.DryRun)
	if r.events != nil {
		_ = r.events.PublishSweepStarted(sweep.ID, len(entries), opts.DryRun)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			res, err := r.finishSweep(sweep, logger, ctx.Err())
			op.End(err)
			return res, err
		default:
		}

		if opts.DryRun {
			entry.DryRun = true
		}
		sweep.Entries = append(sweep.Entries, r.sweepEntry(ctx, sweep, entry))
	}

	res, err := r.finishSweep(sweep, logger, nil)
	op.End(err)
	return res, err
}

// sweepEntry reconciles one entry under its own span and classifies the
// outcome.
func (r *Reconciler) sweepEntry(ctx context.Context, sweep *SweepResult, entry catalog.DesiredState) EntryOutcome {
	outcome := EntryOutcome{
		Name:  entry.Name,
		State: entry.State,
	}
	if outcome.State == "" {
		outcome.State = catalog.StatePresent
	}

	op := telemetry.StartEntryOperation(ctx, sweep.ID, entry.Name, string(outcome.State))

	var result *catalog.ReconcileResult
	var err error
	if entry.DryRun {
		result = r.Check(op.Ctx, entry)
	} else {
		result, err = r.Reconcile(op.Ctx, entry)
	}

	outcome.Duration = op.Timer.Duration()
	op.End(err)

	if err != nil {
		outcome.Err = err
		outcome.Error = err.Error()
		sweep.Summary.Failed++
		if r.events != nil {
			_ = r.events.PublishEntryFailed(sweep.ID, entry.Name, err.Error())
		}
		return outcome
	}

	outcome.Result = result
	if result.Changed {
		sweep.Summary.Changed++
		if r.events != nil {
			if entry.DryRun {
				_ = r.events.PublishDriftDetected(sweep.ID, entry.Name)
			} else {
				_ = r.events.PublishEntryChanged(sweep.ID, entry.Name, result.ServiceID, result.EndpointID)
			}
		}
	} else {
		sweep.Summary.Unchanged++
		if r.events != nil {
			_ = r.events.PublishEntryUnchanged(sweep.ID, entry.Name)
		}
	}

	return outcome
}

// finishSweep stamps the sweep's final status and publishes completion.
func (r *Reconciler) finishSweep(sweep *SweepResult, logger *telemetry.Logger, sweepErr error) (*SweepResult, error) {
	sweep.CompletedAt = time.Now()
	sweep.Duration = sweep.CompletedAt.Sub(sweep.StartedAt)

	switch {
	case sweepErr != nil:
		sweep.Status = SweepStatusFailed
	case sweep.Summary.Failed == 0:
		sweep.Status = SweepStatusSucceeded
	case sweep.Summary.Failed == sweep.Summary.Total:
		sweep.Status = SweepStatusFailed
	default:
		sweep.Status = SweepStatusPartial
	}

	r.metrics.RecordSweepCompleted(sweep.Status, sweep.Duration)
	if r.events != nil {
		if sweep.Status == SweepStatusFailed {
			reason := "all entries failed"
			if sweepErr != nil {
				reason = sweepErr.Error()
			}
			_ = r.events.PublishSweepFailed(sweep.ID, reason)
		} else {
			_ = r.events.PublishSweepCompleted(sweep.ID, sweep.Status, sweep.Duration)
		}
	}

	logger.WithFields(map[string]interface{}{
		"status":    sweep.Status,
		"changed":   sweep.Summary.Changed,
		"unchanged": sweep.Summary.Unchanged,
		"failed":    sweep.Summary.Failed,
	}).Info("sweep complete")

	return sweep, sweepErr
}

func (r *Reconciler) sweepLogger(sweep *SweepResult) *telemetry.Logger {
	if r.logger == nil {
		return telemetry.FromContext(context.Background())
	}
	return r.logger.WithSweepID(sweep.ID).WithField("dry_run", sweep.DryRun)
}
