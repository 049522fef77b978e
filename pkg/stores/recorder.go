package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keystonectl/keystonectl/pkg/reconciler"
)

// Recorder persists completed sweeps into a Store. It is the bridge between
// the in-memory sweep results and the history tables.
type Recorder struct {
	store Store
	actor string
}

// NewRecorder creates a recorder writing on behalf of the given actor.
func NewRecorder(store Store, actor string) *Recorder {
	if actor == "" {
		actor = "keystonectl"
	}
	return &Recorder{store: store, actor: actor}
}

// RecordSweep writes one completed sweep, its per-entry reconciliations, and
// an audit entry. Events for failed entries are appended to the event log.
func (r *Recorder) RecordSweep(ctx context.Context, res *reconciler.SweepResult) error {
	if res == nil {
		return fmt.Errorf("sweep result is required")
	}

	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep summary: %w", err)
	}

	now := time.Now()
	completedAt := res.CompletedAt

	var sweepErr *string
	if res.Status == reconciler.SweepStatusFailed {
		for i := range res.Entries {
			if res.Entries[i].Error != "" {
				e := res.Entries[i].Error
				sweepErr = &e
				break
			}
		}
	}

	sweep := &Sweep{
		ID:          res.ID,
		Source:      res.Source,
		DryRun:      res.DryRun,
		Status:      SweepStatus(res.Status),
		StartedAt:   res.StartedAt,
		CompletedAt: &completedAt,
		Error:       sweepErr,
		Summary:     string(summary),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.CreateSweep(ctx, sweep); err != nil {
		return err
	}

	for i := range res.Entries {
		entry := &res.Entries[i]

		rec := &Reconciliation{
			ID:         uuid.New().String(),
			SweepID:    res.ID,
			EntryName:  entry.Name,
			State:      string(entry.State),
			DurationMS: entry.Duration.Milliseconds(),
			CreatedAt:  now,
		}

		if entry.Result != nil {
			rec.Changed = entry.Result.Changed
			if entry.Result.ServiceID != "" {
				id := entry.Result.ServiceID
				rec.ServiceID = &id
			}
			if entry.Result.EndpointID != "" {
				id := entry.Result.EndpointID
				rec.EndpointID = &id
			}
			if entry.Result.Diagnostic != "" {
				d := entry.Result.Diagnostic
				rec.Diagnostic = &d
			}
		}

		if entry.Error != "" {
			e := entry.Error
			rec.Error = &e

			event := &Event{
				SweepID:   &res.ID,
				EntryName: &entry.Name,
				Type:      "entry.failed",
				Level:     EventLevelError,
				Message:   entry.Error,
				Timestamp: now,
			}
			if err := r.store.AppendEvent(ctx, event); err != nil {
				return err
			}
		}

		if err := r.store.CreateReconciliation(ctx, rec); err != nil {
			return err
		}
	}

	audit := &AuditEntry{
		Action:    "sweep.recorded",
		Actor:     r.actor,
		TargetID:  &sweep.ID,
		Timestamp: now,
	}
	return r.store.CreateAuditEntry(ctx, audit)
}
