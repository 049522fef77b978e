package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/keystonectl/keystonectl/pkg/catalog"
)

func sweepEntries() []catalog.DesiredState {
	return []catalog.DesiredState{
		{
			Name:      "keystone",
			Type:      "identity",
			PublicURL: "http://identity.example.org:5000/v2.0",
			Region:    "RegionOne",
		},
		{
			Name:      "nova",
			Type:      "compute",
			PublicURL: "http://compute.example.org:8774/v2",
			Region:    "RegionOne",
		},
	}
}

func TestSweep_AllEntriesConverge(t *testing.T) {
	client := newFakeIdentityClient()
	rec := New(client, nil)

	result, err := rec.Sweep(context.Background(), sweepEntries(), SweepOptions{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Status != SweepStatusSucceeded {
		t.Errorf("Expected status %q, got %q", SweepStatusSucceeded, result.Status)
	}
	if result.Summary.Changed != 2 {
		t.Errorf("Expected 2 changed entries, got %d", result.Summary.Changed)
	}
	if result.ID == "" {
		t.Error("Expected a sweep id")
	}
	if len(client.services) != 2 || len(client.endpoints) != 2 {
		t.Errorf("Expected 2 services and 2 endpoints, got %d and %d",
			len(client.services), len(client.endpoints))
	}

	// A second sweep over the same catalog changes nothing.
	again, err := rec.Sweep(context.Background(), sweepEntries(), SweepOptions{})
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if again.Summary.Changed != 0 || again.Summary.Unchanged != 2 {
		t.Errorf("Expected fully converged second sweep, got %+v", again.Summary)
	}
}

func TestSweep_PartialOnEntryFailure(t *testing.T) {
	client := newFakeIdentityClient()
	rec := New(client, nil)

	entries := sweepEntries()
	entries[1].State = catalog.StateAbsent

	result, err := rec.Sweep(context.Background(), entries, SweepOptions{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Status != SweepStatusPartial {
		t.Errorf("Expected status %q, got %q", SweepStatusPartial, result.Status)
	}
	if result.Summary.Changed != 1 || result.Summary.Failed != 1 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}
	if !result.Failed() {
		t.Error("Expected Failed() to report true")
	}

	// The failing entry must not stop the sweep or leave partial state.
	outcome := result.Entries[1]
	if outcome.Err == nil || !catalog.IsUnimplemented(outcome.Err) {
		t.Errorf("Expected unimplemented outcome for absent entry, got %v", outcome.Err)
	}
}

func TestSweep_AllFailed(t *testing.T) {
	client := newFakeIdentityClient()
	client.listErr = fmt.Errorf("connection refused")
	rec := New(client, nil)

	result, err := rec.Sweep(context.Background(), sweepEntries(), SweepOptions{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Status != SweepStatusFailed {
		t.Errorf("Expected status %q, got %q", SweepStatusFailed, result.Status)
	}
	if result.Summary.Failed != 2 {
		t.Errorf("Expected 2 failed entries, got %d", result.Summary.Failed)
	}
}

func TestSweep_DryRunFoldsFailures(t *testing.T) {
	client := newFakeIdentityClient()
	client.listErr = fmt.Errorf("connection refused")
	rec := New(client, nil)

	result, err := rec.Sweep(context.Background(), sweepEntries(), SweepOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	// Check mode: undeterminable entries report "would change" instead of
	// failing the sweep.
	if result.Status != SweepStatusSucceeded {
		t.Errorf("Expected status %q, got %q", SweepStatusSucceeded, result.Status)
	}
	if result.Summary.Failed != 0 {
		t.Errorf("Dry-run sweep recorded %d failures", result.Summary.Failed)
	}
	if result.Summary.Changed != 2 {
		t.Errorf("Expected 2 would-change entries, got %d", result.Summary.Changed)
	}
	for _, outcome := range result.Entries {
		if outcome.Result == nil || outcome.Result.Diagnostic == "" {
			t.Errorf("Entry %q missing fold diagnostic", outcome.Name)
		}
	}
}

func TestSweep_DryRunNoSideEffects(t *testing.T) {
	client := newFakeIdentityClient()
	rec := New(client, nil)

	result, err := rec.Sweep(context.Background(), sweepEntries(), SweepOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Summary.Changed != 2 {
		t.Errorf("Expected 2 would-change entries, got %d", result.Summary.Changed)
	}
	if len(client.services) != 0 || len(client.endpoints) != 0 {
		t.Error("Dry-run sweep mutated remote state")
	}
	if !result.DryRun {
		t.Error("Expected DryRun=true on the sweep result")
	}
}

func TestSweep_EmptyCatalog(t *testing.T) {
	client := newFakeIdentityClient()
	rec := New(client, nil)

	result, err := rec.Sweep(context.Background(), nil, SweepOptions{})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Status != SweepStatusSucceeded {
		t.Errorf("Expected empty sweep to succeed, got %q", result.Status)
	}
	if result.Summary.Total != 0 {
		t.Errorf("Expected total=0, got %d", result.Summary.Total)
	}
}

func TestSweep_ContextCancellation(t *testing.T) {
	client := newFakeIdentityClient()
	rec := New(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := rec.Sweep(ctx, sweepEntries(), SweepOptions{})
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if result.Status != SweepStatusFailed {
		t.Errorf("Expected status %q, got %q", SweepStatusFailed, result.Status)
	}
	if client.callCount() != 0 {
		t.Errorf("Cancelled sweep made %d remote calls", client.callCount())
	}
}
