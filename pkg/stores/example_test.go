package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/keystonectl/keystonectl/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	// Create store configuration
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	// Store is now ready to use
	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateSweep demonstrates recording a new sweep.
func ExampleSQLiteStore_CreateSweep() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a new sweep
	sweep := &stores.Sweep{
		ID:        "sweep-001",
		Source:    "/catalogs/core-services.yaml",
		DryRun:    false,
		Status:    stores.SweepStatusRunning,
		StartedAt: time.Now(),
		Summary:   `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := store.CreateSweep(ctx, sweep); err != nil {
		log.Fatal(err)
	}

	// Retrieve the sweep
	retrieved, err := store.GetSweep(ctx, "sweep-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Sweep ID: %s, Status: %s\n", retrieved.ID, retrieved.Status)
	// Output: Sweep ID: sweep-001, Status: running
}

// ExampleSQLiteStore_CreateReconciliation demonstrates recording per-entry outcomes.
func ExampleSQLiteStore_CreateReconciliation() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a sweep (required for foreign key)
	sweep := &stores.Sweep{
		ID:        "sweep-002",
		Source:    "/catalogs/core-services.yaml",
		Status:    stores.SweepStatusSucceeded,
		StartedAt: time.Now(),
		Summary:   `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = store.CreateSweep(ctx, sweep)

	// Record the outcome for one catalog entry
	serviceID := "9f1c3a2b4d5e6f708192a3b4c5d6e7f8"
	rec := &stores.Reconciliation{
		ID:         "rec-001",
		SweepID:    "sweep-002",
		EntryName:  "keystone",
		State:      "present",
		Changed:    true,
		ServiceID:  &serviceID,
		DurationMS: 142,
		CreatedAt:  time.Now(),
	}

	if err := store.CreateReconciliation(ctx, rec); err != nil {
		log.Fatal(err)
	}

	// List outcomes for the sweep
	recs, err := store.ListReconciliationsBySweep(ctx, "sweep-002")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Entry: %s, Changed: %v\n", recs[0].EntryName, recs[0].Changed)
	// Output: Entry: keystone, Changed: true
}

// ExampleSQLiteStore_AppendEvent demonstrates logging events.
func ExampleSQLiteStore_AppendEvent() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a sweep
	sweep := &stores.Sweep{
		ID:        "sweep-003",
		Source:    "/catalogs/core-services.yaml",
		Status:    stores.SweepStatusRunning,
		StartedAt: time.Now(),
		Summary:   `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = store.CreateSweep(ctx, sweep)

	// Log an event
	details := `{"region":"RegionOne"}`
	event := &stores.Event{
		SweepID:   &sweep.ID,
		Type:      "sweep.started",
		Level:     stores.EventLevelInfo,
		Message:   "Starting catalog sweep",
		Details:   &details,
		Timestamp: time.Now(),
	}

	if err := store.AppendEvent(ctx, event); err != nil {
		log.Fatal(err)
	}

	// Retrieve events
	events, err := store.GetEvents(ctx, &sweep.ID, nil, nil, 10, 0)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Event count: %d, Message: %s\n", len(events), events[0].Message)
	// Output: Event count: 1, Message: Starting catalog sweep
}

// ExampleSQLiteStore_CreateAuditEntry demonstrates recording audit entries.
func ExampleSQLiteStore_CreateAuditEntry() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	targetID := "sweep-004"
	details := `{"entries":3}`
	entry := &stores.AuditEntry{
		Action:    "sweep.recorded",
		Actor:     "keystonectl",
		TargetID:  &targetID,
		Details:   &details,
		Timestamp: time.Now(),
	}

	if err := store.CreateAuditEntry(ctx, entry); err != nil {
		log.Fatal(err)
	}

	// Retrieve audit entries for the actor
	actor := "keystonectl"
	entries, err := store.ListAuditEntries(ctx, nil, &actor, 10, 0)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Audit count: %d, Action: %s\n", len(entries), entries[0].Action)
	// Output: Audit count: 1, Action: sweep.recorded
}

// ExampleSQLiteStore_BeginTx demonstrates using transactions.
func ExampleSQLiteStore_BeginTx() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Begin transaction
	tx, err := store.BeginTx(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Perform operations within transaction
	query := `
		INSERT INTO sweeps (id, source, dry_run, status, started_at, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err = tx.ExecContext(ctx, query, "sweep-tx-001", "/catalogs/test.yaml",
		false, "pending", now, "{}", now, now)

	if err != nil {
		_ = store.RollbackTx(tx)
		log.Fatal(err)
	}

	// Commit transaction
	if err := store.CommitTx(tx); err != nil {
		log.Fatal(err)
	}

	// Verify the sweep was created
	sweep, err := store.GetSweep(ctx, "sweep-tx-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Transaction committed: Sweep %s created\n", sweep.ID)
	// Output: Transaction committed: Sweep sweep-tx-001 created
}
