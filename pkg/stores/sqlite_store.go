package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateSweep creates a new sweep record
func (s *SQLiteStore) CreateSweep(ctx context.Context, sweep *Sweep) error {
	query := `
		INSERT INTO sweeps (id, source, dry_run, status, started_at, completed_at, error, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sweep.ID,
		sweep.Source,
		sweep.DryRun,
		sweep.Status,
		sweep.StartedAt,
		sweep.CompletedAt,
		sweep.Error,
		sweep.Summary,
		sweep.CreatedAt,
		sweep.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create sweep: %w", err)
	}

	return nil
}

// GetSweep retrieves a sweep by ID
func (s *SQLiteStore) GetSweep(ctx context.Context, id string) (*Sweep, error) {
	query := `
		SELECT id, source, dry_run, status, started_at, completed_at, error, summary, created_at, updated_at
		FROM sweeps
		WHERE id = ?
	`

	sweep := &Sweep{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sweep.ID,
		&sweep.Source,
		&sweep.DryRun,
		&sweep.Status,
		&sweep.StartedAt,
		&sweep.CompletedAt,
		&sweep.Error,
		&sweep.Summary,
		&sweep.CreatedAt,
		&sweep.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sweep not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep: %w", err)
	}

	return sweep, nil
}

// UpdateSweepStatus updates a sweep's status, summary, and error. Terminal
// statuses also set completed_at.
func (s *SQLiteStore) UpdateSweepStatus(ctx context.Context, id string, status SweepStatus, summary string, errMsg *string) error {
	query := `
		UPDATE sweeps
		SET status = ?, summary = ?, error = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == SweepStatusSucceeded || status == SweepStatusPartial || status == SweepStatusFailed {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, summary, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sweep status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("sweep not found: %s", id)
	}

	return nil
}

// ListSweeps lists sweeps with pagination, most recent first
func (s *SQLiteStore) ListSweeps(ctx context.Context, limit, offset int) ([]*Sweep, error) {
	query := `
		SELECT id, source, dry_run, status, started_at, completed_at, error, summary, created_at, updated_at
		FROM sweeps
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweeps: %w", err)
	}
	defer rows.Close()

	sweeps := []*Sweep{}
	for rows.Next() {
		sweep := &Sweep{}
		err := rows.Scan(
			&sweep.ID,
			&sweep.Source,
			&sweep.DryRun,
			&sweep.Status,
			&sweep.StartedAt,
			&sweep.CompletedAt,
			&sweep.Error,
			&sweep.Summary,
			&sweep.CreatedAt,
			&sweep.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sweep: %w", err)
		}
		sweeps = append(sweeps, sweep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sweeps: %w", err)
	}

	return sweeps, nil
}

// DeleteSweep deletes a sweep by ID
func (s *SQLiteStore) DeleteSweep(ctx context.Context, id string) error {
	query := `DELETE FROM sweeps WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete sweep: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("sweep not found: %s", id)
	}

	return nil
}

// CreateReconciliation creates a reconciliation record for one entry
func (s *SQLiteStore) CreateReconciliation(ctx context.Context, rec *Reconciliation) error {
	query := `
		INSERT INTO reconciliations (
			id, sweep_id, entry_name, state, changed, service_id, endpoint_id,
			diagnostic, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.SweepID,
		rec.EntryName,
		rec.State,
		rec.Changed,
		rec.ServiceID,
		rec.EndpointID,
		rec.Diagnostic,
		rec.Error,
		rec.DurationMS,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create reconciliation: %w", err)
	}

	return nil
}

// ListReconciliationsBySweep lists all reconciliations for a sweep in
// recording order
func (s *SQLiteStore) ListReconciliationsBySweep(ctx context.Context, sweepID string) ([]*Reconciliation, error) {
	query := `
		SELECT id, sweep_id, entry_name, state, changed, service_id, endpoint_id,
			   diagnostic, error, duration_ms, created_at
		FROM reconciliations
		WHERE sweep_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	recs := []*Reconciliation{}
	for rows.Next() {
		rec := &Reconciliation{}
		err := rows.Scan(
			&rec.ID,
			&rec.SweepID,
			&rec.EntryName,
			&rec.State,
			&rec.Changed,
			&rec.ServiceID,
			&rec.EndpointID,
			&rec.Diagnostic,
			&rec.Error,
			&rec.DurationMS,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reconciliations: %w", err)
	}

	return recs, nil
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (sweep_id, entry_name, type, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.SweepID,
		event.EntryName,
		event.Type,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events with optional filters and pagination
func (s *SQLiteStore) GetEvents(ctx context.Context, sweepID *string, entryName *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, sweep_id, entry_name, type, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR sweep_id = ?)
		  AND (? IS NULL OR entry_name = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, sweepID, sweepID, entryName, entryName, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.SweepID,
			&event.EntryName,
			&event.Type,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CreateAuditEntry creates a new audit log entry
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO audit (action, actor, target_id, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.Action,
		entry.Actor,
		entry.TargetID,
		entry.Details,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListAuditEntries lists audit entries with optional filters and pagination
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error) {
	query := `
		SELECT id, action, actor, target_id, details, timestamp
		FROM audit
		WHERE (? IS NULL OR action = ?)
		  AND (? IS NULL OR actor = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, action, action, actor, actor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Actor,
			&entry.TargetID,
			&entry.Details,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
