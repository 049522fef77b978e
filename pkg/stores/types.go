package stores

import (
	"context"
	"database/sql"
	"time"
)

// SweepStatus represents the status of a recorded sweep
type SweepStatus string

const (
	SweepStatusPending   SweepStatus = "pending"
	SweepStatusRunning   SweepStatus = "running"
	SweepStatusSucceeded SweepStatus = "succeeded"
	SweepStatusPartial   SweepStatus = "partial"
	SweepStatusFailed    SweepStatus = "failed"
)

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Sweep represents one recorded reconciliation sweep over a catalog
type Sweep struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"` // catalog document path
	DryRun      bool        `json:"dry_run"`
	Status      SweepStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       *string     `json:"error,omitempty"`
	Summary     string      `json:"summary"` // JSON blob
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Reconciliation represents one entry's outcome within a sweep
type Reconciliation struct {
	ID         string    `json:"id"`
	SweepID    string    `json:"sweep_id"`
	EntryName  string    `json:"entry_name"`
	State      string    `json:"state"` // present or absent
	Changed    bool      `json:"changed"`
	ServiceID  *string   `json:"service_id,omitempty"`
	EndpointID *string   `json:"endpoint_id,omitempty"`
	Diagnostic *string   `json:"diagnostic,omitempty"`
	Error      *string   `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event represents an append-only log event
type Event struct {
	ID        int64      `json:"id"`
	SweepID   *string    `json:"sweep_id,omitempty"`
	EntryName *string    `json:"entry_name,omitempty"`
	Type      string     `json:"type"` // e.g., "sweep.started", "entry.changed"
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Details   *string    `json:"details,omitempty"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// AuditEntry represents an audit trail entry
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"` // e.g., "sweep.created", "sweep.completed"
	Actor     string    `json:"actor"`  // user or system identifier
	TargetID  *string   `json:"target_id,omitempty"`
	Details   *string   `json:"details,omitempty"` // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// Store defines the interface for the history persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Sweep operations
	CreateSweep(ctx context.Context, sweep *Sweep) error
	GetSweep(ctx context.Context, id string) (*Sweep, error)
	UpdateSweepStatus(ctx context.Context, id string, status SweepStatus, summary string, err *string) error
	ListSweeps(ctx context.Context, limit, offset int) ([]*Sweep, error)
	DeleteSweep(ctx context.Context, id string) error

	// Reconciliation operations
	CreateReconciliation(ctx context.Context, rec *Reconciliation) error
	ListReconciliationsBySweep(ctx context.Context, sweepID string) ([]*Reconciliation, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, sweepID *string, entryName *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Audit operations
	CreateAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
