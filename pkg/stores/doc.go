// Package stores provides the reconciliation-history persistence layer for
// keystonectl. It includes SQLite-based storage with WAL mode, connection
// pooling, embedded migrations, and CRUD operations for sweeps, per-entry
// reconciliations, events, and audit logs.
package stores
