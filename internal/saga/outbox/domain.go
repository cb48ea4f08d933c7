// Package outbox defines the domain types for the cleanup outbox.
//
// When synchronous compensation of a failed provisioning operation leaves
// residue behind, the ledger snapshot is written here so the background
// reconciler can retry the cleanup independently of the original request.
// Rows that keep failing past the attempt bound are left in place on
// purpose: a permanent record of an inconsistency beats silently dropping
// the evidence.
package outbox

import "time"

// Entry is a single row in the cleanup_outbox table.
type Entry struct {
	// OperationID is the primary key, identical to the originating ledger's
	// operation id. At most one entry ever exists per failed operation.
	OperationID string

	// EntityName is the human-readable subject (org or app name), carried
	// for operator inspection.
	EntityName string

	// EntityKind discriminates which cleanup routine applies on replay.
	EntityKind string

	// State is the full JSON-serialised ledger snapshot, replayed verbatim
	// by the reconciler.
	State []byte

	// CreatedAt is when the originating operation started. Entries are
	// processed oldest first.
	CreatedAt time.Time

	// Attempts counts reconciliation tries so far. Entries at or past the
	// configured bound are no longer selected.
	Attempts int

	// LastAttempt is the time of the most recent try, nil before the first.
	LastAttempt *time.Time
}
