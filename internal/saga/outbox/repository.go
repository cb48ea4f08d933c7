package outbox

import (
	"context"
	"time"
)

// Repository is the port for the cleanup outbox table. The writer and the
// reconciler depend on this abstraction, not on SQLite directly, so tests
// and alternative stores can swap the implementation.
type Repository interface {
	// Insert persists a new entry. A conflict on an existing operation id is
	// not an error: the entry is already durably recorded, which is all the
	// caller needs.
	Insert(ctx context.Context, entry *Entry) error

	// SelectDue returns up to limit entries eligible for a retry at now:
	// fewer than maxAttempts tries so far, and either never attempted or
	// last attempted at least minRetryInterval ago. Oldest created first.
	SelectDue(ctx context.Context, now time.Time, maxAttempts, limit int, minRetryInterval time.Duration) ([]Entry, error)

	// MarkAttempt increments the attempt counter and stamps last_attempt.
	MarkAttempt(ctx context.Context, operationID string, at time.Time) error

	// Delete removes an entry whose cleanup fully succeeded.
	Delete(ctx context.Context, operationID string) error
}
