package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/airlift-ota/airlift/internal/saga/outbox"
)

// OutboxRepository is the SQLite implementation of outbox.Repository.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Insert writes one entry. ON CONFLICT DO NOTHING keeps the at-most-one-
// entry-per-operation semantics: if the row already exists the cleanup is
// already durably recorded and the insert is a success.
func (r *OutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	const q = `
		INSERT INTO cleanup_outbox
			(operation_id, entity_name, entity_kind, state, created_at, attempts, last_attempt)
		VALUES
			(?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(operation_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, q,
		entry.OperationID,
		entry.EntityName,
		entry.EntityKind,
		string(entry.State),
		formatTime(entry.CreatedAt),
		entry.Attempts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert outbox entry %q: %w", entry.OperationID, err)
	}
	return nil
}

// SelectDue returns entries eligible for a retry at now, oldest first.
func (r *OutboxRepository) SelectDue(ctx context.Context, now time.Time, maxAttempts, limit int, minRetryInterval time.Duration) ([]outbox.Entry, error) {
	const q = `
		SELECT operation_id, entity_name, entity_kind, state, created_at, attempts, last_attempt
		FROM   cleanup_outbox
		WHERE  attempts < ?
		  AND  (last_attempt IS NULL OR last_attempt < ?)
		ORDER  BY created_at ASC
		LIMIT  ?`

	cutoff := formatTime(now.Add(-minRetryInterval))
	rows, err := r.db.QueryContext(ctx, q, maxAttempts, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select due outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var (
			e           outbox.Entry
			state       string
			createdAt   string
			lastAttempt sql.NullString
		)
		if err := rows.Scan(&e.OperationID, &e.EntityName, &e.EntityKind, &state, &createdAt, &e.Attempts, &lastAttempt); err != nil {
			return nil, fmt.Errorf("sqlite: scan outbox entry: %w", err)
		}
		e.State = []byte(state)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if lastAttempt.Valid {
			t, err := parseTime(lastAttempt.String)
			if err != nil {
				return nil, err
			}
			e.LastAttempt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (r *OutboxRepository) MarkAttempt(ctx context.Context, operationID string, at time.Time) error {
	const q = `
		UPDATE cleanup_outbox
		SET    attempts = attempts + 1, last_attempt = ?
		WHERE  operation_id = ?`

	if _, err := r.db.ExecContext(ctx, q, formatTime(at), operationID); err != nil {
		return fmt.Errorf("sqlite: mark outbox attempt for %q: %w", operationID, err)
	}
	return nil
}

func (r *OutboxRepository) Delete(ctx context.Context, operationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cleanup_outbox WHERE operation_id = ?`, operationID); err != nil {
		return fmt.Errorf("sqlite: delete outbox entry %q: %w", operationID, err)
	}
	return nil
}
