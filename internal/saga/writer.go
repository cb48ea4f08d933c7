package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/airlift-ota/airlift/internal/saga/outbox"
)

// OutboxWriter durably persists a ledger snapshot whose synchronous
// compensation left residue behind, so the reconciler can retry the cleanup.
type OutboxWriter struct {
	repo outbox.Repository
}

func NewOutboxWriter(repo outbox.Repository) *OutboxWriter {
	return &OutboxWriter{repo: repo}
}

// Persist writes one outbox entry keyed by the snapshot's operation id. A
// conflict on an existing id is success: the residue is already recorded.
//
// A returned error means an inconsistency exists with no durable record of
// it, which is why the caller logs it as CRITICAL rather than folding it
// into the request error.
func (w *OutboxWriter) Persist(ctx context.Context, snap Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("saga: serialize ledger %q: %w", snap.OperationID, err)
	}

	entry := &outbox.Entry{
		OperationID: snap.OperationID,
		EntityName:  snap.EntityName,
		EntityKind:  string(snap.EntityKind),
		State:       state,
		CreatedAt:   snap.CreatedAt,
	}
	if err := w.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("saga: persist outbox entry %q: %w", snap.OperationID, err)
	}

	slog.InfoContext(ctx, "recorded cleanup outbox entry",
		"operation_id", snap.OperationID,
		"entity_kind", snap.EntityKind,
		"entity_name", snap.EntityName,
	)
	return nil
}
