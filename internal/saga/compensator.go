package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/airlift-ota/airlift/internal/configstore"
	"github.com/airlift-ota/airlift/internal/directory"
)

// Compensator undoes the side effects recorded in a ledger snapshot. It is
// used synchronously by the saga call sites on step failure and replayed
// asynchronously by the Reconciler, so every undo action must tolerate
// having already run: a missing group or membership counts as success.
type Compensator struct {
	dir     directory.Client
	configs configstore.Client
}

func NewCompensator(dir directory.Client, configs configstore.Client) *Compensator {
	return &Compensator{dir: dir, configs: configs}
}

// Run undoes the snapshot's recorded resources in reverse insertion order
// and then cleans up the external-store resource if one was created. It
// returns true only when everything was undone (or there was nothing to
// undo); false means residue remains and the snapshot must go to the outbox.
//
// A complete snapshot is never touched: completion is the single gate, so a
// mistaken invocation after success undoes nothing.
func (c *Compensator) Run(ctx context.Context, snap Snapshot) bool {
	if snap.IsComplete() {
		return true
	}

	slog.InfoContext(ctx, "compensating incomplete operation",
		"operation_id", snap.OperationID,
		"entity_kind", snap.EntityKind,
		"entity_name", snap.EntityName,
		"resources", len(snap.Resources),
	)

	clean := true

	// Reverse order: later resources may live inside earlier ones (a
	// membership inside a role group inside the org group), so children are
	// undone before their parents. Individual failures are logged and the
	// pass keeps going; resources are independent and partial undo beats
	// stopping at the first error.
	for i := len(snap.Resources) - 1; i >= 0; i-- {
		if err := c.undo(ctx, snap.Resources[i]); err != nil {
			slog.WarnContext(ctx, "compensation step failed",
				"operation_id", snap.OperationID,
				"kind", snap.Resources[i].Kind,
				"resource_id", snap.Resources[i].ID,
				"error", err,
			)
			clean = false
		}
	}

	if snap.ExternalStoreID != "" && !snap.LocalCommitted {
		if err := c.cleanupExternal(ctx, snap); err != nil {
			clean = false
		}
	}

	return clean
}

// undo dispatches one resource record to its compensation action. nil means
// undone, including the already-gone case.
func (c *Compensator) undo(ctx context.Context, rec ResourceRecord) error {
	switch rec.Kind {
	case KindGroupCreated:
		err := c.dir.DeleteGroup(ctx, rec.ID)
		return ignoreNotFound(err)

	case KindMembershipAdded:
		userID, groupID, ok := SplitMembershipID(rec.ID)
		if !ok {
			return fmt.Errorf("malformed membership identifier %q", rec.ID)
		}
		err := c.dir.RemoveUserFromGroup(ctx, userID, groupID)
		return ignoreNotFound(err)

	case KindMembershipRemoved:
		// The forward path removed this membership, so undoing means
		// putting the user back into the group.
		userID, groupID, ok := SplitMembershipID(rec.ID)
		if !ok {
			return fmt.Errorf("malformed membership identifier %q", rec.ID)
		}
		return c.dir.AddUserToGroup(ctx, userID, groupID)

	default:
		// Unknown kinds are skipped, not fatal: an older binary replaying an
		// outbox entry written by a newer one must still undo what it knows.
		slog.WarnContext(ctx, "unknown resource kind, skipping", "kind", rec.Kind, "resource_id", rec.ID)
		return nil
	}
}

// cleanupExternal removes the configuration-store resource created by this
// operation. Only the application flow creates one (a workspace); whether it
// can be deleted depends on the store's capabilities.
func (c *Compensator) cleanupExternal(ctx context.Context, snap Snapshot) error {
	switch snap.EntityKind {
	case EntityApplicationCreate:
		if !c.configs.SupportsWorkspaceDelete() {
			slog.WarnContext(ctx, "workspace deletion unsupported by config store, manual cleanup required",
				"operation_id", snap.OperationID,
				"workspace", snap.ExternalStoreID,
			)
			return fmt.Errorf("workspace %q: %w", snap.ExternalStoreID, configstore.ErrUnsupported)
		}
		if err := c.configs.DeleteWorkspace(ctx, snap.ExternalStoreID); err != nil {
			slog.WarnContext(ctx, "failed to delete workspace",
				"operation_id", snap.OperationID,
				"workspace", snap.ExternalStoreID,
				"error", err,
			)
			return err
		}
		return nil

	case EntityOrganizationCreate, EntityUserAdd, EntityUserUpdate, EntityUserRemove:
		// These flows never create their own store resources; the store
		// organization is pre-provisioned. Nothing to clean.
		return nil

	default:
		slog.WarnContext(ctx, "unknown entity kind for external cleanup", "entity_kind", snap.EntityKind)
		return fmt.Errorf("unknown entity kind %q", snap.EntityKind)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	return err
}
