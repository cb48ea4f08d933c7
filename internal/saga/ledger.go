// Package saga implements the compensation core behind provisioning
// operations that span the identity directory, the configuration store and
// the local database.
//
// None of those systems share a transaction, so every externally visible
// side effect is recorded in a Ledger as it happens. When a later step
// fails, the Compensator undoes the recorded effects in reverse order; if
// that undo itself fails partway, the ledger snapshot is persisted to the
// cleanup outbox and the Reconciler retries it in the background.
package saga

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResourceKind tags one recorded side effect with the compensation strategy
// that undoes it. The set is closed: the compensation dispatch switches on
// it and warns on anything it does not recognise.
type ResourceKind string

const (
	// KindGroupCreated is a directory group (org, app or role subgroup).
	// Compensated by deleting the group; the directory cascades to children.
	KindGroupCreated ResourceKind = "group-created"

	// KindMembershipAdded is a user added to a group, identifier
	// "<user>:<group>". Compensated by removing the membership.
	KindMembershipAdded ResourceKind = "membership-added"

	// KindMembershipRemoved is a user removed from a group, identifier
	// "<user>:<group>". Compensated by re-adding the membership (used by the
	// role update/remove flows, which remove memberships on the forward path).
	KindMembershipRemoved ResourceKind = "membership-removed"
)

// EntityKind discriminates which external-store cleanup routine applies to a
// ledger. One value per provisioning flow.
type EntityKind string

const (
	EntityOrganizationCreate EntityKind = "organization-create"
	EntityApplicationCreate  EntityKind = "application-create"
	EntityUserAdd            EntityKind = "organization-user-add"
	EntityUserUpdate         EntityKind = "organization-user-update"
	EntityUserRemove         EntityKind = "organization-user-remove"
)

// ResourceRecord is one externally visible side effect that was performed
// and may need undoing. Immutable once appended.
type ResourceRecord struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

// MembershipID encodes a user/group pair into the composite identifier used
// by the membership resource kinds.
func MembershipID(userID, groupID string) string {
	return userID + ":" + groupID
}

// SplitMembershipID is the inverse of MembershipID. ok is false when the
// identifier is not a valid "<user>:<group>" pair.
func SplitMembershipID(id string) (userID, groupID string, ok bool) {
	userID, groupID, ok = strings.Cut(id, ":")
	if userID == "" || groupID == "" {
		return "", "", false
	}
	return userID, groupID, ok
}

// Snapshot is an immutable copy of a ledger, safe to serialize to the
// cleanup outbox and to replay from the Reconciler.
type Snapshot struct {
	OperationID     string           `json:"operation_id"`
	EntityName      string           `json:"entity_name"`
	EntityKind      EntityKind       `json:"entity_kind"`
	Resources       []ResourceRecord `json:"resources"`
	ExternalStoreID string           `json:"external_store_id,omitempty"`
	LocalCommitted  bool             `json:"local_committed"`
	CreatedAt       time.Time        `json:"created_at"`
}

// IsComplete reports whether the operation finished: the local database
// write landed and the external-store resource exists. A complete snapshot
// is never compensated.
func (s Snapshot) IsComplete() bool {
	return s.LocalCommitted && s.ExternalStoreID != ""
}

// Ledger is the working state of one in-flight provisioning operation. It is
// owned by the request that created it; the internal mutex only exists so
// Record and the Mark* methods can be called from closures running on the
// same operation, never to coordinate across requests.
type Ledger struct {
	mu   sync.Mutex
	snap Snapshot
}

// New creates a ledger for one logical operation with a fresh operation id
// and no recorded resources.
func New(entityName string, kind EntityKind) *Ledger {
	return &Ledger{
		snap: Snapshot{
			OperationID: uuid.NewString(),
			EntityName:  entityName,
			EntityKind:  kind,
			CreatedAt:   time.Now().UTC(),
		},
	}
}

// Record appends one resource record. Call it immediately after the side
// effect succeeds and before attempting the next step, so a failure between
// steps never loses a record of work already done.
func (l *Ledger) Record(kind ResourceKind, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.Resources = append(l.snap.Resources, ResourceRecord{Kind: kind, ID: id})
}

// MarkExternalStore records the id of the configuration-store resource
// created by this operation. The first call wins; repeats are no-ops.
func (l *Ledger) MarkExternalStore(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap.ExternalStoreID == "" {
		l.snap.ExternalStoreID = id
	}
}

// MarkLocalCommitted flags that the local database write finalising the
// operation has succeeded. Idempotent.
func (l *Ledger) MarkLocalCommitted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.LocalCommitted = true
}

// IsComplete reports whether both completion flags are set.
func (l *Ledger) IsComplete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.IsComplete()
}

// Snapshot returns a copy of the current state. The resource slice is
// copied so later Record calls cannot alias into a snapshot that has been
// handed to the compensator or the outbox.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := l.snap
	snap.Resources = make([]ResourceRecord, len(l.snap.Resources))
	copy(snap.Resources, l.snap.Resources)
	return snap
}
