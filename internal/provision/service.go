// Package provision implements the multi-system provisioning flows:
// organization and application creation, and org user management. Each flow
// is a saga driving a ledger forward through ordered steps; on any step
// failure the compensator rolls back and, if rollback leaves residue, the
// outbox writer records it for the reconciler.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airlift-ota/airlift/internal/configstore"
	"github.com/airlift-ota/airlift/internal/directory"
	"github.com/airlift-ota/airlift/internal/pkg/cache"
	"github.com/airlift-ota/airlift/internal/registry"
	"github.com/airlift-ota/airlift/internal/saga"
)

// Roles are the access levels nested under every org and app group, in
// creation order.
var Roles = []string{"read", "write", "admin", "owner"}

const (
	// RoleOwner gates destructive user operations: an org must always keep
	// at least one owner.
	RoleOwner = "owner"

	groupCacheTTL = 5 * time.Minute
)

var (
	ErrOrganizationNotFound = errors.New("provision: organization not found")
	ErrUserNotFound         = errors.New("provision: user not found")
	ErrUnknownRole          = errors.New("provision: unknown role")
	ErrLastOwner            = errors.New("provision: cannot demote or remove the last owner")
)

// Service owns the provisioning sagas and their collaborators.
type Service struct {
	dir     directory.Client
	configs configstore.Client
	reg     registry.Repository
	comp    *saga.Compensator
	writer  *saga.OutboxWriter
	groups  cache.Cache
}

func NewService(
	dir directory.Client,
	configs configstore.Client,
	reg registry.Repository,
	comp *saga.Compensator,
	writer *saga.OutboxWriter,
	groups cache.Cache,
) *Service {
	return &Service{
		dir:     dir,
		configs: configs,
		reg:     reg,
		comp:    comp,
		writer:  writer,
		groups:  groups,
	}
}

// abort is the shared failure path of every saga: compensate synchronously,
// persist to the outbox when compensation leaves residue, and hand the
// original step failure back unchanged.
func (s *Service) abort(ctx context.Context, led *saga.Ledger, cause error) error {
	snap := led.Snapshot()
	if !s.comp.Run(ctx, snap) {
		if err := s.writer.Persist(ctx, snap); err != nil {
			// The one case worse than the failure itself: residue exists and
			// nothing durable points at it.
			slog.ErrorContext(ctx, "CRITICAL: failed to record cleanup outbox entry",
				"operation_id", snap.OperationID,
				"entity_kind", snap.EntityKind,
				"entity_name", snap.EntityName,
				"persist_error", err,
				"original_error", cause,
			)
		}
	}
	return cause
}

// orgGroup resolves the directory group for an organization, via the cache.
func (s *Service) orgGroup(ctx context.Context, orgName string) (*directory.Group, error) {
	key := s.groups.GenerateKey("org-group", orgName)
	if id := s.cachedID(ctx, key); id != "" {
		return &directory.Group{ID: id, Name: orgName}, nil
	}

	group, err := s.dir.FindGroupByName(ctx, orgName)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, orgName)
	}
	if err != nil {
		return nil, err
	}

	s.cacheID(ctx, key, group.ID)
	return group, nil
}

// roleSubgroup resolves the role subgroup of a parent group, via the cache.
func (s *Service) roleSubgroup(ctx context.Context, parent *directory.Group, role string) (*directory.Group, error) {
	key := s.groups.GenerateKey("role-group", parent.ID+":"+role)
	if id := s.cachedID(ctx, key); id != "" {
		return &directory.Group{ID: id, Name: role}, nil
	}

	children, err := s.dir.ListChildGroups(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Name == role {
			s.cacheID(ctx, key, child.ID)
			return &child, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
}

// Cache failures are never fatal; the directory remains authoritative.
func (s *Service) cachedID(ctx context.Context, key string) string {
	id, err := s.groups.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "group cache read failed", "key", key, "error", err)
		return ""
	}
	return id
}

func (s *Service) cacheID(ctx context.Context, key, id string) {
	if err := s.groups.Set(ctx, key, id, groupCacheTTL); err != nil {
		slog.WarnContext(ctx, "group cache write failed", "key", key, "error", err)
	}
}

func validRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
