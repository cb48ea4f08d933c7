package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airlift-ota/airlift/internal/registry"
	"github.com/airlift-ota/airlift/internal/saga"
)

// Organization is the provisioning result handed back to the API layer.
type Organization struct {
	Name   string
	Access []string
}

// CreateOrganization provisions a tenant: a parent directory group, one role
// subgroup per access level with the creator as member, and the local
// organizations row. Any step failure rolls the directory side back.
func (s *Service) CreateOrganization(ctx context.Context, name, creatorID string) (*Organization, error) {
	led := saga.New(name, saga.EntityOrganizationCreate)

	slog.InfoContext(ctx, "creating organization",
		"organization", name, "operation_id", led.Snapshot().OperationID)

	groupID, err := s.dir.CreateGroup(ctx, name)
	if err != nil {
		// Nothing recorded yet, nothing to undo.
		return nil, fmt.Errorf("create organization group: %w", err)
	}
	led.Record(saga.KindGroupCreated, groupID)

	for _, role := range Roles {
		roleID, err := s.dir.CreateChildGroup(ctx, groupID, role)
		if err != nil {
			return nil, s.abort(ctx, led, fmt.Errorf("create role group %q: %w", role, err))
		}
		led.Record(saga.KindGroupCreated, roleID)

		if err := s.dir.AddUserToGroup(ctx, creatorID, roleID); err != nil {
			return nil, s.abort(ctx, led, fmt.Errorf("add creator to role group %q: %w", role, err))
		}
		led.Record(saga.KindMembershipAdded, saga.MembershipID(creatorID, roleID))
	}

	org := &registry.Organization{
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reg.InsertOrganization(ctx, org); err != nil {
		return nil, s.abort(ctx, led, fmt.Errorf("record organization: %w", err))
	}
	led.MarkLocalCommitted()

	slog.InfoContext(ctx, "organization created", "organization", name)
	return &Organization{Name: name, Access: append([]string(nil), Roles...)}, nil
}
