package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/airlift-ota/airlift/internal/registry"
	"github.com/airlift-ota/airlift/internal/saga"
)

// Application is the provisioning result handed back to the API layer.
type Application struct {
	OrgName       string
	Name          string
	WorkspaceName string
}

// defaultConfigs are the configuration keys every new application workspace
// starts with.
var defaultConfigs = []struct {
	key    string
	value  any
	schema map[string]any
}{
	{"version", 1, map[string]any{"type": "integer"}},
	{"config_version", "v0", map[string]any{"type": "string"}},
	{"release_config_timeout", 1000, map[string]any{"type": "integer"}},
	{"package_timeout", 1000, map[string]any{"type": "integer"}},
}

// CreateApplication provisions an application inside an organization: an app
// group with role subgroups under the org group, a config-store workspace
// seeded with the default keys, and the local applications row. This is the
// one flow that creates an external-store resource, so its ledger carries
// the workspace name.
func (s *Service) CreateApplication(ctx context.Context, orgName, appName, creatorID string) (*Application, error) {
	orgGroup, err := s.orgGroup(ctx, orgName)
	if err != nil {
		return nil, err
	}

	led := saga.New(appName, saga.EntityApplicationCreate)

	slog.InfoContext(ctx, "creating application",
		"organization", orgName, "application", appName,
		"operation_id", led.Snapshot().OperationID)

	appGroupID, err := s.dir.CreateChildGroup(ctx, orgGroup.ID, appName)
	if err != nil {
		return nil, fmt.Errorf("create application group: %w", err)
	}
	led.Record(saga.KindGroupCreated, appGroupID)

	for _, role := range Roles {
		roleID, err := s.dir.CreateChildGroup(ctx, appGroupID, role)
		if err != nil {
			return nil, s.abort(ctx, led, fmt.Errorf("create role group %q: %w", role, err))
		}
		led.Record(saga.KindGroupCreated, roleID)

		if err := s.dir.AddUserToGroup(ctx, creatorID, roleID); err != nil {
			return nil, s.abort(ctx, led, fmt.Errorf("add creator to role group %q: %w", role, err))
		}
		led.Record(saga.KindMembershipAdded, saga.MembershipID(creatorID, roleID))
	}

	wsName, err := s.reg.AllocateWorkspaceName(ctx, orgName)
	if err != nil {
		return nil, s.abort(ctx, led, fmt.Errorf("allocate workspace name: %w", err))
	}

	created, err := s.configs.CreateWorkspace(ctx, wsName)
	if err != nil {
		return nil, s.abort(ctx, led, fmt.Errorf("create workspace: %w", err))
	}
	led.MarkExternalStore(created)

	for _, dc := range defaultConfigs {
		if err := s.configs.CreateDefaultConfig(ctx, created, dc.key, dc.value, dc.schema); err != nil {
			return nil, s.abort(ctx, led, fmt.Errorf("seed default config %q: %w", dc.key, err))
		}
	}

	app := &registry.Application{
		OrgName:       orgName,
		Name:          appName,
		WorkspaceName: created,
		CreatedBy:     creatorID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.reg.InsertApplication(ctx, app); err != nil {
		return nil, s.abort(ctx, led, fmt.Errorf("record application: %w", err))
	}
	led.MarkLocalCommitted()

	slog.InfoContext(ctx, "application created",
		"organization", orgName, "application", appName, "workspace", created)
	return &Application{OrgName: orgName, Name: appName, WorkspaceName: created}, nil
}
