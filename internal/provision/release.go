package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/airlift-ota/airlift/internal/configstore"
	"github.com/airlift-ota/airlift/internal/registry"
)

// ReleaseInput describes a new rollout of a package/config version pair.
type ReleaseInput struct {
	PackageVersion int
	ConfigVersion  string
	RolloutPercent int
	CreatedBy      string
}

// CreateRelease records a release row and, for staged rollouts, creates and
// ramps a release experiment in the application's workspace. This is plain
// request handling, not a saga: the release row is the single local source
// of truth and the experiment is advisory.
func (s *Service) CreateRelease(ctx context.Context, orgName, appName string, in ReleaseInput) (*registry.Release, error) {
	if in.RolloutPercent < 0 || in.RolloutPercent > 100 {
		return nil, fmt.Errorf("provision: rollout percent %d out of range", in.RolloutPercent)
	}

	app, err := s.reg.GetApplication(ctx, orgName, appName)
	if err != nil {
		return nil, err
	}

	rel := &registry.Release{
		ID:             uuid.NewString(),
		OrgName:        orgName,
		AppName:        appName,
		PackageVersion: in.PackageVersion,
		ConfigVersion:  in.ConfigVersion,
		RolloutPercent: in.RolloutPercent,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      time.Now().UTC(),
	}

	if in.RolloutPercent > 0 && in.RolloutPercent < 100 {
		expID, err := s.configs.CreateExperiment(ctx, app.WorkspaceName, "release-"+rel.ID, []configstore.Variant{
			{ID: "control", Overrides: map[string]any{}},
			{ID: "experimental", Overrides: map[string]any{
				"package_version": in.PackageVersion,
				"config_version":  in.ConfigVersion,
			}},
		})
		if err != nil {
			return nil, fmt.Errorf("create release experiment: %w", err)
		}
		if err := s.configs.RampExperiment(ctx, app.WorkspaceName, expID, in.RolloutPercent); err != nil {
			return nil, fmt.Errorf("ramp release experiment: %w", err)
		}
		rel.ExperimentID = expID
	}

	if err := s.reg.InsertRelease(ctx, rel); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "release created",
		"organization", orgName, "application", appName,
		"release_id", rel.ID, "rollout_percent", in.RolloutPercent)
	return rel, nil
}
