// Package configstore defines the port for the configuration-and-
// experimentation store: per-application workspaces, default configuration
// keys and ramped experiments.
package configstore

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by operations the backing store cannot perform.
// Workspace deletion is the known case: not every store exposes it, and the
// cleanup path must surface "manual cleanup required" instead of pretending
// the workspace is gone.
var ErrUnsupported = errors.New("configstore: operation not supported")

// Variant is one arm of an experiment.
type Variant struct {
	ID        string         `json:"id"`
	Overrides map[string]any `json:"overrides"`
}

// Client is the set of store operations the provisioning and release flows
// consume.
type Client interface {
	// CreateWorkspace creates a workspace and returns its name.
	CreateWorkspace(ctx context.Context, name string) (string, error)

	// DeleteWorkspace removes a workspace. Returns ErrUnsupported when the
	// store has no delete operation; check SupportsWorkspaceDelete first to
	// avoid a guaranteed-failing network call.
	DeleteWorkspace(ctx context.Context, name string) error

	// SupportsWorkspaceDelete reports whether DeleteWorkspace can succeed at
	// all against this store.
	SupportsWorkspaceDelete() bool

	// CreateDefaultConfig writes a default configuration key with its value
	// and JSON schema into a workspace.
	CreateDefaultConfig(ctx context.Context, workspace, key string, value any, schema map[string]any) error

	// CreateExperiment creates an experiment in a workspace and returns its id.
	CreateExperiment(ctx context.Context, workspace, name string, variants []Variant) (string, error)

	// RampExperiment sets the traffic percentage of an experiment.
	RampExperiment(ctx context.Context, workspace, experimentID string, trafficPercent int) error
}
