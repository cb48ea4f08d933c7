package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/airlift-ota/airlift/internal/registry"
)

// RegistryRepository is the SQLite implementation of registry.Repository.
type RegistryRepository struct {
	db *sql.DB
}

func NewRegistryRepository(db *sql.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) InsertOrganization(ctx context.Context, org *registry.Organization) error {
	const q = `INSERT INTO organizations (name, created_by, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, org.Name, org.CreatedBy, formatTime(org.CreatedAt)); err != nil {
		return fmt.Errorf("sqlite: insert organization %q: %w", org.Name, err)
	}
	return nil
}

func (r *RegistryRepository) GetOrganization(ctx context.Context, name string) (*registry.Organization, error) {
	const q = `SELECT name, created_by, created_at FROM organizations WHERE name = ?`

	var (
		org       registry.Organization
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, q, name).Scan(&org.Name, &org.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: organization %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get organization %q: %w", name, err)
	}
	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &org, nil
}

// AllocateWorkspaceName inserts a placeholder row, derives the name from the
// generated rowid and writes it back. Two steps, but the placeholder is
// harmless if the process dies in between: the id is burned and the next
// allocation gets a fresh one.
func (r *RegistryRepository) AllocateWorkspaceName(ctx context.Context, orgName string) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO workspace_names (organization_id, workspace_name) VALUES (?, 'pending')`, orgName)
	if err != nil {
		return "", fmt.Errorf("sqlite: allocate workspace name for %q: %w", orgName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("sqlite: allocate workspace name for %q: %w", orgName, err)
	}

	name := fmt.Sprintf("workspace%d", id)
	if _, err := r.db.ExecContext(ctx,
		`UPDATE workspace_names SET workspace_name = ? WHERE id = ?`, name, id); err != nil {
		return "", fmt.Errorf("sqlite: finalize workspace name %q: %w", name, err)
	}
	return name, nil
}

func (r *RegistryRepository) InsertApplication(ctx context.Context, app *registry.Application) error {
	const q = `
		INSERT INTO applications (org_name, name, workspace_name, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		app.OrgName, app.Name, app.WorkspaceName, app.CreatedBy, formatTime(app.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert application %q/%q: %w", app.OrgName, app.Name, err)
	}
	return nil
}

func (r *RegistryRepository) GetApplication(ctx context.Context, orgName, appName string) (*registry.Application, error) {
	const q = `
		SELECT org_name, name, workspace_name, created_by, created_at
		FROM   applications
		WHERE  org_name = ? AND name = ?`

	var (
		app       registry.Application
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, q, orgName, appName).
		Scan(&app.OrgName, &app.Name, &app.WorkspaceName, &app.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: application %q/%q not found", orgName, appName)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get application %q/%q: %w", orgName, appName, err)
	}
	if app.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *RegistryRepository) InsertRelease(ctx context.Context, rel *registry.Release) error {
	const q = `
		INSERT INTO releases
			(id, org_name, app_name, package_version, config_version, rollout_percent, experiment_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		rel.ID, rel.OrgName, rel.AppName, rel.PackageVersion, rel.ConfigVersion,
		rel.RolloutPercent, rel.ExperimentID, rel.CreatedBy, formatTime(rel.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert release %q: %w", rel.ID, err)
	}
	return nil
}
