package registry

import "context"

// Repository is the port for the local relational store.
type Repository interface {
	// InsertOrganization records a fully provisioned organization.
	InsertOrganization(ctx context.Context, org *Organization) error

	// GetOrganization returns the organization or an error wrapping
	// ErrNoRows semantics from the implementation.
	GetOrganization(ctx context.Context, name string) (*Organization, error)

	// AllocateWorkspaceName reserves a unique workspace name for an
	// organization and returns it. Names are derived from the row id
	// ("workspace<id>") so they are unique across the whole store.
	AllocateWorkspaceName(ctx context.Context, orgName string) (string, error)

	// InsertApplication records a fully provisioned application.
	InsertApplication(ctx context.Context, app *Application) error

	// GetApplication returns the application within an organization.
	GetApplication(ctx context.Context, orgName, appName string) (*Application, error)

	// InsertRelease records a new release row.
	InsertRelease(ctx context.Context, rel *Release) error
}
