// Package registry defines the domain types and port for the platform's
// local relational records: organizations, applications, the workspace-name
// allocation table and releases. The identity directory stays the source of
// truth for access; these rows exist so the platform can answer its own
// queries without a directory round trip.
package registry

import "time"

// Organization is a tenant. Access control lives in the directory; this row
// records that the org was fully provisioned.
type Organization struct {
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// Application is a versioned OTA application inside an organization.
type Application struct {
	OrgName       string
	Name          string
	WorkspaceName string
	CreatedBy     string
	CreatedAt     time.Time
}

// Release is one rollout of a package/config version pair, gated by a
// staged traffic percentage.
type Release struct {
	ID             string
	OrgName        string
	AppName        string
	PackageVersion int
	ConfigVersion  string
	RolloutPercent int
	ExperimentID   string
	CreatedBy      string
	CreatedAt      time.Time
}
