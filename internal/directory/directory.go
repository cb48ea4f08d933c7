// Package directory defines the port for the hierarchical identity/group
// directory (orgs and apps are parent groups, access levels are role
// subgroups nested under them) and an HTTP implementation against a
// Keycloak-style admin REST API.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the referenced user, group or membership does
// not exist. The compensation path relies on it: deleting an already-deleted
// group or removing an absent membership counts as success.
var ErrNotFound = errors.New("directory: not found")

// Group is a directory group. Path is the slash-separated hierarchy path,
// e.g. "/acme/read".
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// User is a directory user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Client is the set of directory operations the provisioning sagas and the
// compensation core consume. All mutating calls are idempotent from the
// caller's perspective: repeating them after success must not fail harder
// than ErrNotFound.
type Client interface {
	// CreateGroup creates a top-level group and returns its id.
	CreateGroup(ctx context.Context, name string) (string, error)

	// CreateChildGroup creates a subgroup under parentID and returns its id.
	CreateChildGroup(ctx context.Context, parentID, name string) (string, error)

	// DeleteGroup deletes a group and, cascading, all its children.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddUserToGroup makes userID a member of groupID.
	AddUserToGroup(ctx context.Context, userID, groupID string) error

	// RemoveUserFromGroup removes the membership.
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error

	// FindUserByUsername returns the user with the exact username, or
	// ErrNotFound.
	FindUserByUsername(ctx context.Context, username string) (*User, error)

	// FindGroupByName returns the top-level group with the exact name, or
	// ErrNotFound.
	FindGroupByName(ctx context.Context, name string) (*Group, error)

	// ListChildGroups returns the direct subgroups of a group.
	ListChildGroups(ctx context.Context, groupID string) ([]Group, error)

	// ListUserGroups returns every group the user is a member of.
	ListUserGroups(ctx context.Context, userID string) ([]Group, error)

	// ListGroupMembers returns the users that are members of a group.
	ListGroupMembers(ctx context.Context, groupID string) ([]User, error)
}
